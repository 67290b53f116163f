package reconcile

import (
	"sync/atomic"
	"time"
)

type Outcome int

const (
	OutcomeUpdated  Outcome = iota
	OutcomeConflict         // precondition lost, another writer won
	OutcomeFailed           // stays eligible for the next tick
	OutcomeSkipped          // scan cancelled before the record was picked up
	OutcomeLeased           // lease held elsewhere
)

// Report summarises one pass run.
type Report struct {
	Pass      string        `json:"pass"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Listed    int           `json:"listed"`
	Eligible  int           `json:"eligible"`
	Updated   int           `json:"updated"`
	Conflicts int           `json:"conflicts"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Leased    int           `json:"leased"`
	Error     string        `json:"error,omitempty"`
}

type tally struct {
	updated, conflicts, failed, skipped, leased atomic.Int64
}

func (t *tally) add(o Outcome) {
	switch o {
	case OutcomeUpdated:
		t.updated.Add(1)
	case OutcomeConflict:
		t.conflicts.Add(1)
	case OutcomeFailed:
		t.failed.Add(1)
	case OutcomeSkipped:
		t.skipped.Add(1)
	case OutcomeLeased:
		t.leased.Add(1)
	}
}

func (t *tally) fill(r *Report) {
	r.Updated = int(t.updated.Load())
	r.Conflicts = int(t.conflicts.Load())
	r.Failed = int(t.failed.Load())
	r.Skipped = int(t.skipped.Load())
	r.Leased = int(t.leased.Load())
}
