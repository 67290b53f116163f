// Package reconcile runs reconciliation passes over the booking store. A
// single Loop serves every pass: it lists the store, selects the records the
// pass considers eligible and works through them on a bounded worker pool,
// writing each result with a version precondition so that overlapping scans
// converge on one winner per record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	"github.com/ariefcatur/go-escrow-reconciler/internal/clock"
	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
)

const DefaultWorkers = 8

// ErrNoAction lets a pass decline a record it selected.
var ErrNoAction = errors.New("no action")

// Action is what a pass wants written for one record.
type Action struct {
	Patch booking.Patch
	Risk  *risk.Result // scoring pass only
}

type Pass interface {
	Name() string
	Eligible(b booking.Booking, now time.Time) bool
	Plan(ctx context.Context, b booking.Booking, snap Snapshot) (Action, error)
	// Committed runs after a successful write with the updated record.
	Committed(ctx context.Context, after booking.Booking, a Action)
}

type Loop struct {
	store   Store
	clock   clock.Clock
	workers int
	leaser  Leaser
	tracer  trace.Tracer

	// lifetime bounds every scan; callers' contexts do not.
	lifetime context.Context
	flight   singleflight.Group

	mu   sync.Mutex
	last map[string]Report
}

type Option func(*Loop)

func WithWorkers(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLifetime sets the context whose cancellation stops scans from
// dispatching further records. Defaults to context.Background().
func WithLifetime(ctx context.Context) Option {
	return func(l *Loop) {
		if ctx != nil {
			l.lifetime = ctx
		}
	}
}

// WithLeaser enables per-record leases; nil keeps them off.
func WithLeaser(le Leaser) Option {
	return func(l *Loop) { l.leaser = le }
}

func New(store Store, clk clock.Clock, opts ...Option) *Loop {
	if clk == nil {
		clk = clock.System{}
	}
	l := &Loop{
		store:    store,
		clock:    clk,
		workers:  DefaultWorkers,
		tracer:   otel.Tracer("github.com/ariefcatur/go-escrow-reconciler/internal/reconcile"),
		lifetime: context.Background(),
		last:     make(map[string]Report),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Run executes one scan of pass and blocks until it is done. Concurrent
// calls for the same pass join the scan already in flight and receive its
// report. The scan keeps ctx's values but is cancelled only by the loop's
// lifetime, so a caller that goes away cannot cut short a scan others joined.
func (l *Loop) Run(ctx context.Context, pass Pass) (Report, error) {
	v, err, _ := l.flight.Do(pass.Name(), func() (any, error) {
		scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(l.lifetime, cancel)
		defer stop()

		rep, err := l.scan(scanCtx, pass)
		l.remember(rep)
		return rep, err
	})
	return v.(Report), err
}

// Last returns the most recent report of every pass that has run.
func (l *Loop) Last() map[string]Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Report, len(l.last))
	for k, v := range l.last {
		out[k] = v
	}
	return out
}

func (l *Loop) remember(r Report) {
	l.mu.Lock()
	l.last[r.Pass] = r
	l.mu.Unlock()
}

func (l *Loop) scan(ctx context.Context, pass Pass) (Report, error) {
	ctx, span := l.tracer.Start(ctx, "reconcile.pass", trace.WithAttributes(attribute.String("pass", pass.Name())))
	defer span.End()

	started := time.Now()
	rep := Report{Pass: pass.Name(), StartedAt: l.clock.Now()}

	list, err := l.store.List(ctx)
	if err != nil {
		rep.Duration = time.Since(started)
		rep.Error = err.Error()
		span.SetStatus(codes.Error, err.Error())
		log.Printf("[reconcile] pass=%s list failed: %v", pass.Name(), err)
		return rep, fmt.Errorf("list bookings: %w", err)
	}
	snap := NewSnapshot(rep.StartedAt, list)
	rep.Listed = len(list)

	eligible := make([]booking.Booking, 0, len(list))
	for _, b := range list {
		if pass.Eligible(b, snap.Now) {
			eligible = append(eligible, b)
		}
	}
	rep.Eligible = len(eligible)

	var t tally
	var g errgroup.Group
	g.SetLimit(l.workers)
	for i, b := range eligible {
		if ctx.Err() != nil {
			// stop: record yang belum diambil tidak disentuh
			for range eligible[i:] {
				t.add(OutcomeSkipped)
			}
			break
		}
		b := b
		g.Go(func() error {
			t.add(l.process(ctx, pass, snap, b))
			return nil
		})
	}
	_ = g.Wait()

	t.fill(&rep)
	rep.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("listed", rep.Listed),
		attribute.Int("eligible", rep.Eligible),
		attribute.Int("updated", rep.Updated),
		attribute.Int("failed", rep.Failed),
	)
	if rep.Eligible > 0 || rep.Failed > 0 {
		log.Printf("[reconcile] pass=%s listed=%d eligible=%d updated=%d conflicts=%d failed=%d skipped=%d leased=%d took=%s",
			rep.Pass, rep.Listed, rep.Eligible, rep.Updated, rep.Conflicts, rep.Failed, rep.Skipped, rep.Leased, rep.Duration)
	}
	return rep, nil
}

// process handles one record. Once picked up it runs to completion even if
// the scan is cancelled meanwhile.
func (l *Loop) process(scanCtx context.Context, pass Pass, snap Snapshot, b booking.Booking) Outcome {
	if scanCtx.Err() != nil {
		return OutcomeSkipped
	}
	ctx, span := l.tracer.Start(context.WithoutCancel(scanCtx), "reconcile.record",
		trace.WithAttributes(attribute.String("pass", pass.Name()), attribute.String("booking.id", b.ID)))
	defer span.End()

	if l.leaser != nil {
		release, ok, err := l.leaser.Acquire(ctx, pass.Name(), b.ID)
		switch {
		case err != nil:
			// lease cuma optimasi; CAS tetap jaga satu pemenang
			log.Printf("[reconcile] pass=%s booking=%s lease unavailable, continuing without: %v", pass.Name(), b.ID, err)
		case !ok:
			return OutcomeLeased
		default:
			defer release(ctx)
		}
	}

	act, err := pass.Plan(ctx, b, snap)
	if errors.Is(err, ErrNoAction) {
		return OutcomeSkipped
	}
	if err == nil {
		err = act.Patch.CheckAgainst(b)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Printf("[reconcile] pass=%s booking=%s plan: %v", pass.Name(), b.ID, err)
		return OutcomeFailed
	}

	err = l.store.UpdateFields(ctx, b.ID, b.Version, act.Patch)
	switch {
	case err == nil:
		pass.Committed(ctx, act.Patch.Apply(b), act)
		return OutcomeUpdated
	case errors.Is(err, booking.ErrVersionConflict),
		errors.Is(err, booking.ErrAlreadyScored),
		errors.Is(err, booking.ErrInvalidTransition):
		return OutcomeConflict
	default:
		span.SetStatus(codes.Error, err.Error())
		log.Printf("[reconcile] pass=%s booking=%s write failed: %v", pass.Name(), b.ID, err)
		return OutcomeFailed
	}
}
