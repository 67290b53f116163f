// Package scheduler drives reconciliation passes on independent fixed
// intervals. Each pass gets its own goroutine and ticker, so a slow scoring
// scan never delays the release pass. Stop ends the ticking; Wait returns
// once every loop, including a run in flight, has exited. Stopping the scans
// themselves is up to the runner (see reconcile.WithLifetime).
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/reconcile"
)

type Runner interface {
	Run(ctx context.Context, pass reconcile.Pass) (reconcile.Report, error)
}

type Job struct {
	Pass       reconcile.Pass
	Interval   time.Duration
	RunOnStart bool
}

type Scheduler struct {
	runner   Runner
	jobs     []Job
	triggers map[string]chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(r Runner, jobs ...Job) (*Scheduler, error) {
	if r == nil {
		return nil, fmt.Errorf("scheduler: runner is required")
	}
	s := &Scheduler{runner: r, triggers: make(map[string]chan struct{}, len(jobs))}
	for _, j := range jobs {
		if j.Pass == nil {
			return nil, fmt.Errorf("scheduler: job without pass")
		}
		if j.Interval <= 0 {
			return nil, fmt.Errorf("scheduler: pass %s needs a positive interval, got %s", j.Pass.Name(), j.Interval)
		}
		if _, dup := s.triggers[j.Pass.Name()]; dup {
			return nil, fmt.Errorf("scheduler: pass %s registered twice", j.Pass.Name())
		}
		s.triggers[j.Pass.Name()] = make(chan struct{}, 1)
		s.jobs = append(s.jobs, j)
	}
	return s, nil
}

// Start launches one loop per job. Calling Start twice is a no-op.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j, s.triggers[j.Pass.Name()])
	}
	log.Printf("[scheduler] started %d pass(es)", len(s.jobs))
}

// Trigger asks for an immediate run of the named pass. Requests made while
// one is already pending are coalesced. Returns false for unknown passes.
func (s *Scheduler) Trigger(name string) bool {
	ch, ok := s.triggers[name]
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

// Stop cancels all loops. A run already in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every loop has exited.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, j Job, trigger <-chan struct{}) {
	defer s.wg.Done()
	t := time.NewTicker(j.Interval)
	defer t.Stop()

	if j.RunOnStart {
		s.runOnce(ctx, j)
	}
	for {
		select {
		case <-ctx.Done():
			log.Printf("[scheduler] pass=%s stopped", j.Pass.Name())
			return
		case <-t.C:
			s.runOnce(ctx, j)
		case <-trigger:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx, j.Pass); err != nil {
		// tidak fatal: tick berikutnya coba lagi
		log.Printf("[scheduler] pass=%s run: %v", j.Pass.Name(), err)
	}
}
