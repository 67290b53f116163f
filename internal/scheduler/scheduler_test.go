package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	"github.com/ariefcatur/go-escrow-reconciler/internal/reconcile"
)

type namedPass string

func (p namedPass) Name() string                                               { return string(p) }
func (namedPass) Eligible(booking.Booking, time.Time) bool                     { return false }
func (namedPass) Committed(context.Context, booking.Booking, reconcile.Action) {}
func (namedPass) Plan(context.Context, booking.Booking, reconcile.Snapshot) (reconcile.Action, error) {
	return reconcile.Action{}, reconcile.ErrNoAction
}

type fakeRunner struct {
	mu    sync.Mutex
	runs  map[string]int
	err   error
	block chan struct{}
	enter chan struct{}
	ran   chan string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{runs: map[string]int{}, enter: make(chan struct{}, 64), ran: make(chan string, 64)}
}

func (f *fakeRunner) Run(ctx context.Context, p reconcile.Pass) (reconcile.Report, error) {
	select {
	case f.enter <- struct{}{}:
	default:
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.runs[p.Name()]++
	err := f.err
	f.mu.Unlock()
	select {
	case f.ran <- p.Name():
	default:
	}
	return reconcile.Report{Pass: p.Name()}, err
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[name]
}

func waitRun(t *testing.T, f *fakeRunner, name string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-f.ran:
			if got == name {
				return
			}
		case <-deadline:
			t.Fatalf("pass %s did not run", name)
		}
	}
}

func TestNewValidatesJobs(t *testing.T) {
	r := newFakeRunner()
	if _, err := New(nil, Job{Pass: namedPass("a"), Interval: time.Second}); err == nil {
		t.Fatalf("expected error for nil runner")
	}
	if _, err := New(r, Job{Interval: time.Second}); err == nil {
		t.Fatalf("expected error for missing pass")
	}
	if _, err := New(r, Job{Pass: namedPass("a")}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := New(r, Job{Pass: namedPass("a"), Interval: time.Second}, Job{Pass: namedPass("a"), Interval: time.Minute}); err == nil {
		t.Fatalf("expected error for duplicate pass")
	}
}

func TestPassesTickIndependently(t *testing.T) {
	r := newFakeRunner()
	s, err := New(r,
		Job{Pass: namedPass("fast"), Interval: 10 * time.Millisecond},
		Job{Pass: namedPass("slow"), Interval: time.Hour},
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start(context.Background())
	defer func() { s.Stop(); s.Wait() }()

	waitRun(t, r, "fast")
	waitRun(t, r, "fast")
	if r.count("slow") != 0 {
		t.Fatalf("slow pass ran before its interval")
	}
}

func TestRunOnStart(t *testing.T) {
	r := newFakeRunner()
	s, _ := New(r, Job{Pass: namedPass("release"), Interval: time.Hour, RunOnStart: true})
	s.Start(context.Background())
	defer func() { s.Stop(); s.Wait() }()
	waitRun(t, r, "release")
}

func TestTriggerRunsPassEarly(t *testing.T) {
	r := newFakeRunner()
	s, _ := New(r, Job{Pass: namedPass("scoring"), Interval: time.Hour})
	s.Start(context.Background())
	defer func() { s.Stop(); s.Wait() }()

	if !s.Trigger("scoring") {
		t.Fatalf("trigger of known pass returned false")
	}
	waitRun(t, r, "scoring")
	if s.Trigger("nope") {
		t.Fatalf("trigger of unknown pass returned true")
	}
}

func TestTriggersCoalesceWhileRunning(t *testing.T) {
	r := newFakeRunner()
	r.block = make(chan struct{})
	s, _ := New(r, Job{Pass: namedPass("scoring"), Interval: time.Hour})
	s.Start(context.Background())

	s.Trigger("scoring")
	<-r.enter // first run is now blocked inside Run
	for i := 0; i < 10; i++ {
		s.Trigger("scoring")
	}
	close(r.block)
	waitRun(t, r, "scoring")
	waitRun(t, r, "scoring")
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Wait()

	if n := r.count("scoring"); n != 2 {
		t.Fatalf("expected pending triggers to coalesce into one run, got %d runs", n)
	}
}

func TestRunErrorsDoNotStopTheLoop(t *testing.T) {
	r := newFakeRunner()
	r.err = errors.New("store down")
	s, _ := New(r, Job{Pass: namedPass("release"), Interval: 10 * time.Millisecond})
	s.Start(context.Background())
	defer func() { s.Stop(); s.Wait() }()

	waitRun(t, r, "release")
	waitRun(t, r, "release")
}

func TestStopWaitsForLoops(t *testing.T) {
	r := newFakeRunner()
	r.block = make(chan struct{})
	s, _ := New(r, Job{Pass: namedPass("release"), Interval: time.Hour, RunOnStart: true})
	s.Start(context.Background())
	s.Start(context.Background()) // no-op
	<-r.enter

	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatalf("Wait returned while a run was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	close(r.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return after the run finished")
	}
	if n := r.count("release"); n != 1 {
		t.Fatalf("expected exactly one run, got %d", n)
	}
}
