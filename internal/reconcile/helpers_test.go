package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
)

var errStoreDown = errors.New("store down")

func intp(v int) *int { return &v }

// countingStore counts UpdateFields calls and can fail chosen records.
type countingStore struct {
	*booking.MemoryStore
	calls atomic.Int64

	mu      sync.Mutex
	failIDs map[string]bool
	listErr error
}

func newCountingStore(seed ...booking.Booking) *countingStore {
	return &countingStore{MemoryStore: booking.NewMemoryStore(seed...), failIDs: map[string]bool{}}
}

func (s *countingStore) List(ctx context.Context) ([]booking.Booking, error) {
	s.mu.Lock()
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.List(ctx)
}

func (s *countingStore) UpdateFields(ctx context.Context, id string, v int64, p booking.Patch) error {
	s.calls.Add(1)
	s.mu.Lock()
	fail := s.failIDs[id]
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryStore.UpdateFields(ctx, id, v, p)
}

func (s *countingStore) setFail(id string, fail bool) {
	s.mu.Lock()
	s.failIDs[id] = fail
	s.mu.Unlock()
}

// barrierStore makes n scans list before any of them proceeds, so all of
// them observe the same records as eligible.
type barrierStore struct {
	*booking.MemoryStore
	arrived sync.WaitGroup
}

func newBarrierStore(n int, seed ...booking.Booking) *barrierStore {
	s := &barrierStore{MemoryStore: booking.NewMemoryStore(seed...)}
	s.arrived.Add(n)
	return s
}

func (s *barrierStore) List(ctx context.Context) ([]booking.Booking, error) {
	list, err := s.MemoryStore.List(ctx)
	s.arrived.Done()
	s.arrived.Wait()
	return list, err
}

type recordingNotifier struct {
	mu       sync.Mutex
	scored   []risk.Result
	released []string
}

func (n *recordingNotifier) BookingScored(_ context.Context, _ booking.Booking, r risk.Result, _ bool) error {
	n.mu.Lock()
	n.scored = append(n.scored, r)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) EscrowReleased(_ context.Context, b booking.Booking, _ time.Time) error {
	n.mu.Lock()
	n.released = append(n.released, b.ID)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) releasedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.released)
}

type memLeaser struct {
	mu      sync.Mutex
	held    map[string]bool
	denyAll bool
}

func newMemLeaser() *memLeaser { return &memLeaser{held: map[string]bool{}} }

func (l *memLeaser) Acquire(_ context.Context, pass, id string) (func(context.Context), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := pass + ":" + id
	if l.denyAll || l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

// downLeaser behaves like a lease backend that cannot be reached.
type downLeaser struct{}

func (downLeaser) Acquire(context.Context, string, string) (func(context.Context), bool, error) {
	return nil, false, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}
