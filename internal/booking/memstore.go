package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process store with the same compare-and-set
// semantics as Repo. Used for tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Booking
}

func NewMemoryStore(seed ...Booking) *MemoryStore {
	m := &MemoryStore{rows: make(map[string]Booking, len(seed))}
	for _, b := range seed {
		_, _ = m.Insert(context.Background(), b)
	}
	return m
}

// Insert stores b as a new record. Empty ID and zero CreatedAt are filled in.
func (m *MemoryStore) Insert(_ context.Context, b Booking) (Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Status == "" {
		b.Status = StatusPendingAnalysis
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[b.ID] = clone(b)
	return clone(b), nil
}

func (m *MemoryStore) List(_ context.Context) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Booking, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return clone(b), nil
}

func (m *MemoryStore) UpdateFields(_ context.Context, id string, expectedVersion int64, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	if err := p.CheckAgainst(cur); err != nil {
		return err
	}
	m.rows[id] = p.Apply(cur)
	return nil
}

func clone(b Booking) Booking {
	if b.RiskScore != nil {
		s := *b.RiskScore
		b.RiskScore = &s
	}
	if b.ReleasedAt != nil {
		t := *b.ReleasedAt
		b.ReleasedAt = &t
	}
	return b
}
