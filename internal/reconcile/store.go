package reconcile

import (
	"context"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
)

// Store is the booking collection as the loop sees it. List is a
// point-in-time, possibly stale read. UpdateFields must reject the write
// with booking.ErrVersionConflict when the record is no longer at
// expectedVersion.
type Store interface {
	List(ctx context.Context) ([]booking.Booking, error)
	UpdateFields(ctx context.Context, id string, expectedVersion int64, p booking.Patch) error
}

// Leaser is an optional cross-process lock per (pass, record). An Acquire
// error is logged and the record is processed without a lease.
type Leaser interface {
	Acquire(ctx context.Context, pass, id string) (release func(context.Context), acquired bool, err error)
}

type Notifier interface {
	BookingScored(ctx context.Context, b booking.Booking, r risk.Result, needsReview bool) error
	EscrowReleased(ctx context.Context, b booking.Booking, at time.Time) error
}

// Snapshot is one scan's view of the store.
type Snapshot struct {
	Now      time.Time
	Bookings []booking.Booking
	byUser   map[string]int
}

func NewSnapshot(now time.Time, bs []booking.Booking) Snapshot {
	return Snapshot{Now: now, Bookings: bs, byUser: booking.CountByUser(bs)}
}

// UserBookings counts bookings in the snapshot with the given email.
func (s Snapshot) UserBookings(email string) int { return s.byUser[email] }
