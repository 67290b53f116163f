package escrow

import (
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
)

// ReleaseEligible reports whether b's escrow is due: locked, with a known
// check-in date that is not after now.
func ReleaseEligible(b booking.Booking, now time.Time) bool {
	if b.Status != booking.StatusEscrowLocked {
		return false
	}
	if b.CheckInDate.IsZero() {
		return false
	}
	return !b.CheckInDate.After(now)
}

// ReleasePatch is the LOCKED -> RELEASED transition stamped at now.
func ReleasePatch(now time.Time) booking.Patch {
	st := booking.StatusEscrowReleased
	at := now.UTC()
	return booking.Patch{Status: &st, ReleasedAt: &at}
}
