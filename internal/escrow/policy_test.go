package escrow

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
)

func TestReleaseEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		b    booking.Booking
		want bool
	}{
		{"locked and past", booking.Booking{Status: booking.StatusEscrowLocked, CheckInDate: now.Add(-time.Hour)}, true},
		{"locked and exactly now", booking.Booking{Status: booking.StatusEscrowLocked, CheckInDate: now}, true},
		{"locked but future", booking.Booking{Status: booking.StatusEscrowLocked, CheckInDate: now.Add(time.Second)}, false},
		{"locked without date", booking.Booking{Status: booking.StatusEscrowLocked}, false},
		{"pending and past", booking.Booking{Status: booking.StatusPendingAnalysis, CheckInDate: now.Add(-time.Hour)}, false},
		{"already released", booking.Booking{Status: booking.StatusEscrowReleased, CheckInDate: now.Add(-time.Hour)}, false},
	}
	for _, c := range cases {
		if got := ReleaseEligible(c.b, now); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestReleasePatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	p := ReleasePatch(now)
	if err := p.CheckAgainst(booking.Booking{Status: booking.StatusEscrowLocked}); err != nil {
		t.Fatalf("release patch invalid: %v", err)
	}
	if !p.ReleasedAt.Equal(now) || p.ReleasedAt.Location() != time.UTC {
		t.Fatalf("expected releasedAt=%s in UTC, got %s", now, p.ReleasedAt)
	}
}
