package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	"github.com/ariefcatur/go-escrow-reconciler/internal/escrow"
	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
)

const (
	PassScoring = "scoring"
	PassRelease = "release"
)

// ScoringPass scores every booking that has no risk score yet.
type ScoringPass struct {
	Scorer   risk.Scorer
	Notifier Notifier // optional
	// FlagFallbackForReview marks fallback-scored bookings NeedsReview.
	FlagFallbackForReview bool
}

func (ScoringPass) Name() string { return PassScoring }

func (ScoringPass) Eligible(b booking.Booking, _ time.Time) bool { return !b.Scored() }

func (p ScoringPass) Plan(ctx context.Context, b booking.Booking, snap Snapshot) (Action, error) {
	res := p.Scorer.Score(ctx, risk.Input{Booking: b, UserBookings: snap.UserBookings(b.UserEmail)})
	patch := res.Patch()
	if res.Fallback && p.FlagFallbackForReview {
		review := true
		patch.NeedsReview = &review
	}
	return Action{Patch: patch, Risk: &res}, nil
}

func (p ScoringPass) Committed(ctx context.Context, after booking.Booking, a Action) {
	if p.Notifier == nil || a.Risk == nil {
		return
	}
	if err := p.Notifier.BookingScored(ctx, after, *a.Risk, after.NeedsReview); err != nil {
		log.Printf("[reconcile] notify scored booking=%s: %v", after.ID, err)
	}
}

// ReleasePass releases escrow for locked bookings whose check-in has come.
type ReleasePass struct {
	Notifier Notifier // optional
}

func (ReleasePass) Name() string { return PassRelease }

func (ReleasePass) Eligible(b booking.Booking, now time.Time) bool {
	return escrow.ReleaseEligible(b, now)
}

func (ReleasePass) Plan(_ context.Context, _ booking.Booking, snap Snapshot) (Action, error) {
	return Action{Patch: escrow.ReleasePatch(snap.Now)}, nil
}

func (p ReleasePass) Committed(ctx context.Context, after booking.Booking, _ Action) {
	log.Printf("[reconcile] Auto released: %s", after.ID)
	if p.Notifier == nil || after.ReleasedAt == nil {
		return
	}
	if err := p.Notifier.EscrowReleased(ctx, after, *after.ReleasedAt); err != nil {
		log.Printf("[reconcile] notify released booking=%s: %v", after.ID, err)
	}
}
