package risk

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
)

const (
	depositThreshold   = 10000
	monthsThreshold    = 12
	totalThreshold     = 50000
	userBookingsCutoff = 3

	weightDeposit      = 30
	weightMonths       = 20
	weightMissingTxID  = 15
	weightTotal        = 25
	weightRepeatBooker = 20
)

// RuleScorer is the deterministic additive heuristic. Score is capped at 100.
type RuleScorer struct{}

func (RuleScorer) Score(_ context.Context, in Input) Result {
	b := in.Booking
	score := 0
	var hits []string

	if b.DepositAmount > depositThreshold {
		score += weightDeposit
		hits = append(hits, "deposit>10000")
	}
	if b.Months > monthsThreshold {
		score += weightMonths
		hits = append(hits, "months>12")
	}
	if strings.TrimSpace(b.TxID) == "" {
		score += weightMissingTxID
		hits = append(hits, "txid missing")
	}
	if b.TotalAmount > totalThreshold {
		score += weightTotal
		hits = append(hits, "total>50000")
	}
	// "existing" = other bookings by the same user
	if in.UserBookings-1 > userBookingsCutoff {
		score += weightRepeatBooker
		hits = append(hits, "user has >3 bookings")
	}
	if score > 100 {
		score = 100
	}

	reason := "no risk signals"
	if len(hits) > 0 {
		reason = strings.Join(hits, ", ")
	}
	return Result{Score: score, Level: booking.LevelFor(score), Reason: reason, Source: SourceRule}
}
