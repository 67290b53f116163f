// Package risk assigns fraud-risk results to bookings. Two strategies sit
// behind Scorer: a deterministic additive RuleScorer and a DelegatedScorer
// that asks an external reasoning service and degrades to a fixed fallback
// result whenever that service cannot give a valid answer.
package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
)

const (
	SourceRule     = "rule"
	SourceDelegate = "delegate"

	FallbackScore  = 50
	FallbackReason = "fallback"
)

var (
	ErrDelegateUnavailable = errors.New("risk delegate unavailable")
	ErrDelegateMalformed   = errors.New("risk delegate reply malformed")
)

// Input is what a scorer sees: the booking snapshot plus how many bookings
// the same user has in that snapshot (the booking itself included).
type Input struct {
	Booking      booking.Booking
	UserBookings int
}

// Result is a tagged risk result. Fallback is true only for the fixed
// substitute produced when the delegate fails.
type Result struct {
	Score    int
	Level    booking.RiskLevel
	Reason   string
	Source   string
	Fallback bool
}

// Fallback is the fixed result used when the delegate cannot answer.
func Fallback() Result {
	return Result{
		Score:    FallbackScore,
		Level:    booking.RiskMedium,
		Reason:   FallbackReason,
		Source:   SourceDelegate,
		Fallback: true,
	}
}

// Patch turns r into the scoring fields of a booking update.
func (r Result) Patch() booking.Patch {
	score, level, reason := r.Score, r.Level, r.Reason
	return booking.Patch{RiskScore: &score, RiskLevel: &level, RiskReason: &reason}
}

type Scorer interface {
	Score(ctx context.Context, in Input) Result
}

const (
	StrategyRule     = "rule"
	StrategyDelegate = "delegate"
)

// New picks a scorer by strategy name. Delegate is required for "delegate".
func New(strategy string, d Delegate, opts ...DelegatedOption) (Scorer, error) {
	switch strategy {
	case "", StrategyRule:
		return RuleScorer{}, nil
	case StrategyDelegate:
		if d == nil {
			return nil, fmt.Errorf("risk: strategy %q needs a delegate", strategy)
		}
		return NewDelegatedScorer(d, opts...), nil
	default:
		return nil, fmt.Errorf("risk: unknown strategy %q", strategy)
	}
}
