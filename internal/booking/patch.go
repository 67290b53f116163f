package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrVersionConflict   = errors.New("booking version conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidPatch      = errors.New("invalid booking patch")
	ErrAlreadyScored     = errors.New("booking already scored")
)

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	RiskScore   *int
	RiskLevel   *RiskLevel
	RiskReason  *string
	NeedsReview *bool
	Status      *Status
	ReleasedAt  *time.Time
}

func (p Patch) Empty() bool {
	return p.RiskScore == nil && p.RiskLevel == nil && p.RiskReason == nil &&
		p.NeedsReview == nil && p.Status == nil && p.ReleasedAt == nil
}

// Validate checks the patch in isolation: score/level agree, and status
// RELEASED travels together with releasedAt.
func (p Patch) Validate() error {
	if p.Empty() {
		return fmt.Errorf("%w: empty", ErrInvalidPatch)
	}
	if (p.RiskScore == nil) != (p.RiskLevel == nil) {
		return fmt.Errorf("%w: riskScore and riskLevel must be set together", ErrInvalidPatch)
	}
	if p.RiskScore != nil {
		if *p.RiskScore < 0 || *p.RiskScore > 100 {
			return fmt.Errorf("%w: riskScore %d out of range", ErrInvalidPatch, *p.RiskScore)
		}
		if want := LevelFor(*p.RiskScore); *p.RiskLevel != want {
			return fmt.Errorf("%w: riskLevel %s does not match score %d (want %s)", ErrInvalidPatch, *p.RiskLevel, *p.RiskScore, want)
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPatch, *p.Status)
	}
	released := p.Status != nil && *p.Status == StatusEscrowReleased
	if released != (p.ReleasedAt != nil) {
		return fmt.Errorf("%w: releasedAt must be set iff status is %s", ErrInvalidPatch, StatusEscrowReleased)
	}
	return nil
}

// CheckAgainst validates the patch against the current record state.
func (p Patch) CheckAgainst(cur Booking) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.RiskScore != nil && cur.RiskScore != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyScored, cur.ID)
	}
	if p.Status != nil && !CanTransition(cur.Status, *p.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, *p.Status)
	}
	return nil
}

// Apply returns cur with the patch applied and Version bumped.
func (p Patch) Apply(cur Booking) Booking {
	out := cur
	if p.RiskScore != nil {
		s := *p.RiskScore
		out.RiskScore = &s
	}
	if p.RiskLevel != nil {
		out.RiskLevel = *p.RiskLevel
	}
	if p.RiskReason != nil {
		out.RiskReason = *p.RiskReason
	}
	if p.NeedsReview != nil {
		out.NeedsReview = *p.NeedsReview
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ReleasedAt != nil {
		t := *p.ReleasedAt
		out.ReleasedAt = &t
	}
	out.Version++
	return out
}
