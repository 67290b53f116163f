package booking

import (
	"errors"
	"testing"
	"time"
)

func intp(v int) *int { return &v }

func TestLevelForBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow}, {29, RiskLow}, {30, RiskMedium}, {59, RiskMedium}, {60, RiskHigh}, {100, RiskHigh},
	}
	for _, c := range cases {
		if got := LevelFor(c.score); got != c.want {
			t.Fatalf("LevelFor(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestLevelForIsTotalOverRange(t *testing.T) {
	for s := 0; s <= 100; s++ {
		l := LevelFor(s)
		switch {
		case s >= 60 && l != RiskHigh,
			s >= 30 && s < 60 && l != RiskMedium,
			s < 30 && l != RiskLow:
			t.Fatalf("score %d got level %s", s, l)
		}
	}
}

func TestPatchValidateRejectsLevelMismatch(t *testing.T) {
	lvl := RiskLow
	p := Patch{RiskScore: intp(75), RiskLevel: &lvl}
	if err := p.Validate(); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch, got %v", err)
	}
}

func TestPatchValidateReleasedNeedsTimestamp(t *testing.T) {
	st := StatusEscrowReleased
	if err := (Patch{Status: &st}).Validate(); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("status without releasedAt: expected ErrInvalidPatch, got %v", err)
	}
	now := time.Now()
	if err := (Patch{ReleasedAt: &now}).Validate(); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("releasedAt without status: expected ErrInvalidPatch, got %v", err)
	}
	if err := (Patch{Status: &st, ReleasedAt: &now}).Validate(); err != nil {
		t.Fatalf("valid release patch: %v", err)
	}
}

func TestPatchCheckAgainstTransitions(t *testing.T) {
	now := time.Now()
	released := StatusEscrowReleased
	locked := StatusEscrowLocked
	pending := StatusPendingAnalysis

	release := Patch{Status: &released, ReleasedAt: &now}
	if err := release.CheckAgainst(Booking{Status: StatusEscrowLocked}); err != nil {
		t.Fatalf("locked -> released: %v", err)
	}
	if err := release.CheckAgainst(Booking{Status: StatusPendingAnalysis}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> released: expected ErrInvalidTransition, got %v", err)
	}
	if err := (Patch{Status: &pending}).CheckAgainst(Booking{Status: StatusEscrowLocked}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("locked -> pending must be rejected, got %v", err)
	}
	if err := (Patch{Status: &locked}).CheckAgainst(Booking{Status: StatusEscrowReleased}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("released is terminal, got %v", err)
	}
}

func TestPatchCheckAgainstRejectsRescoring(t *testing.T) {
	lvl := RiskMedium
	p := Patch{RiskScore: intp(40), RiskLevel: &lvl}
	if err := p.CheckAgainst(Booking{ID: "b1", RiskScore: intp(10)}); !errors.Is(err, ErrAlreadyScored) {
		t.Fatalf("expected ErrAlreadyScored, got %v", err)
	}
}

func TestPatchApplyBumpsVersionAndCopies(t *testing.T) {
	lvl := RiskHigh
	score := 90
	reason := "r"
	cur := Booking{ID: "b1", Version: 3}
	out := (Patch{RiskScore: &score, RiskLevel: &lvl, RiskReason: &reason}).Apply(cur)
	if out.Version != 4 {
		t.Fatalf("expected version 4, got %d", out.Version)
	}
	score = 1
	if *out.RiskScore != 90 {
		t.Fatalf("apply must copy the score, got %d", *out.RiskScore)
	}
	if cur.RiskScore != nil {
		t.Fatalf("apply must not mutate the input")
	}
}
