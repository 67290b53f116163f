package booking

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestUpdateStatementScoring(t *testing.T) {
	score, level, reason := 72, RiskHigh, "large deposit"
	q, args, err := updateStatement("bk-1", 4, Patch{RiskScore: &score, RiskLevel: &level, RiskReason: &reason})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "UPDATE bookings SET risk_score=$3, risk_level=$4, risk_reason=$5, version = version + 1 WHERE id=$1 AND version=$2 AND risk_score IS NULL"
	if q != want {
		t.Fatalf("query mismatch\n got: %s\nwant: %s", q, want)
	}
	if !reflect.DeepEqual(args, []any{"bk-1", int64(4), 72, "High", "large deposit"}) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestUpdateStatementRelease(t *testing.T) {
	at := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	status := StatusEscrowReleased
	q, args, err := updateStatement("bk-2", 7, Patch{Status: &status, ReleasedAt: &at})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "UPDATE bookings SET status=$3, released_at=$4, version = version + 1 WHERE id=$1 AND version=$2 AND status = ANY($5)"
	if q != want {
		t.Fatalf("query mismatch\n got: %s\nwant: %s", q, want)
	}
	if len(args) != 5 || !reflect.DeepEqual(args[4], []string{string(StatusEscrowLocked)}) {
		t.Fatalf("release must require ESCROW_LOCKED, args=%#v", args)
	}
}

func TestUpdateStatementRejectsUnreachableStatus(t *testing.T) {
	status := StatusPendingAnalysis
	if _, _, err := updateStatement("bk-3", 0, Patch{Status: &status}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// rowValues feeds scanBooking like a pgx row; nil means SQL NULL.
type rowValues []any

func (r rowValues) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		v := reflect.ValueOf(d).Elem()
		if r[i] == nil {
			v.Set(reflect.Zero(v.Type()))
			continue
		}
		v.Set(reflect.ValueOf(r[i]))
	}
	return nil
}

func TestScanBookingNulls(t *testing.T) {
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	b, err := scanBooking(rowValues{
		"bk-1", "u@x.io", "THB", "card", "Condo",
		12000.0, 48000.0, 6, nil, nil, "PENDING_ANALYSIS",
		nil, nil, nil, false, int64(0), created, nil,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if b.RiskScore != nil || b.RiskLevel != "" || b.RiskReason != "" || b.ReleasedAt != nil {
		t.Fatalf("NULL columns should stay unset: %+v", b)
	}
	if b.TxID != "" || !b.CheckInDate.IsZero() || b.Status != StatusPendingAnalysis {
		t.Fatalf("unexpected fields: %+v", b)
	}
}

func TestScanBookingValues(t *testing.T) {
	txid, level, reason := "tx-9", "Medium", "long stay"
	checkIn := time.Date(2026, 6, 1, 14, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	released := time.Date(2026, 6, 1, 7, 0, 30, 0, time.UTC)
	score := 35
	b, err := scanBooking(rowValues{
		"bk-2", "u@x.io", "THB", "card", "Condo",
		12000.0, 48000.0, 13, &txid, &checkIn, "ESCROW_RELEASED",
		&score, &level, &reason, true, int64(3), released, &released,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if b.RiskScore == nil || *b.RiskScore != 35 || b.RiskLevel != RiskMedium || b.RiskReason != "long stay" {
		t.Fatalf("risk fields: %+v", b)
	}
	if b.TxID != "tx-9" || b.CheckInDate.Location() != time.UTC || !b.CheckInDate.Equal(checkIn) {
		t.Fatalf("txid/check-in: %+v", b)
	}
	if b.ReleasedAt == nil || !b.ReleasedAt.Equal(released) || b.Version != 3 || !b.NeedsReview {
		t.Fatalf("release fields: %+v", b)
	}
}
