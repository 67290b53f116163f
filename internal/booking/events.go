package booking

import (
	"encoding/json"
	"time"
)

const (
	EventBookingCreated = "BookingCreated"
	EventBookingScored  = "BookingScored"
	EventEscrowReleased = "EscrowReleased"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "escrow-reconciler"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // booking_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

// BookingCreatedPayload is published by intake; we only need the id.
type BookingCreatedPayload struct {
	BookingID string `json:"booking_id"`
	UserEmail string `json:"user_email,omitempty"`
}

type BookingScoredPayload struct {
	BookingID   string    `json:"booking_id"`
	RiskScore   int       `json:"risk_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	RiskReason  string    `json:"risk_reason"`
	Source      string    `json:"source"` // rule | delegate
	Fallback    bool      `json:"fallback"`
	NeedsReview bool      `json:"needs_review,omitempty"`
}

type EscrowReleasedPayload struct {
	BookingID     string    `json:"booking_id"`
	UserEmail     string    `json:"user_email"`
	PropertyTitle string    `json:"property_title"`
	DepositAmount float64   `json:"deposit_amount"`
	Currency      string    `json:"currency"`
	CheckInDate   time.Time `json:"check_in_date"`
	ReleasedAt    time.Time `json:"released_at"`
}
