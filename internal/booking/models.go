package booking

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// LevelFor maps a 0..100 score to its level: High >= 60, Medium >= 30, else Low.
func LevelFor(score int) RiskLevel {
	switch {
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (l RiskLevel) Valid() bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

type Booking struct {
	ID            string
	UserEmail     string
	Currency      string
	PaymentMethod string
	PropertyTitle string
	DepositAmount float64
	TotalAmount   float64
	Months        int
	TxID          string // kosong = belum ada referensi pembayaran
	CheckInDate   time.Time
	Status        Status // lihat status.go
	RiskScore     *int
	RiskLevel     RiskLevel
	RiskReason    string
	NeedsReview   bool
	Version       int64
	CreatedAt     time.Time
	ReleasedAt    *time.Time
}

func (b Booking) Scored() bool { return b.RiskScore != nil }

// CountByUser returns how many bookings in the snapshot belong to each user email.
func CountByUser(bs []Booking) map[string]int {
	out := make(map[string]int, len(bs))
	for _, b := range bs {
		out[b.UserEmail]++
	}
	return out
}
