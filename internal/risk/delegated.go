package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
)

const DefaultDelegateTimeout = 10 * time.Second

// Summary is the only booking data sent to the reasoning delegate.
type Summary struct {
	UserEmail     string  `json:"userEmail"`
	DepositAmount float64 `json:"depositAmount"`
	TotalAmount   float64 `json:"totalAmount"`
	Months        int     `json:"months"`
	Currency      string  `json:"currency"`
}

func SummaryOf(b booking.Booking) Summary {
	return Summary{
		UserEmail:     b.UserEmail,
		DepositAmount: b.DepositAmount,
		TotalAmount:   b.TotalAmount,
		Months:        b.Months,
		Currency:      b.Currency,
	}
}

// Delegate returns the raw reply of an external reasoning service.
type Delegate interface {
	Assess(ctx context.Context, s Summary) ([]byte, error)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(ctx context.Context, s Summary) ([]byte, error)

func (f DelegateFunc) Assess(ctx context.Context, s Summary) ([]byte, error) { return f(ctx, s) }

type delegateReply struct {
	RiskScore *int   `json:"riskScore" validate:"required,gte=0,lte=100"`
	RiskLevel string `json:"riskLevel" validate:"required,oneof=Low Medium High"`
	Reason    string `json:"reason" validate:"required"`
}

type DelegatedScorer struct {
	delegate Delegate
	timeout  time.Duration
	validate *validator.Validate
}

type DelegatedOption func(*DelegatedScorer)

func WithTimeout(d time.Duration) DelegatedOption {
	return func(s *DelegatedScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewDelegatedScorer(d Delegate, opts ...DelegatedOption) *DelegatedScorer {
	s := &DelegatedScorer{
		delegate: d,
		timeout:  DefaultDelegateTimeout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score never fails: any delegate problem yields Fallback().
func (s *DelegatedScorer) Score(ctx context.Context, in Input) Result {
	res, err := s.assess(ctx, in.Booking)
	if err != nil {
		log.Printf("[risk] delegate fallback booking=%s: %v", in.Booking.ID, err)
		return Fallback()
	}
	return res
}

func (s *DelegatedScorer) assess(ctx context.Context, b booking.Booking) (Result, error) {
	// timeout sendiri, lepas dari cancel milik scan
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	raw, err := s.delegate.Assess(cctx, SummaryOf(b))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDelegateUnavailable, err)
	}
	return s.parse(raw)
}

// parse is strict: exactly one JSON object, no unknown fields, every field
// present and in range, and a level consistent with the score.
func (s *DelegatedScorer) parse(raw []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var r delegateReply
	if err := dec.Decode(&r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDelegateMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: trailing data after result object", ErrDelegateMalformed)
	}
	if err := s.validate.Struct(r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDelegateMalformed, err)
	}
	level := booking.RiskLevel(r.RiskLevel)
	if want := booking.LevelFor(*r.RiskScore); level != want {
		return Result{}, fmt.Errorf("%w: level %s inconsistent with score %d", ErrDelegateMalformed, level, *r.RiskScore)
	}
	return Result{Score: *r.RiskScore, Level: level, Reason: r.Reason, Source: SourceDelegate}, nil
}
