package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	kafkax "github.com/ariefcatur/go-escrow-reconciler/internal/kafka"
	"github.com/ariefcatur/go-escrow-reconciler/internal/redisx"
	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
)

const (
	dedupScored   = "scored"
	dedupReleased = "released"
)

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// Notifier publishes reconciliation outcomes as v1 envelopes. When Redis is
// set, each (kind, booking) pair is published at most once per TTLDedup even
// if two scans both commit.
type Notifier struct {
	Scored      Publisher // publish booking.scored
	Released    Publisher // publish booking.escrow.released
	Redis       *redis.Client
	ServiceName string
}

func (n *Notifier) BookingScored(ctx context.Context, b booking.Booking, r risk.Result, needsReview bool) error {
	if n.Scored == nil {
		return nil
	}
	if !n.firstTime(ctx, dedupScored, b.ID) {
		return nil
	}
	err := n.publish(ctx, n.Scored, booking.EventBookingScored, b.ID, booking.BookingScoredPayload{
		BookingID:   b.ID,
		RiskScore:   r.Score,
		RiskLevel:   r.Level,
		RiskReason:  r.Reason,
		Source:      r.Source,
		Fallback:    r.Fallback,
		NeedsReview: needsReview,
	})
	if err != nil {
		n.forget(ctx, dedupScored, b.ID)
	}
	return err
}

func (n *Notifier) EscrowReleased(ctx context.Context, b booking.Booking, at time.Time) error {
	if n.Released == nil {
		return nil
	}
	if !n.firstTime(ctx, dedupReleased, b.ID) {
		log.Printf("[notify] skip duplicate release event booking=%s", b.ID)
		return nil
	}
	err := n.publish(ctx, n.Released, booking.EventEscrowReleased, b.ID, booking.EscrowReleasedPayload{
		BookingID:     b.ID,
		UserEmail:     b.UserEmail,
		PropertyTitle: b.PropertyTitle,
		DepositAmount: b.DepositAmount,
		Currency:      b.Currency,
		CheckInDate:   b.CheckInDate,
		ReleasedAt:    at,
	})
	if err != nil {
		n.forget(ctx, dedupReleased, b.ID)
	}
	return err
}

// firstTime claims the dedup key. Redis errors fail open (at-least-once).
func (n *Notifier) firstTime(ctx context.Context, kind, id string) bool {
	if n.Redis == nil {
		return true
	}
	key := fmt.Sprintf(redisx.KeyDedup, kind, id)
	ok, err := n.Redis.SetNX(ctx, key, "1", redisx.TTLDedup).Result()
	if err != nil {
		log.Printf("[notify] dedup %s: %v", key, err)
		return true
	}
	return ok
}

// forget drops the dedup claim after a failed publish, so a later commit of
// the same booking can still emit the event.
func (n *Notifier) forget(ctx context.Context, kind, id string) {
	if n.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyDedup, kind, id)
	if err := n.Redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
		log.Printf("[notify] release dedup %s: %v", key, err)
	}
}

func (n *Notifier) publish(ctx context.Context, p Publisher, eventType, bookingID string, payload any) error {
	ev := booking.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.ServiceName,
		CorrelationID: bookingID,
		Payload:       kafkax.MustMarshal(payload),
	}
	if err := p.Publish(ctx, booking.PartitionKey(bookingID), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType)...); err != nil {
		return fmt.Errorf("publish %s booking=%s: %w", eventType, bookingID, err)
	}
	return nil
}
