package intake

import (
	"context"
	"encoding/json"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	kafkax "github.com/ariefcatur/go-escrow-reconciler/internal/kafka"
	"github.com/ariefcatur/go-escrow-reconciler/internal/reconcile"
)

type Trigger interface {
	Trigger(pass string) bool
}

// Nudger reacts to new bookings by asking for an early scoring pass instead
// of waiting for the next tick. The pass itself decides what to score.
type Nudger struct {
	Scheduler Trigger
}

// HandleBookingCreated: dipasang sebagai handler consumer.
func (n *Nudger) HandleBookingCreated(_ context.Context, m kafkago.Message) error {
	if t := kafkax.HeaderValue(m, kafkax.HeaderEventType); t != "" && t != booking.EventBookingCreated {
		return nil // ignore
	}
	var env booking.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; commit saja
		log.Printf("[intake] drop undecodable message offset=%d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != booking.EventBookingCreated {
		return nil
	}
	p, err := kafkax.UnwrapPayload[booking.BookingCreatedPayload](env.Payload)
	if err != nil {
		log.Printf("[intake] drop event=%s: %v", env.EventID, err)
		return nil
	}
	n.Scheduler.Trigger(reconcile.PassScoring)
	log.Printf("[intake] booking=%s created, scoring pass requested", p.BookingID)
	return nil
}
