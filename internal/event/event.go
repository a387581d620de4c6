// Package event defines the domain events the services emit after commit.
// Delivery is the publisher's concern; services never wait on it.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderServicesFinished Type = "order.services_finished"
	OrderFinalized        Type = "order.finalized"
	PaymentRealized       Type = "payment.realized"
	InstallmentPaid       Type = "installment.paid"
)

// Event is one fact about an aggregate. Payload values must be JSON encodable.
type Event struct {
	Type        Type           `json:"type"`
	AggregateID uuid.UUID      `json:"aggregate_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func New(t Type, aggregateID uuid.UUID, payload map[string]any) Event {
	return Event{Type: t, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now().UTC()}
}

// Publisher hands an event to the outbound queue.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory. Err, when set, is returned from
// every Publish after recording.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of type t were published.
func (r *Recorder) Count(t Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
