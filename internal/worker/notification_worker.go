package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"oficina/internal/event"
	"oficina/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender delivers one rendered message. *infra.Mailer implements it.
type Sender interface {
	Send(to, subject, body string) error
}

// NotificationWorker turns domain events into e-mails to the shop.
type NotificationWorker struct {
	sender Sender
	to     string
	cb     *infra.CircuitBreaker
}

func NewNotificationWorker(sender Sender, to string, cb *infra.CircuitBreaker) *NotificationWorker {
	return &NotificationWorker{sender: sender, to: to, cb: cb}
}

// Process renders the event and sends it through the circuit breaker.
// A malformed payload is dropped; a delivery failure is returned for retry.
func (w *NotificationWorker) Process(_ context.Context, raw json.RawMessage) error {
	var e event.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Error().Err(err).Msg("notification_worker: invalid payload")
		return nil
	}
	if w.to == "" {
		log.Debug().Str("event", string(e.Type)).Msg("notification_worker: no recipient configured, skipping")
		return nil
	}

	subject, body := Render(e)
	send := func() error { return w.sender.Send(w.to, subject, body) }
	var err error
	if w.cb != nil {
		err = w.cb.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		log.Error().Err(err).Str("event", string(e.Type)).Msg("notification_worker: delivery failed")
		return err
	}
	log.Info().Str("event", string(e.Type)).Str("aggregate_id", e.AggregateID.String()).Msg("notification_worker: sent")
	return nil
}

// Render builds the subject and body of an event notification.
func Render(e event.Event) (subject, body string) {
	short := e.AggregateID.String()
	if len(short) > 8 {
		short = short[:8]
	}
	switch e.Type {
	case event.OrderServicesFinished:
		subject = fmt.Sprintf("Order %s: services finished", short)
	case event.OrderFinalized:
		subject = fmt.Sprintf("Order %s finalized", short)
	case event.PaymentRealized:
		subject = fmt.Sprintf("Payment %s received", short)
	case event.InstallmentPaid:
		subject = fmt.Sprintf("Installment %s paid", short)
	default:
		subject = fmt.Sprintf("%s %s", e.Type, short)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subject)
	fmt.Fprintf(&b, "id: %s\n", e.AggregateID)
	fmt.Fprintf(&b, "at: %s\n", e.OccurredAt.Format("2006-01-02 15:04:05 MST"))
	for _, k := range sortedKeys(e.Payload) {
		fmt.Fprintf(&b, "%s: %v\n", k, e.Payload[k])
	}
	return subject, b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
