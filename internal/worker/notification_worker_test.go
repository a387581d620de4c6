package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"oficina/internal/event"
	"oficina/internal/infra"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct{ to, subject, body string }

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func encode(t *testing.T, e event.Event) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func TestRender(t *testing.T) {
	id := uuid.MustParse("0190f3a2-1111-7000-8000-000000000001")
	e := event.Event{
		Type:        event.OrderFinalized,
		AggregateID: id,
		Payload:     map[string]any{"total": "120.00", "client_id": "c1"},
		OccurredAt:  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	subject, body := Render(e)
	assert.Equal(t, "Order 0190f3a2 finalized", subject)
	assert.Contains(t, body, "id: "+id.String())
	assert.Contains(t, body, "at: 2024-03-01 10:30:00 UTC")
	assert.Less(t, strings.Index(body, "client_id:"), strings.Index(body, "total:"))

	e.Type = event.InstallmentPaid
	subject, _ = Render(e)
	assert.Equal(t, "Installment 0190f3a2 paid", subject)
}

func TestNotificationWorker_Sends(t *testing.T) {
	s := &fakeSender{}
	w := NewNotificationWorker(s, "shop@example.com", nil)

	err := w.Process(context.Background(), encode(t, event.New(event.PaymentRealized, uuid.New(), nil)))
	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "shop@example.com", s.sent[0].to)
	assert.True(t, strings.HasPrefix(s.sent[0].subject, "Payment "))
}

func TestNotificationWorker_DropsWhatCannotBeDelivered(t *testing.T) {
	s := &fakeSender{}
	assert.NoError(t, NewNotificationWorker(s, "shop@example.com", nil).Process(context.Background(), json.RawMessage(`{not json`)))
	assert.NoError(t, NewNotificationWorker(s, "", nil).Process(context.Background(), encode(t, event.New(event.OrderFinalized, uuid.New(), nil))))
	assert.Empty(t, s.sent)
}

func TestNotificationWorker_FailureTripsBreaker(t *testing.T) {
	relayDown := errors.New("dial tcp: connection refused")
	s := &fakeSender{err: relayDown}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp", FailureThreshold: 2, OpenTimeout: time.Hour})
	w := NewNotificationWorker(s, "shop@example.com", cb)
	raw := encode(t, event.New(event.OrderServicesFinished, uuid.New(), nil))

	assert.ErrorIs(t, w.Process(context.Background(), raw), relayDown)
	assert.ErrorIs(t, w.Process(context.Background(), raw), relayDown)
	assert.ErrorIs(t, w.Process(context.Background(), raw), infra.ErrCircuitOpen)
	assert.Equal(t, infra.CBOpen, cb.State())
}

type fakeMarker struct {
	calls int
	now   time.Time
	err   error
}

func (f *fakeMarker) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	f.now = now
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return 2, f.err
}

func TestRunOverdueSweep(t *testing.T) {
	m := &fakeMarker{}
	now := time.Date(2024, 6, 15, 6, 15, 0, 0, time.UTC)
	runOverdueSweep(context.Background(), m, now)
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, now, m.now)

	m.err = errors.New("db down")
	runOverdueSweep(context.Background(), m, now)
	assert.Equal(t, 2, m.calls)
}

func TestStartOverdueSweep_RejectsBadSpec(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := StartOverdueSweep(ctx, "every tuesday", &fakeMarker{})
	assert.Error(t, err)

	c, err := StartOverdueSweep(ctx, "15 6 * * *", &fakeMarker{})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}
