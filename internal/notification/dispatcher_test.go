package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"insulationpal_backend/internal/email"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type recordingQueue struct {
	deliveries []Delivery
}

func (q *recordingQueue) EnqueueNotification(_ context.Context, d Delivery) error {
	q.deliveries = append(q.deliveries, d)
	return nil
}

func TestEmailDispatcherRendersAndSends(t *testing.T) {
	sender := &recordingSender{}
	d := NewEmailDispatcher(email.NewRenderer("https://app.example.com"), sender, logger.Discard())

	err := d.Send(context.Background(), "crew@example.com", "lead_won", map[string]any{"assignmentId": "a-1"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "crew@example.com", sender.sent[0].To)
}

func TestEmailDispatcherReportsFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewEmailDispatcher(email.NewRenderer(""), sender, logger.Discard())

	require.Error(t, d.Send(context.Background(), "crew@example.com", "lead_lost", nil))
	require.Error(t, d.Send(context.Background(), "crew@example.com", "not_a_template", nil))
}

func TestQueueDispatcherEnqueues(t *testing.T) {
	queue := &recordingQueue{}
	d := NewQueueDispatcher(queue)

	require.NoError(t, d.Send(context.Background(), "crew@example.com", "lead_assigned", map[string]any{"leadId": "l-1"}))
	require.Equal(t, []Delivery{{Recipient: "crew@example.com", Template: "lead_assigned", Data: map[string]any{"leadId": "l-1"}}}, queue.deliveries)
}

func TestActivityLogRecordsEvents(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)
	bus := events.NewInMemoryBus(log)
	NewActivityLog(log).RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.CreditsPurchased{
		BaseEvent:    events.NewBaseEvent(),
		ContractorID: uuid.New(),
		Credits:      5,
		PackageRef:   "pkg-5",
		BalanceAfter: 5,
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"event":"distribution.credits.purchased"`)
	require.Contains(t, buf.String(), `"package_ref":"pkg-5"`)
}
