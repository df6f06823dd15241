// Package notification delivers the distribution engine's notifications.
// Every dispatcher is fire-and-forget: a failed delivery is reported once and never retried.
package notification

import (
	"context"

	"insulationpal_backend/internal/email"
	"insulationpal_backend/platform/logger"
)

// Delivery is one notification addressed to one recipient.
type Delivery struct {
	Recipient string         `json:"recipient"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
}

// Enqueuer hands deliveries to the task queue.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, d Delivery) error
}

// QueueDispatcher defers delivery to the worker. Send only fails when enqueueing fails.
type QueueDispatcher struct {
	queue Enqueuer
}

func NewQueueDispatcher(queue Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{queue: queue}
}

func (d *QueueDispatcher) Send(ctx context.Context, recipient, templateID string, data map[string]any) error {
	return d.queue.EnqueueNotification(ctx, Delivery{Recipient: recipient, Template: templateID, Data: data})
}

// EmailDispatcher renders and sends inline. The worker uses it for queued deliveries.
type EmailDispatcher struct {
	renderer *email.Renderer
	sender   email.Sender
	log      *logger.Logger
}

func NewEmailDispatcher(renderer *email.Renderer, sender email.Sender, log *logger.Logger) *EmailDispatcher {
	return &EmailDispatcher{renderer: renderer, sender: sender, log: log}
}

func (d *EmailDispatcher) Send(ctx context.Context, recipient, templateID string, data map[string]any) error {
	msg, err := d.renderer.Render(recipient, templateID, data)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return err
	}
	d.log.WithContext(ctx).Info("notification_sent", "template", templateID, "recipient", recipient)
	return nil
}

// Deliver sends a dequeued delivery.
func (d *EmailDispatcher) Deliver(ctx context.Context, delivery Delivery) error {
	return d.Send(ctx, delivery.Recipient, delivery.Template, delivery.Data)
}

// LogDispatcher only logs. Used by the CLI and local runs without SMTP.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(ctx context.Context, recipient, templateID string, _ map[string]any) error {
	d.log.WithContext(ctx).Info("notification_logged", "template", templateID, "recipient", recipient)
	return nil
}
