package service

import (
	"context"
	"fmt"

	"insulationpal_backend/internal/events"

	"github.com/google/uuid"
)

// WorkQueue defers distribution work to background workers.
type WorkQueue interface {
	EnqueueBackfill(ctx context.Context, leadID uuid.UUID) error
	EnqueueSweep(ctx context.Context) error
}

// RegisterSubscriptions back-fills leads when a contractor declines and revisits
// under-filled leads when credits are purchased. Without a queue the work runs
// inline in the event handler.
func (s *Service) RegisterSubscriptions(bus events.Bus, queue WorkQueue) {
	bus.Subscribe(events.NameAssignmentDeclined, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		declined, ok := event.(events.AssignmentDeclined)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		if queue != nil {
			return queue.EnqueueBackfill(ctx, declined.LeadID)
		}
		_, err := s.DistributeLead(ctx, declined.LeadID)
		return err
	}))

	bus.Subscribe(events.NameCreditsPurchased, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if _, ok := event.(events.CreditsPurchased); !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		if queue != nil {
			return queue.EnqueueSweep(ctx)
		}
		_, err := s.RunExpirySweep(ctx)
		return err
	}))
}
