package service

import (
	"context"
	"errors"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/events"

	"github.com/google/uuid"
)

// SweepResult reports one expiry sweep.
type SweepResult struct {
	ExpiredCount        int
	ReassignedCount     int
	LeadsVisited        int
	NotificationsFailed int
}

// RunExpirySweep expires pending assignments past their deadline and backfills
// every lead that fell below the fan-out. Open leads that are still under-filled
// inside the redistribution window are revisited too, least recently swept first,
// so credit purchases and declines are eventually covered. A run with nothing
// expired and no eligible contractors creates no assignments.
func (s *Service) RunExpirySweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()

	var expired []domain.Assignment
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		expired, err = s.store.ExpireOverdue(ctx, now, s.settings.SweepBatchSize)
		return err
	})
	if err != nil {
		return result, err
	}
	result.ExpiredCount = len(expired)
	result.NotificationsFailed += s.announceExpired(ctx, expired)

	leads := make([]uuid.UUID, 0, len(expired))
	seen := make(map[uuid.UUID]bool)
	for _, a := range expired {
		if !seen[a.LeadID] {
			seen[a.LeadID] = true
			leads = append(leads, a.LeadID)
		}
	}

	underfilled, err := s.store.UnderfilledLeads(ctx, s.settings.Fanout, now.Add(-s.settings.RedistributionWindow), now, s.settings.SweepBatchSize)
	if err != nil {
		return result, err
	}
	for _, id := range underfilled {
		if !seen[id] {
			seen[id] = true
			leads = append(leads, id)
		}
	}

	var errs []error
	for _, leadID := range leads {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		filled, err := s.DistributeLead(ctx, leadID)
		result.LeadsVisited++
		if err != nil {
			s.log.Error("backfill failed", "lead_id", leadID.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		result.ReassignedCount += len(filled.Created)
		result.NotificationsFailed += filled.NotificationsFailed
	}

	s.log.SweepCompleted(result.ExpiredCount, result.ReassignedCount)
	return result, errors.Join(errs...)
}

func (s *Service) announceExpired(ctx context.Context, expired []domain.Assignment) int {
	if len(expired) == 0 {
		return 0
	}
	contractors := s.contractorsOf(ctx, expired)
	batch := make([]notification, 0, len(expired))
	for _, a := range expired {
		s.log.AssignmentTransition(a.ID.String(), a.LeadID.String(), string(domain.StatusPending), string(domain.StatusExpired))
		c := contractors[a.ContractorID]
		batch = append(batch, notification{
			recipient: c.ContactEmail,
			template:  TemplateAssignmentExpired,
			data:      assignmentData(a, c),
		})
		s.publish(ctx, events.AssignmentExpired{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: a.ID,
			LeadID:       a.LeadID,
			ContractorID: a.ContractorID,
		})
	}
	return s.dispatch(ctx, batch)
}
