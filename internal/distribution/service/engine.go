package service

import (
	"context"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/events"

	"github.com/google/uuid"
)

// DistributionResult reports one distribution round for a lead.
type DistributionResult struct {
	LeadID           uuid.UUID
	Created          []domain.Assignment
	SkippedForCredit int
	// Shortfall is how many of the requested assignments could not be created.
	Shortfall int
	// Closed is set when the lead already has a winner and was left alone.
	Closed              bool
	NotificationsFailed int

	recipients map[uuid.UUID]domain.Contractor
}

// Distribute runs one distribution round for lead: it asks the eligibility
// resolver for candidates outside exclude and creates up to target pending
// assignments, each only after its credit reservation succeeded. Candidates
// without enough credit are skipped and counted. Creating fewer than target
// assignments is reported through Shortfall and is not an error. A lead that
// already has a winner is reported as Closed and left untouched.
func (s *Service) Distribute(ctx context.Context, lead domain.Lead, exclude []uuid.UUID, target int) (DistributionResult, error) {
	var result DistributionResult
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.LockLead(ctx, lead.ID); err != nil {
			return err
		}
		closed, err := s.store.LeadClosed(ctx, lead.ID)
		if err != nil {
			return err
		}
		if closed {
			result = DistributionResult{LeadID: lead.ID, Closed: true}
			return nil
		}
		result, err = s.distribute(ctx, lead, exclude, target)
		return err
	})
	if err != nil {
		return DistributionResult{}, err
	}
	s.announce(ctx, &result)
	return result, nil
}

// DistributeLead fills the lead up to the configured fan-out. Every contractor
// ever assigned to the lead is excluded, so it serves both the initial
// distribution and later backfills. Leads with a winner are never refilled.
func (s *Service) DistributeLead(ctx context.Context, leadID uuid.UUID) (DistributionResult, error) {
	result, err := s.fillLead(ctx, leadID)
	if err != nil {
		return DistributionResult{}, err
	}
	s.announce(ctx, &result)
	return result, nil
}

func (s *Service) fillLead(ctx context.Context, leadID uuid.UUID) (DistributionResult, error) {
	result := DistributionResult{LeadID: leadID}
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.LockLead(ctx, leadID); err != nil {
			return err
		}
		lead, err := s.store.GetLead(ctx, leadID)
		if err != nil {
			return err
		}

		closed, err := s.store.LeadClosed(ctx, leadID)
		if err != nil {
			return err
		}
		if closed {
			result.Closed = true
			return nil
		}

		counts, err := s.store.CountByLead(ctx, leadID)
		if err != nil {
			return err
		}
		target := s.settings.Fanout - counts.Active()
		if target <= 0 {
			return nil
		}

		exclude, err := s.store.AssignedContractors(ctx, leadID)
		if err != nil {
			return err
		}
		result, err = s.distribute(ctx, lead, exclude, target)
		return err
	})
	if err != nil {
		return DistributionResult{}, err
	}
	return result, nil
}

// distribute must run inside a transaction holding the lead lock.
func (s *Service) distribute(ctx context.Context, lead domain.Lead, exclude []uuid.UUID, target int) (DistributionResult, error) {
	result := DistributionResult{
		LeadID:     lead.ID,
		Created:    make([]domain.Assignment, 0, max(target, 0)),
		recipients: make(map[uuid.UUID]domain.Contractor),
	}
	if target <= 0 {
		return result, nil
	}

	eligible, err := s.ResolveEligible(ctx, lead, exclude)
	if err != nil {
		return DistributionResult{}, err
	}
	result.SkippedForCredit = eligible.UnfundedCount

	attempt, err := s.store.NextAttempt(ctx, lead.ID)
	if err != nil {
		return DistributionResult{}, err
	}

	now := s.now()
	for _, candidate := range eligible.Candidates {
		if len(result.Created) == target {
			break
		}

		assignmentID := uuid.New()
		cost := s.costFor(candidate)
		reservation, err := s.Reserve(ctx, candidate.ID, cost, lead.ID, assignmentID)
		if err != nil {
			return DistributionResult{}, err
		}
		if reservation.Outcome == domain.InsufficientCredit {
			result.SkippedForCredit++
			continue
		}

		assignment := domain.Assignment{
			ID:               assignmentID,
			LeadID:           lead.ID,
			ContractorID:     candidate.ID,
			Status:           domain.StatusPending,
			Attempt:          attempt,
			CostCredits:      cost,
			ResponseDeadline: now.Add(s.settings.ResponseWindow),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.store.Create(ctx, assignment); err != nil {
			s.log.Error("assignment invariant violated",
				"lead_id", lead.ID.String(),
				"contractor_id", candidate.ID.String(),
				"error", err,
			)
			return DistributionResult{}, err
		}
		result.Created = append(result.Created, assignment)
		result.recipients[candidate.ID] = candidate
	}

	result.Shortfall = target - len(result.Created)
	return result, nil
}

// announce runs after commit: logs, notifies each new assignee and publishes the round.
func (s *Service) announce(ctx context.Context, result *DistributionResult) {
	if result.Closed {
		return
	}
	s.log.DistributionCompleted(result.LeadID.String(), len(result.Created), result.SkippedForCredit, result.Shortfall)
	if len(result.Created) == 0 {
		return
	}

	batch := make([]notification, 0, len(result.Created))
	ids := make([]uuid.UUID, 0, len(result.Created))
	for _, a := range result.Created {
		s.log.AssignmentTransition(a.ID.String(), a.LeadID.String(), "", string(a.Status))
		c := result.recipients[a.ContractorID]
		batch = append(batch, notification{
			recipient: c.ContactEmail,
			template:  TemplateLeadAssigned,
			data:      assignmentData(a, c),
		})
		ids = append(ids, a.ID)
	}
	result.NotificationsFailed = s.dispatch(ctx, batch)

	s.publish(ctx, events.AssignmentsDistributed{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           result.LeadID,
		AssignmentIDs:    ids,
		SkippedForCredit: result.SkippedForCredit,
		Shortfall:        result.Shortfall,
	})
}
