package service

import (
	"context"
	"fmt"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/apperr"
	"insulationpal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxDeclineReasonLength = 500

// AcceptAssignment moves a pending assignment to accepted. Accepting after the
// response deadline fails with Gone even if the sweep has not expired it yet.
func (s *Service) AcceptAssignment(ctx context.Context, contractorID, assignmentID uuid.UUID) (domain.Assignment, error) {
	now := s.now()
	a, ok, err := s.store.Accept(ctx, assignmentID, contractorID, now)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !ok {
		return domain.Assignment{}, s.rejection(ctx, contractorID, assignmentID, now)
	}
	s.log.AssignmentTransition(a.ID.String(), a.LeadID.String(), string(domain.StatusPending), string(domain.StatusAccepted))
	return a, nil
}

// SubmitQuote records the contractor's quote. A pending assignment is accepted
// in the same update. Repeated quotes overwrite the amount.
func (s *Service) SubmitQuote(ctx context.Context, contractorID, assignmentID uuid.UUID, amountCents int64) (domain.Assignment, error) {
	if amountCents <= 0 {
		return domain.Assignment{}, apperr.Validation("quote amount must be positive")
	}
	now := s.now()
	a, ok, err := s.store.SubmitQuote(ctx, assignmentID, contractorID, amountCents, now)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !ok {
		return domain.Assignment{}, s.rejection(ctx, contractorID, assignmentID, now)
	}
	s.log.Info("quote_submitted",
		"assignment_id", a.ID.String(),
		"lead_id", a.LeadID.String(),
		"amount_cents", amountCents,
	)
	return a, nil
}

// DeclineAssignment retires a pending or accepted assignment at the contractor's
// request. The lead is back-filled asynchronously.
func (s *Service) DeclineAssignment(ctx context.Context, contractorID, assignmentID uuid.UUID, reason string) (domain.Assignment, error) {
	reason = sanitize.Truncate(sanitize.Text(reason), maxDeclineReasonLength)
	if reason == "" || reason == domain.DeclineReasonLost {
		reason = domain.DeclineReasonContractor
	}

	now := s.now()
	a, ok, err := s.store.Decline(ctx, assignmentID, contractorID, reason, now)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !ok {
		return domain.Assignment{}, s.rejection(ctx, contractorID, assignmentID, now)
	}

	s.log.AssignmentTransition(a.ID.String(), a.LeadID.String(), "", string(domain.StatusDeclined))
	s.publish(ctx, events.AssignmentDeclined{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: a.ID,
		LeadID:       a.LeadID,
		ContractorID: a.ContractorID,
	})
	return a, nil
}

// CompleteAssignment marks won work as done, which ends the follow-up cadence.
func (s *Service) CompleteAssignment(ctx context.Context, contractorID, assignmentID uuid.UUID) (domain.Assignment, error) {
	now := s.now()
	a, ok, err := s.store.Complete(ctx, assignmentID, contractorID, now)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !ok {
		return domain.Assignment{}, s.rejection(ctx, contractorID, assignmentID, now)
	}
	s.log.AssignmentTransition(a.ID.String(), a.LeadID.String(), string(domain.StatusWon), string(domain.StatusCompleted))
	return a, nil
}

// rejection explains why a guarded contractor transition did not apply.
func (s *Service) rejection(ctx context.Context, contractorID, assignmentID uuid.UUID, now time.Time) error {
	a, err := s.store.Get(ctx, assignmentID)
	if err != nil {
		return err
	}
	if a.ContractorID != contractorID {
		return apperr.NotFound("assignment not found")
	}
	if a.Status == domain.StatusPending && now.After(a.ResponseDeadline) {
		return apperr.Gone("response window has closed")
	}
	return apperr.Conflict(fmt.Sprintf("assignment is %s", a.Status))
}
