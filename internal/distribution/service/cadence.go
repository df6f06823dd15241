package service

import (
	"context"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/platform/config"
)

// CadenceResult reports one reminder or follow-up run.
type CadenceResult struct {
	Sent    int
	Skipped int
	// Failed counts claimed steps whose notification could not be dispatched.
	// They are not resent.
	Failed int
}

// RunReminderCadence nudges contractors that have not quoted yet.
func (s *Service) RunReminderCadence(ctx context.Context) (CadenceResult, error) {
	return s.runCadence(ctx, domain.CadenceReminder, s.settings.ReminderSteps, s.store.ReminderCandidates,
		func(a domain.Assignment) (time.Time, bool) { return a.CreatedAt, true })
}

// RunFollowupCadence asks winners to close out their work.
func (s *Service) RunFollowupCadence(ctx context.Context) (CadenceResult, error) {
	return s.runCadence(ctx, domain.CadenceFollowup, s.settings.FollowupSteps, s.store.FollowupCandidates,
		func(a domain.Assignment) (time.Time, bool) {
			if a.WonAt == nil {
				return time.Time{}, false
			}
			return *a.WonAt, true
		})
}

// runCadence sends at most one step per assignment per run. The record is claimed before sending, so concurrent
// runs never send the same step twice.
func (s *Service) runCadence(
	ctx context.Context,
	kind domain.CadenceKind,
	steps []config.CadenceStep,
	candidates func(context.Context, ports.CadenceQuery) ([]domain.CadenceCandidate, error),
	anchorOf func(domain.Assignment) (time.Time, bool),
) (CadenceResult, error) {
	var result CadenceResult
	if len(steps) == 0 {
		return result, nil
	}

	now := s.now()
	thresholds := make([]ports.CadenceThreshold, 0, len(steps))
	for _, step := range steps {
		thresholds = append(thresholds, ports.CadenceThreshold{Key: step.Key, After: step.After})
	}
	found, err := candidates(ctx, ports.CadenceQuery{
		Now:   now,
		Steps: thresholds,
		Limit: s.settings.CadenceBatchSize,
	})
	if err != nil {
		return result, err
	}

	for _, c := range found {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		anchor, ok := anchorOf(c.Assignment)
		if !ok {
			result.Skipped++
			continue
		}
		step, due := dueStep(steps, c.SentSteps, now.Sub(anchor))
		if !due {
			result.Skipped++
			continue
		}

		claimed, err := s.store.ClaimStep(ctx, c.Assignment.ID, kind, step.Key, now)
		if err != nil {
			s.log.DatabaseError("claim cadence step", err)
			result.Skipped++
			continue
		}
		if !claimed {
			result.Skipped++
			continue
		}

		data := map[string]any{
			"assignmentId": c.Assignment.ID.String(),
			"leadId":       c.Assignment.LeadID.String(),
			"businessName": c.BusinessName,
			"step":         step.Key,
		}
		if c.ContactEmail == "" {
			s.log.NotificationFailed(step.Template, "", errNoRecipient)
			result.Failed++
			continue
		}
		if err := s.dispatcher.Send(ctx, c.ContactEmail, step.Template, data); err != nil {
			s.log.NotificationFailed(step.Template, c.ContactEmail, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.log.CadenceCompleted(string(kind), result.Sent, result.Skipped)
	return result, nil
}

// dueStep returns the latest step whose threshold elapsed has crossed, unless
// it was already sent. Earlier unsent steps are superseded by it, so a run right
// after another never sends a second notification. steps must be sorted ascending.
func dueStep(steps []config.CadenceStep, sent map[string]bool, elapsed time.Duration) (config.CadenceStep, bool) {
	var (
		latest  config.CadenceStep
		crossed bool
	)
	for _, step := range steps {
		if elapsed < step.After {
			break
		}
		latest, crossed = step, true
	}
	if !crossed || sent[latest.Key] {
		return config.CadenceStep{}, false
	}
	return latest, true
}
