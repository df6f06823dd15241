package service

import (
	"context"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
)

// WinnerMode selects the winner resolution protocol.
type WinnerMode string

const (
	// ModeSingle marks exactly one accepted assignment as won and declines the rest.
	ModeSingle WinnerMode = "single"
	// ModeNotifyAll marks every quoted assignment of the lead as won.
	ModeNotifyAll WinnerMode = "notify_all"
)

// ParseWinnerMode defaults an empty mode to single.
func ParseWinnerMode(raw string) (WinnerMode, error) {
	switch WinnerMode(raw) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeNotifyAll:
		return ModeNotifyAll, nil
	default:
		return "", apperr.Validation("mode must be single or notify_all")
	}
}

// ResolutionOutcome is the typed result of a winner resolution.
type ResolutionOutcome string

const (
	ResolutionSuccess  ResolutionOutcome = "success"
	ResolutionConflict ResolutionOutcome = "conflict"
)

// ResolutionResult reports a winner resolution.
type ResolutionResult struct {
	Outcome             ResolutionOutcome
	Mode                WinnerMode
	Winners             []domain.Assignment
	Losers              []domain.Assignment
	NotificationsFailed int
}

// ResolveWinner applies the customer's choice for a lead. A lead that already
// has a winner, or a selected assignment that is no longer accepted, yields a
// conflict and no side effects.
func (s *Service) ResolveWinner(ctx context.Context, leadID, assignmentID uuid.UUID, mode WinnerMode) (ResolutionResult, error) {
	result := ResolutionResult{Outcome: ResolutionConflict, Mode: mode}
	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.LockLead(ctx, leadID); err != nil {
			return err
		}
		selected, err := s.store.Get(ctx, assignmentID)
		if err != nil {
			return err
		}
		if selected.LeadID != leadID {
			return apperr.NotFound("assignment not found")
		}

		switch mode {
		case ModeSingle:
			won, ok, err := s.store.MarkWon(ctx, leadID, assignmentID, now)
			if err != nil || !ok {
				return err
			}
			result.Winners = []domain.Assignment{won}
		case ModeNotifyAll:
			closed, err := s.store.LeadClosed(ctx, leadID)
			if err != nil || closed {
				return err
			}
			winners, err := s.store.PromoteQuoted(ctx, leadID, now)
			if err != nil || len(winners) == 0 {
				return err
			}
			result.Winners = winners
		default:
			return apperr.Validation("unknown winner mode")
		}

		winnerID := assignmentID
		if mode == ModeNotifyAll {
			// every quoted assignment is won now; only unquoted ones remain to retire
			winnerID = uuid.Nil
		}
		losers, err := s.store.DeclineOthers(ctx, leadID, winnerID, domain.DeclineReasonLost, now)
		if err != nil {
			return err
		}
		result.Losers = losers
		result.Outcome = ResolutionSuccess
		return nil
	})
	if err != nil {
		return ResolutionResult{}, err
	}
	if result.Outcome == ResolutionConflict {
		s.log.Info("winner_resolution_conflict", "lead_id", leadID.String(), "assignment_id", assignmentID.String(), "mode", string(mode))
		return result, nil
	}

	result.NotificationsFailed = s.announceWinners(ctx, leadID, result)
	return result, nil
}

func (s *Service) announceWinners(ctx context.Context, leadID uuid.UUID, result ResolutionResult) int {
	affected := make([]domain.Assignment, 0, len(result.Winners)+len(result.Losers))
	affected = append(affected, result.Winners...)
	affected = append(affected, result.Losers...)
	contractors := s.contractorsOf(ctx, affected)

	batch := make([]notification, 0, len(affected))
	winnerIDs := make([]uuid.UUID, 0, len(result.Winners))
	for _, a := range result.Winners {
		s.log.AssignmentTransition(a.ID.String(), leadID.String(), string(domain.StatusAccepted), string(domain.StatusWon))
		c := contractors[a.ContractorID]
		batch = append(batch, notification{recipient: c.ContactEmail, template: TemplateLeadWon, data: assignmentData(a, c)})
		winnerIDs = append(winnerIDs, a.ID)
	}
	loserIDs := make([]uuid.UUID, 0, len(result.Losers))
	for _, a := range result.Losers {
		s.log.AssignmentTransition(a.ID.String(), leadID.String(), "", string(domain.StatusDeclined))
		c := contractors[a.ContractorID]
		batch = append(batch, notification{recipient: c.ContactEmail, template: TemplateLeadLost, data: assignmentData(a, c)})
		loserIDs = append(loserIDs, a.ID)
	}

	s.publish(ctx, events.WinnerResolved{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Mode:      string(result.Mode),
		WinnerIDs: winnerIDs,
		LoserIDs:  loserIDs,
	})
	return s.dispatch(ctx, batch)
}
