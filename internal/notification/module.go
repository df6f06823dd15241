package notification

import (
	"context"

	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/logger"
)

// ActivityLog records every distribution event in the structured log.
type ActivityLog struct {
	log *logger.Logger
}

func NewActivityLog(log *logger.Logger) *ActivityLog {
	return &ActivityLog{log: log}
}

// RegisterHandlers subscribes to the distribution events.
func (m *ActivityLog) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NameAssignmentsDistributed, m)
	bus.Subscribe(events.NameAssignmentExpired, m)
	bus.Subscribe(events.NameAssignmentDeclined, m)
	bus.Subscribe(events.NameWinnerResolved, m)
	bus.Subscribe(events.NameCreditsPurchased, m)
}

func (m *ActivityLog) Handle(ctx context.Context, event events.Event) error {
	log := m.log.WithContext(ctx).With("event", event.EventName(), "occurred_at", event.OccurredAt())
	switch e := event.(type) {
	case events.AssignmentsDistributed:
		log.Info("domain_event", "lead_id", e.LeadID, "assignments", len(e.AssignmentIDs), "skipped_for_credit", e.SkippedForCredit, "shortfall", e.Shortfall)
	case events.AssignmentExpired:
		log.Info("domain_event", "lead_id", e.LeadID, "assignment_id", e.AssignmentID, "contractor_id", e.ContractorID)
	case events.AssignmentDeclined:
		log.Info("domain_event", "lead_id", e.LeadID, "assignment_id", e.AssignmentID, "contractor_id", e.ContractorID)
	case events.WinnerResolved:
		log.Info("domain_event", "lead_id", e.LeadID, "mode", e.Mode, "winners", len(e.WinnerIDs), "losers", len(e.LoserIDs))
	case events.CreditsPurchased:
		log.Info("domain_event", "contractor_id", e.ContractorID, "credits", e.Credits, "package_ref", e.PackageRef, "balance_after", e.BalanceAfter)
	default:
		log.Debug("domain_event")
	}
	return nil
}

var _ events.Handler = (*ActivityLog)(nil)
