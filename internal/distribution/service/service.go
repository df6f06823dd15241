// Package service implements lead distribution: eligibility, credit rationing,
// expiry sweeps, winner resolution and notification cadences.
package service

import (
	"context"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/logger"
)

// Notification templates sent by the distribution flows.
const (
	TemplateLeadAssigned       = "lead_assigned"
	TemplateAssignmentExpired  = "assignment_expired"
	TemplateLeadWon            = "lead_won"
	TemplateLeadLost           = "lead_lost"
	notificationFanoutLimit    = 4
	defaultHistoryPageSize     = 20
	maxHistoryPageSize         = 100
	consumptionReferencePrefix = "lead:"
)

// Settings are the rationing and cadence parameters.
type Settings struct {
	Fanout               int
	EligibilityCap       int
	ResponseWindow       time.Duration
	LeadCost             int
	CompletionLeadCost   int
	RedistributionWindow time.Duration
	SweepBatchSize       int
	ReminderSteps        []config.CadenceStep
	FollowupSteps        []config.CadenceStep
	CadenceBatchSize     int
}

// SettingsFrom reads Settings from the application config.
func SettingsFrom(dc config.DistributionConfig, cc config.CadenceConfig) Settings {
	return Settings{
		Fanout:               dc.GetDistributionFanout(),
		EligibilityCap:       dc.GetEligibilityCap(),
		ResponseWindow:       dc.GetResponseWindow(),
		LeadCost:             dc.GetLeadCostCredits(),
		CompletionLeadCost:   dc.GetCompletionLeadCostCredits(),
		RedistributionWindow: dc.GetRedistributionWindow(),
		SweepBatchSize:       dc.GetSweepBatchSize(),
		ReminderSteps:        cc.GetReminderSteps(),
		FollowupSteps:        cc.GetFollowupSteps(),
		CadenceBatchSize:     cc.GetCadenceBatchSize(),
	}
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		Fanout:               3,
		EligibilityCap:       20,
		ResponseWindow:       24 * time.Hour,
		LeadCost:             1,
		CompletionLeadCost:   1,
		RedistributionWindow: 7 * 24 * time.Hour,
		SweepBatchSize:       200,
		ReminderSteps: []config.CadenceStep{
			{Key: "reminder_2h", After: 2 * time.Hour, Template: config.DefaultReminderTemplate},
			{Key: "reminder_4h", After: 4 * time.Hour, Template: config.DefaultReminderTemplate},
			{Key: "reminder_24h", After: 24 * time.Hour, Template: config.DefaultReminderTemplate},
		},
		FollowupSteps: []config.CadenceStep{
			{Key: "followup_72h", After: 72 * time.Hour, Template: config.DefaultFollowupTemplate},
			{Key: "followup_120h", After: 120 * time.Hour, Template: config.DefaultFollowupTemplate},
		},
		CadenceBatchSize: 500,
	}
}

// Service provides the distribution business logic.
type Service struct {
	store      ports.Store
	dispatcher ports.Dispatcher
	eventBus   events.Bus
	log        *logger.Logger
	settings   Settings
	now        func() time.Time
}

// New creates a new distribution service.
func New(store ports.Store, dispatcher ports.Dispatcher, eventBus events.Bus, log *logger.Logger, settings Settings) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		eventBus:   eventBus,
		log:        log,
		settings:   settings,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests and replays.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Settings returns the active settings.
func (s *Service) Settings() Settings {
	return s.settings
}

func (s *Service) costFor(c domain.Contractor) int {
	if c.PaymentPreference == domain.PayOnCompletion {
		return s.settings.CompletionLeadCost
	}
	return s.settings.LeadCost
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, ev)
}
