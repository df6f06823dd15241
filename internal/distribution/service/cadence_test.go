package service

import (
	"context"
	"testing"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/platform/config"

	"github.com/stretchr/testify/require"
)

func TestReminderCadenceSendsOncePerCrossedStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, assignments := distributedLead(t, f)

	f.clock.Advance(time.Hour)
	result, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Sent, "no step is due before 2h")

	f.clock.Advance(90 * time.Minute)
	result, err = f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, result.Sent)

	again, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, again.Sent)
	require.Zero(t, again.Skipped, "notified assignments are not candidates again")

	records := f.store.CadenceRecords(assignments[0].ID, domain.CadenceReminder)
	require.Len(t, records, 1)
	require.Equal(t, "reminder_2h", records[0].StepKey)
}

func TestReminderCadenceSendsOnlyLatestCrossedStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, assignments := distributedLead(t, f)

	f.clock.Advance(5 * time.Hour)
	first, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, first.Sent)

	second, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, second.Sent)

	records := f.store.CadenceRecords(assignments[0].ID, domain.CadenceReminder)
	require.Len(t, records, 1)
	require.Equal(t, "reminder_4h", records[0].StepKey)
}

func TestReminderCadenceReachesNewerAssignmentsPastFullBatch(t *testing.T) {
	settings := DefaultSettings()
	settings.CadenceBatchSize = 3
	f := newFixtureWith(t, settings)
	ctx := context.Background()
	_, older := distributedLead(t, f)

	f.clock.Advance(2 * time.Hour)
	result, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, result.Sent)

	f.clock.Advance(time.Hour)
	newerLead := f.lead("Dallas", "TX")
	for range 3 {
		f.contractor("Dallas", "TX", 2)
	}
	newer, err := f.svc.DistributeLead(ctx, newerLead.ID)
	require.NoError(t, err)
	require.Len(t, newer.Created, 3)

	// older assignments cross 4h while the newer ones cross 2h
	f.clock.Advance(2 * time.Hour)
	first, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, first.Sent)
	second, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, second.Sent)

	for _, a := range older {
		records := f.store.CadenceRecords(a.ID, domain.CadenceReminder)
		require.Len(t, records, 2)
	}
	for _, a := range newer.Created {
		records := f.store.CadenceRecords(a.ID, domain.CadenceReminder)
		require.Len(t, records, 1)
		require.Equal(t, "reminder_2h", records[0].StepKey)
	}
}

func TestReminderCadenceSkipsPendingPastResponseDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, assignments := distributedLead(t, f)

	accepted := assignments[0]
	_, err := f.svc.AcceptAssignment(ctx, accepted.ContractorID, accepted.ID)
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour + time.Minute)
	result, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent, "only the accepted assignment without a quote is nudged")

	records := f.store.CadenceRecords(accepted.ID, domain.CadenceReminder)
	require.Len(t, records, 1)
	require.Equal(t, "reminder_24h", records[0].StepKey)
	for _, a := range assignments[1:] {
		require.Empty(t, f.store.CadenceRecords(a.ID, domain.CadenceReminder))
	}
}

func TestReminderCadenceStopsOnceQuoted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, assignments := distributedLead(t, f)

	for _, a := range assignments {
		_, err := f.svc.SubmitQuote(ctx, a.ContractorID, a.ID, 120000)
		require.NoError(t, err)
	}

	f.clock.Advance(3 * time.Hour)
	result, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Sent)
	require.Zero(t, result.Skipped)
}

func TestFollowupCadenceAnchorsAtWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, assignments := distributedLead(t, f)
	winner := assignments[0]

	_, err := f.svc.AcceptAssignment(ctx, winner.ContractorID, winner.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Hour)
	_, err = f.svc.ResolveWinner(ctx, lead.ID, winner.ID, ModeSingle)
	require.NoError(t, err)

	f.clock.Advance(71 * time.Hour)
	result, err := f.svc.RunFollowupCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Sent)

	f.clock.Advance(2 * time.Hour)
	result, err = f.svc.RunFollowupCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent)

	_, err = f.svc.CompleteAssignment(ctx, winner.ContractorID, winner.ID)
	require.NoError(t, err)
	f.clock.Advance(72 * time.Hour)
	result, err = f.svc.RunFollowupCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Sent)
}

func TestCadenceClaimsBeforeSendingAndDoesNotRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	distributedLead(t, f)

	f.dispatcher.fail = true
	f.clock.Advance(3 * time.Hour)
	failed, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, failed.Failed)

	f.dispatcher.fail = false
	retry, err := f.svc.RunReminderCadence(ctx)
	require.NoError(t, err)
	require.Zero(t, retry.Sent)
}

func TestDueStep(t *testing.T) {
	steps := []config.CadenceStep{
		{Key: "a", After: 2 * time.Hour},
		{Key: "b", After: 4 * time.Hour},
		{Key: "c", After: 24 * time.Hour},
	}

	cases := []struct {
		name    string
		elapsed time.Duration
		sent    map[string]bool
		want    string
	}{
		{name: "nothing crossed", elapsed: time.Hour},
		{name: "first crossed", elapsed: 2 * time.Hour, want: "a"},
		{name: "latest wins", elapsed: 30 * time.Hour, want: "c"},
		{name: "latest already sent", elapsed: 5 * time.Hour, sent: map[string]bool{"b": true}},
		{name: "earlier sent", elapsed: 5 * time.Hour, sent: map[string]bool{"a": true}, want: "b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step, due := dueStep(steps, tc.sent, tc.elapsed)
			if tc.want == "" {
				require.False(t, due)
				return
			}
			require.True(t, due)
			require.Equal(t, tc.want, step.Key)
		})
	}
}
