package service

import (
	"context"
	"testing"
	"time"

	"insulationpal_backend/internal/distribution/domain"

	"github.com/stretchr/testify/require"
)

func TestSweepExpiresAndReplacesWithinRemainingPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead("Austin", "TX")
	for range 5 {
		f.contractor("Austin", "TX", 3)
	}

	initial, err := f.svc.DistributeLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, initial.Created, 3)

	// two contractors respond, the first one goes quiet
	for _, a := range initial.Created[1:] {
		_, err := f.svc.AcceptAssignment(ctx, a.ContractorID, a.ID)
		require.NoError(t, err)
	}

	f.clock.Advance(25 * time.Hour)
	result, err := f.svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.ExpiredCount)
	require.Equal(t, 1, result.ReassignedCount)
	require.Equal(t, 3, f.activeCount(lead.ID))

	expired, err := f.store.Get(ctx, initial.Created[0].ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusExpired, expired.Status)

	// the replacement belongs to a new round and skips everyone already tried
	tried := byContractor(initial.Created)
	var replacement domain.Assignment
	for _, a := range f.assignmentsOf(lead.ID) {
		if _, ok := tried[a.ContractorID]; !ok {
			replacement = a
		}
	}
	require.Equal(t, domain.StatusPending, replacement.Status)
	require.Equal(t, 2, replacement.Attempt)
	require.Equal(t, 1, f.dispatcher.count(TemplateAssignmentExpired))
}

func TestSweepWithoutExpiryWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead("Austin", "TX")
	contractors := []domain.Contractor{
		f.contractor("Austin", "TX", 1),
		f.contractor("Austin", "TX", 1),
	}

	_, err := f.svc.DistributeLead(ctx, lead.ID)
	require.NoError(t, err)
	before := f.store.Assignments()

	for range 2 {
		result, err := f.svc.RunExpirySweep(ctx)
		require.NoError(t, err)
		require.Zero(t, result.ExpiredCount)
		require.Zero(t, result.ReassignedCount)
	}

	require.Equal(t, before, f.store.Assignments())
	for _, c := range contractors {
		history, err := f.svc.History(ctx, c.ID, 1, 10)
		require.NoError(t, err)
		require.Equal(t, 2, history.Total, "opening balance and one consumption")
	}
}

func TestSweepBackfillsUnderfilledLeadAfterCreditPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead("Austin", "TX")
	f.contractor("Austin", "TX", 1)
	broke := f.contractor("Austin", "TX", 0)

	initial, err := f.svc.DistributeLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, initial.Created, 1)
	require.Equal(t, 1, initial.SkippedForCredit)

	_, err = f.svc.Credit(ctx, broke.ID, 5, nil, "pkg-2026-001")
	require.NoError(t, err)

	result, err := f.svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Zero(t, result.ExpiredCount)
	require.Equal(t, 1, result.ReassignedCount)
	require.Contains(t, byContractor(f.assignmentsOf(lead.ID)), broke.ID)
}

func TestSweepRotatesPastLeadsWithExhaustedPool(t *testing.T) {
	settings := DefaultSettings()
	settings.SweepBatchSize = 2
	f := newFixtureWith(t, settings)
	ctx := context.Background()

	for _, city := range []string{"El Paso", "Waco", "Tyler"} {
		stuck := f.lead(city, "TX")
		f.contractor(city, "TX", 1)
		_, err := f.svc.DistributeLead(ctx, stuck.ID)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	lead := f.lead("Austin", "TX")
	f.contractor("Austin", "TX", 1)
	broke := f.contractor("Austin", "TX", 0)
	_, err := f.svc.DistributeLead(ctx, lead.ID)
	require.NoError(t, err)
	_, err = f.svc.Credit(ctx, broke.ID, 5, nil, "pkg-2026-014")
	require.NoError(t, err)

	first, err := f.svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, first.LeadsVisited)
	require.Zero(t, first.ReassignedCount)

	second, err := f.svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, second.LeadsVisited)
	require.Equal(t, 1, second.ReassignedCount)
	require.Contains(t, byContractor(f.assignmentsOf(lead.ID)), broke.ID)
}

func TestSweepLeavesClosedLeadsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead("Austin", "TX")
	for range 4 {
		f.contractor("Austin", "TX", 2)
	}

	initial, err := f.svc.DistributeLead(ctx, lead.ID)
	require.NoError(t, err)
	winner := initial.Created[0]
	_, err = f.svc.SubmitQuote(ctx, winner.ContractorID, winner.ID, 180000)
	require.NoError(t, err)
	resolved, err := f.svc.ResolveWinner(ctx, lead.ID, winner.ID, ModeSingle)
	require.NoError(t, err)
	require.Equal(t, ResolutionSuccess, resolved.Outcome)

	f.clock.Advance(48 * time.Hour)
	result, err := f.svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Zero(t, result.ReassignedCount)
	require.Len(t, f.assignmentsOf(lead.ID), 3)
}

func TestFanoutNeverExceededAcrossSweeps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead("Austin", "TX")
	for range 12 {
		f.contractor("Austin", "TX", 1)
	}

	_, err := f.svc.DistributeLead(ctx, lead.ID)
	require.NoError(t, err)

	for range 5 {
		f.clock.Advance(25 * time.Hour)
		_, err := f.svc.RunExpirySweep(ctx)
		require.NoError(t, err)
		require.LessOrEqual(t, f.activeCount(lead.ID), f.svc.Settings().Fanout)
	}
	// 3 initial plus 3 per round until the 12 contractors ran out
	require.Len(t, f.assignmentsOf(lead.ID), 12)
}
