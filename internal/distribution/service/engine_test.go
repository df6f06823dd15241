package service

import (
	"context"
	"testing"

	"insulationpal_backend/internal/distribution/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDistributeAustinSkipsUnfundedContractors(t *testing.T) {
	f := newFixture(t)
	lead := f.lead("Austin", "TX")

	funded := []domain.Contractor{
		f.contractor("Austin", "TX", 1),
		f.contractor("austin", "TX", 1),
		f.contractor("AUSTIN", "TX", 1),
	}
	f.contractor("Austin", "TX", 0)
	f.contractor("Austin", "TX", 0)

	result, err := f.svc.Distribute(context.Background(), lead, nil, 3)
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	require.Equal(t, 2, result.SkippedForCredit)
	require.Zero(t, result.Shortfall)

	assigned := byContractor(result.Created)
	for _, c := range funded {
		a, ok := assigned[c.ID]
		require.True(t, ok, "funded contractor %s should be assigned", c.BusinessName)
		require.Equal(t, domain.StatusPending, a.Status)
		require.Equal(t, baseTime.Add(f.svc.Settings().ResponseWindow), a.ResponseDeadline)

		balance := f.requireConsistentBalance(c.ID)
		require.Zero(t, balance.Cached)
	}
	require.Equal(t, 3, f.dispatcher.count(TemplateLeadAssigned))
}

func TestDistributeReportsShortfallWhenPoolIsExhausted(t *testing.T) {
	f := newFixture(t)
	lead := f.lead("Austin", "TX")
	f.contractor("Austin", "TX", 4)
	f.contractor("Dallas", "TX", 4)
	f.contractor("Austin", "OK", 4)

	result, err := f.svc.Distribute(context.Background(), lead, nil, 3)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Equal(t, 2, result.Shortfall)
}

func TestDistributeIgnoresUnapprovedAndExcludedContractors(t *testing.T) {
	f := newFixture(t)
	lead := f.lead("Austin", "TX")

	excluded := f.contractor("Austin", "TX", 5)
	suspended := domain.Contractor{
		ID:             uuid.New(),
		ApprovalStatus: domain.ApprovalSuspended,
		CreditBalance:  5,
		ServiceAreas:   []domain.ServiceArea{{City: "Austin", State: "TX"}},
	}
	f.store.AddContractor(suspended)
	eligible := f.contractor("Austin", "TX", 5)

	result, err := f.svc.Distribute(context.Background(), lead, []uuid.UUID{excluded.ID}, 3)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Equal(t, eligible.ID, result.Created[0].ContractorID)
}

func TestDistributeChargesByPaymentPreference(t *testing.T) {
	settings := DefaultSettings()
	settings.CompletionLeadCost = 2
	f := newFixtureWith(t, settings)
	lead := f.lead("Austin", "TX")

	short := f.contractorWith("Austin", "TX", 1, domain.PayOnCompletion)
	enough := f.contractorWith("Austin", "TX", 2, domain.PayOnCompletion)
	perLead := f.contractorWith("Austin", "TX", 1, domain.PayPerLead)

	result, err := f.svc.Distribute(context.Background(), lead, nil, 3)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	require.Equal(t, 1, result.SkippedForCredit)

	assigned := byContractor(result.Created)
	require.NotContains(t, assigned, short.ID)
	require.Equal(t, 2, assigned[enough.ID].CostCredits)
	require.Equal(t, 1, assigned[perLead.ID].CostCredits)

	require.Equal(t, 1, f.requireConsistentBalance(short.ID).Cached)
	require.Zero(t, f.requireConsistentBalance(enough.ID).Cached)
}

func TestDistributeLeadNeverDoubleAssignsAContractor(t *testing.T) {
	f := newFixture(t)
	lead := f.lead("Austin", "TX")
	for range 2 {
		f.contractor("Austin", "TX", 5)
	}

	first, err := f.svc.DistributeLead(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, first.Created, 2)
	require.Equal(t, 1, first.Shortfall)

	second, err := f.svc.DistributeLead(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Empty(t, second.Created)

	seen := make(map[uuid.UUID]int)
	for _, a := range f.assignmentsOf(lead.ID) {
		if a.Status.IsActive() {
			seen[a.ContractorID]++
		}
	}
	for contractorID, n := range seen {
		require.Equal(t, 1, n, "contractor %s holds %d active assignments", contractorID, n)
	}
}

func TestDistributeLeadUnknownLeadIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DistributeLead(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestDistributeLeavesLeadWithWinnerAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, assignments := distributedLead(t, f)
	winner := assignments[0]
	_, err := f.svc.SubmitQuote(ctx, winner.ContractorID, winner.ID, 150000)
	require.NoError(t, err)
	_, err = f.svc.ResolveWinner(ctx, lead.ID, winner.ID, ModeSingle)
	require.NoError(t, err)
	f.contractor("Austin", "TX", 5)

	result, err := f.svc.Distribute(ctx, lead, nil, 3)
	require.NoError(t, err)
	require.True(t, result.Closed)
	require.Empty(t, result.Created)
	require.Len(t, f.assignmentsOf(lead.ID), 3)
}
