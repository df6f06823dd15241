package service

import (
	"context"
	"sync/atomic"
	"testing"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestReserveLastCreditSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	c := f.contractor("Austin", "TX", 1)
	leadID := uuid.New()

	var reserved, insufficient atomic.Int32
	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			r, err := f.svc.Reserve(context.Background(), c.ID, 1, leadID, uuid.New())
			if err != nil {
				return err
			}
			if r.Outcome == domain.Reserved {
				reserved.Add(1)
			} else {
				insufficient.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, reserved.Load())
	require.EqualValues(t, 7, insufficient.Load())

	balance := f.requireConsistentBalance(c.ID)
	require.Zero(t, balance.Cached)
}

func TestReserveRecordsConsumptionAgainstAssignment(t *testing.T) {
	f := newFixture(t)
	c := f.contractor("Austin", "TX", 3)
	leadID, assignmentID := uuid.New(), uuid.New()

	r, err := f.svc.Reserve(context.Background(), c.ID, 2, leadID, assignmentID)
	require.NoError(t, err)
	require.Equal(t, domain.Reserved, r.Outcome)
	require.Equal(t, 1, r.BalanceAfter)
	require.Equal(t, domain.TransactionConsumption, r.Transaction.Kind)
	require.Equal(t, -2, r.Transaction.Delta)
	require.Equal(t, assignmentID, *r.Transaction.AssignmentID)
	require.Equal(t, "lead:"+leadID.String(), r.Transaction.Reference)
}

func TestReserveRejectsNonPositiveCost(t *testing.T) {
	f := newFixture(t)
	c := f.contractor("Austin", "TX", 3)

	_, err := f.svc.Reserve(context.Background(), c.ID, 0, uuid.New(), uuid.New())
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreditIsIdempotentPerPackage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contractor("Austin", "TX", 0)
	amount := int64(4900)

	first, err := f.svc.Credit(ctx, c.ID, 5, &amount, "pkg-77")
	require.NoError(t, err)
	require.Equal(t, domain.Credited, first.Outcome)
	require.Equal(t, 5, first.BalanceAfter)

	retry, err := f.svc.Credit(ctx, c.ID, 5, &amount, "pkg-77")
	require.NoError(t, err)
	require.Equal(t, domain.AlreadyApplied, retry.Outcome)

	balance := f.requireConsistentBalance(c.ID)
	require.Equal(t, 5, balance.Cached)

	history, err := f.svc.History(ctx, c.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, history.Total)
	require.Equal(t, domain.TransactionPurchase, history.Items[0].Kind)
	require.Equal(t, amount, *history.Items[0].AmountCents)
}

func TestCreditUnknownContractorIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Credit(context.Background(), uuid.New(), 5, nil, "pkg-1")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreditValidatesInput(t *testing.T) {
	f := newFixture(t)
	c := f.contractor("Austin", "TX", 0)

	_, err := f.svc.Credit(context.Background(), c.ID, 0, nil, "pkg-1")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.Credit(context.Background(), c.ID, 3, nil, "  ")
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreditConservationAcrossDistributionAndPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	contractors := []domain.Contractor{
		f.contractor("Austin", "TX", 2),
		f.contractor("Austin", "TX", 1),
		f.contractor("Austin", "TX", 0),
	}

	for range 3 {
		lead := f.lead("Austin", "TX")
		_, err := f.svc.DistributeLead(ctx, lead.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.Credit(ctx, contractors[2].ID, 3, nil, "pkg-a")
	require.NoError(t, err)
	_, err = f.svc.DistributeLead(ctx, f.lead("Austin", "TX").ID)
	require.NoError(t, err)

	for _, c := range contractors {
		f.requireConsistentBalance(c.ID)
	}
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contractor("Austin", "TX", 0)
	for _, ref := range []string{"pkg-1", "pkg-2", "pkg-3"} {
		_, err := f.svc.Credit(ctx, c.ID, 1, nil, ref)
		require.NoError(t, err)
	}

	page, err := f.svc.History(ctx, c.ID, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "pkg-3", page.Items[0].Reference)

	last, err := f.svc.History(ctx, c.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	require.Equal(t, "pkg-1", last.Items[0].Reference)
}
