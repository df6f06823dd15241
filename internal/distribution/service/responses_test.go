package service

import (
	"context"
	"testing"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/apperr"
	"insulationpal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAcceptAfterDeadlineIsGone(t *testing.T) {
	f := newFixture(t)
	_, assignments := distributedLead(t, f)
	a := assignments[0]

	f.clock.Advance(25 * time.Hour)
	_, err := f.svc.AcceptAssignment(context.Background(), a.ContractorID, a.ID)
	require.True(t, apperr.Is(err, apperr.KindGone))
}

func TestAcceptByAnotherContractorIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, assignments := distributedLead(t, f)

	_, err := f.svc.AcceptAssignment(context.Background(), uuid.New(), assignments[0].ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAcceptTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, assignments := distributedLead(t, f)
	a := assignments[0]

	accepted, err := f.svc.AcceptAssignment(ctx, a.ContractorID, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	_, err = f.svc.AcceptAssignment(ctx, a.ContractorID, a.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSubmitQuoteLastWriterWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, assignments := distributedLead(t, f)
	a := assignments[0]

	_, err := f.svc.SubmitQuote(ctx, a.ContractorID, a.ID, 100000)
	require.NoError(t, err)
	quoted, err := f.svc.SubmitQuote(ctx, a.ContractorID, a.ID, 90000)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, quoted.Status)
	require.EqualValues(t, 90000, *quoted.QuoteAmountCents)

	_, err = f.svc.SubmitQuote(ctx, a.ContractorID, a.ID, 0)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCompleteRequiresWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, assignments := distributedLead(t, f)
	a := assignments[0]

	_, err := f.svc.CompleteAssignment(ctx, a.ContractorID, a.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.AcceptAssignment(ctx, a.ContractorID, a.ID)
	require.NoError(t, err)
	_, err = f.svc.ResolveWinner(ctx, lead.ID, a.ID, ModeSingle)
	require.NoError(t, err)

	done, err := f.svc.CompleteAssignment(ctx, a.ContractorID, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
}

func TestDeclineTriggersBackfill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bus := events.NewInMemoryBus(logger.Discard())
	f.svc = New(f.store, f.dispatcher, bus, logger.Discard(), DefaultSettings()).WithClock(f.clock.Now)
	f.svc.RegisterSubscriptions(bus, nil)

	lead, assignments := distributedLead(t, f)
	spare := f.contractor("Austin", "TX", 1)
	bus.Wait()

	declined, err := f.svc.DeclineAssignment(ctx, assignments[0].ContractorID, assignments[0].ID, "<b>too far</b> away")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDeclined, declined.Status)
	require.Equal(t, "too far away", *declined.DeclineReason)
	bus.Wait()

	active := byContractor(f.assignmentsOf(lead.ID))
	require.Equal(t, domain.StatusPending, active[spare.ID].Status)
	require.Equal(t, 3, f.activeCount(lead.ID))
}

func TestDeclineDefaultsReason(t *testing.T) {
	f := newFixture(t)
	_, assignments := distributedLead(t, f)
	a := assignments[0]

	declined, err := f.svc.DeclineAssignment(context.Background(), a.ContractorID, a.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.DeclineReasonContractor, *declined.DeclineReason)
}
