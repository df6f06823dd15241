package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestAdjustBalanceReturnsNewBalance(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	contractorID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contractors")).
		WithArgs(contractorID, -1).
		WillReturnRows(pgxmock.NewRows([]string{"credit_balance"}).AddRow(4))

	balance, ok, err := repo.AdjustBalance(context.Background(), contractorID, -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceReportsGuardFailure(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	contractorID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contractors")).
		WithArgs(contractorID, -1).
		WillReturnRows(pgxmock.NewRows([]string{"credit_balance"}))

	_, ok, err := repo.AdjustBalance(context.Background(), contractorID, -1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTransactionDetectsDuplicatePurchase(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	txn := domain.CreditTransaction{
		ID:           uuid.New(),
		ContractorID: uuid.New(),
		Kind:         domain.TransactionPurchase,
		Delta:        10,
		Reference:    "pkg_123",
		BalanceAfter: 10,
		CreatedAt:    time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO credit_transactions")).
		WithArgs(txn.ID, txn.ContractorID, "purchase", 10, pgxmock.AnyArg(), "pkg_123", pgxmock.AnyArg(), 10, txn.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	inserted, err := repo.AppendTransaction(context.Background(), txn)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockLeadRunsInsideTransaction(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	leadID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs(leadID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.LockLead(ctx, leadID)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	leadID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs(leadID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := repo.LockLead(ctx, leadID); err != nil {
			return err
		}
		return apperr.Conflict("stop")
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsActivePairViolationToInvariantError(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	now := time.Now()
	a := domain.Assignment{
		ID:               uuid.New(),
		LeadID:           uuid.New(),
		ContractorID:     uuid.New(),
		Status:           domain.StatusPending,
		Attempt:          1,
		CostCredits:      1,
		ResponseDeadline: now.Add(24 * time.Hour),
		CreatedAt:        now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lead_assignments")).
		WithArgs(a.ID, a.LeadID, a.ContractorID, "pending", 1, 1, a.ResponseDeadline, a.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: activePairIndex})

	err := repo.Create(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.GetKind(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkWonReportsGuardFailure(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	leadID, assignmentID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'won'")).
		WithArgs(leadID, assignmentID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(strings.Fields(strings.ReplaceAll(assignmentColumns, ",", " "))))

	_, ok, err := repo.MarkWon(context.Background(), leadID, assignmentID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimStepReportsExistingRecord(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	assignmentID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignment_cadence_records")).
		WithArgs(pgxmock.AnyArg(), assignmentID, "reminder", "reminder_2h", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	claimed, err := repo.ClaimStep(context.Background(), assignmentID, domain.CadenceReminder, "reminder_2h", time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderCandidatesPassesStepThresholds(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("unnest($2::text[], $3::float8[])")).
		WithArgs(now, []string{"reminder_2h", "reminder_4h"}, []float64{7200, 14400}, 50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	steps := []ports.CadenceThreshold{
		{Key: "reminder_2h", After: 2 * time.Hour},
		{Key: "reminder_4h", After: 4 * time.Hour},
	}
	found, err := repo.ReminderCandidates(context.Background(), ports.CadenceQuery{Now: now, Steps: steps, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnderfilledLeadsStampsReturnedLeads(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	since := now.Add(-168 * time.Hour)
	leadID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SET last_swept_at = $4")).
		WithArgs(3, since, 200, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(leadID))

	ids, err := repo.UnderfilledLeads(context.Background(), 3, since, now, 200)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{leadID}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardedQueriesCarryStatusPredicates(t *testing.T) {
	cases := map[string][]string{
		"reserve":        {adjustBalanceQuery, "credit_balance + $2 >= 0"},
		"expire":         {expireOverdueQuery, "status = 'pending' and response_deadline < $1", "for update skip locked"},
		"won":            {markWonQuery, "status = 'accepted'", "not exists"},
		"accept":         {acceptAssignmentQuery, "status = 'pending'", "response_deadline >= $3"},
		"decline others": {declineOthersQuery, "id <> $2", "status in ('pending', 'accepted')"},
		"notify all":     {promoteQuotedQuery, "quote_amount_cents is not null"},
		"claim":          {claimStepQuery, "on conflict (assignment_id, cadence, step_key) do nothing"},
		"purchase":       {appendTransactionQuery, "on conflict (contractor_id, reference) where kind = 'purchase' do nothing"},
		"reminders":      {reminderCandidatesQuery, "a.status = 'pending' and a.response_deadline >= $1", "x.step_key = due.key", "limit $4"},
		"followups":      {followupCandidatesQuery, "a.won_at + s.after_secs * interval '1 second' <= $1", "x.step_key = due.key"},
		"underfilled":    {underfilledLeadsQuery, "set last_swept_at = $4", "order by l.last_swept_at asc nulls first", "for update of l skip locked"},
	}

	for name, parts := range cases {
		query := strings.ToLower(strings.Join(strings.Fields(parts[0]), " "))
		for _, fragment := range parts[1:] {
			if !strings.Contains(query, fragment) {
				t.Fatalf("%s query must contain %q", name, fragment)
			}
		}
	}
}

func TestEligibilityQueryMatchesCityCaseInsensitively(t *testing.T) {
	query := strings.ToLower(findEligibleQuery)
	for _, fragment := range []string{
		"lower(sa.city) = lower(trim($1))",
		"sa.state = $2",
		"approval_status = 'approved'",
		"credit_balance >= 1",
		"order by c.created_at asc, c.id asc",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("eligibility query must contain %q", fragment)
		}
	}
}
