package repository

import (
	"context"
	"errors"
	"fmt"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const adjustBalanceQuery = `
	UPDATE contractors
	SET credit_balance = credit_balance + $2, updated_at = now()
	WHERE id = $1 AND credit_balance + $2 >= 0
	RETURNING credit_balance`

const appendTransactionQuery = `
	INSERT INTO credit_transactions (
		id, contractor_id, kind, delta, amount_cents, reference, assignment_id, balance_after, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (contractor_id, reference) WHERE kind = 'purchase' DO NOTHING
	RETURNING id`

const listTransactionsQuery = `
	SELECT id, contractor_id, kind, delta, amount_cents, reference, assignment_id, balance_after, created_at,
	       count(*) OVER() AS total
	FROM credit_transactions
	WHERE contractor_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3`

const getBalanceQuery = `
	SELECT c.credit_balance,
	       COALESCE((SELECT SUM(t.delta) FROM credit_transactions t WHERE t.contractor_id = c.id), 0)
	FROM contractors c
	WHERE c.id = $1`

// AdjustBalance is the conditional check-and-modify on the cached balance.
func (r *Repository) AdjustBalance(ctx context.Context, contractorID uuid.UUID, delta int) (int, bool, error) {
	var balance int
	err := r.conn(ctx).QueryRow(ctx, adjustBalanceQuery, contractorID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("adjust credit balance: %w", err)
	}
	return balance, true, nil
}

// AppendTransaction writes one log entry.
func (r *Repository) AppendTransaction(ctx context.Context, txn domain.CreditTransaction) (bool, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, appendTransactionQuery,
		txn.ID, txn.ContractorID, string(txn.Kind), txn.Delta, txn.AmountCents,
		txn.Reference, txn.AssignmentID, txn.BalanceAfter, txn.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("append credit transaction: %w", err)
	}
	return true, nil
}

// ListTransactions pages a contractor's log, newest first.
func (r *Repository) ListTransactions(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, int, error) {
	rows, err := r.conn(ctx).Query(ctx, listTransactionsQuery, contractorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CreditTransaction, 0, limit)
	total := 0
	for rows.Next() {
		var (
			t     domain.CreditTransaction
			kind  string
			count int64
		)
		if err := rows.Scan(&t.ID, &t.ContractorID, &kind, &t.Delta, &t.AmountCents, &t.Reference,
			&t.AssignmentID, &t.BalanceAfter, &t.CreatedAt, &count); err != nil {
			return nil, 0, fmt.Errorf("scan credit transaction: %w", err)
		}
		t.Kind = domain.TransactionKind(kind)
		total = int(count)
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate credit transactions: %w", err)
	}
	return items, total, nil
}

// GetBalance returns the cached balance next to the log-derived one.
func (r *Repository) GetBalance(ctx context.Context, contractorID uuid.UUID) (domain.Balance, error) {
	var (
		cached int
		ledger int64
	)
	err := r.conn(ctx).QueryRow(ctx, getBalanceQuery, contractorID).Scan(&cached, &ledger)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Balance{}, apperr.NotFound("contractor not found")
	}
	if err != nil {
		return domain.Balance{}, fmt.Errorf("get credit balance: %w", err)
	}
	return domain.Balance{ContractorID: contractorID, Cached: cached, Ledger: int(ledger)}, nil
}
