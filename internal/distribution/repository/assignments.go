package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/platform/apperr"
	"insulationpal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activePairIndex = "lead_assignments_active_pair_idx"

const assignmentColumns = `
	id, lead_id, contractor_id, status, attempt, cost_credits, quote_amount_cents, decline_reason,
	response_deadline, responded_at, won_at, completed_at, declined_at, expired_at, created_at, updated_at`

const lockLeadQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

const createAssignmentQuery = `
	INSERT INTO lead_assignments (
		id, lead_id, contractor_id, status, attempt, cost_credits, response_deadline, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

const getAssignmentQuery = `SELECT ` + assignmentColumns + ` FROM lead_assignments WHERE id = $1`

const listLeadAssignmentsQuery = `
	SELECT ` + assignmentColumns + `
	FROM lead_assignments
	WHERE lead_id = $1
	ORDER BY created_at ASC, id ASC`

const countByLeadQuery = `SELECT status, count(*) FROM lead_assignments WHERE lead_id = $1 GROUP BY status`

const countByContractorQuery = `SELECT status, count(*) FROM lead_assignments WHERE contractor_id = $1 GROUP BY status`

const assignedContractorsQuery = `SELECT DISTINCT contractor_id FROM lead_assignments WHERE lead_id = $1`

const nextAttemptQuery = `SELECT COALESCE(MAX(attempt), 0) + 1 FROM lead_assignments WHERE lead_id = $1`

const leadClosedQuery = `
	SELECT EXISTS (
		SELECT 1 FROM lead_assignments WHERE lead_id = $1 AND status IN ('won', 'completed')
	)`

const expireOverdueQuery = `
	UPDATE lead_assignments
	SET status = 'expired', expired_at = $1, updated_at = $1
	WHERE id IN (
		SELECT id FROM lead_assignments
		WHERE status = 'pending' AND response_deadline < $1
		ORDER BY response_deadline ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	AND status = 'pending'
	RETURNING ` + assignmentColumns

// underfilledLeadsQuery rotates through open under-filled leads: each returned
// lead is stamped, so leads with an exhausted pool move behind newer ones.
const underfilledLeadsQuery = `
	UPDATE leads
	SET last_swept_at = $4
	WHERE id IN (
		SELECT l.id
		FROM leads l
		WHERE l.created_at >= $2
		  AND EXISTS (SELECT 1 FROM lead_assignments a WHERE a.lead_id = l.id)
		  AND NOT EXISTS (
			SELECT 1 FROM lead_assignments a
			WHERE a.lead_id = l.id AND a.status IN ('won', 'completed')
		  )
		  AND (
			SELECT count(*) FROM lead_assignments a
			WHERE a.lead_id = l.id AND a.status IN ('pending', 'accepted', 'won')
		  ) < $1
		ORDER BY l.last_swept_at ASC NULLS FIRST, l.created_at ASC
		LIMIT $3
		FOR UPDATE OF l SKIP LOCKED
	)
	RETURNING id`

const acceptAssignmentQuery = `
	UPDATE lead_assignments
	SET status = 'accepted', responded_at = $3, updated_at = $3
	WHERE id = $1 AND contractor_id = $2 AND status = 'pending' AND response_deadline >= $3
	RETURNING ` + assignmentColumns

const submitQuoteQuery = `
	UPDATE lead_assignments
	SET status = 'accepted', quote_amount_cents = $3, responded_at = COALESCE(responded_at, $4), updated_at = $4
	WHERE id = $1 AND contractor_id = $2
	  AND (status = 'accepted' OR (status = 'pending' AND response_deadline >= $4))
	RETURNING ` + assignmentColumns

const declineAssignmentQuery = `
	UPDATE lead_assignments
	SET status = 'declined', decline_reason = $3, declined_at = $4,
	    responded_at = COALESCE(responded_at, $4), updated_at = $4
	WHERE id = $1 AND contractor_id = $2 AND status IN ('pending', 'accepted')
	RETURNING ` + assignmentColumns

const completeAssignmentQuery = `
	UPDATE lead_assignments
	SET status = 'completed', completed_at = $3, updated_at = $3
	WHERE id = $1 AND contractor_id = $2 AND status = 'won'
	RETURNING ` + assignmentColumns

const markWonQuery = `
	UPDATE lead_assignments
	SET status = 'won', won_at = $3, updated_at = $3
	WHERE id = $2 AND lead_id = $1 AND status = 'accepted'
	  AND NOT EXISTS (
		SELECT 1 FROM lead_assignments o
		WHERE o.lead_id = $1 AND o.status IN ('won', 'completed')
	  )
	RETURNING ` + assignmentColumns

const declineOthersQuery = `
	UPDATE lead_assignments
	SET status = 'declined', decline_reason = $3, declined_at = $4, updated_at = $4
	WHERE lead_id = $1 AND id <> $2 AND status IN ('pending', 'accepted')
	RETURNING ` + assignmentColumns

const promoteQuotedQuery = `
	UPDATE lead_assignments
	SET status = 'won', won_at = $2, updated_at = $2
	WHERE lead_id = $1 AND status = 'accepted' AND quote_amount_cents IS NOT NULL
	RETURNING ` + assignmentColumns

// LockLead takes a transaction-scoped advisory lock keyed by the lead.
func (r *Repository) LockLead(ctx context.Context, leadID uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx, lockLeadQuery, leadID.String()); err != nil {
		return fmt.Errorf("lock lead: %w", err)
	}
	return nil
}

// Create inserts a pending assignment. A second active pairing is an invariant violation.
func (r *Repository) Create(ctx context.Context, a domain.Assignment) error {
	_, err := r.conn(ctx).Exec(ctx, createAssignmentQuery,
		a.ID, a.LeadID, a.ContractorID, string(a.Status), a.Attempt, a.CostCredits, a.ResponseDeadline, a.CreatedAt)
	if db.IsUniqueViolation(err, activePairIndex) {
		return apperr.InvariantViolation("assignments.create", err)
	}
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx, getAssignmentQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, apperr.NotFound("assignment not found")
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, "list lead assignments", listLeadAssignmentsQuery, leadID)
}

func (r *Repository) CountByLead(ctx context.Context, leadID uuid.UUID) (domain.StatusCounts, error) {
	return r.countStatuses(ctx, countByLeadQuery, leadID)
}

func (r *Repository) CountByContractor(ctx context.Context, contractorID uuid.UUID) (domain.StatusCounts, error) {
	return r.countStatuses(ctx, countByContractorQuery, contractorID)
}

func (r *Repository) AssignedContractors(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, assignedContractorsQuery, leadID)
	if err != nil {
		return nil, fmt.Errorf("list assigned contractors: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assigned contractor: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) NextAttempt(ctx context.Context, leadID uuid.UUID) (int, error) {
	var attempt int
	if err := r.conn(ctx).QueryRow(ctx, nextAttemptQuery, leadID).Scan(&attempt); err != nil {
		return 0, fmt.Errorf("next attempt: %w", err)
	}
	return attempt, nil
}

func (r *Repository) LeadClosed(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var closed bool
	if err := r.conn(ctx).QueryRow(ctx, leadClosedQuery, leadID).Scan(&closed); err != nil {
		return false, fmt.Errorf("check lead closed: %w", err)
	}
	return closed, nil
}

// ExpireOverdue moves overdue pending assignments to expired. Rows locked by a
// concurrent sweep are skipped and the status guard is re-checked on update.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, "expire overdue assignments", expireOverdueQuery, now, limit)
}

func (r *Repository) UnderfilledLeads(ctx context.Context, target int, since, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, underfilledLeadsQuery, target, since, limit, now)
	if err != nil {
		return nil, fmt.Errorf("list underfilled leads: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan underfilled lead: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) Accept(ctx context.Context, id, contractorID uuid.UUID, now time.Time) (domain.Assignment, bool, error) {
	return r.transition(ctx, "accept assignment", acceptAssignmentQuery, id, contractorID, now)
}

func (r *Repository) SubmitQuote(ctx context.Context, id, contractorID uuid.UUID, amountCents int64, now time.Time) (domain.Assignment, bool, error) {
	return r.transition(ctx, "submit quote", submitQuoteQuery, id, contractorID, amountCents, now)
}

func (r *Repository) Decline(ctx context.Context, id, contractorID uuid.UUID, reason string, now time.Time) (domain.Assignment, bool, error) {
	return r.transition(ctx, "decline assignment", declineAssignmentQuery, id, contractorID, reason, now)
}

func (r *Repository) Complete(ctx context.Context, id, contractorID uuid.UUID, now time.Time) (domain.Assignment, bool, error) {
	return r.transition(ctx, "complete assignment", completeAssignmentQuery, id, contractorID, now)
}

// MarkWon is the guarded accepted -> won transition. It fails when the lead already has a winner.
func (r *Repository) MarkWon(ctx context.Context, leadID, id uuid.UUID, now time.Time) (domain.Assignment, bool, error) {
	return r.transition(ctx, "mark assignment won", markWonQuery, leadID, id, now)
}

func (r *Repository) DeclineOthers(ctx context.Context, leadID, winnerID uuid.UUID, reason string, now time.Time) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, "decline losing assignments", declineOthersQuery, leadID, winnerID, reason, now)
}

func (r *Repository) PromoteQuoted(ctx context.Context, leadID uuid.UUID, now time.Time) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, "promote quoted assignments", promoteQuotedQuery, leadID, now)
}

func (r *Repository) transition(ctx context.Context, op, query string, args ...any) (domain.Assignment, bool, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, false, nil
	}
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return a, true, nil
}

func (r *Repository) queryAssignments(ctx context.Context, op, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (r *Repository) countStatuses(ctx context.Context, query string, id uuid.UUID) (domain.StatusCounts, error) {
	rows, err := r.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}
	defer rows.Close()

	counts := make(domain.StatusCounts, len(domain.AllStatuses))
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan assignment count: %w", err)
		}
		counts[domain.Status(status)] = int(count)
	}
	return counts, rows.Err()
}

func scanAssignment(row scanner) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		status string
	)
	err := row.Scan(
		&a.ID, &a.LeadID, &a.ContractorID, &status, &a.Attempt, &a.CostCredits,
		&a.QuoteAmountCents, &a.DeclineReason, &a.ResponseDeadline, &a.RespondedAt,
		&a.WonAt, &a.CompletedAt, &a.DeclinedAt, &a.ExpiredAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.Status = domain.Status(status)
	return a, nil
}
