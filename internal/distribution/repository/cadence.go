package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cadenceCandidateColumns = `
	a.id, a.lead_id, a.contractor_id, a.status, a.attempt, a.cost_credits, a.quote_amount_cents, a.decline_reason,
	a.response_deadline, a.responded_at, a.won_at, a.completed_at, a.declined_at, a.expired_at, a.created_at, a.updated_at,
	c.contact_email, c.business_name,
	COALESCE(array_agg(r.step_key) FILTER (WHERE r.step_key IS NOT NULL), '{}')`

// cadenceStepsCTE turns the step thresholds into rows; dueStepJoin keeps only
// assignments whose latest crossed step has no sent-record yet.
const cadenceStepsCTE = `
	WITH steps AS (
		SELECT key, after_secs FROM unnest($2::text[], $3::float8[]) AS s(key, after_secs)
	)`

const reminderCandidatesQuery = cadenceStepsCTE + `
	SELECT ` + cadenceCandidateColumns + `
	FROM lead_assignments a
	JOIN contractors c ON c.id = a.contractor_id
	CROSS JOIN LATERAL (
		SELECT s.key FROM steps s
		WHERE a.created_at + s.after_secs * interval '1 second' <= $1
		ORDER BY s.after_secs DESC
		LIMIT 1
	) due
	LEFT JOIN assignment_cadence_records r ON r.assignment_id = a.id AND r.cadence = 'reminder'
	WHERE ((a.status = 'pending' AND a.response_deadline >= $1)
	    OR (a.status = 'accepted' AND a.quote_amount_cents IS NULL))
	  AND NOT EXISTS (
		SELECT 1 FROM assignment_cadence_records x
		WHERE x.assignment_id = a.id AND x.cadence = 'reminder' AND x.step_key = due.key
	  )
	GROUP BY a.id, c.id
	ORDER BY a.created_at ASC
	LIMIT $4`

const followupCandidatesQuery = cadenceStepsCTE + `
	SELECT ` + cadenceCandidateColumns + `
	FROM lead_assignments a
	JOIN contractors c ON c.id = a.contractor_id
	CROSS JOIN LATERAL (
		SELECT s.key FROM steps s
		WHERE a.won_at + s.after_secs * interval '1 second' <= $1
		ORDER BY s.after_secs DESC
		LIMIT 1
	) due
	LEFT JOIN assignment_cadence_records r ON r.assignment_id = a.id AND r.cadence = 'followup'
	WHERE a.status = 'won' AND a.completed_at IS NULL
	  AND NOT EXISTS (
		SELECT 1 FROM assignment_cadence_records x
		WHERE x.assignment_id = a.id AND x.cadence = 'followup' AND x.step_key = due.key
	  )
	GROUP BY a.id, c.id
	ORDER BY a.won_at ASC
	LIMIT $4`

const claimStepQuery = `
	INSERT INTO assignment_cadence_records (id, assignment_id, cadence, step_key, sent_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (assignment_id, cadence, step_key) DO NOTHING
	RETURNING id`

func (r *Repository) ReminderCandidates(ctx context.Context, q ports.CadenceQuery) ([]domain.CadenceCandidate, error) {
	return r.cadenceCandidates(ctx, "list reminder candidates", reminderCandidatesQuery, q)
}

func (r *Repository) FollowupCandidates(ctx context.Context, q ports.CadenceQuery) ([]domain.CadenceCandidate, error) {
	return r.cadenceCandidates(ctx, "list followup candidates", followupCandidatesQuery, q)
}

// ClaimStep inserts the sent-record; the unique constraint is the only idempotency guard.
func (r *Repository) ClaimStep(ctx context.Context, assignmentID uuid.UUID, cadence domain.CadenceKind, stepKey string, now time.Time) (bool, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, claimStepQuery, uuid.New(), assignmentID, string(cadence), stepKey, now).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim cadence step: %w", err)
	}
	return true, nil
}

func (r *Repository) cadenceCandidates(ctx context.Context, op, query string, q ports.CadenceQuery) ([]domain.CadenceCandidate, error) {
	keys := make([]string, 0, len(q.Steps))
	afters := make([]float64, 0, len(q.Steps))
	for _, step := range q.Steps {
		keys = append(keys, step.Key)
		afters = append(afters, step.After.Seconds())
	}
	rows, err := r.conn(ctx).Query(ctx, query, q.Now, keys, afters, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]domain.CadenceCandidate, 0)
	for rows.Next() {
		var (
			c      domain.CadenceCandidate
			status string
			sent   []string
		)
		a := &c.Assignment
		if err := rows.Scan(
			&a.ID, &a.LeadID, &a.ContractorID, &status, &a.Attempt, &a.CostCredits,
			&a.QuoteAmountCents, &a.DeclineReason, &a.ResponseDeadline, &a.RespondedAt,
			&a.WonAt, &a.CompletedAt, &a.DeclinedAt, &a.ExpiredAt, &a.CreatedAt, &a.UpdatedAt,
			&c.ContactEmail, &c.BusinessName, &sent,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		a.Status = domain.Status(status)
		c.SentSteps = make(map[string]bool, len(sent))
		for _, key := range sent {
			c.SentSteps[key] = true
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}
