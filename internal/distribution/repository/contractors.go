package repository

import (
	"context"
	"fmt"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"

	"github.com/google/uuid"
)

// The eligibility predicate shared by the candidate and unfunded queries:
// approved, serves the lead's city (case-insensitive) and state (exact),
// no non-terminal assignment for the lead, not excluded.
const eligibilityPredicate = `
	c.approval_status = 'approved'
	AND EXISTS (
		SELECT 1 FROM contractor_service_areas sa
		WHERE sa.contractor_id = c.id
		  AND lower(sa.city) = lower(trim($1))
		  AND sa.state = $2
	)
	AND NOT EXISTS (
		SELECT 1 FROM lead_assignments la
		WHERE la.lead_id = $3
		  AND la.contractor_id = c.id
		  AND la.status IN ('pending', 'accepted', 'won')
	)
	AND NOT (c.id = ANY($4::uuid[]))`

const findEligibleQuery = `
	SELECT c.id, c.business_name, c.contact_email, c.approval_status,
	       c.payment_preference, c.credit_balance, c.created_at
	FROM contractors c
	WHERE ` + eligibilityPredicate + `
	  AND c.credit_balance >= 1
	ORDER BY c.created_at ASC, c.id ASC
	LIMIT $5`

const countUnfundedQuery = `
	SELECT count(*)
	FROM contractors c
	WHERE ` + eligibilityPredicate + `
	  AND c.credit_balance < 1`

const getContractorsQuery = `
	SELECT c.id, c.business_name, c.contact_email, c.approval_status,
	       c.payment_preference, c.credit_balance, c.created_at
	FROM contractors c
	WHERE c.id = ANY($1::uuid[])`

// FindEligible returns funded candidates in a deterministic order plus the unfunded count.
func (r *Repository) FindEligible(ctx context.Context, q ports.EligibilityQuery) (ports.EligibilityResult, error) {
	exclude := q.Exclude
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := r.conn(ctx).Query(ctx, findEligibleQuery,
		q.Location.City, q.Location.State, q.LeadID, exclude, q.Limit)
	if err != nil {
		return ports.EligibilityResult{}, fmt.Errorf("find eligible contractors: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.Contractor, 0, q.Limit)
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return ports.EligibilityResult{}, fmt.Errorf("scan eligible contractor: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return ports.EligibilityResult{}, fmt.Errorf("iterate eligible contractors: %w", err)
	}

	var unfunded int64
	if err := r.conn(ctx).QueryRow(ctx, countUnfundedQuery,
		q.Location.City, q.Location.State, q.LeadID, exclude).Scan(&unfunded); err != nil {
		return ports.EligibilityResult{}, fmt.Errorf("count unfunded contractors: %w", err)
	}

	return ports.EligibilityResult{Candidates: candidates, UnfundedCount: int(unfunded)}, nil
}

// GetContractors loads contractors by ID. Unknown IDs are omitted.
func (r *Repository) GetContractors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Contractor, error) {
	result := make(map[uuid.UUID]domain.Contractor, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.conn(ctx).Query(ctx, getContractorsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("get contractors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contractor: %w", err)
		}
		result[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contractors: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContractor(row scanner) (domain.Contractor, error) {
	var (
		c          domain.Contractor
		approval   string
		preference string
	)
	if err := row.Scan(&c.ID, &c.BusinessName, &c.ContactEmail, &approval, &preference, &c.CreditBalance, &c.CreatedAt); err != nil {
		return domain.Contractor{}, err
	}
	c.ApprovalStatus = domain.ApprovalStatus(approval)
	c.PaymentPreference = domain.PaymentPreference(preference)
	return c, nil
}
