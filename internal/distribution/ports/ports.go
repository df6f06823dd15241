// Package ports defines the storage and delivery interfaces the distribution
// services depend on. Postgres and in-memory adapters implement them.
package ports

import (
	"context"
	"time"

	"insulationpal_backend/internal/distribution/domain"

	"github.com/google/uuid"
)

// Transactor runs fn in one atomic unit. Nested calls join the outer unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LeadReader loads leads written by the intake flow.
type LeadReader interface {
	GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error)
}

// EligibilityQuery selects contractors for one lead.
type EligibilityQuery struct {
	LeadID   uuid.UUID
	Location domain.Location
	Exclude  []uuid.UUID
	Limit    int
}

// EligibilityResult is the ordered candidate list plus the number of contractors
// that matched everything except the credit requirement.
type EligibilityResult struct {
	Candidates    []domain.Contractor
	UnfundedCount int
}

// ContractorReader resolves eligibility and contractor details. It never writes.
type ContractorReader interface {
	FindEligible(ctx context.Context, q EligibilityQuery) (EligibilityResult, error)
	GetContractors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Contractor, error)
}

// CreditStore holds the cached balance and the append-only transaction log.
type CreditStore interface {
	// AdjustBalance applies delta only if the result stays non-negative.
	// ok is false when the guard fails or the contractor does not exist.
	AdjustBalance(ctx context.Context, contractorID uuid.UUID, delta int) (balanceAfter int, ok bool, err error)
	// AppendTransaction inserts an entry. inserted is false when a purchase with
	// the same reference was already recorded for the contractor.
	AppendTransaction(ctx context.Context, txn domain.CreditTransaction) (inserted bool, err error)
	ListTransactions(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, int, error)
	GetBalance(ctx context.Context, contractorID uuid.UUID) (domain.Balance, error)
}

// AssignmentStore persists assignments. Every mutating method is a guarded
// transition: ok=false means the recorded state did not allow it.
type AssignmentStore interface {
	// LockLead serializes distribution and resolution for one lead until the transaction ends.
	LockLead(ctx context.Context, leadID uuid.UUID) error
	Create(ctx context.Context, a domain.Assignment) error
	Get(ctx context.Context, id uuid.UUID) (domain.Assignment, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error)
	CountByLead(ctx context.Context, leadID uuid.UUID) (domain.StatusCounts, error)
	CountByContractor(ctx context.Context, contractorID uuid.UUID) (domain.StatusCounts, error)
	// AssignedContractors returns every contractor ever assigned to the lead, terminal or not.
	AssignedContractors(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error)
	NextAttempt(ctx context.Context, leadID uuid.UUID) (int, error)
	// LeadClosed reports whether the lead has a won or completed assignment.
	LeadClosed(ctx context.Context, leadID uuid.UUID) (bool, error)

	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error)
	// UnderfilledLeads returns open leads created after since with fewer than target active
	// assignments, least recently swept first, and stamps them as swept at now.
	UnderfilledLeads(ctx context.Context, target int, since, now time.Time, limit int) ([]uuid.UUID, error)

	Accept(ctx context.Context, id, contractorID uuid.UUID, now time.Time) (domain.Assignment, bool, error)
	SubmitQuote(ctx context.Context, id, contractorID uuid.UUID, amountCents int64, now time.Time) (domain.Assignment, bool, error)
	Decline(ctx context.Context, id, contractorID uuid.UUID, reason string, now time.Time) (domain.Assignment, bool, error)
	Complete(ctx context.Context, id, contractorID uuid.UUID, now time.Time) (domain.Assignment, bool, error)

	MarkWon(ctx context.Context, leadID, id uuid.UUID, now time.Time) (domain.Assignment, bool, error)
	DeclineOthers(ctx context.Context, leadID, winnerID uuid.UUID, reason string, now time.Time) ([]domain.Assignment, error)
	PromoteQuoted(ctx context.Context, leadID uuid.UUID, now time.Time) ([]domain.Assignment, error)
}

// CadenceThreshold is one cadence step as the stores see it.
type CadenceThreshold struct {
	Key   string
	After time.Duration
}

// CadenceQuery selects assignments whose latest crossed step at Now has not been recorded yet.
// Assignments already notified for that step are filtered out before Limit applies.
type CadenceQuery struct {
	Now   time.Time
	Steps []CadenceThreshold // sorted ascending by After
	Limit int
}

// LatestCrossed returns the key of the last step whose threshold elapsed has reached.
func (q CadenceQuery) LatestCrossed(anchor time.Time) (string, bool) {
	key, crossed := "", false
	for _, step := range q.Steps {
		if q.Now.Sub(anchor) < step.After {
			break
		}
		key, crossed = step.Key, true
	}
	return key, crossed
}

// CadenceStore reads cadence candidates and owns the sent-ledgers.
type CadenceStore interface {
	// ReminderCandidates lists pending assignments still inside their response window and accepted
	// ones without a quote, anchored at creation.
	ReminderCandidates(ctx context.Context, q CadenceQuery) ([]domain.CadenceCandidate, error)
	// FollowupCandidates lists won, uncompleted assignments, anchored at the win.
	FollowupCandidates(ctx context.Context, q CadenceQuery) ([]domain.CadenceCandidate, error)
	// ClaimStep records the step; claimed is false when it already existed.
	ClaimStep(ctx context.Context, assignmentID uuid.UUID, cadence domain.CadenceKind, stepKey string, now time.Time) (claimed bool, err error)
}

// Dispatcher delivers notifications. Delivery is fire-and-forget with no retry.
type Dispatcher interface {
	Send(ctx context.Context, recipient, templateID string, data map[string]any) error
}

// Store bundles every storage port one adapter provides.
type Store interface {
	Transactor
	LeadReader
	ContractorReader
	CreditStore
	AssignmentStore
	CadenceStore
}
