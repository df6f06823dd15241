// Package memory implements the distribution storage ports in process memory.
// Transactions are serialized by a single mutex and roll back by restoring a snapshot.
package memory

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
)

var errActivePair = errors.New("duplicate key value violates unique constraint \"lead_assignments_active_pair_idx\"")

type cadenceKey struct {
	assignmentID uuid.UUID
	cadence      domain.CadenceKind
	step         string
}

type state struct {
	leads        map[uuid.UUID]domain.Lead
	contractors  map[uuid.UUID]domain.Contractor
	assignments  map[uuid.UUID]domain.Assignment
	transactions []domain.CreditTransaction
	cadence      map[cadenceKey]domain.CadenceRecord
	lastSwept    map[uuid.UUID]time.Time
}

func newState() *state {
	return &state{
		leads:       make(map[uuid.UUID]domain.Lead),
		contractors: make(map[uuid.UUID]domain.Contractor),
		assignments: make(map[uuid.UUID]domain.Assignment),
		cadence:     make(map[cadenceKey]domain.CadenceRecord),
		lastSwept:   make(map[uuid.UUID]time.Time),
	}
}

func (s *state) clone() *state {
	out := &state{
		leads:        make(map[uuid.UUID]domain.Lead, len(s.leads)),
		contractors:  make(map[uuid.UUID]domain.Contractor, len(s.contractors)),
		assignments:  make(map[uuid.UUID]domain.Assignment, len(s.assignments)),
		transactions: slices.Clone(s.transactions),
		cadence:      make(map[cadenceKey]domain.CadenceRecord, len(s.cadence)),
		lastSwept:    make(map[uuid.UUID]time.Time, len(s.lastSwept)),
	}
	for k, v := range s.leads {
		out.leads[k] = v
	}
	for k, v := range s.contractors {
		out.contractors[k] = v
	}
	for k, v := range s.assignments {
		out.assignments[k] = v
	}
	for k, v := range s.cadence {
		out.cadence[k] = v
	}
	for k, v := range s.lastSwept {
		out.lastSwept[k] = v
	}
	return out
}

// Store is an in-memory ports.Store.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// WithinTx holds the store lock for the duration of fn and restores the
// previous state if fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// do runs fn with the lock held unless ctx already owns it.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// AddLead stores a lead as intake would.
func (s *Store) AddLead(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	s.state.leads[lead.ID] = lead
}

// AddContractor stores a contractor as onboarding would. A starting balance is
// recorded as an adjustment so the log stays the source of truth.
func (s *Store) AddContractor(c domain.Contractor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.CreditBalance > 0 {
		s.state.transactions = append(s.state.transactions, domain.CreditTransaction{
			ID:           uuid.New(),
			ContractorID: c.ID,
			Kind:         domain.TransactionAdjustment,
			Delta:        c.CreditBalance,
			Reference:    "opening_balance",
			BalanceAfter: c.CreditBalance,
			CreatedAt:    c.CreatedAt,
		})
	}
	s.state.contractors[c.ID] = c
}

// Assignments returns a copy of every assignment, ordered by creation.
func (s *Store) Assignments() []domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedAssignments(s.state, func(domain.Assignment) bool { return true })
}

func (s *Store) GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	var lead domain.Lead
	err := s.do(ctx, func(st *state) error {
		l, ok := st.leads[leadID]
		if !ok {
			return apperr.NotFound("lead not found")
		}
		lead = l
		return nil
	})
	return lead, err
}

func (s *Store) FindEligible(ctx context.Context, q ports.EligibilityQuery) (ports.EligibilityResult, error) {
	var result ports.EligibilityResult
	err := s.do(ctx, func(st *state) error {
		matched := make([]domain.Contractor, 0)
		for _, c := range st.contractors {
			if c.ApprovalStatus != domain.ApprovalApproved || !c.Serves(q.Location) {
				continue
			}
			if slices.Contains(q.Exclude, c.ID) || hasActive(st, q.LeadID, c.ID) {
				continue
			}
			if c.CreditBalance < 1 {
				result.UnfundedCount++
				continue
			}
			matched = append(matched, c)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.Before(matched[j].CreatedAt)
			}
			return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
		})
		if q.Limit > 0 && len(matched) > q.Limit {
			matched = matched[:q.Limit]
		}
		result.Candidates = matched
		return nil
	})
	return result, err
}

func (s *Store) GetContractors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Contractor, error) {
	out := make(map[uuid.UUID]domain.Contractor, len(ids))
	err := s.do(ctx, func(st *state) error {
		for _, id := range ids {
			if c, ok := st.contractors[id]; ok {
				out[id] = c
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) AdjustBalance(ctx context.Context, contractorID uuid.UUID, delta int) (int, bool, error) {
	var (
		balance int
		ok      bool
	)
	err := s.do(ctx, func(st *state) error {
		c, found := st.contractors[contractorID]
		if !found || c.CreditBalance+delta < 0 {
			return nil
		}
		c.CreditBalance += delta
		st.contractors[contractorID] = c
		balance, ok = c.CreditBalance, true
		return nil
	})
	return balance, ok, err
}

func (s *Store) AppendTransaction(ctx context.Context, txn domain.CreditTransaction) (bool, error) {
	inserted := false
	err := s.do(ctx, func(st *state) error {
		if txn.Kind == domain.TransactionPurchase {
			for _, existing := range st.transactions {
				if existing.Kind == domain.TransactionPurchase &&
					existing.ContractorID == txn.ContractorID &&
					existing.Reference == txn.Reference {
					return nil
				}
			}
		}
		st.transactions = append(st.transactions, txn)
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Store) ListTransactions(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, int, error) {
	var (
		page  []domain.CreditTransaction
		total int
	)
	err := s.do(ctx, func(st *state) error {
		all := make([]domain.CreditTransaction, 0)
		for i := len(st.transactions) - 1; i >= 0; i-- {
			if st.transactions[i].ContractorID == contractorID {
				all = append(all, st.transactions[i])
			}
		}
		total = len(all)
		if offset >= len(all) {
			page = []domain.CreditTransaction{}
			return nil
		}
		end := min(offset+limit, len(all))
		page = all[offset:end]
		return nil
	})
	return page, total, err
}

func (s *Store) GetBalance(ctx context.Context, contractorID uuid.UUID) (domain.Balance, error) {
	var balance domain.Balance
	err := s.do(ctx, func(st *state) error {
		c, ok := st.contractors[contractorID]
		if !ok {
			return apperr.NotFound("contractor not found")
		}
		balance = domain.Balance{ContractorID: contractorID, Cached: c.CreditBalance}
		for _, t := range st.transactions {
			if t.ContractorID == contractorID {
				balance.Ledger += t.Delta
			}
		}
		return nil
	})
	return balance, err
}

// LockLead is a no-op: the store lock already serializes transactions.
func (s *Store) LockLead(context.Context, uuid.UUID) error {
	return nil
}

func (s *Store) Create(ctx context.Context, a domain.Assignment) error {
	return s.do(ctx, func(st *state) error {
		if hasActive(st, a.LeadID, a.ContractorID) {
			return apperr.InvariantViolation("assignments.create", errActivePair)
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = a.CreatedAt
		}
		st.assignments[a.ID] = a
		return nil
	})
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	var out domain.Assignment
	err := s.do(ctx, func(st *state) error {
		a, ok := st.assignments[id]
		if !ok {
			return apperr.NotFound("assignment not found")
		}
		out = a
		return nil
	})
	return out, err
}

func (s *Store) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := s.do(ctx, func(st *state) error {
		out = sortedAssignments(st, func(a domain.Assignment) bool { return a.LeadID == leadID })
		return nil
	})
	return out, err
}

func (s *Store) CountByLead(ctx context.Context, leadID uuid.UUID) (domain.StatusCounts, error) {
	return s.count(ctx, func(a domain.Assignment) bool { return a.LeadID == leadID })
}

func (s *Store) CountByContractor(ctx context.Context, contractorID uuid.UUID) (domain.StatusCounts, error) {
	return s.count(ctx, func(a domain.Assignment) bool { return a.ContractorID == contractorID })
}

func (s *Store) AssignedContractors(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := s.do(ctx, func(st *state) error {
		seen := make(map[uuid.UUID]bool)
		for _, a := range sortedAssignments(st, func(a domain.Assignment) bool { return a.LeadID == leadID }) {
			if !seen[a.ContractorID] {
				seen[a.ContractorID] = true
				out = append(out, a.ContractorID)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) NextAttempt(ctx context.Context, leadID uuid.UUID) (int, error) {
	next := 1
	err := s.do(ctx, func(st *state) error {
		for _, a := range st.assignments {
			if a.LeadID == leadID && a.Attempt >= next {
				next = a.Attempt + 1
			}
		}
		return nil
	})
	return next, err
}

func (s *Store) LeadClosed(ctx context.Context, leadID uuid.UUID) (bool, error) {
	closed := false
	err := s.do(ctx, func(st *state) error {
		closed = leadClosed(st, leadID)
		return nil
	})
	return closed, err
}

func (s *Store) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := s.do(ctx, func(st *state) error {
		overdue := sortedAssignments(st, func(a domain.Assignment) bool {
			return a.Status == domain.StatusPending && a.ResponseDeadline.Before(now)
		})
		sort.SliceStable(overdue, func(i, j int) bool {
			return overdue[i].ResponseDeadline.Before(overdue[j].ResponseDeadline)
		})
		if limit > 0 && len(overdue) > limit {
			overdue = overdue[:limit]
		}
		for _, a := range overdue {
			a.Status = domain.StatusExpired
			a.ExpiredAt = timePtr(now)
			a.UpdatedAt = now
			st.assignments[a.ID] = a
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (s *Store) UnderfilledLeads(ctx context.Context, target int, since, now time.Time, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := s.do(ctx, func(st *state) error {
		leads := make([]domain.Lead, 0)
		for _, l := range st.leads {
			if l.CreatedAt.Before(since) || leadClosed(st, l.ID) {
				continue
			}
			total, active := 0, 0
			for _, a := range st.assignments {
				if a.LeadID != l.ID {
					continue
				}
				total++
				if a.Status.IsActive() {
					active++
				}
			}
			if total > 0 && active < target {
				leads = append(leads, l)
			}
		}
		sort.Slice(leads, func(i, j int) bool {
			si, sj := st.lastSwept[leads[i].ID], st.lastSwept[leads[j].ID]
			if !si.Equal(sj) {
				return si.Before(sj)
			}
			return leads[i].CreatedAt.Before(leads[j].CreatedAt)
		})
		for i, l := range leads {
			if limit > 0 && i >= limit {
				break
			}
			st.lastSwept[l.ID] = now
			out = append(out, l.ID)
		}
		return nil
	})
	return out, err
}

func (s *Store) Accept(ctx context.Context, id, contractorID uuid.UUID, now time.Time) (domain.Assignment, bool, error) {
	return s.transition(ctx, id, func(a *domain.Assignment) bool {
		if a.ContractorID != contractorID || a.Status != domain.StatusPending || now.After(a.ResponseDeadline) {
			return false
		}
		a.Status = domain.StatusAccepted
		a.RespondedAt = timePtr(now)
		return true
	}, now)
}

func (s *Store) SubmitQuote(ctx context.Context, id, contractorID uuid.UUID, amountCents int64, now time.Time) (domain.Assignment, bool, error) {
	return s.transition(ctx, id, func(a *domain.Assignment) bool {
		if a.ContractorID != contractorID {
			return false
		}
		open := a.Status == domain.StatusAccepted ||
			(a.Status == domain.StatusPending && !now.After(a.ResponseDeadline))
		if !open {
			return false
		}
		a.Status = domain.StatusAccepted
		a.QuoteAmountCents = &amountCents
		if a.RespondedAt == nil {
			a.RespondedAt = timePtr(now)
		}
		return true
	}, now)
}

func (s *Store) Decline(ctx context.Context, id, contractorID uuid.UUID, reason string, now time.Time) (domain.Assignment, bool, error) {
	return s.transition(ctx, id, func(a *domain.Assignment) bool {
		if a.ContractorID != contractorID || (a.Status != domain.StatusPending && a.Status != domain.StatusAccepted) {
			return false
		}
		declineAt(a, reason, now)
		if a.RespondedAt == nil {
			a.RespondedAt = timePtr(now)
		}
		return true
	}, now)
}

func (s *Store) Complete(ctx context.Context, id, contractorID uuid.UUID, now time.Time) (domain.Assignment, bool, error) {
	return s.transition(ctx, id, func(a *domain.Assignment) bool {
		if a.ContractorID != contractorID || a.Status != domain.StatusWon {
			return false
		}
		a.Status = domain.StatusCompleted
		a.CompletedAt = timePtr(now)
		return true
	}, now)
}

func (s *Store) MarkWon(ctx context.Context, leadID, id uuid.UUID, now time.Time) (domain.Assignment, bool, error) {
	var (
		out domain.Assignment
		ok  bool
	)
	err := s.do(ctx, func(st *state) error {
		a, found := st.assignments[id]
		if !found || a.LeadID != leadID || a.Status != domain.StatusAccepted || leadClosed(st, leadID) {
			return nil
		}
		a.Status = domain.StatusWon
		a.WonAt = timePtr(now)
		a.UpdatedAt = now
		st.assignments[id] = a
		out, ok = a, true
		return nil
	})
	return out, ok, err
}

func (s *Store) DeclineOthers(ctx context.Context, leadID, winnerID uuid.UUID, reason string, now time.Time) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := s.do(ctx, func(st *state) error {
		for _, a := range sortedAssignments(st, func(a domain.Assignment) bool {
			return a.LeadID == leadID && a.ID != winnerID &&
				(a.Status == domain.StatusPending || a.Status == domain.StatusAccepted)
		}) {
			declineAt(&a, reason, now)
			st.assignments[a.ID] = a
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (s *Store) PromoteQuoted(ctx context.Context, leadID uuid.UUID, now time.Time) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := s.do(ctx, func(st *state) error {
		for _, a := range sortedAssignments(st, func(a domain.Assignment) bool {
			return a.LeadID == leadID && a.Status == domain.StatusAccepted && a.HasQuote()
		}) {
			a.Status = domain.StatusWon
			a.WonAt = timePtr(now)
			a.UpdatedAt = now
			st.assignments[a.ID] = a
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (s *Store) ReminderCandidates(ctx context.Context, q ports.CadenceQuery) ([]domain.CadenceCandidate, error) {
	return s.cadenceCandidates(ctx, domain.CadenceReminder, q, func(a domain.Assignment) (time.Time, bool) {
		open := a.Status == domain.StatusPending && !q.Now.After(a.ResponseDeadline)
		due := open || (a.Status == domain.StatusAccepted && !a.HasQuote())
		return a.CreatedAt, due
	})
}

func (s *Store) FollowupCandidates(ctx context.Context, q ports.CadenceQuery) ([]domain.CadenceCandidate, error) {
	return s.cadenceCandidates(ctx, domain.CadenceFollowup, q, func(a domain.Assignment) (time.Time, bool) {
		if a.Status != domain.StatusWon || a.CompletedAt != nil || a.WonAt == nil {
			return time.Time{}, false
		}
		return *a.WonAt, true
	})
}

func (s *Store) ClaimStep(ctx context.Context, assignmentID uuid.UUID, cadence domain.CadenceKind, stepKey string, now time.Time) (bool, error) {
	claimed := false
	err := s.do(ctx, func(st *state) error {
		key := cadenceKey{assignmentID: assignmentID, cadence: cadence, step: stepKey}
		if _, exists := st.cadence[key]; exists {
			return nil
		}
		st.cadence[key] = domain.CadenceRecord{
			ID:           uuid.New(),
			AssignmentID: assignmentID,
			Cadence:      cadence,
			StepKey:      stepKey,
			SentAt:       now,
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// CadenceRecords returns the sent-records of one cadence for an assignment.
func (s *Store) CadenceRecords(assignmentID uuid.UUID, cadence domain.CadenceKind) []domain.CadenceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CadenceRecord, 0)
	for key, rec := range s.state.cadence {
		if key.assignmentID == assignmentID && key.cadence == cadence {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].StepKey, out[j].StepKey) < 0 })
	return out
}

func (s *Store) cadenceCandidates(
	ctx context.Context,
	cadence domain.CadenceKind,
	q ports.CadenceQuery,
	anchorOf func(domain.Assignment) (time.Time, bool),
) ([]domain.CadenceCandidate, error) {
	var out []domain.CadenceCandidate
	err := s.do(ctx, func(st *state) error {
		type entry struct {
			anchor    time.Time
			candidate domain.CadenceCandidate
		}
		entries := make([]entry, 0)
		for _, a := range st.assignments {
			anchor, ok := anchorOf(a)
			if !ok {
				continue
			}
			latest, crossed := q.LatestCrossed(anchor)
			if !crossed {
				continue
			}
			sent := make(map[string]bool)
			for key := range st.cadence {
				if key.assignmentID == a.ID && key.cadence == cadence {
					sent[key.step] = true
				}
			}
			if sent[latest] {
				continue
			}
			c := st.contractors[a.ContractorID]
			entries = append(entries, entry{anchor: anchor, candidate: domain.CadenceCandidate{
				Assignment:   a,
				ContactEmail: c.ContactEmail,
				BusinessName: c.BusinessName,
				SentSteps:    sent,
			}})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].anchor.Before(entries[j].anchor) })
		for i, e := range entries {
			if q.Limit > 0 && i >= q.Limit {
				break
			}
			out = append(out, e.candidate)
		}
		return nil
	})
	return out, err
}

func (s *Store) transition(ctx context.Context, id uuid.UUID, apply func(a *domain.Assignment) bool, now time.Time) (domain.Assignment, bool, error) {
	var (
		out domain.Assignment
		ok  bool
	)
	err := s.do(ctx, func(st *state) error {
		a, found := st.assignments[id]
		from := a.Status
		if !found || !apply(&a) {
			return nil
		}
		if a.Status != from && !domain.CanTransition(from, a.Status) {
			return apperr.InvariantViolation("assignments.transition", errors.New(string(from)+" -> "+string(a.Status)))
		}
		a.UpdatedAt = now
		st.assignments[id] = a
		out, ok = a, true
		return nil
	})
	return out, ok, err
}

func (s *Store) count(ctx context.Context, match func(domain.Assignment) bool) (domain.StatusCounts, error) {
	counts := make(domain.StatusCounts, len(domain.AllStatuses))
	err := s.do(ctx, func(st *state) error {
		for _, a := range st.assignments {
			if match(a) {
				counts[a.Status]++
			}
		}
		return nil
	})
	return counts, err
}

func hasActive(st *state, leadID, contractorID uuid.UUID) bool {
	for _, a := range st.assignments {
		if a.LeadID == leadID && a.ContractorID == contractorID && a.Status.IsActive() {
			return true
		}
	}
	return false
}

func leadClosed(st *state, leadID uuid.UUID) bool {
	for _, a := range st.assignments {
		if a.LeadID == leadID && (a.Status == domain.StatusWon || a.Status == domain.StatusCompleted) {
			return true
		}
	}
	return false
}

func sortedAssignments(st *state, match func(domain.Assignment) bool) []domain.Assignment {
	out := make([]domain.Assignment, 0)
	for _, a := range st.assignments {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

func declineAt(a *domain.Assignment, reason string, now time.Time) {
	a.Status = domain.StatusDeclined
	a.DeclineReason = &reason
	a.DeclinedAt = timePtr(now)
	a.UpdatedAt = now
}

func timePtr(t time.Time) *time.Time {
	return &t
}

var _ ports.Store = (*Store)(nil)
