package service

import (
	"context"
	"errors"
	"strings"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
)

var errAlreadyApplied = errors.New("purchase already applied")

// CreditResult is the outcome of a purchase settlement.
type CreditResult struct {
	Outcome      domain.CreditOutcome
	Transaction  *domain.CreditTransaction
	BalanceAfter int
}

// HistoryPage is one page of a contractor's transaction log, newest first.
type HistoryPage struct {
	Items    []domain.CreditTransaction
	Total    int
	Page     int
	PageSize int
}

// Reserve charges cost credits for one assignment. The balance check, the
// decrement and the consumption entry happen in one transaction, joined with
// the caller's when there is one. A balance below cost is reported as
// InsufficientCredit, not as an error.
func (s *Service) Reserve(ctx context.Context, contractorID uuid.UUID, cost int, leadID, assignmentID uuid.UUID) (domain.Reservation, error) {
	if cost < 1 {
		return domain.Reservation{}, apperr.Validation("cost must be at least one credit")
	}

	var reservation domain.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		balance, ok, err := s.store.AdjustBalance(ctx, contractorID, -cost)
		if err != nil {
			return err
		}
		if !ok {
			reservation = domain.Reservation{Outcome: domain.InsufficientCredit}
			return nil
		}

		txn := domain.CreditTransaction{
			ID:           uuid.New(),
			ContractorID: contractorID,
			Kind:         domain.TransactionConsumption,
			Delta:        -cost,
			Reference:    consumptionReferencePrefix + leadID.String(),
			AssignmentID: &assignmentID,
			BalanceAfter: balance,
			CreatedAt:    s.now(),
		}
		if _, err := s.store.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		reservation = domain.Reservation{Outcome: domain.Reserved, Transaction: &txn, BalanceAfter: balance}
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return reservation, nil
}

// Credit applies a settled purchase. A repeated packageRef for the same
// contractor is reported as AlreadyApplied and changes nothing. Credit opens
// its own transaction and must not be called inside another one.
func (s *Service) Credit(ctx context.Context, contractorID uuid.UUID, credits int, amountCents *int64, packageRef string) (CreditResult, error) {
	packageRef = strings.TrimSpace(packageRef)
	if credits < 1 {
		return CreditResult{}, apperr.Validation("credits must be positive")
	}
	if packageRef == "" {
		return CreditResult{}, apperr.Validation("package reference is required")
	}

	var result CreditResult
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		balance, ok, err := s.store.AdjustBalance(ctx, contractorID, credits)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("contractor not found")
		}

		txn := domain.CreditTransaction{
			ID:           uuid.New(),
			ContractorID: contractorID,
			Kind:         domain.TransactionPurchase,
			Delta:        credits,
			AmountCents:  amountCents,
			Reference:    packageRef,
			BalanceAfter: balance,
			CreatedAt:    s.now(),
		}
		inserted, err := s.store.AppendTransaction(ctx, txn)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyApplied
		}
		result = CreditResult{Outcome: domain.Credited, Transaction: &txn, BalanceAfter: balance}
		return nil
	})
	if errors.Is(err, errAlreadyApplied) {
		return CreditResult{Outcome: domain.AlreadyApplied}, nil
	}
	if err != nil {
		return CreditResult{}, err
	}

	s.log.Info("credits_purchased",
		"contractor_id", contractorID.String(),
		"credits", credits,
		"package_ref", packageRef,
		"balance_after", result.BalanceAfter,
	)
	s.publish(ctx, events.CreditsPurchased{
		BaseEvent:    events.NewBaseEvent(),
		ContractorID: contractorID,
		Credits:      credits,
		PackageRef:   packageRef,
		BalanceAfter: result.BalanceAfter,
	})
	return result, nil
}

// Balance returns the cached balance next to the balance derived from the log.
func (s *Service) Balance(ctx context.Context, contractorID uuid.UUID) (domain.Balance, error) {
	return s.store.GetBalance(ctx, contractorID)
}

// History returns one page of the contractor's transactions.
func (s *Service) History(ctx context.Context, contractorID uuid.UUID, page, pageSize int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultHistoryPageSize
	}
	pageSize = min(pageSize, maxHistoryPageSize)

	items, total, err := s.store.ListTransactions(ctx, contractorID, pageSize, (page-1)*pageSize)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}
