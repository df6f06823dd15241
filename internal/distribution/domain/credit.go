package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionPurchase    TransactionKind = "purchase"
	TransactionConsumption TransactionKind = "consumption"
	TransactionAdjustment  TransactionKind = "adjustment"
)

// CreditTransaction is one append-only entry of the credit log.
type CreditTransaction struct {
	ID           uuid.UUID
	ContractorID uuid.UUID
	Kind         TransactionKind
	Delta        int
	AmountCents  *int64
	Reference    string
	AssignmentID *uuid.UUID
	BalanceAfter int
	CreatedAt    time.Time
}

// ReserveOutcome is the expected result of a credit reservation.
type ReserveOutcome int

const (
	Reserved ReserveOutcome = iota + 1
	InsufficientCredit
)

func (o ReserveOutcome) String() string {
	switch o {
	case Reserved:
		return "reserved"
	case InsufficientCredit:
		return "insufficient_credit"
	default:
		return "unknown"
	}
}

// Reservation is what Reserve returns.
type Reservation struct {
	Outcome      ReserveOutcome
	Transaction  *CreditTransaction
	BalanceAfter int
}

// CreditOutcome is the result of a purchase settlement.
type CreditOutcome int

const (
	Credited CreditOutcome = iota + 1
	AlreadyApplied
)

func (o CreditOutcome) String() string {
	switch o {
	case Credited:
		return "credited"
	case AlreadyApplied:
		return "already_applied"
	default:
		return "unknown"
	}
}

// Balance compares the cached balance against the sum of the log.
type Balance struct {
	ContractorID uuid.UUID
	Cached       int
	Ledger       int
}

// Consistent reports whether the cached balance matches the log.
func (b Balance) Consistent() bool {
	return b.Cached == b.Ledger
}
