// Package domain holds the assignment state machine and the value types of the
// lead distribution bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an Assignment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusExpired   Status = "expired"
	StatusWon       Status = "won"
	StatusCompleted Status = "completed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusWon,
	StatusCompleted,
	StatusDeclined,
	StatusExpired,
}

// ActiveStatuses are the non-terminal statuses that count toward fan-out.
var ActiveStatuses = []Status{StatusPending, StatusAccepted, StatusWon}

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusDeclined, StatusExpired},
	StatusAccepted: {StatusWon, StatusDeclined},
	StatusWon:      {StatusCompleted},
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusDeclined || s == StatusExpired || s == StatusCompleted
}

// IsActive reports whether the status counts toward a lead's fan-out.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusWon
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Decline reasons recorded on declined assignments.
const (
	DeclineReasonLost       = "lost"
	DeclineReasonContractor = "contractor_declined"
)

// Assignment is one contractor's claim on one lead.
type Assignment struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	ContractorID     uuid.UUID
	Status           Status
	Attempt          int
	CostCredits      int
	QuoteAmountCents *int64
	DeclineReason    *string
	ResponseDeadline time.Time
	RespondedAt      *time.Time
	WonAt            *time.Time
	CompletedAt      *time.Time
	DeclinedAt       *time.Time
	ExpiredAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasQuote reports whether the contractor submitted a quote amount.
func (a Assignment) HasQuote() bool {
	return a.QuoteAmountCents != nil
}

// StatusCounts maps each status to the number of assignments in it.
type StatusCounts map[Status]int

// Active returns the number of non-terminal assignments.
func (c StatusCounts) Active() int {
	total := 0
	for _, s := range ActiveStatuses {
		total += c[s]
	}
	return total
}
