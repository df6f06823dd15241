package events

import "github.com/google/uuid"

const (
	NameAssignmentsDistributed = "distribution.assignments.distributed"
	NameAssignmentExpired      = "distribution.assignment.expired"
	NameAssignmentDeclined     = "distribution.assignment.declined"
	NameWinnerResolved         = "distribution.winner.resolved"
	NameCreditsPurchased       = "distribution.credits.purchased"
)

// AssignmentsDistributed is published after a distribution round commits.
type AssignmentsDistributed struct {
	BaseEvent
	LeadID           uuid.UUID   `json:"leadId"`
	AssignmentIDs    []uuid.UUID `json:"assignmentIds"`
	SkippedForCredit int         `json:"skippedForCredit"`
	Shortfall        int         `json:"shortfall"`
}

func (e AssignmentsDistributed) EventName() string { return NameAssignmentsDistributed }

// AssignmentExpired is published for each assignment the sweep expired.
type AssignmentExpired struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	LeadID       uuid.UUID `json:"leadId"`
	ContractorID uuid.UUID `json:"contractorId"`
}

func (e AssignmentExpired) EventName() string { return NameAssignmentExpired }

// AssignmentDeclined is published when a contractor declines. It triggers a backfill.
type AssignmentDeclined struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	LeadID       uuid.UUID `json:"leadId"`
	ContractorID uuid.UUID `json:"contractorId"`
}

func (e AssignmentDeclined) EventName() string { return NameAssignmentDeclined }

// WinnerResolved is published when a customer picked a winner.
type WinnerResolved struct {
	BaseEvent
	LeadID    uuid.UUID   `json:"leadId"`
	Mode      string      `json:"mode"`
	WinnerIDs []uuid.UUID `json:"winnerIds"`
	LoserIDs  []uuid.UUID `json:"loserIds"`
}

func (e WinnerResolved) EventName() string { return NameWinnerResolved }

// CreditsPurchased is published after a purchase settled. Open leads may now be back-filled.
type CreditsPurchased struct {
	BaseEvent
	ContractorID uuid.UUID `json:"contractorId"`
	Credits      int       `json:"credits"`
	PackageRef   string    `json:"packageRef"`
	BalanceAfter int       `json:"balanceAfter"`
}

func (e CreditsPurchased) EventName() string { return NameCreditsPurchased }
