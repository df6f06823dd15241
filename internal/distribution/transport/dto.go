package transport

import (
	"time"

	"github.com/google/uuid"
)

type SubmitQuoteRequest struct {
	AmountCents int64 `json:"amountCents" validate:"required,gt=0,lte=100000000"`
}

type DeclineAssignmentRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ResolveWinnerRequest struct {
	AssignmentID uuid.UUID `json:"assignmentId" validate:"required"`
	Mode         string    `json:"mode,omitempty" validate:"omitempty,oneof=single notify_all"`
}

type CreditSettlementRequest struct {
	ContractorID uuid.UUID `json:"contractorId" validate:"required"`
	Credits      int       `json:"credits" validate:"required,gt=0,lte=10000"`
	AmountCents  *int64    `json:"amountCents,omitempty" validate:"omitempty,gte=0"`
	PackageRef   string    `json:"packageRef" validate:"required,max=120"`
}

type HistoryRequest struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type AssignmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	LeadID           uuid.UUID  `json:"leadId"`
	ContractorID     uuid.UUID  `json:"contractorId"`
	Status           string     `json:"status"`
	Attempt          int        `json:"attempt"`
	CostCredits      int        `json:"costCredits"`
	QuoteAmountCents *int64     `json:"quoteAmountCents,omitempty"`
	DeclineReason    *string    `json:"declineReason,omitempty"`
	ResponseDeadline time.Time  `json:"responseDeadline"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
	WonAt            *time.Time `json:"wonAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type DistributionResponse struct {
	LeadID              uuid.UUID            `json:"leadId"`
	AssignmentsCreated  []AssignmentResponse `json:"assignmentsCreated"`
	SkippedForCredit    int                  `json:"skippedForCredit"`
	Shortfall           int                  `json:"shortfall"`
	Closed              bool                 `json:"closed"`
	NotificationsFailed int                  `json:"notificationsFailed"`
}

type SweepResponse struct {
	ExpiredCount        int `json:"expiredCount"`
	ReassignedCount     int `json:"reassignedCount"`
	LeadsVisited        int `json:"leadsVisited"`
	NotificationsFailed int `json:"notificationsFailed"`
}

type ResolutionResponse struct {
	Outcome             string      `json:"outcome"`
	Mode                string      `json:"mode"`
	WinnerIDs           []uuid.UUID `json:"winnerIds"`
	LoserIDs            []uuid.UUID `json:"loserIds"`
	NotificationsFailed int         `json:"notificationsFailed"`
}

type CadenceResponse struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type StatusSummaryResponse struct {
	SubjectID uuid.UUID      `json:"subjectId"`
	Counts    map[string]int `json:"counts"`
	Active    int            `json:"active"`
}

type TransactionResponse struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	Delta        int        `json:"delta"`
	AmountCents  *int64     `json:"amountCents,omitempty"`
	Reference    string     `json:"reference"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
	BalanceAfter int        `json:"balanceAfter"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

type BalanceResponse struct {
	ContractorID uuid.UUID `json:"contractorId"`
	Balance      int       `json:"balance"`
	LedgerSum    int       `json:"ledgerSum"`
	Consistent   bool      `json:"consistent"`
}

type CreditSettlementResponse struct {
	Outcome      string `json:"outcome"`
	BalanceAfter int    `json:"balanceAfter,omitempty"`
}
