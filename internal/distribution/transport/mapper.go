package transport

import (
	"insulationpal_backend/internal/distribution/domain"

	"github.com/google/uuid"
)

func ToAssignmentResponse(a domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:               a.ID,
		LeadID:           a.LeadID,
		ContractorID:     a.ContractorID,
		Status:           string(a.Status),
		Attempt:          a.Attempt,
		CostCredits:      a.CostCredits,
		QuoteAmountCents: a.QuoteAmountCents,
		DeclineReason:    a.DeclineReason,
		ResponseDeadline: a.ResponseDeadline,
		RespondedAt:      a.RespondedAt,
		WonAt:            a.WonAt,
		CompletedAt:      a.CompletedAt,
		CreatedAt:        a.CreatedAt,
	}
}

func ToAssignmentResponses(list []domain.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, ToAssignmentResponse(a))
	}
	return out
}

func ToTransactionResponse(t domain.CreditTransaction) TransactionResponse {
	return TransactionResponse{
		ID:           t.ID,
		Kind:         string(t.Kind),
		Delta:        t.Delta,
		AmountCents:  t.AmountCents,
		Reference:    t.Reference,
		AssignmentID: t.AssignmentID,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt,
	}
}

// ToStatusSummary includes every status so clients see explicit zeros.
func ToStatusSummary(subjectID uuid.UUID, counts domain.StatusCounts) StatusSummaryResponse {
	out := make(map[string]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		out[string(s)] = counts[s]
	}
	return StatusSummaryResponse{SubjectID: subjectID, Counts: out, Active: counts.Active()}
}

func IDs(list []domain.Assignment) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
