package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/service"

	"github.com/google/uuid"
)

type distributionRow struct {
	AssignmentID uuid.UUID `json:"assignmentId"`
	ContractorID uuid.UUID `json:"contractorId"`
	Attempt      int       `json:"attempt"`
}

type distributionOutput struct {
	LeadID              uuid.UUID         `json:"leadId"`
	Created             []distributionRow `json:"assignmentsCreated"`
	SkippedForCredit    int               `json:"skippedForCredit"`
	Shortfall           int               `json:"shortfall"`
	Closed              bool              `json:"closed"`
	NotificationsFailed int               `json:"notificationsFailed"`
}

type creditView struct {
	Outcome      string `json:"outcome"`
	BalanceAfter int    `json:"balanceAfter,omitempty"`
}

func distributionView(r service.DistributionResult) distributionOutput {
	out := distributionOutput{
		LeadID:              r.LeadID,
		Created:             make([]distributionRow, 0, len(r.Created)),
		SkippedForCredit:    r.SkippedForCredit,
		Shortfall:           r.Shortfall,
		Closed:              r.Closed,
		NotificationsFailed: r.NotificationsFailed,
	}
	for _, a := range r.Created {
		out.Created = append(out.Created, distributionRow{AssignmentID: a.ID, ContractorID: a.ContractorID, Attempt: a.Attempt})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatHistory(w io.Writer, balance domain.Balance, page service.HistoryPage) {
	fmt.Fprintf(w, "Balance: %d credits (ledger %d)\n\n", balance.Cached, balance.Ledger)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tDELTA\tBALANCE\tREFERENCE")
	for _, txn := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%+d\t%d\t%s\n",
			txn.CreatedAt.UTC().Format("2006-01-02 15:04"),
			txn.Kind,
			txn.Delta,
			txn.BalanceAfter,
			txn.Reference,
		)
	}
	_ = tw.Flush()

	if page.Total > len(page.Items) {
		fmt.Fprintf(w, "\n%d of %d transactions shown\n", len(page.Items), page.Total)
	}
}
