package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var distributeCmd = &cobra.Command{
	Use:   "distribute <lead-id>",
	Short: "Run a distribution round for one lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := parseID("lead", args[0])
		if err != nil {
			return err
		}
		result, err := current.svc.DistributeLead(cmd.Context(), leadID)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, distributionView(result))
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue assignments and refill their leads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := current.svc.RunExpirySweep(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, result)
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send due response reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := current.svc.RunReminderCadence(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, result)
	},
}

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Send due completion follow-ups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := current.svc.RunFollowupCadence(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, result)
	},
}

var creditCmd = &cobra.Command{
	Use:   "credit <contractor-id> <credits>",
	Short: "Record a settled credit purchase",
	Long:  "Records a purchase once per package reference. Re-running with the same --ref reports already_applied.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contractorID, err := parseID("contractor", args[0])
		if err != nil {
			return err
		}
		credits, err := parseCredits(args[1])
		if err != nil {
			return err
		}

		ref, _ := cmd.Flags().GetString("ref")
		var amount *int64
		if cmd.Flags().Changed("amount-cents") {
			cents, _ := cmd.Flags().GetInt64("amount-cents")
			amount = &cents
		}

		result, err := current.svc.Credit(cmd.Context(), contractorID, credits, amount, ref)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, creditView{Outcome: result.Outcome.String(), BalanceAfter: result.BalanceAfter})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <contractor-id>",
	Short: "Show a contractor's balance and recent credit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contractorID, err := parseID("contractor", args[0])
		if err != nil {
			return err
		}
		balance, err := current.svc.Balance(cmd.Context(), contractorID)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		history, err := current.svc.History(cmd.Context(), contractorID, 1, limit)
		if err != nil {
			return err
		}

		if !balance.Consistent() {
			fmt.Fprintf(os.Stderr, "warning: cached balance %d differs from ledger sum %d\n", balance.Cached, balance.Ledger)
		}
		formatHistory(os.Stdout, balance, history)
		return nil
	},
}

func init() {
	creditCmd.Flags().String("ref", "", "payment package reference (idempotency key)")
	creditCmd.Flags().Int64("amount-cents", 0, "amount paid in cents")
	_ = creditCmd.MarkFlagRequired("ref")

	balanceCmd.Flags().Int("limit", 20, "number of transactions to show")

	rootCmd.AddCommand(distributeCmd, sweepCmd, remindCmd, followupCmd, creditCmd, balanceCmd)
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

func parseCredits(raw string) (int, error) {
	credits, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("credits must be a whole number: %q", raw)
	}
	return credits, nil
}
