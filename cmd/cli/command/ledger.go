package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"libraryhub/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the borrow ledger",
}

var ledgerReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare availability counters with the ledger",
	Long: `For each book, compare available_copies with total_copies minus active borrows.
Nothing is written; the command exits non-zero when any book disagrees.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return reconcile(cmd.Context(), a.ledger, cmd.OutOrStdout(), all)
	},
}

var errLedgerDrift = errors.New("availability counters disagree with the ledger")

func reconcile(ctx context.Context, ledger service.LedgerService, out io.Writer, all bool) error {
	reports, err := ledger.Reconcile(ctx)
	if err != nil {
		return err
	}

	bad := color.New(color.FgRed)
	drift := 0
	fmt.Fprintf(out, "%-6s %-40s %6s %10s %7s %9s\n", "ID", "TITLE", "TOTAL", "AVAILABLE", "ACTIVE", "EXPECTED")
	for _, r := range reports {
		if r.Consistent() && !all {
			continue
		}
		line := fmt.Sprintf("%-6d %-40.40s %6d %10d %7d %9d\n",
			r.BookID, r.Title, r.TotalCopies, r.AvailableCopies, r.ActiveBorrows, r.Expected)
		if r.Consistent() {
			fmt.Fprint(out, line)
			continue
		}
		drift++
		bad.Fprint(out, line)
	}

	if drift > 0 {
		bad.Fprintf(out, "✗ %d of %d books out of balance\n", drift, len(reports))
		return errLedgerDrift
	}
	color.New(color.FgGreen).Fprintf(out, "✓ %d books consistent\n", len(reports))
	return nil
}

func init() {
	ledgerReconcileCmd.Flags().Bool("all", false, "list consistent books too")
	ledgerCmd.AddCommand(ledgerReconcileCmd)
}
