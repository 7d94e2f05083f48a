package main

import (
	"fmt"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/spf13/cobra"
)

func newOverdueCmd(root *rootOptions) *cobra.Command {
	var (
		asOf   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Mark SENT invoices past their due date as OVERDUE",
		Long: `Runs the overdue sweep the server schedules daily. Every SENT invoice whose
due date lies before the --as-of date moves to OVERDUE. Invoices paid or
cancelled while the sweep runs are skipped.`,
		Example: `  invoicectl overdue
  invoicectl overdue --as-of 2024-04-01 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := parseDateFlag("as-of", asOf)
			if err != nil {
				return err
			}

			a, err := openApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			day := invoicing.DateOf(date).Format(dateLayout)

			if dryRun {
				candidates, err := a.invoiceRepo.FindOverdueCandidates(ctx, invoicing.DateOf(date))
				if err != nil {
					return err
				}
				for _, inv := range candidates {
					fmt.Fprintf(out, "%s\tdue %s\tbalance %s\n",
						inv.InvoiceNumber, inv.DueDate.Format(dateLayout), inv.BalanceDue)
				}
				fmt.Fprintf(out, "%d invoice(s) would become overdue as of %s\n", len(candidates), day)
				return nil
			}

			marked, err := a.overdue.MarkOverdue(ctx, date)
			fmt.Fprintf(out, "%d invoice(s) marked overdue as of %s\n", marked, day)
			return err
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default today, UTC)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the invoices that would change without changing them")
	return cmd
}
