package main

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newBalanceCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <invoice-id|invoice-number>",
		Short: "Show the outstanding balance of an invoice as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id, err := uuid.Parse(args[0])
			if err != nil {
				inv, err := a.invoices.GetByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				id = inv.ID
			}

			balance, err := a.invoices.GetBalance(ctx, id)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(balance)
		},
	}
}
