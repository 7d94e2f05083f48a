package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNumberCmd(root *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "number",
		Short: "Preview the next generated invoice number",
		Long: `Prints the number the server would give the next invoice created without an
explicit number. Nothing is reserved; a create may still take it first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}

			a, err := openApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			number, err := a.numbers.Next(cmd.Context(), day)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Issue date YYYY-MM-DD (default today, UTC)")
	return cmd
}
