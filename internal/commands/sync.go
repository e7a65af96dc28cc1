package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull bank and invoicing data into the local cache once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			counts, err := app.Sync.SyncAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "transactions: %d\ninvoices: %d\nsubscriptions: %d\n",
				counts.Transactions, counts.Invoices, counts.Subscriptions)
			return err
		},
	}
}

func newCheckLateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-late",
		Short: "Alert on invoices that became late since the last check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Alerts.CheckLatePayments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "late payment alerts sent: %d\n", n)
			return nil
		},
	}
}
