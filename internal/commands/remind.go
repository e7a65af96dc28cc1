package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRemindCommand(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "remind [invoice-id]",
		Short: "Email a payment reminder for one invoice, or every overdue one with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass an invoice id or --all, not both")
			}
			if !all && len(args) != 1 {
				return errors.New("an invoice id is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Reminders == nil {
				return errors.New("reminders need STRIPE_API_KEY and SMTP credentials")
			}
			out := cmd.OutOrStdout()

			if !all {
				inv, err := app.Reminders.SendReminder(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "reminder for %s sent to %s\n", inv.ID, inv.CustomerEmail)
				return nil
			}

			result, err := app.Reminders.RemindAllOverdue(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range result.Results {
				line := fmt.Sprintf("%-8s %s %s", r.Status, r.InvoiceID, r.CustomerName)
				if r.Error != "" {
					line += ": " + r.Error
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "sent %d, failed %d, skipped %d\n", result.Sent, result.Failed, result.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remind every overdue invoice")

	return cmd
}
