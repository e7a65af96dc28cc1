package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cached record counts, recent syncs and job schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			counts, err := app.Store.Counts(ctx)
			if err != nil {
				return err
			}
			syncs, err := app.Store.RecentSyncs(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "RECORDS\ttransactions %d\tinvoices %d\tsubscriptions %d\n",
				counts.Transactions, counts.Invoices, counts.Subscriptions)
			fmt.Fprintln(w)

			fmt.Fprintln(w, "SOURCE\tSYNCED AT\tRECORDS\tSTATUS\tERROR")
			for _, s := range syncs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					s.Source, s.SyncedAt.UTC().Format(time.RFC3339), s.RecordsCount, s.Status, s.ErrorMessage)
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, "JOB\tSCHEDULE")
			for _, j := range app.Scheduler.Jobs() {
				schedule := j.Schedule
				if schedule == "" {
					schedule = "manual"
				}
				fmt.Fprintf(w, "%s\t%s\n", j.Name, schedule)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of sync log entries to show")

	return cmd
}
