package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"findash/internal/services"
)

// reportKinds maps report names to the service call posting them.
var reportKinds = map[string]func(*services.ReportService, context.Context) error{
	"weekly":  (*services.ReportService).PostWeeklySummary,
	"mtd":     (*services.ReportService).PostMonthToDate,
	"overdue": (*services.ReportService).PostOverdueReport,
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "report <weekly|mtd|overdue>",
		Short:     "Post a financial report to chat now",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"weekly", "mtd", "overdue"},
		RunE: func(cmd *cobra.Command, args []string) error {
			post := reportKinds[args[0]]

			app, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := post(app.Reports, cmd.Context()); err != nil {
				return fmt.Errorf("%s report: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s report posted\n", args[0])
			return nil
		},
	}
}
