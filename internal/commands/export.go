package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"findash/internal/sheets/xlsx"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dashboard snapshot to the configured spreadsheet or a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if xlsxPath == "" {
				if err := app.Reports.ExportDashboard(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "dashboard exported")
				return nil
			}

			snap, err := app.Engine.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if err := xlsx.NewExporter(xlsxPath).ExportDashboard(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard written to %s\n", xlsxPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write a workbook to this path instead of the configured destination")

	return cmd
}
