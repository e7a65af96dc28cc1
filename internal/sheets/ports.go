package sheets

import (
	"context"

	"findash/internal/core"
)

// DashboardExporter publishes a dashboard snapshot to a spreadsheet.
type DashboardExporter interface {
	ExportDashboard(ctx context.Context, snap core.DashboardSnapshot) error
}
