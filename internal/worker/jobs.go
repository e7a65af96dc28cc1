package worker

import (
	"context"
	"fmt"
	"time"

	"findash/internal/core"
)

type (
	Syncer interface {
		SyncAll(ctx context.Context) (core.SyncCounts, error)
	}

	LateChecker interface {
		CheckLatePayments(ctx context.Context) (int, error)
	}

	Reports interface {
		PostWeeklySummary(ctx context.Context) error
		PostMonthToDate(ctx context.Context) error
		PostOverdueReport(ctx context.Context) error
		ExportDashboard(ctx context.Context) error
	}
)

// Schedules holds the cron specs of the standard jobs. An empty spec
// registers the job as trigger-only.
type Schedules struct {
	SyncInterval  time.Duration
	LateCheck     string
	WeeklySummary string
	MonthToDate   string
	OverdueReport string

	// Export is only registered when ExportEnabled is set.
	Export        string
	ExportEnabled bool
}

// jobTimeout caps any single standard job run.
const jobTimeout = 15 * time.Minute

// RegisterStandardJobs adds the sync, late-payment and report jobs.
func RegisterStandardJobs(s *Scheduler, sch Schedules, syncer Syncer, late LateChecker, reports Reports) error {
	syncSpec := ""
	if sch.SyncInterval > 0 {
		syncSpec = fmt.Sprintf("@every %s", sch.SyncInterval)
	}

	jobs := []*Job{
		NewJob(JobSyncAllData, syncSpec, func(ctx context.Context) error {
			_, err := syncer.SyncAll(ctx)
			return err
		}),
		NewJob(JobCheckLatePayments, sch.LateCheck, func(ctx context.Context) error {
			_, err := late.CheckLatePayments(ctx)
			return err
		}),
		NewJob(JobWeeklySummary, sch.WeeklySummary, reports.PostWeeklySummary),
		NewJob(JobMonthToDateReport, sch.MonthToDate, reports.PostMonthToDate),
		NewJob(JobOverdueReport, sch.OverdueReport, reports.PostOverdueReport),
	}
	jobs[0].RunOnStart = true
	if sch.ExportEnabled {
		jobs = append(jobs, NewJob(JobExportDashboard, sch.Export, reports.ExportDashboard))
	}

	for _, j := range jobs {
		j.Timeout = jobTimeout
		if err := s.Add(j); err != nil {
			return err
		}
	}
	return nil
}
