package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"findash/internal/log"
)

// ErrJobBusy is returned when a run is requested while the same job is
// still running.
var ErrJobBusy = errors.New("job already running")

// Job names.
const (
	JobSyncAllData       = "sync_all_data"
	JobCheckLatePayments = "check_late_payments"
	JobWeeklySummary     = "post_weekly_summary"
	JobMonthToDateReport = "post_month_to_date_report"
	JobOverdueReport     = "post_overdue_report"
	JobExportDashboard   = "export_dashboard"
)

// Job is a named unit of scheduled work. At most one run of a job is in
// flight at a time; a run requested while busy is skipped.
type Job struct {
	Name string

	// Schedule is a cron spec ("0 9 * * *", "@every 30m"). Empty means the
	// job only runs when triggered.
	Schedule string

	// RunOnStart runs the job once when the scheduler starts.
	RunOnStart bool

	// Timeout bounds a single run. Zero means no limit beyond the parent
	// context.
	Timeout time.Duration

	fn      func(ctx context.Context) error
	sem     *semaphore.Weighted
	running atomic.Bool
	lastErr atomic.Value
	lastRun atomic.Int64
}

func NewJob(name, schedule string, fn func(ctx context.Context) error) *Job {
	return &Job{
		Name:     name,
		Schedule: schedule,
		fn:       fn,
		sem:      semaphore.NewWeighted(1),
	}
}

// Running reports whether a run is in flight.
func (j *Job) Running() bool {
	return j.running.Load()
}

// LastRun is when the most recent run finished; zero if it never ran.
func (j *Job) LastRun() time.Time {
	ns := j.lastRun.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// LastError is the error of the most recent run, nil on success.
func (j *Job) LastError() error {
	if v, ok := j.lastErr.Load().(errBox); ok {
		return v.err
	}
	return nil
}

type errBox struct{ err error }

// Run executes the job unless it is already running, in which case it
// returns ErrJobBusy. Panics in the job body are recovered and returned as
// errors. Every outcome is logged.
func (j *Job) Run(ctx context.Context, logger *log.Logger) (err error) {
	if !j.sem.TryAcquire(1) {
		logger.WarnContext(ctx, "Job skipped, previous run still in progress", log.FieldJob, j.Name)
		return ErrJobBusy
	}
	j.running.Store(true)
	defer func() {
		j.running.Store(false)
		j.sem.Release(1)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	logger.InfoContext(ctx, "Job started", log.FieldJob, j.Name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
			logger.ErrorContext(ctx, "Job panicked", log.FieldJob, j.Name, "panic", r, "stack", string(debug.Stack()))
		}
		duration := time.Since(start).Milliseconds()
		fields := log.NewFields().WithJob(j.Name, duration).WithError(err)
		level := slog.LevelInfo
		msg := "Job finished"
		if err != nil {
			level, msg = slog.LevelError, "Job failed"
		}
		logger.Log(ctx, level, msg, fields.ToSlice()...)

		j.lastErr.Store(errBox{err})
		j.lastRun.Store(time.Now().UnixNano())
	}()

	return j.fn(ctx)
}
