// Package worker runs the recurring jobs: data sync, late payment checks
// and the chat reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"findash/internal/log"
)

var ErrUnknownJob = errors.New("unknown job")

// ErrNotRunning is returned by Trigger before Start or after Stop.
var ErrNotRunning = errors.New("scheduler is not running")

// JobInfo describes a registered job for status output.
type JobInfo struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule,omitempty"`
	Running   bool      `json:"running"`
	Next      time.Time `json:"next,omitempty"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs jobs on cron schedules in UTC and on demand. Scheduled and
// triggered runs share each job's busy guard.
type Scheduler struct {
	cron   *cron.Cron
	logger *log.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	entries map[string]cron.EntryID
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger.WithComponent(log.ComponentScheduler),
		jobs:    make(map[string]*Job),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	if job.Schedule != "" {
		id, err := s.cron.AddFunc(job.Schedule, func() { s.runScheduled(job) })
		if err != nil {
			return fmt.Errorf("schedule job %s (%q): %w", job.Name, job.Schedule, err)
		}
		s.entries[job.Name] = id
	}
	s.jobs[job.Name] = job
	return nil
}

func (s *Scheduler) runScheduled(job *Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	_ = job.Run(ctx, s.logger)
}

// Start begins the cron loop and fires RunOnStart jobs in the background.
// It returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler is already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		if j.RunOnStart {
			s.goRunLocked(j)
		}
	}
	s.mu.Unlock()

	s.cron.Start()

	s.logger.InfoContext(ctx, "Scheduler started", "jobs", len(s.jobs), "scheduled", len(s.entries))
	return nil
}

// goRunLocked starts a background run. s.mu must be held with the
// scheduler running, so Stop cannot be waiting on wg yet.
func (s *Scheduler) goRunLocked(job *Job) {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = job.Run(ctx, s.logger)
	}()
}

// Stop halts scheduling, cancels in-flight runs and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.InfoContext(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) job(name string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j, nil
}

// Trigger starts a run of the named job in the background, returning
// ErrJobBusy when it is already running.
func (s *Scheduler) Trigger(name string) error {
	j, err := s.job(name)
	if err != nil {
		return err
	}
	if j.Running() {
		return ErrJobBusy
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.logger.Info("Job triggered", log.FieldJob, name, log.FieldOperation, log.OpTrigger)
	s.goRunLocked(j)
	return nil
}

// RunNow runs the named job synchronously on ctx.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	j, err := s.job(name)
	if err != nil {
		return err
	}
	return j.Run(ctx, s.logger)
}

// Jobs lists registered jobs by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for name, j := range s.jobs {
		info := JobInfo{
			Name:     name,
			Schedule: j.Schedule,
			Running:  j.Running(),
			LastRun:  j.LastRun(),
		}
		if id, ok := s.entries[name]; ok {
			info.Next = s.cron.Entry(id).Next
		}
		if err := j.LastError(); err != nil {
			info.LastError = err.Error()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
