// Package scheduler runs the periodic stale-scan sweep and any configured
// recurring scans on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/scanning"
	"github.com/anstrom/netinventory/internal/services"
)

// DefaultSweepSchedule runs the stale sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

const (
	sweepJobName   = "stale-sweep"
	defaultTimeout = time.Minute
)

// Job kinds.
const (
	KindSweep = "sweep"
	KindScan  = "scan"
)

// Service is what scheduled jobs call into.
type Service interface {
	CheckStatus(ctx context.Context) (*services.StatusReport, error)
	StartScan(ctx context.Context, opts scanning.ScanOptions) (*services.StartedScan, error)
}

// ScheduledJob describes one registered cron entry.
type ScheduledJob struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  time.Time  `json:"next_run"`

	entryID cron.EntryID
	options scanning.ScanOptions
}

// Scheduler owns a cron runner and the jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	service Service
	logger  *logging.Logger
	timeout time.Duration

	mu      sync.RWMutex
	jobs    map[string]*ScheduledJob
	running map[string]bool
}

// NewScheduler creates a scheduler. Jobs do not run until Start.
func NewScheduler(service Service, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger.WithComponent("scheduler"),
		timeout: defaultTimeout,
		jobs:    make(map[string]*ScheduledJob),
		running: make(map[string]bool),
	}
}

// AddSweep registers the stale sweep. An empty expression uses DefaultSweepSchedule.
func (s *Scheduler) AddSweep(expr string) error {
	if expr == "" {
		expr = DefaultSweepSchedule
	}
	job := &ScheduledJob{Name: sweepJobName, Kind: KindSweep, Schedule: expr}
	return s.add(job, func() { s.runSweep(job.Name) })
}

// AddScan registers a recurring scan with fixed options.
func (s *Scheduler) AddScan(name, expr string, opts scanning.ScanOptions) error {
	if err := opts.ValidateRequest(); err != nil {
		return fmt.Errorf("invalid options for scheduled scan %s: %w", name, err)
	}
	job := &ScheduledJob{Name: name, Kind: KindScan, Schedule: expr, options: opts}
	return s.add(job, func() { s.runScan(job.Name) })
}

func (s *Scheduler) add(job *ScheduledJob, run func()) error {
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("invalid cron expression: %v", err), "schedule", job.Schedule)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return errors.NewConfigFieldError(errors.CodeConflict, "scheduled job already exists", "name", job.Name)
	}

	id, err := s.cron.AddFunc(job.Schedule, run)
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}
	job.entryID = id
	s.jobs[job.Name] = job

	s.logger.Info("Scheduled job registered", "name", job.Name, "kind", job.Kind, "schedule", job.Schedule)
	return nil
}

// Remove unregisters a job by name.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(job.entryID)
	delete(s.jobs, name)
	return true
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.Jobs()))
}

// Stop halts the cron runner and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs lists registered jobs by name with their next run times.
func (s *Scheduler) Jobs() []ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		c := *job
		c.NextRun = s.cron.Entry(job.entryID).Next
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// begin marks a job running; it returns nil when the job is unknown or already running.
func (s *Scheduler) begin(name string) *ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	if !ok || s.running[name] {
		return nil
	}
	s.running[name] = true
	now := time.Now()
	job.LastRun = &now
	return job
}

func (s *Scheduler) end(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}

func (s *Scheduler) runSweep(name string) {
	if s.begin(name) == nil {
		s.logger.Debug("Skipping overlapping run", "name", name)
		return
	}
	defer s.end(name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.service.CheckStatus(ctx)
	if err != nil {
		s.logger.Error("Stale sweep failed", "error", err)
		return
	}
	s.logger.Debug("Stale sweep finished",
		"cleaned_jobs", report.CleanedJobs,
		"cleaned_records", report.CleanedRecords,
		"active_jobs", report.ActiveJobs)
}

func (s *Scheduler) runScan(name string) {
	job := s.begin(name)
	if job == nil {
		return
	}
	defer s.end(name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started, err := s.service.StartScan(ctx, job.options)
	switch {
	case errors.IsCode(err, errors.CodeConflict):
		s.logger.Info("Scheduled scan skipped, another scan is running", "name", name)
	case err != nil:
		s.logger.Error("Scheduled scan failed to start", "name", name, "error", err)
	default:
		s.logger.InfoJob("Scheduled scan started", started.Job.ID, "name", name)
	}
}
