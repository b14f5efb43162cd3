package scanning

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
	"github.com/anstrom/netinventory/internal/workers"
)

const (
	defaultBatchSize      = 10
	defaultStaleThreshold = 30 * time.Minute
)

// EngineConfig holds the tunables of the engine.
type EngineConfig struct {
	// BatchSize is the number of hosts per deep-scan invocation.
	BatchSize int
	// StaleThreshold is how long a job may stay RUNNING before CleanupStale fails it.
	StaleThreshold time.Duration
	// DefaultTimeout applies when ScanOptions.Timeout is zero.
	DefaultTimeout time.Duration
	// MaxDevices applies when ScanOptions.MaxDevices is zero.
	MaxDevices int
}

// DefaultEngineConfig returns the stock engine settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BatchSize:      defaultBatchSize,
		StaleThreshold: defaultStaleThreshold,
		DefaultTimeout: defaultJobTimeout,
		MaxDevices:     defaultMaxDevices,
	}
}

// Dependencies are the probes and shared services the engine drives.
// ARP, Ping, Hostnames, Gateway and Latency may be nil, which skips that step.
type Dependencies struct {
	Targets     TargetResolver
	ARP         DiscoveryProbe
	Ping        DiscoveryProbe
	Hostnames   HostnameResolver
	DeepScanner DeepScanner
	Gateway     GatewayResolver
	Latency     LatencyProber
	Pool        *workers.Pool
	Metrics     metrics.Recorder
	Now         func() time.Time
}

// Engine runs scan jobs in the background and keeps track of them.
type Engine struct {
	config   EngineConfig
	deps     Dependencies
	registry *Registry
	logger   *logging.Logger
	wg       sync.WaitGroup
}

// NewEngine creates an engine. Zero config fields fall back to the defaults.
func NewEngine(cfg EngineConfig, deps Dependencies, logger *logging.Logger) *Engine {
	defaults := DefaultEngineConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = defaults.StaleThreshold
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = defaults.MaxDevices
	}
	if deps.Pool == nil {
		deps.Pool = workers.New(workers.DefaultSize)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Engine{
		config:   cfg,
		deps:     deps,
		registry: NewRegistry(),
		logger:   logger.WithComponent("engine"),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig { return e.config }

func (e *Engine) now() time.Time { return e.deps.Now() }

// Start validates opts, registers a new job and runs it in the background.
// The returned snapshot shows the job RUNNING. ctx only scopes the call;
// the job keeps running after ctx ends.
func (e *Engine) Start(ctx context.Context, opts ScanOptions) (JobSnapshot, error) {
	if opts.Timeout == 0 {
		opts.Timeout = e.config.DefaultTimeout
	}
	if opts.MaxDevices == 0 {
		opts.MaxDevices = e.config.MaxDevices
	}
	if err := opts.Validate(); err != nil {
		return JobSnapshot{}, err
	}

	job := NewScanJob(opts)
	jobCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	h := &jobHandle{cancel: cancel, done: make(chan struct{})}

	e.registry.add(job, h)
	job.MarkStarted(e.now())
	e.deps.Metrics.JobStarted(opts.Intensity.String())

	e.logger.InfoJob("Scan job started", job.ID(),
		"intensity", opts.Intensity.String(),
		"targets", opts.TargetMode(),
		"include_ports", opts.IncludePorts,
		"timeout", opts.Timeout)

	snap := job.snapshotAt(e.now())
	e.wg.Add(1)
	go e.run(jobCtx, job, h)

	return snap, nil
}

// Cancel signals a RUNNING job to stop. It returns false for unknown or finished jobs.
func (e *Engine) Cancel(id string) bool {
	job, h, ok := e.registry.activeJob(id)
	if !ok || job.Status() != StatusRunning {
		return false
	}
	h.cancel(ErrJobCancelled)
	e.logger.InfoJob("Scan job cancellation requested", id)
	return true
}

// Status returns a snapshot of the job, looking in active jobs first.
func (e *Engine) Status(id string) (JobSnapshot, bool) {
	job, ok := e.registry.Get(id)
	if !ok {
		return JobSnapshot{}, false
	}
	return job.snapshotAt(e.now()), true
}

// Result returns a copy of the job's result, if it has one.
func (e *Engine) Result(id string) (*ScanResult, bool) {
	job, ok := e.registry.Get(id)
	if !ok {
		return nil, false
	}
	r := job.Result()
	return r, r != nil
}

// Job returns the live job. Callers must treat it as read-only.
func (e *Engine) Job(id string) (*ScanJob, bool) {
	return e.registry.Get(id)
}

// ListActive returns snapshots of active jobs ordered by start time.
func (e *Engine) ListActive() []JobSnapshot {
	return e.snapshots(e.registry.Active())
}

// ListCompleted returns snapshots of completed jobs ordered by start time.
func (e *Engine) ListCompleted() []JobSnapshot {
	return e.snapshots(e.registry.Completed())
}

func (e *Engine) snapshots(jobs []*ScanJob) []JobSnapshot {
	now := e.now()
	out := make([]JobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.snapshotAt(now))
	}
	return out
}

// ActiveCount returns the number of jobs that have not left the active registry.
func (e *Engine) ActiveCount() int {
	active, _ := e.registry.Counts()
	return active
}

// CleanupStale force-fails RUNNING jobs older than threshold (the configured
// stale threshold when zero), signals them and moves them to completed.
// A job that finishes concurrently is left alone. It returns the number cleaned.
func (e *Engine) CleanupStale(threshold time.Duration) int {
	if threshold <= 0 {
		threshold = e.config.StaleThreshold
	}
	now := e.now()

	cleaned := 0
	for _, job := range e.registry.Active() {
		if !job.IsStale(threshold, now) {
			continue
		}
		if !job.MarkFailed(staleMessage, now) {
			continue
		}
		// The run goroutine may move the job first; whoever moves it records the metric.
		if h, ok := e.registry.moveToCompleted(job.ID()); ok {
			if h != nil {
				h.cancel(ErrJobStale)
			}
			e.deps.Metrics.JobFinished(job.Options().Intensity.String(), StatusFailed.String(), now.Sub(startOf(job)))
		}
		e.logger.WithJobID(job.ID()).Warn("Stale scan job force-failed", "threshold", threshold)
		cleaned++
	}

	if cleaned > 0 {
		e.deps.Metrics.StaleJobsCleaned(cleaned)
	}
	return cleaned
}

func startOf(job *ScanJob) time.Time {
	job.mu.RLock()
	defer job.mu.RUnlock()
	return job.start
}

// Wait blocks until the job has left the active registry or ctx is done.
func (e *Engine) Wait(ctx context.Context, id string) error {
	_, h, ok := e.registry.activeJob(id)
	if !ok {
		if _, known := e.registry.Get(id); known {
			return nil
		}
		return inverrors.ErrJobNotFound(id)
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every active job and waits for their goroutines to return.
func (e *Engine) Shutdown(ctx context.Context) error {
	for _, h := range e.registry.handlesSnapshot() {
		h.cancel(ErrJobCancelled)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one job from RUNNING to a terminal state.
func (e *Engine) run(parent context.Context, job *ScanJob, h *jobHandle) {
	defer e.wg.Done()
	defer close(h.done)

	opts := job.Options()
	ctx, cancelTimeout := context.WithTimeoutCause(parent, opts.Timeout, ErrJobTimeout)
	defer cancelTimeout()

	log := e.logger.WithJobID(job.ID())
	run := newScanRun(e, job, log)
	err := run.execute(ctx)

	now := e.now()
	result := run.collect()
	cause := context.Cause(ctx)

	switch {
	case errors.Is(cause, ErrJobTimeout):
		msg := fmt.Sprintf("Scan timed out after %d seconds", int(opts.Timeout.Seconds()))
		result.Error = msg
		job.SetResult(result)
		job.MarkFailed(msg, now)
		log.Warn("Scan job timed out", "timeout", opts.Timeout)
	case errors.Is(cause, ErrJobCancelled):
		job.SetResult(result)
		job.MarkCancelled(now)
		log.Info("Scan job cancelled", "devices", len(result.Devices))
	case errors.Is(cause, ErrJobStale):
		// CleanupStale already failed the job.
	case err != nil:
		msg := "Scan failed: " + err.Error()
		result.Error = err.Error()
		job.SetResult(result)
		job.MarkFailed(msg, now)
		log.ErrorJob("Scan job failed", job.ID(), err)
	default:
		job.SetResult(result)
		job.MarkCompleted(now)
		log.Info("Scan job completed",
			"devices", len(result.Devices),
			"connections", len(result.Connections),
			"warning", result.Warning)
	}

	// CleanupStale may have failed the job first; the label follows the job.
	if moved, ok := e.registry.moveToCompleted(job.ID()); ok {
		moved.cancel(nil)
		e.deps.Metrics.JobFinished(opts.Intensity.String(), job.Status().String(), now.Sub(startOf(job)))
	}
}

// execute runs the phases and converts a panic into an error.
func (r *scanRun) execute(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Scan job panicked", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.phases(ctx)
}
