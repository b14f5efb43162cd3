// Package services provides the orchestration around the scan engine:
// persisting scan records, streaming progress and saving the discovered
// inventory.
package services

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks github.com/anstrom/netinventory/internal/services Engine,Store

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/netinventory/internal/db"
	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/progress"
	"github.com/anstrom/netinventory/internal/scanning"
)

const (
	defaultProgressInterval = time.Second
	defaultStaleThreshold   = 30 * time.Minute
	finalEventTimeout       = 10 * time.Second

	cancelledMessage   = "Scan was cancelled by user"
	staleRecordMessage = "Scan timed out or was interrupted"
)

// Engine is the part of scanning.Engine the service drives.
type Engine interface {
	Start(ctx context.Context, opts scanning.ScanOptions) (scanning.JobSnapshot, error)
	Cancel(id string) bool
	Status(id string) (scanning.JobSnapshot, bool)
	Result(id string) (*scanning.ScanResult, bool)
	ListActive() []scanning.JobSnapshot
	ListCompleted() []scanning.JobSnapshot
	ActiveCount() int
	CleanupStale(threshold time.Duration) int
	Wait(ctx context.Context, id string) error
}

// Store persists scan records and the discovered inventory.
type Store interface {
	Ping(ctx context.Context) error
	CreateScan(ctx context.Context, rec *db.ScanRecord) error
	UpdateScanProgress(ctx context.Context, id uuid.UUID, devicesFound int, patch db.JSONB) error
	FinishScan(ctx context.Context, id uuid.UUID, outcome db.ScanOutcome) error
	UpsertDevice(ctx context.Context, d *db.DeviceRecord) error
	UpsertConnection(ctx context.Context, c *db.ConnectionRecord) error
	MarkStaleScansFailed(ctx context.Context, olderThan time.Time, message string) (int64, error)
	CountActiveScans(ctx context.Context) (int, error)
	NetworkMap(ctx context.Context) (*db.NetworkMap, error)
}

var (
	_ Engine = (*scanning.Engine)(nil)
	_ Store  = (*db.Store)(nil)
)

// ScanServiceConfig tunes the monitor and the stale sweep.
type ScanServiceConfig struct {
	ProgressInterval time.Duration
	StaleThreshold   time.Duration
}

// StartedScan identifies a scan launched through the service.
type StartedScan struct {
	Job    scanning.JobSnapshot `json:"job"`
	ScanID uuid.UUID            `json:"scan_id"`
}

// StatusReport is the outcome of CheckStatus.
type StatusReport struct {
	CleanedJobs    int   `json:"cleaned_jobs"`
	CleanedRecords int64 `json:"cleaned_records"`
	ActiveJobs     int   `json:"active_jobs"`
	ActiveRecords  int   `json:"active_records"`
}

// ScanService starts scans, follows them to completion and persists the results.
// A nil Store disables persistence; the engine still runs.
type ScanService struct {
	engine Engine
	store  Store
	sink   progress.Sink
	config ScanServiceConfig
	logger *logging.Logger
	now    func() time.Time

	startMu sync.Mutex
	wg      sync.WaitGroup
	ctx     context.Context
	stop    context.CancelFunc
}

// NewScanService creates a scan service. sink may be nil.
func NewScanService(engine Engine, store Store, sink progress.Sink, cfg ScanServiceConfig, logger *logging.Logger) *ScanService {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = defaultStaleThreshold
	}
	if sink == nil {
		sink = progress.NewFanout(logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &ScanService{
		engine: engine,
		store:  store,
		sink:   sink,
		config: cfg,
		logger: logger.WithComponent("scan-service"),
		now:    time.Now,
		ctx:    ctx,
		stop:   stop,
	}
}

func scanRange(opts scanning.ScanOptions) string {
	switch {
	case opts.IPRange != "":
		return opts.IPRange
	case opts.Subnet != "":
		return opts.Subnet
	default:
		return db.AutoDetectedRange
	}
}

// StartScan launches a scan unless one is already active.
func (s *ScanService) StartScan(ctx context.Context, opts scanning.ScanOptions) (*StartedScan, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if active := s.engine.ListActive(); len(active) > 0 {
		return nil, inverrors.ErrScanInProgress(active[0].ID)
	}

	var scanID uuid.UUID
	if s.store != nil {
		rec := &db.ScanRecord{ScanMethod: db.ScanMethodService, IPRange: scanRange(opts)}
		if err := s.store.CreateScan(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to create scan record: %w", err)
		}
		scanID = rec.ID
	}

	snap, err := s.engine.Start(ctx, opts)
	if err != nil {
		if s.store != nil {
			msg := err.Error()
			outcome := db.ScanOutcome{Status: db.ScanStatusFailed, ErrorMessage: &msg}
			if ferr := s.store.FinishScan(ctx, scanID, outcome); ferr != nil {
				s.logger.Warn("Failed to close scan record", "scan_id", scanID, "error", ferr)
			}
		}
		return nil, err
	}

	if s.store != nil {
		patch := db.JSONB{db.MetaJobID: snap.ID, db.MetaProgress: snap.Progress}
		if err := s.store.UpdateScanProgress(ctx, scanID, 0, patch); err != nil {
			s.logger.Warn("Failed to link scan record to job", "scan_id", scanID, "job_id", snap.ID, "error", err)
		}
	}

	s.logger.InfoJob("Scan started", snap.ID, "scan_id", scanID, "range", scanRange(opts))

	s.wg.Add(1)
	go s.monitor(snap.ID, scanID)

	return &StartedScan{Job: snap, ScanID: scanID}, nil
}

// monitor reports progress until the job ends, then saves the results.
func (s *ScanService) monitor(jobID string, scanID uuid.UUID) {
	defer s.wg.Done()
	log := s.logger.WithJobID(jobID)

	finished := make(chan struct{})
	go func() {
		_ = s.engine.Wait(s.ctx, jobID)
		close(finished)
	}()
	defer func() { <-finished }()

	ticker := time.NewTicker(s.config.ProgressInterval)
	defer ticker.Stop()

	for {
		snap, ok := s.engine.Status(jobID)
		if !ok {
			log.Warn("Monitored job disappeared")
			return
		}
		if snap.Status.IsTerminal() {
			s.finish(s.ctx, snap, scanID)
			return
		}
		if snap.Status == scanning.StatusRunning {
			s.reportRunning(s.ctx, snap, scanID)
		}

		select {
		case <-ticker.C:
		case <-finished:
			if s.ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *ScanService) reportRunning(ctx context.Context, snap scanning.JobSnapshot, scanID uuid.UUID) {
	if s.store != nil {
		patch := db.JSONB{db.MetaProgress: snap.Progress}
		if err := s.store.UpdateScanProgress(ctx, scanID, snap.DeviceCount, patch); err != nil {
			s.logger.Debug("Failed to record scan progress", "scan_id", scanID, "error", err)
		}
	}
	s.publish(ctx, progress.Event{
		JobID:             snap.ID,
		ScanID:            scanIDString(scanID),
		Status:            snap.Status.String(),
		Progress:          snap.Progress,
		Message:           progress.RunningMessage(snap.Progress),
		DiscoveredDevices: snap.DeviceCount,
	})
}

func (s *ScanService) finish(ctx context.Context, snap scanning.JobSnapshot, scanID uuid.UUID) {
	result, _ := s.engine.Result(snap.ID)

	if s.store != nil {
		s.saveResults(ctx, snap, result, scanID)
	}

	publishCtx, cancel := context.WithTimeout(ctx, finalEventTimeout)
	defer cancel()
	s.publish(publishCtx, progress.Event{
		JobID:             snap.ID,
		ScanID:            scanIDString(scanID),
		Status:            snap.Status.String(),
		Progress:          100,
		Message:           progress.FinalMessage(snap.Status.String()),
		DiscoveredDevices: snap.DeviceCount,
		IsComplete:        true,
	})
	s.logger.InfoJob("Scan finished", snap.ID, "status", snap.Status.String(), "devices", snap.DeviceCount)
}

func (s *ScanService) publish(ctx context.Context, ev progress.Event) {
	if err := s.sink.Publish(ctx, ev); err != nil {
		s.logger.Debug("Progress event not delivered", "job_id", ev.JobID, "error", err)
	}
}

func scanIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// scanOutcome maps a terminal job onto the persisted record status.
func scanOutcome(snap scanning.JobSnapshot, result *scanning.ScanResult) db.ScanOutcome {
	outcome := db.ScanOutcome{
		DevicesFound:    snap.DeviceCount,
		DurationSeconds: snap.ElapsedSeconds,
	}
	if result != nil {
		outcome.DevicesFound = result.DeviceCount
		outcome.DurationSeconds = result.ScanTime
	}

	var msg string
	switch snap.Status {
	case scanning.StatusCompleted:
		outcome.Status = db.ScanStatusCompleted
		return outcome
	case scanning.StatusFailed:
		msg = snap.ErrorMessage
	case scanning.StatusCancelled:
		msg = cancelledMessage
	default:
		msg = "Unexpected scan status: " + snap.Status.String()
	}
	outcome.Status = db.ScanStatusFailed
	outcome.ErrorMessage = &msg
	return outcome
}

func (s *ScanService) saveResults(
	ctx context.Context, snap scanning.JobSnapshot, result *scanning.ScanResult, scanID uuid.UUID,
) {
	if err := s.store.FinishScan(ctx, scanID, scanOutcome(snap, result)); err != nil {
		s.logger.ErrorJob("Failed to update scan record", snap.ID, err, "scan_id", scanID)
		return
	}
	if snap.Status != scanning.StatusCompleted || result == nil {
		return
	}
	s.saveNetwork(ctx, snap.ID, result)
}

// saveNetwork upserts devices by address, then links them by their stored ids.
func (s *ScanService) saveNetwork(ctx context.Context, jobID string, result *scanning.ScanResult) {
	ids := make(map[string]uuid.UUID, len(result.Devices))
	for _, d := range result.SortedDevices() {
		rec := deviceRecord(d)
		if err := s.store.UpsertDevice(ctx, rec); err != nil {
			s.logger.ErrorJob("Failed to save device", jobID, err, "ip", d.IP)
			continue
		}
		ids[d.ID] = rec.ID
	}

	saved := 0
	for _, c := range result.Connections {
		source, okSource := ids[c.Source]
		target, okTarget := ids[c.Target]
		if !okSource || !okTarget {
			continue
		}
		rec := &db.ConnectionRecord{
			SourceID:       source,
			TargetID:       target,
			Status:         c.Status,
			ConnectionType: string(c.Type),
			LatencyMS:      c.Latency,
			Metadata:       db.JSONB(c.Metadata),
		}
		if err := s.store.UpsertConnection(ctx, rec); err != nil {
			s.logger.ErrorJob("Failed to save connection", jobID, err, "source", c.Source, "target", c.Target)
			continue
		}
		saved++
	}

	s.logger.InfoJob("Network inventory saved", jobID, "devices", len(ids), "connections", saved)
}

func deviceRecord(d *scanning.Device) *db.DeviceRecord {
	rec := &db.DeviceRecord{
		IPAddress:  db.ParseIPAddr(d.IP),
		Label:      d.Label,
		DeviceType: string(d.Type),
		Status:     string(d.Status),
		Metadata:   db.JSONB(d.Metadata),
	}
	if d.MAC != "" {
		if hw, err := net.ParseMAC(d.MAC); err == nil {
			rec.MACAddress = &db.MACAddr{HardwareAddr: hw}
		}
	}
	if d.Hostname != "" {
		hostname := d.Hostname
		rec.Hostname = &hostname
	}
	if rec.Label == "" {
		rec.Label = d.Hostname
	}
	if rec.Label == "" {
		rec.Label = "Unknown"
	}
	return rec
}

// CancelScan asks the engine to stop a running job. The monitor records the outcome.
func (s *ScanService) CancelScan(jobID string) error {
	if s.engine.Cancel(jobID) {
		return nil
	}
	snap, ok := s.engine.Status(jobID)
	if !ok {
		return inverrors.ErrJobNotFound(jobID)
	}
	err := inverrors.NewScanError(inverrors.CodeConflict,
		fmt.Sprintf("scan job is %s and cannot be cancelled", snap.Status))
	err.JobID = jobID
	return err
}

// JobStatus returns the engine snapshot of a job.
func (s *ScanService) JobStatus(jobID string) (scanning.JobSnapshot, error) {
	snap, ok := s.engine.Status(jobID)
	if !ok {
		return scanning.JobSnapshot{}, inverrors.ErrJobNotFound(jobID)
	}
	return snap, nil
}

// JobResult returns the result of a job, or nil while none is attached.
func (s *ScanService) JobResult(jobID string) (*scanning.ScanResult, error) {
	if _, ok := s.engine.Status(jobID); !ok {
		return nil, inverrors.ErrJobNotFound(jobID)
	}
	result, _ := s.engine.Result(jobID)
	return result, nil
}

// Job list filters.
const (
	StateActive    = "active"
	StateCompleted = "completed"
	StateAll       = "all"
)

// ListJobs returns job snapshots for state: active, completed or all.
func (s *ScanService) ListJobs(state string) ([]scanning.JobSnapshot, error) {
	switch state {
	case StateActive:
		return s.engine.ListActive(), nil
	case StateCompleted:
		return s.engine.ListCompleted(), nil
	case StateAll, "":
		return append(s.engine.ListActive(), s.engine.ListCompleted()...), nil
	default:
		return nil, inverrors.NewScanError(inverrors.CodeValidation,
			fmt.Sprintf("unknown job state %q", state))
	}
}

// CheckStatus fails stale jobs and stale in-progress records, then reports what is still active.
func (s *ScanService) CheckStatus(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{
		CleanedJobs: s.engine.CleanupStale(s.config.StaleThreshold),
	}

	if s.store != nil {
		cutoff := s.now().Add(-s.config.StaleThreshold)
		n, err := s.store.MarkStaleScansFailed(ctx, cutoff, staleRecordMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to clean stale scan records: %w", err)
		}
		report.CleanedRecords = n

		active, err := s.store.CountActiveScans(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count active scan records: %w", err)
		}
		report.ActiveRecords = active
	}
	report.ActiveJobs = s.engine.ActiveCount()

	if report.CleanedJobs > 0 || report.CleanedRecords > 0 {
		s.logger.Info("Stale scans cleaned",
			"jobs", report.CleanedJobs, "records", report.CleanedRecords)
	}
	return report, nil
}

// NetworkMap returns the stored inventory.
func (s *ScanService) NetworkMap(ctx context.Context) (*db.NetworkMap, error) {
	if s.store == nil {
		return nil, inverrors.NewScanError(inverrors.CodeServiceUnavailable, "inventory storage is not configured")
	}
	return s.store.NetworkMap(ctx)
}

// Ping checks the store, if there is one.
func (s *ScanService) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// Close waits for monitors to record their jobs, bounded by ctx.
// Cancel the engine's jobs first so the monitors can finish.
func (s *ScanService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	defer s.stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
