package scanning

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	inverrors "github.com/anstrom/netinventory/internal/errors"
)

// Status is the lifecycle state of a scan job.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
	StatusTimedOut
)

var statusNames = map[Status]string{
	StatusReady:     "READY",
	StatusRunning:   "RUNNING",
	StatusCompleted: "COMPLETED",
	StatusFailed:    "FAILED",
	StatusCancelled: "CANCELLED",
	StatusTimedOut:  "TIMED_OUT",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s >= StatusCompleted
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for st, n := range statusNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown job status %q", string(text))
}

// Cancellation causes attached to a job's context.
var (
	ErrJobCancelled error = inverrors.NewScanError(inverrors.CodeCanceled, "scan job cancelled")
	ErrJobTimeout   error = inverrors.NewScanError(inverrors.CodeTimeout, "scan job timed out")
	ErrJobStale     error = inverrors.NewScanError(inverrors.CodeStale, "scan job stale")
)

const (
	maxRunningProgress = 99
	staleMessage       = "Scan job was stuck in RUNNING state and timed out"
)

// ScanJob is one scan and its lifecycle. All methods are safe for concurrent use.
type ScanJob struct {
	mu sync.RWMutex

	id       string
	options  ScanOptions
	status   Status
	progress int
	result   *ScanResult
	start    time.Time
	end      time.Time
	elapsed  time.Duration
	errMsg   string
	partials map[string]any

	// devices seen so far; only used before a result is attached
	liveDevices int
}

// NewScanJob creates a job in READY.
func NewScanJob(opts ScanOptions) *ScanJob {
	return &ScanJob{
		id:       uuid.NewString(),
		options:  opts,
		status:   StatusReady,
		partials: make(map[string]any),
	}
}

func (j *ScanJob) ID() string { return j.id }

// Options returns a copy of the job's options.
func (j *ScanJob) Options() ScanOptions { return j.options }

func (j *ScanJob) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *ScanJob) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// MarkStarted moves a READY job to RUNNING.
func (j *ScanJob) MarkStarted(at time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusReady {
		return false
	}
	j.status = StatusRunning
	j.progress = 0
	j.start = at
	return true
}

// UpdateProgress sets progress, clamped to 0..99. It does nothing unless the job is RUNNING.
func (j *ScanJob) UpdateProgress(p int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return
	}
	j.progress = min(max(p, 0), maxRunningProgress)
}

func (j *ScanJob) observeDevices(n int) {
	j.mu.Lock()
	j.liveDevices = n
	j.mu.Unlock()
}

// SetResult attaches the scan result. It is ignored once the job is terminal.
func (j *ScanJob) SetResult(r *ScanResult) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.IsTerminal() {
		return false
	}
	j.result = r
	return true
}

// Result returns a deep copy of the attached result, or nil.
func (j *ScanJob) Result() *ScanResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result.Clone()
}

// MarkCompleted finishes the job successfully and computes the elapsed scan time.
func (j *ScanJob) MarkCompleted(at time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.terminateLocked(StatusCompleted, at) {
		return false
	}
	j.progress = 100
	if j.result == nil {
		j.result = NewScanResult()
	}
	j.result.ScanTime = j.elapsed.Seconds()
	j.result.Recount()
	return true
}

// MarkFailed finishes the job with an error message.
func (j *ScanJob) MarkFailed(msg string, at time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.terminateLocked(StatusFailed, at) {
		return false
	}
	j.errMsg = msg
	j.finishResultLocked()
	return true
}

// MarkCancelled finishes the job as cancelled by the user.
func (j *ScanJob) MarkCancelled(at time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.terminateLocked(StatusCancelled, at) {
		return false
	}
	j.finishResultLocked()
	return true
}

// MarkTimedOut finishes the job as timed out. The engine itself reports
// overall timeouts as FAILED; this transition is for external supervisors.
func (j *ScanJob) MarkTimedOut(msg string, at time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.terminateLocked(StatusTimedOut, at) {
		return false
	}
	j.errMsg = msg
	j.finishResultLocked()
	return true
}

func (j *ScanJob) terminateLocked(to Status, at time.Time) bool {
	if j.status.IsTerminal() {
		return false
	}
	j.status = to
	j.end = at
	if !j.start.IsZero() {
		j.elapsed = at.Sub(j.start)
	}
	return true
}

func (j *ScanJob) finishResultLocked() {
	if j.result == nil {
		return
	}
	j.result.ScanTime = j.elapsed.Seconds()
	j.result.Recount()
}

// SavePartialResult stores a checkpoint under key, replacing any earlier value.
func (j *ScanJob) SavePartialResult(key string, v any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.partials[key] = v
}

// PartialResult returns the checkpoint stored under key.
func (j *ScanJob) PartialResult(key string) (any, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v, ok := j.partials[key]
	return v, ok
}

// PartialKeys lists checkpoint keys in sorted order.
func (j *ScanJob) PartialKeys() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	keys := make([]string, 0, len(j.partials))
	for k := range j.partials {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsStale reports whether a RUNNING job has no start time or has run longer than threshold.
func (j *ScanJob) IsStale(threshold time.Duration, now time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.status != StatusRunning {
		return false
	}
	return j.start.IsZero() || now.Sub(j.start) > threshold
}

// JobSnapshot is an immutable view of a job.
type JobSnapshot struct {
	ID              string      `json:"id"`
	Status          Status      `json:"status"`
	Progress        int         `json:"progress"`
	Options         ScanOptions `json:"options"`
	StartTime       *time.Time  `json:"start_time,omitempty"`
	EndTime         *time.Time  `json:"end_time,omitempty"`
	ErrorMessage    string      `json:"error,omitempty"`
	Warning         string      `json:"warning,omitempty"`
	DeviceCount     int         `json:"device_count"`
	ConnectionCount int         `json:"connection_count"`
	ElapsedSeconds  float64     `json:"elapsed_seconds"`
}

// Snapshot captures the current state of the job.
func (j *ScanJob) Snapshot() JobSnapshot {
	return j.snapshotAt(time.Now())
}

func (j *ScanJob) snapshotAt(now time.Time) JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snap := JobSnapshot{
		ID:           j.id,
		Status:       j.status,
		Progress:     j.progress,
		Options:      j.options,
		ErrorMessage: j.errMsg,
		DeviceCount:  j.liveDevices,
	}
	if !j.start.IsZero() {
		start := j.start
		snap.StartTime = &start
		if j.status.IsTerminal() {
			snap.ElapsedSeconds = j.elapsed.Seconds()
		} else {
			snap.ElapsedSeconds = now.Sub(j.start).Seconds()
		}
	}
	if !j.end.IsZero() {
		end := j.end
		snap.EndTime = &end
	}
	if j.result != nil {
		snap.DeviceCount = j.result.DeviceCount
		snap.ConnectionCount = j.result.ConnectionCount
		snap.Warning = j.result.Warning
		if snap.ErrorMessage == "" {
			snap.ErrorMessage = j.result.Error
		}
	}
	return snap
}
