// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/anstrom/netinventory/internal/metrics Recorder

import "time"

// Recorder is what the scan engine, the service layer and the API report into.
// PrometheusMetrics is the production implementation; Noop discards everything.
type Recorder interface {
	// JobStarted is called when a job enters RUNNING.
	JobStarted(intensity string)

	// JobFinished is called once per job with its terminal status.
	JobFinished(intensity, status string, elapsed time.Duration)

	// HostsDiscovered counts responders found by a discovery method.
	HostsDiscovered(method string, count int)

	// ProbeError counts failed probe calls.
	ProbeError(probe string)

	// BatchCompleted records the duration of one deep-scan batch.
	BatchCompleted(elapsed time.Duration)

	// StaleJobsCleaned counts jobs force-failed by the stale sweep.
	StaleJobsCleaned(count int)

	// DatabaseQuery records a repository call.
	DatabaseQuery(operation string, elapsed time.Duration, err error)

	// HTTPRequest records a served API request.
	HTTPRequest(method, path, status string, elapsed time.Duration)
}

// Noop is a Recorder that drops every observation.
type Noop struct{}

func (Noop) JobStarted(string)                                 {}
func (Noop) JobFinished(string, string, time.Duration)         {}
func (Noop) HostsDiscovered(string, int)                       {}
func (Noop) ProbeError(string)                                 {}
func (Noop) BatchCompleted(time.Duration)                      {}
func (Noop) StaleJobsCleaned(int)                              {}
func (Noop) DatabaseQuery(string, time.Duration, error)        {}
func (Noop) HTTPRequest(string, string, string, time.Duration) {}

var (
	_ Recorder = Noop{}
	_ Recorder = (*PrometheusMetrics)(nil)
)
