// Package progress carries scan progress events from the scan service to
// observers: websocket clients, a Redis channel and an AMQP exchange.
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/anstrom/netinventory/internal/logging"
)

// Event is one progress notification for a running or finished scan.
type Event struct {
	JobID             string `json:"job_id"`
	ScanID            string `json:"scan_id"`
	Status            string `json:"status"`
	Progress          int    `json:"progress"`
	Message           string `json:"message"`
	DiscoveredDevices int    `json:"discovered_devices"`
	IsComplete        bool   `json:"is_complete"`
}

// RunningMessage is the text attached to periodic events.
func RunningMessage(progress int) string {
	return fmt.Sprintf("Scanning network (%d%%)", progress)
}

// FinalMessage is the text attached to the last event of a scan.
func FinalMessage(status string) string {
	return fmt.Sprintf("Scan %s", status)
}

// Sink receives progress events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout delivers every event to all of its sinks. A failing sink does not stop the others.
type Fanout struct {
	sinks  []Sink
	logger *logging.Logger
}

// NewFanout creates a fanout over the non-nil sinks.
func NewFanout(logger *logging.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Fanout{logger: logger.WithComponent("progress")}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add appends a sink.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish sends ev to every sink and joins their errors.
func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			f.logger.Warn("Failed to publish progress event",
				"job_id", ev.JobID, "sink", fmt.Sprintf("%T", s), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
