package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ping/ping"
)

// ErrNoReply is returned when a host answered none of the echo requests.
var ErrNoReply = errors.New("no echo reply received")

const (
	defaultEchoCount   = 3
	defaultEchoTimeout = time.Second
)

// ICMPLatencyProber measures round-trip time with ICMP echo requests.
type ICMPLatencyProber struct {
	Count      int
	Timeout    time.Duration
	Privileged bool
}

// NewICMPLatencyProber returns a prober sending count echoes, each allowed timeout.
func NewICMPLatencyProber(count int, timeout time.Duration, privileged bool) *ICMPLatencyProber {
	if count <= 0 {
		count = defaultEchoCount
	}
	if timeout <= 0 {
		timeout = defaultEchoTimeout
	}
	return &ICMPLatencyProber{Count: count, Timeout: timeout, Privileged: privileged}
}

// Latency returns the average round-trip time to ip in milliseconds.
func (p *ICMPLatencyProber) Latency(ctx context.Context, ip string) (float64, error) {
	pinger, err := ping.NewPinger(ip)
	if err != nil {
		return 0, fmt.Errorf("failed to create pinger for %s: %w", ip, err)
	}
	pinger.Count = p.Count
	pinger.Timeout = time.Duration(p.Count) * p.Timeout
	pinger.SetPrivileged(p.Privileged)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return 0, fmt.Errorf("ping %s: %w", ip, err)
	}
	return averageMillis(pinger.Statistics())
}

func averageMillis(stats *ping.Statistics) (float64, error) {
	if stats == nil || stats.PacketsRecv == 0 {
		return 0, ErrNoReply
	}
	return float64(stats.AvgRtt.Microseconds()) / 1000.0, nil
}
