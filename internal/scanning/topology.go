package scanning

import (
	"context"

	"github.com/anstrom/netinventory/internal/workers"
)

const gatewayHostname = "Main Gateway"

// inferTopology links every device to the default gateway when the gateway
// was discovered. A missing or unknown gateway yields no connections.
func (r *scanRun) inferTopology(ctx context.Context) {
	resolver := r.engine.deps.Gateway
	if resolver == nil {
		return
	}
	gatewayIP, err := resolver.DefaultGateway(ctx)
	if err != nil {
		r.log.Warn("Failed to resolve default gateway", "error", err)
		return
	}
	gw, ok := r.devices[gatewayIP]
	if !ok {
		r.log.Debug("Default gateway not among discovered devices", "gateway", gatewayIP)
		return
	}

	gw.Type = DeviceRouter
	if gw.Hostname == "" || gw.Hostname == gw.IP {
		gw.Hostname = gatewayHostname
	}

	var peers []*Device
	for _, ip := range r.order {
		if ip != gatewayIP {
			peers = append(peers, r.devices[ip])
		}
	}
	latencies := r.measureLatency(ctx, gatewayIP, len(peers))

	conns := make([]Connection, 0, len(peers))
	for i, d := range peers {
		conns = append(conns, Connection{
			ID:       connectionID(i + 1),
			Source:   d.ID,
			Target:   gw.ID,
			Status:   ConnectionActive,
			Type:     ConnectionWired,
			Latency:  latencies[i],
			Metadata: map[string]any{},
		})
	}
	r.result.Connections = conns
	r.job.UpdateProgress(progressConnections)
	r.log.Info("Topology inferred", "gateway", gatewayIP, "connections", len(conns))
}

// measureLatency takes n round-trip measurements to the gateway through the
// worker pool. Failed probes leave a nil entry.
func (r *scanRun) measureLatency(ctx context.Context, gatewayIP string, n int) []*float64 {
	out := make([]*float64, n)
	prober := r.engine.deps.Latency
	if prober == nil || n == 0 {
		return out
	}

	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}
	results := workers.Map(ctx, r.engine.deps.Pool, slots,
		func(ctx context.Context, _ int) (float64, error) {
			return prober.Latency(ctx, gatewayIP)
		})
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		ms := res.Value
		out[i] = &ms
	}
	return out
}
