package cli

import (
	"github.com/anstrom/netinventory/internal/config"
	"github.com/anstrom/netinventory/internal/discovery"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
	"github.com/anstrom/netinventory/internal/scanning"
	"github.com/anstrom/netinventory/internal/workers"
)

// engineDependencies builds the production probes from the discovery section.
func engineDependencies(cfg *config.Config, rec metrics.Recorder, logger *logging.Logger) scanning.Dependencies {
	d := cfg.Discovery

	resolvers := []discovery.NameResolver{discovery.NewDNSResolver(d.DNSServers, d.DNSTimeout)}
	if d.SNMPEnabled {
		resolvers = append(resolvers, discovery.NewSNMPNameResolver(d.SNMPCommunity, d.SNMPTimeout))
	}

	return scanning.Dependencies{
		Targets:     discovery.NewInterfaceResolver(),
		ARP:         discovery.NewARPProbe(d.ARPReadWindow, d.ARPRatePerSecond, logger),
		Ping:        discovery.NewPingSweepProbe(d.PingTimeout, logger),
		Hostnames:   discovery.NewChainResolver(resolvers...),
		DeepScanner: discovery.NewNmapDeepScanner(logger),
		Gateway:     discovery.NewRouteTableGateway(d.RouteTablePath),
		Latency:     discovery.NewICMPLatencyProber(d.LatencyCount, d.LatencyTimeout, d.PrivilegedICMP),
		Pool:        workers.New(cfg.Engine.WorkerPoolSize),
		Metrics:     rec,
	}
}

// newEngine creates a scan engine wired to the real network probes.
func newEngine(cfg *config.Config, rec metrics.Recorder, logger *logging.Logger) *scanning.Engine {
	return scanning.NewEngine(cfg.EngineSettings(), engineDependencies(cfg, rec, logger), logger)
}
