package scanning

//go:generate mockgen -destination=mocks/mock_probes.go -package=mocks github.com/anstrom/netinventory/internal/scanning TargetResolver,DiscoveryProbe,HostnameResolver,DeepScanner,GatewayResolver,LatencyProber

import (
	"context"

	"github.com/anstrom/netinventory/internal/discovery"
)

// TargetResolver lists the subnets to scan when the options name none.
type TargetResolver interface {
	LocalSubnets(ctx context.Context) ([]string, error)
}

// DiscoveryProbe finds live hosts in one subnet.
type DiscoveryProbe interface {
	Name() string
	// Available returns an error when the probe cannot run on this host at all.
	Available() error
	Sweep(ctx context.Context, subnet string) ([]discovery.Responder, error)
}

// HostnameResolver maps an address to a name. An empty name with no error means unknown.
type HostnameResolver interface {
	LookupHostname(ctx context.Context, ip string) (string, error)
}

// DeepScanner runs port, service and OS detection over a batch of hosts.
type DeepScanner interface {
	Scan(ctx context.Context, targets []string, profile discovery.Profile) ([]discovery.HostReport, error)
}

// GatewayResolver returns the default gateway address, or "" when there is none.
type GatewayResolver interface {
	DefaultGateway(ctx context.Context) (string, error)
}

// LatencyProber measures round-trip time to an address in milliseconds.
type LatencyProber interface {
	Latency(ctx context.Context, ip string) (float64, error)
}

var (
	_ TargetResolver   = (*discovery.InterfaceResolver)(nil)
	_ DiscoveryProbe   = (*discovery.ARPProbe)(nil)
	_ DiscoveryProbe   = (*discovery.PingSweepProbe)(nil)
	_ HostnameResolver = (*discovery.ChainResolver)(nil)
	_ DeepScanner      = (*discovery.NmapDeepScanner)(nil)
	_ GatewayResolver  = (*discovery.RouteTableGateway)(nil)
	_ LatencyProber    = (*discovery.ICMPLatencyProber)(nil)
)
