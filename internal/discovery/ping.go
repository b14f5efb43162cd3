package discovery

import (
	"context"
	"os/exec"
	"time"

	"github.com/Ullaakut/nmap/v3"

	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
)

const defaultPingTimeout = 2 * time.Minute

// PingSweepProbe finds live hosts with an nmap ping scan (-sn).
// It is the fallback when address resolution finds nothing.
type PingSweepProbe struct {
	timeout time.Duration
	logger  *logging.Logger
}

// NewPingSweepProbe returns a ping sweep bounded by timeout per subnet.
func NewPingSweepProbe(timeout time.Duration, logger *logging.Logger) *PingSweepProbe {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PingSweepProbe{timeout: timeout, logger: logger.WithComponent("ping")}
}

// Name returns the discovery method name.
func (p *PingSweepProbe) Name() string { return MethodPing }

// Available reports whether the nmap binary can be found.
func (p *PingSweepProbe) Available() error {
	if _, err := exec.LookPath("nmap"); err != nil {
		return inverrors.ErrProbeUnavailable(MethodPing, err)
	}
	return nil
}

// Sweep pings every address in subnet and returns the hosts that are up.
func (p *PingSweepProbe) Sweep(ctx context.Context, subnet string) ([]Responder, error) {
	if err := ValidateTarget(subnet); err != nil {
		return nil, inverrors.ErrDiscoveryFailed(subnet, MethodPing, err)
	}

	sweepCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(sweepCtx, buildPingOptions(subnet, p.timeout)...)
	if err != nil {
		return nil, inverrors.ErrProbeUnavailable(MethodPing, err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, inverrors.ErrDiscoveryFailed(subnet, MethodPing, err)
	}
	if warnings != nil && len(*warnings) > 0 {
		p.logger.Warn("Ping sweep completed with warnings", "network", subnet, "warnings", *warnings)
	}

	responders := respondersFromRun(result)
	p.logger.InfoDiscovery("Ping sweep finished", subnet, "responders", len(responders))
	return responders, nil
}

func buildPingOptions(subnet string, timeout time.Duration) []nmap.Option {
	return []nmap.Option{
		nmap.WithTargets(subnet),
		nmap.WithPingScan(),
		nmap.WithTimingTemplate(timingForTimeout(timeout)),
	}
}

// respondersFromRun keeps the hosts nmap reported as up.
func respondersFromRun(run *nmap.Run) []Responder {
	if run == nil {
		return nil
	}
	responders := make([]Responder, 0, len(run.Hosts))
	for i := range run.Hosts {
		host := &run.Hosts[i]
		if host.Status.State != "up" {
			continue
		}
		addr := hostIPv4(host)
		if addr == "" {
			continue
		}
		r := Responder{Address: addr}
		if mac, ok := firstAddress(host, "mac"); ok {
			r.LinkAddress = mac.Addr
		}
		responders = append(responders, r)
	}
	return responders
}
