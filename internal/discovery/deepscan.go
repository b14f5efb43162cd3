package discovery

import (
	"context"
	"fmt"

	"github.com/Ullaakut/nmap/v3"

	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
)

// NmapDeepScanner runs port, service and OS detection against known hosts.
type NmapDeepScanner struct {
	logger *logging.Logger
}

// NewNmapDeepScanner creates a deep scanner.
func NewNmapDeepScanner(logger *logging.Logger) *NmapDeepScanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &NmapDeepScanner{logger: logger.WithComponent("deepscan")}
}

// Scan runs one nmap invocation over targets using profile. The caller's
// context bounds the run; cancelling it kills the nmap process.
func (s *NmapDeepScanner) Scan(ctx context.Context, targets []string, profile Profile) ([]HostReport, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	scanner, err := nmap.NewScanner(ctx, buildDeepScanOptions(targets, profile)...)
	if err != nil {
		return nil, inverrors.ErrProbeUnavailable("nmap", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, inverrors.WrapScanError(inverrors.CodeScanFailed,
			fmt.Sprintf("deep scan of %d hosts failed", len(targets)), err)
	}
	if warnings != nil && len(*warnings) > 0 {
		s.logger.Warn("Deep scan completed with warnings", "targets", len(targets), "warnings", *warnings)
	}

	return hostReportsFromRun(result), nil
}

func buildDeepScanOptions(targets []string, profile Profile) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithSkipHostDiscovery(),
		nmap.WithTimingTemplate(nmap.TimingAggressive),
	}

	switch {
	case profile.AllPorts:
		options = append(options, nmap.WithPorts("1-65535"))
	case profile.TopPorts > 0:
		options = append(options, nmap.WithMostCommonPorts(profile.TopPorts))
	}
	if profile.OSDetection {
		options = append(options, nmap.WithOSDetection())
	}
	if profile.ServiceDetection {
		options = append(options, nmap.WithServiceInfo())
	}
	if profile.Aggressive {
		options = append(options, nmap.WithAggressiveScan())
	}
	return options
}

// hostReportsFromRun converts nmap output, keeping open ports and the best OS match.
func hostReportsFromRun(run *nmap.Run) []HostReport {
	if run == nil {
		return nil
	}
	reports := make([]HostReport, 0, len(run.Hosts))
	for i := range run.Hosts {
		host := &run.Hosts[i]
		addr := hostIPv4(host)
		if addr == "" {
			continue
		}

		report := HostReport{Address: addr, Status: "offline"}
		if host.Status.State == "up" {
			report.Status = "online"
		}
		if mac, ok := firstAddress(host, "mac"); ok {
			report.LinkAddress = mac.Addr
			report.Vendor = mac.Vendor
		}
		for _, hn := range host.Hostnames {
			if hn.Name != "" {
				report.Hostname = hn.Name
				break
			}
		}
		if len(host.OS.Matches) > 0 {
			best := host.OS.Matches[0]
			report.OSName = best.Name
			report.OSAccuracy = best.Accuracy
		}
		for j := range host.Ports {
			p := &host.Ports[j]
			if p.State.State != "open" {
				continue
			}
			report.Ports = append(report.Ports, PortInfo{
				Port:     p.ID,
				Protocol: p.Protocol,
				State:    p.State.State,
				Service:  p.Service.Name,
				Product:  p.Service.Product,
				Version:  p.Service.Version,
			})
		}
		reports = append(reports, report)
	}
	return reports
}
