package scanning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anstrom/netinventory/internal/discovery"
	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/workers"
)

// Progress milestones of a run.
const (
	progressTargets       = 5
	progressDiscoveryBase = 10
	progressDiscoverySpan = 10
	progressHostnames     = 25
	progressDeepScanBase  = 30
	progressDeepScanSpan  = 60
	progressTopology      = 90
	progressConnections   = 95
)

const noDevicesWarning = "No devices found. The scan may be running in a restricted environment (WSL, VM)."

// scanRun is the working state of one job's phases. It is only touched by
// the job's goroutine; the job sees copies through partial results.
type scanRun struct {
	engine *Engine
	job    *ScanJob
	opts   ScanOptions
	log    *logging.Logger

	devices    map[string]*Device
	order      []string
	nextDevice int
	result     *ScanResult
}

func newScanRun(e *Engine, job *ScanJob, log *logging.Logger) *scanRun {
	return &scanRun{
		engine:  e,
		job:     job,
		opts:    job.Options(),
		log:     log,
		devices: make(map[string]*Device),
		result:  NewScanResult(),
	}
}

// phases runs every step in order. It returns early, with the context's
// cause, once the job context is done.
func (r *scanRun) phases(ctx context.Context) error {
	subnets, err := r.selectTargets(ctx)
	if err != nil {
		return err
	}
	r.job.SavePartialResult("subnets", subnets)
	r.job.UpdateProgress(progressTargets)
	if err := stopped(ctx); err != nil {
		return err
	}

	r.discover(ctx, subnets)
	if err := stopped(ctx); err != nil {
		return err
	}

	r.resolveHostnames(ctx)
	r.job.SavePartialResult("devices_before_port_scan", r.snapshotDevices())
	r.job.UpdateProgress(progressHostnames)
	if err := stopped(ctx); err != nil {
		return err
	}

	if r.opts.IncludePorts {
		if err := r.deepScan(ctx); err != nil {
			return err
		}
		if err := stopped(ctx); err != nil {
			return err
		}
	}

	r.job.UpdateProgress(progressTopology)
	r.inferTopology(ctx)
	if err := stopped(ctx); err != nil {
		return err
	}

	r.finalize()
	return nil
}

func stopped(ctx context.Context) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return nil
}

// selectTargets applies the precedence range, subnet, auto-detect.
func (r *scanRun) selectTargets(ctx context.Context) ([]string, error) {
	switch {
	case r.opts.IPRange != "":
		return []string{r.opts.IPRange}, nil
	case r.opts.Subnet != "":
		return []string{r.opts.Subnet}, nil
	}

	if r.engine.deps.Targets == nil {
		return nil, inverrors.ErrNoSubnets()
	}
	subnets, err := r.engine.deps.Targets.LocalSubnets(ctx)
	if err != nil {
		r.log.Warn("Failed to detect local subnets", "error", err)
	}
	if len(subnets) == 0 {
		return nil, inverrors.ErrNoSubnets()
	}
	r.log.Info("Auto-detected subnets", "subnets", subnets)
	return subnets, nil
}

// discover sweeps every subnet with the ARP probe, falling back to the ping
// sweep when ARP found nothing. Subnets too wide for ARP always get the ping sweep.
func (r *scanRun) discover(ctx context.Context, subnets []string) {
	oversized := r.sweep(ctx, r.engine.deps.ARP, subnets, "arp_scan_")
	if ctx.Err() != nil {
		return
	}

	switch {
	case len(r.devices) == 0:
		r.log.Info("No devices from ARP sweep, falling back to ping sweep")
		r.sweep(ctx, r.engine.deps.Ping, subnets, "ping_scan_")
	case len(oversized) > 0:
		r.log.Info("Ping sweeping subnets too wide for ARP", "subnets", oversized)
		r.sweep(ctx, r.engine.deps.Ping, oversized, "ping_scan_")
	}
}

// sweep runs probe over subnets and returns the subnets it rejected as too wide.
// A fatal probe error stops the remaining subnets.
func (r *scanRun) sweep(ctx context.Context, probe DiscoveryProbe, subnets []string, partialPrefix string) []string {
	if probe == nil {
		return nil
	}
	m := r.engine.deps.Metrics
	if err := probe.Available(); err != nil {
		r.log.Warn("Discovery probe unavailable", "probe", probe.Name(), "error", err)
		m.ProbeError(probe.Name())
		return nil
	}

	var oversized []string
	for i, subnet := range subnets {
		if ctx.Err() != nil {
			return oversized
		}
		responders, err := probe.Sweep(ctx, subnet)
		if err != nil {
			if errors.Is(err, discovery.ErrSubnetTooLarge) {
				r.log.InfoDiscovery("Subnet too wide for probe", subnet, "probe", probe.Name())
				oversized = append(oversized, subnet)
				continue
			}
			r.log.ErrorDiscovery("Discovery sweep failed", subnet, err, "probe", probe.Name())
			m.ProbeError(probe.Name())
			if inverrors.IsFatal(err) {
				r.log.Warn("Discovery method unavailable, skipping remaining subnets", "probe", probe.Name())
				return oversized
			}
			continue
		}
		r.job.SavePartialResult(partialPrefix+subnet, responders)
		added := r.merge(responders)
		m.HostsDiscovered(probe.Name(), added)
		r.log.InfoDiscovery("Subnet swept", subnet,
			"probe", probe.Name(), "responders", len(responders), "new_devices", added)

		r.job.UpdateProgress(progressDiscoveryBase + progressDiscoverySpan*(i+1)/len(subnets))
	}
	return oversized
}

// merge adds unseen addresses as new online devices, up to MaxDevices.
func (r *scanRun) merge(responders []discovery.Responder) int {
	added := 0
	for _, resp := range responders {
		if resp.Address == "" {
			continue
		}
		if _, known := r.devices[resp.Address]; known {
			continue
		}
		if len(r.devices) >= r.opts.MaxDevices {
			r.log.Warn("Device cap reached, ignoring further hosts", "max_devices", r.opts.MaxDevices)
			break
		}
		r.nextDevice++
		r.devices[resp.Address] = &Device{
			ID:       deviceID(r.nextDevice),
			IP:       resp.Address,
			MAC:      resp.LinkAddress,
			Type:     DeviceOther,
			Status:   DeviceOnline,
			Metadata: make(map[string]any),
		}
		r.order = append(r.order, resp.Address)
		added++
	}
	r.job.observeDevices(len(r.devices))
	return added
}

// resolveHostnames looks up every device through the worker pool. Failures
// leave the device without a name.
func (r *scanRun) resolveHostnames(ctx context.Context) {
	resolver := r.engine.deps.Hostnames
	if resolver == nil || len(r.order) == 0 {
		return
	}

	results := workers.Map(ctx, r.engine.deps.Pool, r.order,
		func(ctx context.Context, ip string) (string, error) {
			return resolver.LookupHostname(ctx, ip)
		})

	for i, res := range results {
		ip := r.order[i]
		if res.Err != nil {
			r.log.Debug("Hostname lookup failed", "ip", ip, "error", res.Err)
			continue
		}
		if res.Value != "" {
			r.devices[ip].Hostname = res.Value
		}
	}
}

// deepScan runs the port/OS scanner over fixed-size batches. A batch that
// fails is logged and skipped unless the job context ended.
func (r *scanRun) deepScan(ctx context.Context) error {
	r.job.UpdateProgress(progressDeepScanBase)
	scanner := r.engine.deps.DeepScanner
	if scanner == nil || len(r.order) == 0 {
		return nil
	}

	profile := r.opts.Profile()
	batches := chunk(r.order, r.engine.config.BatchSize)
	r.log.Info("Starting deep scan",
		"hosts", len(r.order), "batches", len(batches), "intensity", r.opts.Intensity.String())

	for idx, batch := range batches {
		if err := stopped(ctx); err != nil {
			return err
		}

		started := time.Now()
		reports, err := scanner.Scan(ctx, batch, profile)
		r.engine.deps.Metrics.BatchCompleted(time.Since(started))
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			r.log.Warn("Deep scan batch failed", "batch", idx, "hosts", len(batch), "error", err)
			reports = nil
		}

		r.job.SavePartialResult(fmt.Sprintf("nmap_batch_%d", idx), reports)
		r.applyReports(reports)
		r.job.UpdateProgress(progressDeepScanBase + progressDeepScanSpan*(idx+1)/len(batches))
	}
	return nil
}

func (r *scanRun) applyReports(reports []discovery.HostReport) {
	for _, rep := range reports {
		d, ok := r.devices[rep.Address]
		if !ok {
			continue
		}
		if rep.Hostname != "" {
			d.Hostname = rep.Hostname
		}
		if rep.Status != "" {
			d.Status = DeviceStatus(rep.Status)
		}
		if d.MAC == "" && rep.LinkAddress != "" {
			d.MAC = rep.LinkAddress
		}

		kind := ClassifyOS(rep.OSName)
		if kind == DeviceOther {
			kind = ClassifyPorts(rep.Ports)
		}
		if kind != DeviceOther {
			d.Type = kind
		}

		if rep.OSName != "" {
			d.Metadata[MetaOS] = rep.OSName
			d.Metadata[MetaOSAccuracy] = rep.OSAccuracy
		}
		if len(rep.Ports) > 0 {
			d.Metadata[MetaPorts] = rep.Ports
		}
		if rep.Vendor != "" {
			d.Metadata[MetaVendor] = rep.Vendor
		}
	}
}

// finalize labels the devices and sets the empty-scan warning.
func (r *scanRun) finalize() {
	for _, ip := range r.order {
		d := r.devices[ip]
		d.Label = DeviceLabel(d)
	}
	if len(r.devices) == 0 {
		r.result.Warning = noDevicesWarning
	}
	r.job.UpdateProgress(maxRunningProgress)
}

// collect attaches whatever the phases accumulated to the result. It runs
// on every exit path so cancelled and failed jobs keep their devices.
func (r *scanRun) collect() *ScanResult {
	r.result.Devices = r.devices
	r.result.Recount()
	return r.result
}

// snapshotDevices deep-copies the working map for a checkpoint.
func (r *scanRun) snapshotDevices() map[string]*Device {
	out := make(map[string]*Device, len(r.devices))
	for ip, d := range r.devices {
		out[ip] = d.clone()
	}
	return out
}

func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
