package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netinventory/internal/config"
	"github.com/anstrom/netinventory/internal/discovery"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
	"github.com/anstrom/netinventory/internal/scanning"
)

const scanPollInterval = 500 * time.Millisecond

// scanFlagValues holds the scan command flags.
type scanFlagValues struct {
	intensity  string
	subnet     string
	ipRange    string
	noPorts    bool
	osDetect   bool
	services   bool
	maxDevices int
	timeout    time.Duration
	jsonOutput bool
}

var scanFlags scanFlagValues

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover and inventory devices on the local network",
	Long: `Run a scan job in this process and print the discovered devices.

Without --subnet or --range the subnets of the local interfaces are scanned.
Hosts are found with an ARP sweep where raw sockets are available and an ICMP
ping sweep otherwise, then port, service and OS detection run according to
the intensity. Press Ctrl-C to cancel; partial results are still printed.`,
	Example: `  netinventory scan
  netinventory scan --subnet 192.168.1.0/24 --intensity intense
  netinventory scan --range 10.0.0.1-10.0.0.50 --no-ports
  netinventory scan --intensity full --timeout 20m --json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	f := scanCmd.Flags()
	f.StringVar(&scanFlags.intensity, "intensity", "basic", "Scan intensity: basic, intense or full")
	f.StringVar(&scanFlags.subnet, "subnet", "", "Subnet to scan in CIDR notation")
	f.StringVar(&scanFlags.ipRange, "range", "", "Address range to scan (a.b.c.d-a.b.c.e or CIDR)")
	f.BoolVar(&scanFlags.noPorts, "no-ports", false, "Skip port, service and OS detection")
	f.BoolVar(&scanFlags.osDetect, "os", false, "Enable OS detection regardless of intensity")
	f.BoolVar(&scanFlags.services, "services", false, "Enable service detection regardless of intensity")
	f.IntVar(&scanFlags.maxDevices, "max-devices", 0, "Maximum devices to deep scan (0 = use config value)")
	f.DurationVar(&scanFlags.timeout, "timeout", 0, "Overall job timeout (0 = use config value)")
	f.BoolVar(&scanFlags.jsonOutput, "json", false, "Print the full result as JSON")

	scanCmd.MarkFlagsMutuallyExclusive("subnet", "range")
}

// options turns the flags into validated scan options.
func (f scanFlagValues) options(cfg *config.Config) (scanning.ScanOptions, error) {
	opts := scanning.DefaultScanOptions()
	opts.MaxDevices = cfg.Engine.MaxDevices
	opts.Timeout = cfg.Engine.DefaultTimeout

	intensity, err := scanning.ParseIntensity(f.intensity)
	if err != nil {
		return opts, err
	}
	opts.Intensity = intensity
	opts.Subnet = strings.TrimSpace(f.subnet)
	opts.IPRange = strings.TrimSpace(f.ipRange)
	opts.IncludePorts = !f.noPorts
	opts.IncludeOSDetection = f.osDetect
	opts.IncludeServiceDetection = f.services
	if f.maxDevices > 0 {
		opts.MaxDevices = f.maxDevices
	}
	if f.timeout > 0 {
		opts.Timeout = f.timeout
	}
	return opts, opts.Validate()
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := scanFlags.options(cfg)
	if err != nil {
		return err
	}

	logger := logging.Default()
	engine := newEngine(cfg, metrics.Noop{}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := engine.Start(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Started scan job %s (%s, targets: %s)\n", snap.ID, opts.Intensity, opts.TargetMode())
	}

	final := followJob(ctx, engine, snap.ID, cmd.ErrOrStderr())
	result, _ := engine.Result(snap.ID)

	out := cmd.OutOrStdout()
	if scanFlags.jsonOutput {
		return writeScanJSON(out, final, result)
	}
	printScanSummary(out, final)
	if result != nil {
		printDevices(out, result)
	}
	if final.Status == scanning.StatusFailed || final.Status == scanning.StatusTimedOut {
		return fmt.Errorf("scan %s: %s", strings.ToLower(final.Status.String()), final.ErrorMessage)
	}
	return nil
}

// followJob prints progress until the job is terminal. Cancelling ctx cancels the job.
func followJob(ctx context.Context, engine *scanning.Engine, id string, progressOut io.Writer) scanning.JobSnapshot {
	ticker := time.NewTicker(scanPollInterval)
	defer ticker.Stop()

	cancelled := false
	for {
		snap, _ := engine.Status(id)
		if snap.Status.IsTerminal() {
			fmt.Fprintf(progressOut, "\r%s\n", progressLine(snap))
			return snap
		}
		fmt.Fprintf(progressOut, "\r%s", progressLine(snap))

		select {
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				fmt.Fprintln(progressOut, "\nCancelling scan...")
				engine.Cancel(id)
			}
			// Keep polling until the job records the cancellation.
			time.Sleep(scanPollInterval)
		case <-ticker.C:
		}
	}
}

func progressLine(snap scanning.JobSnapshot) string {
	return fmt.Sprintf("[%-9s] %3d%%  %d devices  %.0fs",
		snap.Status, snap.Progress, snap.DeviceCount, snap.ElapsedSeconds)
}

func printScanSummary(w io.Writer, snap scanning.JobSnapshot) {
	fmt.Fprintf(w, "Scan %s finished with status %s in %.1fs\n", snap.ID, snap.Status, snap.ElapsedSeconds)
	fmt.Fprintf(w, "Devices: %d  Connections: %d\n", snap.DeviceCount, snap.ConnectionCount)
	if snap.Warning != "" {
		fmt.Fprintf(w, "Warning: %s\n", snap.Warning)
	}
	if snap.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", snap.ErrorMessage)
	}
}

// printDevices renders the devices in discovery order.
func printDevices(w io.Writer, result *scanning.ScanResult) {
	devices := result.SortedDevices()
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "IP", "MAC", "Hostname", "Type", "Status", "Open Ports")
	for _, d := range devices {
		_ = table.Append([]string{
			d.ID,
			d.IP,
			orDash(d.MAC),
			orDash(d.Hostname),
			string(d.Type),
			string(d.Status),
			openPorts(d),
		})
	}
	_ = table.Render()
}

// openPorts lists the open ports recorded in the device metadata.
// Results decoded from the API carry the ports as generic JSON values.
func openPorts(d *scanning.Device) string {
	var ports []discovery.PortInfo
	switch v := d.Metadata[scanning.MetaPorts].(type) {
	case []discovery.PortInfo:
		ports = slices.Clone(v)
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			port, _ := m["port"].(float64)
			proto, _ := m["protocol"].(string)
			ports = append(ports, discovery.PortInfo{Port: uint16(port), Protocol: proto})
		}
	}
	if len(ports) == 0 {
		return "-"
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Port < ports[j].Port })

	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d/%s", p.Port, p.Protocol)
	}
	return strings.Join(parts, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeScanJSON(w io.Writer, snap scanning.JobSnapshot, result *scanning.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Job    scanning.JobSnapshot `json:"job"`
		Result *scanning.ScanResult `json:"result"`
	}{snap, result})
}
