package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netinventory/internal/api/handlers"
	"github.com/anstrom/netinventory/internal/db"
	"github.com/anstrom/netinventory/internal/scanning"
	"github.com/anstrom/netinventory/internal/services"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	jobsServer string
	jobsState  string
	jobsWait   bool
)

// jobsCmd groups the commands that control scan jobs on a running server.
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage scan jobs on a running server",
	Long: `Start, list, inspect and cancel scan jobs through the API of a running
netinventory server. The server address comes from the api section of the
configuration unless --server is given.`,
}

var jobsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a scan job on the server",
	Example: `  netinventory jobs start --subnet 192.168.1.0/24
  netinventory jobs start --intensity full --wait`,
	Args: cobra.NoArgs,
	RunE: runJobsStart,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scan jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a scan job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsResultCmd = &cobra.Command{
	Use:   "result <job-id>",
	Short: "Show the devices found by a scan job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsResult,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running scan job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

var jobsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Force-fail stale scan jobs and records",
	Args:  cobra.NoArgs,
	RunE:  runJobsCleanup,
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the stored network map",
	Args:  cobra.NoArgs,
	RunE:  runNetwork,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsStartCmd, jobsListCmd, jobsStatusCmd, jobsResultCmd, jobsCancelCmd, jobsCleanupCmd, networkCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsServer, "server", "", "Server address, e.g. 10.0.0.5:8080 (default from config)")
	jobsListCmd.Flags().StringVar(&jobsState, "state", services.StateAll, "Jobs to list: active, completed or all")

	f := jobsStartCmd.Flags()
	f.StringVar(&scanFlags.intensity, "intensity", "basic", "Scan intensity: basic, intense or full")
	f.StringVar(&scanFlags.subnet, "subnet", "", "Subnet to scan in CIDR notation")
	f.StringVar(&scanFlags.ipRange, "range", "", "Address range to scan")
	f.BoolVar(&scanFlags.noPorts, "no-ports", false, "Skip port, service and OS detection")
	f.BoolVar(&scanFlags.osDetect, "os", false, "Enable OS detection regardless of intensity")
	f.BoolVar(&scanFlags.services, "services", false, "Enable service detection regardless of intensity")
	f.IntVar(&scanFlags.maxDevices, "max-devices", 0, "Maximum devices to deep scan (0 = server default)")
	f.DurationVar(&scanFlags.timeout, "timeout", 0, "Overall job timeout (0 = server default)")
	f.BoolVar(&jobsWait, "wait", false, "Wait for the job to finish and print its devices")
	jobsStartCmd.MarkFlagsMutuallyExclusive("subnet", "range")
}

func newJobsClient() (*APIClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return NewAPIClient(cfg, jobsServer), nil
}

// scanRequest converts the shared scan flags into an API request body.
func (f scanFlagValues) scanRequest() handlers.ScanRequest {
	includePorts := !f.noPorts
	return handlers.ScanRequest{
		Intensity:               f.intensity,
		IPRange:                 f.ipRange,
		Subnet:                  f.subnet,
		IncludePorts:            &includePorts,
		IncludeOSDetection:      f.osDetect,
		IncludeServiceDetection: f.services,
		MaxDevices:              f.maxDevices,
		TimeoutSeconds:          int(f.timeout / time.Second),
	}
}

func runJobsStart(cmd *cobra.Command, _ []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var started handlers.StartScanResponse
	if err := client.Post(ctx, "/scans", scanFlags.scanRequest(), &started); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Started scan job %s\n", started.JobID)
	if !jobsWait {
		return nil
	}

	final, err := pollRemoteJob(ctx, client, started.JobID, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	printScanSummary(out, final)
	return printRemoteResult(ctx, client, started.JobID, out)
}

// pollRemoteJob polls the job until it reaches a terminal state.
func pollRemoteJob(ctx context.Context, client *APIClient, id string, progressOut io.Writer) (scanning.JobSnapshot, error) {
	ticker := time.NewTicker(scanPollInterval)
	defer ticker.Stop()
	for {
		var snap scanning.JobSnapshot
		if err := client.Get(ctx, "/scans/"+id, &snap); err != nil {
			return snap, err
		}
		if snap.Status.IsTerminal() {
			fmt.Fprintf(progressOut, "\r%s\n", progressLine(snap))
			return snap, nil
		}
		fmt.Fprintf(progressOut, "\r%s", progressLine(snap))

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	var list handlers.JobListResponse
	if err := client.Get(cmd.Context(), "/scans?state="+jobsState, &list); err != nil {
		return err
	}
	printJobs(cmd.OutOrStdout(), list.Jobs)
	return nil
}

func printJobs(w io.Writer, jobs []scanning.JobSnapshot) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No scan jobs.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Status", "Progress", "Intensity", "Devices", "Started", "Elapsed")
	for i := range jobs {
		job := &jobs[i]
		started := "-"
		if job.StartTime != nil {
			started = job.StartTime.Local().Format(timeLayout)
		}
		_ = table.Append([]string{
			job.ID,
			job.Status.String(),
			fmt.Sprintf("%d%%", job.Progress),
			job.Options.Intensity.String(),
			fmt.Sprint(job.DeviceCount),
			started,
			fmt.Sprintf("%.0fs", job.ElapsedSeconds),
		})
	}
	_ = table.Render()
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	var snap scanning.JobSnapshot
	if err := client.Get(cmd.Context(), "/scans/"+args[0], &snap); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printJobs(out, []scanning.JobSnapshot{snap})
	if snap.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", snap.Warning)
	}
	if snap.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", snap.ErrorMessage)
	}
	return nil
}

func runJobsResult(cmd *cobra.Command, args []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	return printRemoteResult(cmd.Context(), client, args[0], cmd.OutOrStdout())
}

func printRemoteResult(ctx context.Context, client *APIClient, id string, out io.Writer) error {
	var res handlers.JobResultResponse
	if err := client.Get(ctx, "/scans/"+id+"/result", &res); err != nil {
		return err
	}
	if res.Result == nil {
		fmt.Fprintf(out, "Job %s has no result yet (status %s).\n", id, res.Status)
		return nil
	}
	printDevices(out, res.Result)
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	if err := client.Delete(cmd.Context(), "/scans/"+args[0], nil); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", args[0])
	return nil
}

func runJobsCleanup(cmd *cobra.Command, _ []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	var report services.StatusReport
	if err := client.Post(cmd.Context(), "/scans/cleanup", nil, &report); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"Cleaned %d stale jobs and %d stale records; %d jobs and %d records still active\n",
		report.CleanedJobs, report.CleanedRecords, report.ActiveJobs, report.ActiveRecords)
	return nil
}

func runNetwork(cmd *cobra.Command, _ []string) error {
	client, err := newJobsClient()
	if err != nil {
		return err
	}
	var network db.NetworkMap
	if err := client.Get(cmd.Context(), "/network", &network); err != nil {
		return err
	}
	printNetwork(cmd.OutOrStdout(), &network)
	return nil
}

func printNetwork(w io.Writer, network *db.NetworkMap) {
	fmt.Fprintf(w, "Devices: %d  Connections: %d\n", len(network.Devices), len(network.Connections))
	if len(network.Devices) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("IP", "MAC", "Hostname", "Type", "Status", "Last Seen")
	for _, d := range network.Devices {
		mac, hostname := "", ""
		if d.MACAddress != nil {
			mac = d.MACAddress.String()
		}
		if d.Hostname != nil {
			hostname = *d.Hostname
		}
		_ = table.Append([]string{
			d.IPAddress.String(),
			orDash(mac),
			orDash(hostname),
			d.DeviceType,
			d.Status,
			d.LastSeen.Local().Format(timeLayout),
		})
	}
	_ = table.Render()
}
