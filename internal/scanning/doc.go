// Package scanning provides the scan job engine for netinventory.
//
// The engine turns a ScanOptions value into a background job that finds live
// hosts on local subnets, enriches them with names, ports and OS data, and
// links every device to the default gateway. Each job is tracked through a
// small state machine and can be polled, cancelled or swept when it gets stuck.
//
// # Overview
//
// A job moves through these states:
//
//	READY -> RUNNING -> COMPLETED | FAILED | CANCELLED | TIMED_OUT
//
// Exactly one terminal transition is accepted; later Mark* calls return false.
// While running, progress is clamped to 0..99 and only completion sets 100.
//
// # Phases
//
// A job runs its phases strictly in order:
//
//  1. Target selection: explicit range, else subnet, else local interfaces.
//  2. Discovery: address-resolution sweep per subnet, falling back to a ping
//     sweep when nothing answers.
//  3. Hostnames: reverse lookups through the shared worker pool.
//  4. Deep scan: nmap in fixed-size batches, when ports are requested.
//  5. Topology: the default gateway becomes a router and every other device
//     gets a connection to it with measured latency.
//  6. Labels and finalization.
//
// Checkpoints are stored on the job as partial results under stable keys
// (subnets, arp_scan_<subnet>, ping_scan_<subnet>, devices_before_port_scan,
// nmap_batch_<n>) so a failed or cancelled job can still be inspected.
//
// # Cancellation and timeouts
//
// Every job runs under a context created with context.WithCancelCause and
// wrapped in context.WithTimeoutCause. The cause decides the outcome:
// ErrJobTimeout fails the job with a timeout message, ErrJobCancelled
// cancels it, and ErrJobStale is used by CleanupStale. Loops check the
// context between units of work, and the same context is handed to every
// probe so in-flight nmap and pcap calls stop with it.
//
// # Usage
//
//	engine := scanning.NewEngine(scanning.DefaultEngineConfig(), deps, logger)
//
//	opts := scanning.DefaultScanOptions()
//	opts.Subnet = "192.168.1.0/24"
//
//	snap, err := engine.Start(ctx, opts)
//	if err != nil {
//		return err
//	}
//	_ = engine.Wait(ctx, snap.ID)
//	final, _ := engine.Status(snap.ID)
package scanning
