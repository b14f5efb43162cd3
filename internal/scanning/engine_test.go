package scanning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/netinventory/internal/discovery"
	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
	metricsmocks "github.com/anstrom/netinventory/internal/metrics/mocks"
	"github.com/anstrom/netinventory/internal/scanning/mocks"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, cfg EngineConfig, deps Dependencies) *Engine {
	t.Helper()
	e := NewEngine(cfg, deps, logging.NewDiscard())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

func waitForJob(t *testing.T, e *Engine, id string) JobSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx, id))
	snap, ok := e.Status(id)
	require.True(t, ok)
	return snap
}

func availableProbe(ctrl *gomock.Controller, name string) *mocks.MockDiscoveryProbe {
	p := mocks.NewMockDiscoveryProbe(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	p.EXPECT().Available().Return(nil).AnyTimes()
	return p
}

func subnetOptions(subnet string, ports bool) ScanOptions {
	opts := DefaultScanOptions()
	opts.Subnet = subnet
	opts.IncludePorts = ports
	return opts
}

func responders(prefix string, from, to int) []discovery.Responder {
	out := make([]discovery.Responder, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, discovery.Responder{
			Address:     fmt.Sprintf("%s.%d", prefix, i),
			LinkAddress: fmt.Sprintf("02:00:00:00:00:%02x", i),
		})
	}
	return out
}

func TestEngine_NoSubnetsFailsJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	targets := mocks.NewMockTargetResolver(ctrl)
	targets.EXPECT().LocalSubnets(gomock.Any()).Return(nil, nil)
	arp := mocks.NewMockDiscoveryProbe(ctrl)

	e := newTestEngine(t, EngineConfig{}, Dependencies{Targets: targets, ARP: arp})

	snap, err := e.Start(context.Background(), DefaultScanOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, snap.Status)

	final := waitForJob(t, e, snap.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "Scan failed: [CONFIGURATION] no valid subnets found to scan", final.ErrorMessage)
	require.NotNil(t, final.EndTime)

	result, ok := e.Result(snap.ID)
	require.True(t, ok)
	assert.Equal(t, "[CONFIGURATION] no valid subnets found to scan", result.Error)
	assert.Empty(t, result.Devices)
}

func TestEngine_AutoDetectedSubnets(t *testing.T) {
	ctrl := gomock.NewController(t)
	targets := mocks.NewMockTargetResolver(ctrl)
	targets.EXPECT().LocalSubnets(gomock.Any()).Return([]string{"10.1.0.0/24", "10.2.0.0/24"}, nil)

	arp := availableProbe(ctrl, discovery.MethodARP)
	gomock.InOrder(
		arp.EXPECT().Sweep(gomock.Any(), "10.1.0.0/24").Return(responders("10.1.0", 5, 6), nil),
		arp.EXPECT().Sweep(gomock.Any(), "10.2.0.0/24").Return(responders("10.2.0", 7, 7), nil),
	)

	e := newTestEngine(t, EngineConfig{}, Dependencies{Targets: targets, ARP: arp})
	snap, err := e.Start(context.Background(), ScanOptions{IncludePorts: false})
	require.NoError(t, err)
	assert.Equal(t, defaultJobTimeout, snap.Options.Timeout)
	assert.Equal(t, defaultMaxDevices, snap.Options.MaxDevices)

	final := waitForJob(t, e, snap.ID)
	require.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 3, final.DeviceCount)

	job, ok := e.Job(snap.ID)
	require.True(t, ok)
	subnets, ok := job.PartialResult("subnets")
	require.True(t, ok)
	assert.Equal(t, []string{"10.1.0.0/24", "10.2.0.0/24"}, subnets)

	result, _ := e.Result(snap.ID)
	assert.Equal(t, "device-1", result.Devices["10.1.0.5"].ID)
	assert.Equal(t, "device-3", result.Devices["10.2.0.7"].ID)
}

func TestEngine_EndToEndSmallSubnet(t *testing.T) {
	tests := []struct {
		name        string
		gateway     string
		gatewayErr  error
		connections int
	}{
		{name: "gateway among devices", gateway: "192.168.50.1", connections: 1},
		{name: "gateway elsewhere", gateway: "192.168.1.1", connections: 0},
		{name: "no default route", gateway: "", connections: 0},
		{name: "route table unreadable", gatewayErr: errors.New("permission denied"), connections: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			arp := availableProbe(ctrl, discovery.MethodARP)
			arp.EXPECT().Sweep(gomock.Any(), "192.168.50.0/30").Return(responders("192.168.50", 1, 2), nil)

			names := mocks.NewMockHostnameResolver(ctrl)
			names.EXPECT().LookupHostname(gomock.Any(), gomock.Any()).Return("", nil).Times(2)

			gateway := mocks.NewMockGatewayResolver(ctrl)
			gateway.EXPECT().DefaultGateway(gomock.Any()).Return(tt.gateway, tt.gatewayErr)

			latency := mocks.NewMockLatencyProber(ctrl)
			latency.EXPECT().Latency(gomock.Any(), tt.gateway).Return(0.8, nil).Times(tt.connections)

			e := newTestEngine(t, EngineConfig{}, Dependencies{
				ARP:         arp,
				Ping:        mocks.NewMockDiscoveryProbe(ctrl),
				Hostnames:   names,
				DeepScanner: mocks.NewMockDeepScanner(ctrl),
				Gateway:     gateway,
				Latency:     latency,
			})

			snap, err := e.Start(context.Background(), subnetOptions("192.168.50.0/30", false))
			require.NoError(t, err)

			final := waitForJob(t, e, snap.ID)
			require.Equal(t, StatusCompleted, final.Status, final.ErrorMessage)
			assert.Equal(t, 100, final.Progress)
			assert.Equal(t, 2, final.DeviceCount)
			assert.Equal(t, tt.connections, final.ConnectionCount)
			assert.Empty(t, final.Warning)

			job, _ := e.Job(snap.ID)
			assert.Equal(t,
				[]string{"arp_scan_192.168.50.0/30", "devices_before_port_scan", "subnets"},
				job.PartialKeys())

			assert.Empty(t, e.ListActive())
			completed := e.ListCompleted()
			require.Len(t, completed, 1)
			assert.Equal(t, snap.ID, completed[0].ID)
		})
	}
}

func TestEngine_TopologyLinksDevicesToGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), "10.0.0.0/29").Return([]discovery.Responder{
		{Address: "10.0.0.1", LinkAddress: "aa:aa:aa:aa:aa:aa"},
		{Address: "10.0.0.2", LinkAddress: "bb:bb:bb:bb:bb:bb"},
	}, nil)

	names := mocks.NewMockHostnameResolver(ctrl)
	names.EXPECT().LookupHostname(gomock.Any(), "10.0.0.1").Return("10.0.0.1", nil)
	names.EXPECT().LookupHostname(gomock.Any(), "10.0.0.2").Return("laptop.lan", nil)

	gateway := mocks.NewMockGatewayResolver(ctrl)
	gateway.EXPECT().DefaultGateway(gomock.Any()).Return("10.0.0.1", nil)

	latency := mocks.NewMockLatencyProber(ctrl)
	latency.EXPECT().Latency(gomock.Any(), "10.0.0.1").Return(2.5, nil)

	e := newTestEngine(t, EngineConfig{}, Dependencies{
		ARP:       arp,
		Hostnames: names,
		Gateway:   gateway,
		Latency:   latency,
	})
	snap, err := e.Start(context.Background(), subnetOptions("10.0.0.0/29", false))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, waitForJob(t, e, snap.ID).Status)

	result, ok := e.Result(snap.ID)
	require.True(t, ok)

	gw := result.Devices["10.0.0.1"]
	require.NotNil(t, gw)
	assert.Equal(t, DeviceRouter, gw.Type)
	assert.Equal(t, "Main Gateway", gw.Hostname)
	assert.Equal(t, "Main Gateway", gw.Label)
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", gw.MAC)

	laptop := result.Devices["10.0.0.2"]
	require.NotNil(t, laptop)
	assert.Equal(t, "laptop.lan", laptop.Label)
	assert.Equal(t, DeviceOther, laptop.Type)

	require.Len(t, result.Connections, 1)
	conn := result.Connections[0]
	assert.Equal(t, "conn-1", conn.ID)
	assert.Equal(t, laptop.ID, conn.Source)
	assert.Equal(t, gw.ID, conn.Target)
	assert.Equal(t, ConnectionActive, conn.Status)
	assert.Equal(t, ConnectionWired, conn.Type)
	require.NotNil(t, conn.Latency)
	assert.InDelta(t, 2.5, *conn.Latency, 1e-9)
	assert.Equal(t, 1, result.ConnectionCount)
}

func TestEngine_CancelBetweenDeepScanBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), "10.20.0.0/26").Return(responders("10.20.0", 1, 50), nil)

	var (
		e         *Engine
		calls     atomic.Int32
		cancelled atomic.Bool
	)
	scanner := mocks.NewMockDeepScanner(ctrl)
	scanner.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, targets []string, profile discovery.Profile) ([]discovery.HostReport, error) {
			assert.Len(t, targets, 10)
			assert.True(t, profile.OSDetection)
			if calls.Add(1) == 2 {
				active := e.ListActive()
				if assert.Len(t, active, 1) {
					cancelled.Store(e.Cancel(active[0].ID))
				}
			}
			reports := make([]discovery.HostReport, 0, len(targets))
			for _, ip := range targets {
				reports = append(reports, discovery.HostReport{
					Address:    ip,
					Status:     "online",
					OSName:     "Linux 6.1",
					OSAccuracy: 96,
					Ports:      []discovery.PortInfo{{Port: 22, Protocol: "tcp", State: "open", Service: "ssh"}},
				})
			}
			return reports, nil
		}).Times(2)

	e = newTestEngine(t, EngineConfig{BatchSize: 10}, Dependencies{ARP: arp, DeepScanner: scanner})

	opts := subnetOptions("10.20.0.0/26", true)
	opts.Intensity = IntensityIntense
	snap, err := e.Start(context.Background(), opts)
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	assert.True(t, cancelled.Load())
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, StatusCancelled, final.Status)
	assert.Equal(t, 54, final.Progress)
	assert.Equal(t, 50, final.DeviceCount)

	job, _ := e.Job(snap.ID)
	keys := job.PartialKeys()
	assert.Contains(t, keys, "nmap_batch_0")
	assert.Contains(t, keys, "nmap_batch_1")
	assert.NotContains(t, keys, "nmap_batch_2")

	batch, ok := job.PartialResult("nmap_batch_1")
	require.True(t, ok)
	assert.Len(t, batch, 10)

	result, _ := e.Result(snap.ID)
	scanned := result.Devices["10.20.0.15"]
	assert.Equal(t, DeviceServer, scanned.Type)
	assert.Equal(t, "Linux 6.1", scanned.Metadata[MetaOS])
	assert.Equal(t, 96, scanned.Metadata[MetaOSAccuracy])
	assert.NotContains(t, result.Devices["10.20.0.35"].Metadata, MetaOS)

	assert.False(t, e.Cancel(snap.ID), "a finished job cannot be cancelled")
}

func TestEngine_DeepScanMergesReports(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).Return([]discovery.Responder{
		{Address: "172.16.0.10"}, {Address: "172.16.0.11"}, {Address: "172.16.0.12"},
	}, nil)

	scanner := mocks.NewMockDeepScanner(ctrl)
	gomock.InOrder(
		scanner.EXPECT().Scan(gomock.Any(), []string{"172.16.0.10", "172.16.0.11"}, discovery.Profile{TopPorts: 20, ServiceDetection: true}).
			Return([]discovery.HostReport{
				{
					Address: "172.16.0.10", Status: "online", Hostname: "web01", LinkAddress: "02:42:ac:10:00:0a", Vendor: "Dell",
					Ports: []discovery.PortInfo{{Port: 22}, {Port: 443}},
				},
				{Address: "172.16.0.11", Status: "offline", OSName: "Android 14", OSAccuracy: 90},
				{Address: "172.16.0.99", Status: "online", OSName: "Windows"},
			}, nil),
		scanner.EXPECT().Scan(gomock.Any(), []string{"172.16.0.12"}, gomock.Any()).
			Return(nil, errors.New("nmap exited with status 1")),
	)

	e := newTestEngine(t, EngineConfig{BatchSize: 2}, Dependencies{ARP: arp, DeepScanner: scanner})
	opts := subnetOptions("172.16.0.0/24", true)
	opts.IncludeServiceDetection = true
	snap, err := e.Start(context.Background(), opts)
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	require.Equal(t, StatusCompleted, final.Status, "a failed batch must not fail the job")
	assert.Equal(t, 3, final.DeviceCount)

	result, _ := e.Result(snap.ID)
	assert.NotContains(t, result.Devices, "172.16.0.99")

	web := result.Devices["172.16.0.10"]
	assert.Equal(t, DeviceServer, web.Type)
	assert.Equal(t, "web01", web.Label)
	assert.Equal(t, "02:42:ac:10:00:0a", web.MAC)
	assert.Equal(t, "Dell", web.Metadata[MetaVendor])
	assert.Len(t, web.Metadata[MetaPorts], 2)

	phone := result.Devices["172.16.0.11"]
	assert.Equal(t, DeviceMobile, phone.Type)
	assert.Equal(t, DeviceOffline, phone.Status)
	assert.Equal(t, "Mobile-11", phone.Label)

	other := result.Devices["172.16.0.12"]
	assert.Equal(t, DeviceOther, other.Type)
	assert.Equal(t, "Other-12", other.Label)

	job, _ := e.Job(snap.ID)
	failed, ok := job.PartialResult("nmap_batch_1")
	require.True(t, ok)
	assert.Empty(t, failed)
}

func TestEngine_PingFallback(t *testing.T) {
	tests := []struct {
		name  string
		setup func(arp *mocks.MockDiscoveryProbe)
	}{
		{
			name: "address resolution unavailable",
			setup: func(arp *mocks.MockDiscoveryProbe) {
				arp.EXPECT().Available().Return(inverrors.ErrProbeUnavailable(discovery.MethodARP, errors.New("operation not permitted")))
			},
		},
		{
			name: "address resolution found nothing",
			setup: func(arp *mocks.MockDiscoveryProbe) {
				arp.EXPECT().Available().Return(nil)
				arp.EXPECT().Sweep(gomock.Any(), "10.9.0.0/24").Return(nil, nil)
			},
		},
		{
			name: "address resolution sweep failed",
			setup: func(arp *mocks.MockDiscoveryProbe) {
				arp.EXPECT().Available().Return(nil)
				arp.EXPECT().Sweep(gomock.Any(), "10.9.0.0/24").Return(nil, errors.New("pcap: read error"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			arp := mocks.NewMockDiscoveryProbe(ctrl)
			arp.EXPECT().Name().Return(discovery.MethodARP).AnyTimes()
			tt.setup(arp)

			ping := availableProbe(ctrl, discovery.MethodPing)
			ping.EXPECT().Sweep(gomock.Any(), "10.9.0.0/24").Return([]discovery.Responder{
				{Address: "10.9.0.4"}, {Address: "10.9.0.4"}, {Address: "10.9.0.8"},
			}, nil)

			e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp, Ping: ping})
			snap, err := e.Start(context.Background(), subnetOptions("10.9.0.0/24", false))
			require.NoError(t, err)

			final := waitForJob(t, e, snap.ID)
			require.Equal(t, StatusCompleted, final.Status)
			assert.Equal(t, 2, final.DeviceCount)

			job, _ := e.Job(snap.ID)
			_, ok := job.PartialResult("ping_scan_10.9.0.0/24")
			assert.True(t, ok)
		})
	}
}

func TestEngine_WideSubnetsArePingSwept(t *testing.T) {
	ctrl := gomock.NewController(t)
	targets := mocks.NewMockTargetResolver(ctrl)
	targets.EXPECT().LocalSubnets(gomock.Any()).Return([]string{"10.0.0.0/8", "192.168.5.0/24"}, nil)

	tooWide := inverrors.ErrDiscoveryFailed("10.0.0.0/8", discovery.MethodARP,
		fmt.Errorf("%w: 10.0.0.0/8 (max /16)", discovery.ErrSubnetTooLarge))
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), "10.0.0.0/8").Return(nil, tooWide)
	arp.EXPECT().Sweep(gomock.Any(), "192.168.5.0/24").Return(responders("192.168.5", 2, 3), nil)

	ping := availableProbe(ctrl, discovery.MethodPing)
	ping.EXPECT().Sweep(gomock.Any(), "10.0.0.0/8").Return(responders("10.1.2", 9, 9), nil)

	e := newTestEngine(t, EngineConfig{}, Dependencies{Targets: targets, ARP: arp, Ping: ping})
	snap, err := e.Start(context.Background(), ScanOptions{})
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	require.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 3, final.DeviceCount)

	job, _ := e.Job(snap.ID)
	_, ok := job.PartialResult("ping_scan_10.0.0.0/8")
	assert.True(t, ok)
	_, ok = job.PartialResult("ping_scan_192.168.5.0/24")
	assert.False(t, ok, "subnets ARP covered are not ping swept again")
}

func TestEngine_FatalDiscoveryErrorStopsSubnetLoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	targets := mocks.NewMockTargetResolver(ctrl)
	targets.EXPECT().LocalSubnets(gomock.Any()).Return([]string{"10.3.0.0/24", "10.4.0.0/24"}, nil)

	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), "10.3.0.0/24").
		Return(nil, inverrors.ErrProbeUnavailable(discovery.MethodARP, errors.New("operation not permitted")))

	ping := availableProbe(ctrl, discovery.MethodPing)
	ping.EXPECT().Sweep(gomock.Any(), "10.3.0.0/24").Return(responders("10.3.0", 1, 1), nil)
	ping.EXPECT().Sweep(gomock.Any(), "10.4.0.0/24").Return(nil, nil)

	e := newTestEngine(t, EngineConfig{}, Dependencies{Targets: targets, ARP: arp, Ping: ping})
	snap, err := e.Start(context.Background(), ScanOptions{})
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	require.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 1, final.DeviceCount)
}

func TestEngine_NoDevicesIsAWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).Return(nil, nil)
	ping := availableProbe(ctrl, discovery.MethodPing)
	ping.EXPECT().Sweep(gomock.Any(), gomock.Any()).Return(nil, nil)

	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp, Ping: ping, DeepScanner: mocks.NewMockDeepScanner(ctrl)})
	snap, err := e.Start(context.Background(), subnetOptions("10.3.0.0/24", true))
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 0, final.DeviceCount)
	assert.Equal(t, noDevicesWarning, final.Warning)
	assert.Empty(t, final.ErrorMessage)
}

func TestEngine_DeviceCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).Return(responders("10.4.0", 1, 5), nil)

	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp})
	opts := subnetOptions("10.4.0.0/24", false)
	opts.MaxDevices = 3
	snap, err := e.Start(context.Background(), opts)
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	assert.Equal(t, 3, final.DeviceCount)
	result, _ := e.Result(snap.ID)
	assert.NotContains(t, result.Devices, "10.4.0.4")
}

func TestEngine_TimeoutFailsJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) ([]discovery.Responder, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp})
	opts := subnetOptions("10.5.0.0/24", false)
	opts.Timeout = time.Second
	snap, err := e.Start(context.Background(), opts)
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "Scan timed out after 1 seconds", final.ErrorMessage)
}

func TestEngine_PanicFailsJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).Return(responders("10.6.0", 1, 1), nil)
	scanner := mocks.NewMockDeepScanner(ctrl)
	scanner.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []string, discovery.Profile) ([]discovery.HostReport, error) {
			panic("nmap exploded")
		})

	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp, DeepScanner: scanner})
	snap, err := e.Start(context.Background(), subnetOptions("10.6.0.0/24", true))
	require.NoError(t, err)

	final := waitForJob(t, e, snap.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "Scan failed: panic: nmap exploded", final.ErrorMessage)
	assert.Equal(t, 1, final.DeviceCount)

	job, _ := e.Job(snap.ID)
	_, ok := job.PartialResult("devices_before_port_scan")
	assert.True(t, ok)
}

func TestEngine_CleanupStale(t *testing.T) {
	ctrl := gomock.NewController(t)
	entered := make(chan struct{})
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) ([]discovery.Responder, error) {
			close(entered)
			<-ctx.Done()
			return nil, context.Cause(ctx)
		})

	clock := &fakeClock{now: t0}
	e := newTestEngine(t, EngineConfig{StaleThreshold: 1800 * time.Second}, Dependencies{ARP: arp, Now: clock.Now})

	snap, err := e.Start(context.Background(), subnetOptions("10.7.0.0/24", false))
	require.NoError(t, err)
	<-entered

	assert.Equal(t, 0, e.CleanupStale(0))

	clock.Advance(3601 * time.Second)
	assert.Equal(t, 0, e.CleanupStale(7200*time.Second))
	assert.Equal(t, 1, e.CleanupStale(0))
	assert.Equal(t, 0, e.CleanupStale(0), "a cleaned job is not cleaned twice")

	status, ok := e.Status(snap.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, staleMessage, status.ErrorMessage)
	assert.InDelta(t, 3601.0, status.ElapsedSeconds, 1e-9)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))

	status, _ = e.Status(snap.ID)
	assert.Equal(t, StatusFailed, status.Status, "the run must not overwrite the forced failure")
	assert.Equal(t, staleMessage, status.ErrorMessage)
	assert.Empty(t, e.ListActive())
	assert.Len(t, e.ListCompleted(), 1)
}

func TestEngine_ForcedFailureRacesCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string) ([]discovery.Responder, error) {
			close(entered)
			<-release
			return responders("10.7.1", 1, 1), nil
		})

	rec := metricsmocks.NewMockRecorder(ctrl)
	rec.EXPECT().JobStarted("basic")
	rec.EXPECT().JobFinished("basic", StatusFailed.String(), gomock.Any()).Times(1)
	rec.EXPECT().HostsDiscovered(gomock.Any(), gomock.Any()).AnyTimes()
	rec.EXPECT().StaleJobsCleaned(gomock.Any()).Times(0)

	clock := &fakeClock{now: t0}
	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp, Metrics: rec, Now: clock.Now})
	snap, err := e.Start(context.Background(), subnetOptions("10.7.1.0/24", false))
	require.NoError(t, err)
	<-entered

	// The sweep's forced failure lands before the run reaches its terminal switch.
	job, ok := e.Job(snap.ID)
	require.True(t, ok)
	clock.Advance(time.Hour)
	require.True(t, job.MarkFailed(staleMessage, clock.Now()))

	close(release)
	final := waitForJob(t, e, snap.ID)
	assert.Equal(t, StatusFailed, final.Status, "completion must not overwrite the forced failure")
	assert.Equal(t, staleMessage, final.ErrorMessage)

	// The sweep's own move now finds the job gone and records nothing.
	_, moved := e.registry.moveToCompleted(snap.ID)
	assert.False(t, moved)
	assert.Equal(t, 0, e.CleanupStale(time.Nanosecond))
	assert.Len(t, e.ListCompleted(), 1)
}

func TestEngine_CleanupStaleRecordsOneTerminalMetric(t *testing.T) {
	ctrl := gomock.NewController(t)
	entered := make(chan struct{})
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) ([]discovery.Responder, error) {
			close(entered)
			<-ctx.Done()
			return nil, context.Cause(ctx)
		})

	rec := metricsmocks.NewMockRecorder(ctrl)
	rec.EXPECT().JobStarted("basic")
	rec.EXPECT().JobFinished("basic", StatusFailed.String(), gomock.Any()).Times(1)
	rec.EXPECT().StaleJobsCleaned(1)
	rec.EXPECT().ProbeError(gomock.Any()).AnyTimes()

	clock := &fakeClock{now: t0}
	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp, Metrics: rec, Now: clock.Now})
	snap, err := e.Start(context.Background(), subnetOptions("10.7.2.0/24", false))
	require.NoError(t, err)
	<-entered

	clock.Advance(time.Hour)
	require.Equal(t, 1, e.CleanupStale(0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))

	final, _ := e.Status(snap.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.True(t, inverrors.IsCode(ErrJobStale, inverrors.CodeStale))
}

func TestEngine_ShutdownCancelsRunningJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	entered := make(chan struct{})
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) ([]discovery.Responder, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp})
	snap, err := e.Start(context.Background(), subnetOptions("10.8.0.0/24", false))
	require.NoError(t, err)
	<-entered
	assert.Equal(t, 1, e.ActiveCount())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))

	status, _ := e.Status(snap.ID)
	assert.Equal(t, StatusCancelled, status.Status)
	assert.Equal(t, 0, e.ActiveCount())
}

func TestEngine_StartRejectsInvalidOptions(t *testing.T) {
	e := newTestEngine(t, EngineConfig{}, Dependencies{})

	_, err := e.Start(context.Background(), subnetOptions("999.1.1.0/24", false))
	require.Error(t, err)
	assert.True(t, inverrors.IsCode(err, inverrors.CodeValidation))
	assert.Empty(t, e.ListActive())
	assert.Empty(t, e.ListCompleted())
}

func TestEngine_UnknownJobs(t *testing.T) {
	e := newTestEngine(t, EngineConfig{}, Dependencies{})

	assert.False(t, e.Cancel("missing"))
	_, ok := e.Status("missing")
	assert.False(t, ok)
	_, ok = e.Result("missing")
	assert.False(t, ok)

	err := e.Wait(context.Background(), "missing")
	assert.True(t, inverrors.IsCode(err, inverrors.CodeNotFound))
}

func TestEngine_RecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	arp := availableProbe(ctrl, discovery.MethodARP)
	arp.EXPECT().Sweep(gomock.Any(), gomock.Any()).Return(responders("10.10.0", 1, 2), nil)

	pm := metrics.NewPrometheusMetrics()
	e := newTestEngine(t, EngineConfig{}, Dependencies{ARP: arp, Metrics: pm})
	snap, err := e.Start(context.Background(), subnetOptions("10.10.0.0/24", false))
	require.NoError(t, err)
	waitForJob(t, e, snap.ID)

	count, err := testutil.GatherAndCount(pm.GetRegistry(), "netinventory_job_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(EngineConfig{}, Dependencies{}, nil)
	cfg := e.Config()
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.StaleThreshold)
	assert.Equal(t, 300*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, 100, cfg.MaxDevices)
	assert.NotNil(t, e.deps.Pool)
}
