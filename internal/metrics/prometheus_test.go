package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics_InitializationAndUpdate(t *testing.T) {
	pm := NewPrometheusMetrics()
	if pm.GetRegistry() == nil {
		t.Fatalf("GetRegistry returned nil")
	}

	if got := testutil.ToFloat64(pm.goroutines); got != 0 {
		t.Fatalf("expected no goroutine sample before the first update, got %v", got)
	}

	pm.UpdateSystemMetrics()
	if testutil.ToFloat64(pm.goroutines) == 0 {
		t.Fatalf("expected goroutine gauge to be set")
	}

	before := testutil.ToFloat64(pm.uptime)
	time.Sleep(10 * time.Millisecond)
	pm.UpdateSystemMetrics()
	if after := testutil.ToFloat64(pm.uptime); before >= after {
		t.Fatalf("expected uptime to increase, before=%v after=%v", before, after)
	}
}

func TestPrometheusMetrics_HTTPHandlerServes(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.UpdateSystemMetrics()
	pm.JobStarted("basic")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.HandlerFor(pm.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"netinventory_system_uptime_seconds", "netinventory_job_active 1"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %q in metrics output", name)
		}
	}
}

func TestPrometheusMetrics_JobLifecycle(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.JobStarted("basic")
	pm.JobStarted("full")
	if got := testutil.ToFloat64(pm.activeJobs); got != 2 {
		t.Fatalf("expected 2 active jobs, got %v", got)
	}

	pm.JobFinished("basic", "COMPLETED", 3*time.Second)
	pm.JobFinished("full", "FAILED", time.Minute)
	if got := testutil.ToFloat64(pm.activeJobs); got != 0 {
		t.Errorf("expected no active jobs, got %v", got)
	}
	if got := testutil.ToFloat64(pm.jobsTotal.WithLabelValues("basic", "COMPLETED")); got != 1 {
		t.Errorf("expected one completed basic job, got %v", got)
	}
	if count := testutil.CollectAndCount(pm.jobDuration); count != 2 {
		t.Errorf("expected 2 intensity series, got %d", count)
	}

	pm.BatchCompleted(2 * time.Second)
	if count := testutil.CollectAndCount(pm.batchDuration); count != 1 {
		t.Errorf("expected batch histogram, got %d", count)
	}

	pm.StaleJobsCleaned(3)
	pm.StaleJobsCleaned(0)
	if got := testutil.ToFloat64(pm.staleCleaned); got != 3 {
		t.Errorf("expected 3 stale jobs, got %v", got)
	}
}

func TestPrometheusMetrics_DiscoveryMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.HostsDiscovered("arp", 4)
	pm.HostsDiscovered("arp", 2)
	pm.HostsDiscovered("ping", 1)
	if got := testutil.ToFloat64(pm.hostsDiscovered.WithLabelValues("arp")); got != 6 {
		t.Errorf("expected 6 arp hosts, got %v", got)
	}

	pm.ProbeError("dns")
	pm.ProbeError("nmap")
	if count := testutil.CollectAndCount(pm.probeErrors); count != 2 {
		t.Errorf("expected 2 probe series, got %d", count)
	}
}

func TestPrometheusMetrics_DatabaseAndAPI(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.DatabaseQuery("upsert_device", time.Millisecond, nil)
	pm.DatabaseQuery("upsert_device", time.Millisecond, errors.New("deadlock"))
	if got := testutil.ToFloat64(pm.dbQueries.WithLabelValues("upsert_device", "error")); got != 1 {
		t.Errorf("expected one failed query, got %v", got)
	}

	pm.HTTPRequest("GET", "/api/v1/scans", "200", 5*time.Millisecond)
	pm.HTTPRequest("POST", "/api/v1/scans", "409", time.Millisecond)
	if count := testutil.CollectAndCount(pm.httpRequests); count != 2 {
		t.Errorf("expected 2 request series, got %d", count)
	}
}

func TestPrometheusMetrics_StartPeriodicUpdates(t *testing.T) {
	pm := NewPrometheusMetrics()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		pm.StartPeriodicUpdates(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic updates did not stop")
	}
	if testutil.ToFloat64(pm.goroutines) == 0 {
		t.Error("expected at least one update")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = Noop{}
	r.JobStarted("basic")
	r.JobFinished("basic", "COMPLETED", time.Second)
	r.HostsDiscovered("arp", 1)
	r.ProbeError("arp")
	r.BatchCompleted(time.Second)
	r.StaleJobsCleaned(1)
	r.DatabaseQuery("q", time.Second, nil)
	r.HTTPRequest("GET", "/", "200", time.Second)
}
