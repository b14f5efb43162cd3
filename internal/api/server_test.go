package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netinventory/internal/config"
	"github.com/anstrom/netinventory/internal/db"
	"github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
	"github.com/anstrom/netinventory/internal/progress"
	"github.com/anstrom/netinventory/internal/scanning"
	"github.com/anstrom/netinventory/internal/services"
)

// stubService answers every call with a fixed value.
type stubService struct {
	jobs []scanning.JobSnapshot
}

func (s *stubService) StartScan(context.Context, scanning.ScanOptions) (*services.StartedScan, error) {
	return &services.StartedScan{Job: scanning.JobSnapshot{ID: "job-1", Status: scanning.StatusRunning}}, nil
}

func (s *stubService) CancelScan(jobID string) error { return errors.ErrJobNotFound(jobID) }

func (s *stubService) JobStatus(jobID string) (scanning.JobSnapshot, error) {
	for _, j := range s.jobs {
		if j.ID == jobID {
			return j, nil
		}
	}
	return scanning.JobSnapshot{}, errors.ErrJobNotFound(jobID)
}

func (s *stubService) JobResult(string) (*scanning.ScanResult, error) { return nil, nil }

func (s *stubService) ListJobs(string) ([]scanning.JobSnapshot, error) { return s.jobs, nil }

func (s *stubService) CheckStatus(context.Context) (*services.StatusReport, error) {
	return &services.StatusReport{}, nil
}

func (s *stubService) NetworkMap(context.Context) (*db.NetworkMap, error) {
	return &db.NetworkMap{Devices: []*db.DeviceRecord{}, Connections: []*db.ConnectionRecord{}}, nil
}

func testAPIConfig() config.APIConfig {
	cfg := config.Default().API
	cfg.Port = 0
	return cfg
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	if deps.Service == nil {
		deps.Service = &stubService{jobs: []scanning.JobSnapshot{{ID: "job-1", Status: scanning.StatusRunning}}}
	}
	srv, err := New(testAPIConfig(), deps, logging.NewDiscard())
	require.NoError(t, err)
	return srv
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(testAPIConfig(), Dependencies{}, nil)
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	handler := srv.Handler()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/v1/liveness", "", http.StatusOK},
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/scans", "", http.StatusOK},
		{http.MethodPost, "/api/v1/scans", "{}", http.StatusAccepted},
		{http.MethodGet, "/api/v1/scans/job-1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/scans/job-9", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/scans/job-1/result", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/scans/job-9", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/scans/cleanup", "", http.StatusOK},
		{http.MethodGet, "/api/v1/network", "", http.StatusOK},
		{http.MethodGet, "/api/v1/metrics", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPut, "/api/v1/scans", "{}", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_MiddlewareApplied(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/liveness", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_RejectsNonJSONBody(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scans", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RecordsRequestMetrics(t *testing.T) {
	pm := metrics.NewPrometheusMetrics()
	srv := newTestServer(t, Dependencies{Metrics: pm, Gatherer: pm.GetRegistry()})

	for i := 0; i < 3; i++ {
		srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/scans/job-1", nil))
	}

	count, err := testutil.GatherAndCount(pm.GetRegistry(), "netinventory_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one series for the route template")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `path="/api/v1/scans/{id}"`)
}

func TestServer_ProgressWebsocket(t *testing.T) {
	hub := progress.NewHub(logging.NewDiscard())
	t.Cleanup(func() { _ = hub.Close() })
	srv := newTestServer(t, Dependencies{Progress: hub})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), progress.Event{JobID: "job-1", Status: "RUNNING", Progress: 50}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string         `json:"type"`
		Data progress.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, progress.MessageTypeScanProgress, msg.Type)
	assert.Equal(t, 50, msg.Data.Progress)
}

func TestServer_StartStop(t *testing.T) {
	srv := newTestServer(t, Dependencies{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
