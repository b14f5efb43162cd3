// Package handlers provides HTTP request handlers for the netinventory API.
// This file implements the scan job endpoints: start, list, status, result,
// cancel and the stale cleanup, plus the stored network map.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/netinventory/internal/api/middleware"
	"github.com/anstrom/netinventory/internal/db"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/scanning"
	"github.com/anstrom/netinventory/internal/services"
)

// ScanService is the part of services.ScanService the handlers call.
type ScanService interface {
	StartScan(ctx context.Context, opts scanning.ScanOptions) (*services.StartedScan, error)
	CancelScan(jobID string) error
	JobStatus(jobID string) (scanning.JobSnapshot, error)
	JobResult(jobID string) (*scanning.ScanResult, error)
	ListJobs(state string) ([]scanning.JobSnapshot, error)
	CheckStatus(ctx context.Context) (*services.StatusReport, error)
	NetworkMap(ctx context.Context) (*db.NetworkMap, error)
}

var _ ScanService = (*services.ScanService)(nil)

// ScanHandler handles scan-related API endpoints.
type ScanHandler struct {
	service ScanService
	logger  *logging.Logger
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(service ScanService, logger *logging.Logger) *ScanHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScanHandler{
		service: service,
		logger:  logger.WithFields("handler", "scan"),
	}
}

// ScanRequest is the body of POST /scans. Every field is optional.
type ScanRequest struct {
	Intensity               string `json:"intensity,omitempty" validate:"omitempty,oneof=basic intense full"`
	IPRange                 string `json:"ip_range,omitempty" validate:"omitempty,max=255"`
	Subnet                  string `json:"subnet,omitempty" validate:"omitempty,max=64"`
	IncludePorts            *bool  `json:"include_ports,omitempty"`
	IncludeOSDetection      bool   `json:"include_os_detection,omitempty"`
	IncludeServiceDetection bool   `json:"include_service_detection,omitempty"`
	MaxDevices              int    `json:"max_devices,omitempty" validate:"omitempty,min=1,max=65536"`
	TimeoutSeconds          int    `json:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=86400"`
}

// Options converts the request into scan options. Timeout and MaxDevices stay
// zero when the request omits them so the engine applies its configured values.
func (req *ScanRequest) Options() (scanning.ScanOptions, error) {
	opts := scanning.ScanOptions{Intensity: scanning.IntensityBasic, IncludePorts: true}
	if req.Intensity != "" {
		intensity, err := scanning.ParseIntensity(req.Intensity)
		if err != nil {
			return opts, err
		}
		opts.Intensity = intensity
	}
	opts.IPRange = req.IPRange
	opts.Subnet = req.Subnet
	if req.IncludePorts != nil {
		opts.IncludePorts = *req.IncludePorts
	}
	opts.IncludeOSDetection = req.IncludeOSDetection
	opts.IncludeServiceDetection = req.IncludeServiceDetection
	if req.MaxDevices > 0 {
		opts.MaxDevices = req.MaxDevices
	}
	if req.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	return opts, opts.ValidateRequest()
}

// StartScanResponse is returned by POST /scans.
type StartScanResponse struct {
	JobID  string               `json:"job_id"`
	ScanID string               `json:"scan_id,omitempty"`
	Job    scanning.JobSnapshot `json:"job"`
}

// JobListResponse is returned by GET /scans.
type JobListResponse struct {
	State string                 `json:"state"`
	Jobs  []scanning.JobSnapshot `json:"jobs"`
	Total int                    `json:"total"`
}

// JobResultResponse is returned by GET /scans/{id}/result.
type JobResultResponse struct {
	JobID   string               `json:"job_id"`
	Status  scanning.Status      `json:"status"`
	Devices []*scanning.Device   `json:"devices"`
	Result  *scanning.ScanResult `json:"result"`
}

// StartScan handles POST /api/v1/scans.
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := parseJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	opts, err := req.Options()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	started, err := h.service.StartScan(r.Context(), opts)
	if err != nil {
		handleServiceError(w, r, err, "start scan", h.logger)
		return
	}

	h.logger.InfoJob("Scan started via API", started.Job.ID,
		"request_id", middleware.GetRequestID(r),
		"mode", opts.TargetMode())

	response := StartScanResponse{JobID: started.Job.ID, Job: started.Job}
	if started.ScanID != uuid.Nil {
		response.ScanID = started.ScanID.String()
	}
	writeJSON(w, r, http.StatusAccepted, response)
}

// ListScans handles GET /api/v1/scans?state=active|completed|all.
func (h *ScanHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = services.StateAll
	}

	jobs, err := h.service.ListJobs(state)
	if err != nil {
		handleServiceError(w, r, err, "list scans", h.logger)
		return
	}
	if jobs == nil {
		jobs = []scanning.JobSnapshot{}
	}
	writeJSON(w, r, http.StatusOK, JobListResponse{State: state, Jobs: jobs, Total: len(jobs)})
}

// GetScan handles GET /api/v1/scans/{id}.
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	snap, err := h.service.JobStatus(id)
	if err != nil {
		handleServiceError(w, r, err, "get scan", h.logger)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// GetScanResult handles GET /api/v1/scans/{id}/result.
func (h *ScanHandler) GetScanResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	snap, err := h.service.JobStatus(id)
	if err != nil {
		handleServiceError(w, r, err, "get scan result", h.logger)
		return
	}
	result, err := h.service.JobResult(id)
	if err != nil {
		handleServiceError(w, r, err, "get scan result", h.logger)
		return
	}

	response := JobResultResponse{JobID: id, Status: snap.Status, Devices: []*scanning.Device{}}
	if result != nil {
		response.Result = result
		response.Devices = result.SortedDevices()
	}
	writeJSON(w, r, http.StatusOK, response)
}

// CancelScan handles DELETE /api/v1/scans/{id}.
func (h *ScanHandler) CancelScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := h.service.CancelScan(id); err != nil {
		handleServiceError(w, r, err, "cancel scan", h.logger)
		return
	}

	h.logger.InfoJob("Scan cancelled via API", id, "request_id", middleware.GetRequestID(r))
	writeJSON(w, r, http.StatusAccepted, map[string]string{
		"job_id": id,
		"status": "cancelling",
	})
}

// Cleanup handles POST /api/v1/scans/cleanup.
func (h *ScanHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CheckStatus(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "clean up stale scans", h.logger)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// NetworkMap handles GET /api/v1/network.
func (h *ScanHandler) NetworkMap(w http.ResponseWriter, r *http.Request) {
	network, err := h.service.NetworkMap(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "load network map", h.logger)
		return
	}
	writeJSON(w, r, http.StatusOK, network)
}
