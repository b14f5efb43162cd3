// Package api provides the HTTP REST API for netinventory. It exposes scan job
// control, the stored network map, the progress websocket, health checks and
// Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihandlers "github.com/anstrom/netinventory/internal/api/handlers"
	"github.com/anstrom/netinventory/internal/api/middleware"
	"github.com/anstrom/netinventory/internal/config"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
)

const serverShutdownTimeout = 30 * time.Second

// Dependencies are the services the routes are backed by. Only Service is required.
type Dependencies struct {
	Service  apihandlers.ScanService
	Database apihandlers.Pinger
	Jobs     apihandlers.JobCounter
	// Progress serves the websocket at /api/v1/ws.
	Progress http.Handler
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
}

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	deps       Dependencies
	logger     *logging.Logger
}

// New creates a new API server instance.
func New(cfg config.APIConfig, deps Dependencies, logger *logging.Logger) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("api server requires a scan service")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		logger: logger.WithComponent("api"),
	}
	s.setupRoutes()
	s.setupMiddleware()

	var handler http.Handler = s.router
	if cfg.CORS.Enabled {
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
			handlers.AllowedMethods(cfg.CORS.AllowedMethods),
			handlers.AllowedHeaders(cfg.CORS.AllowedHeaders),
		)(handler)
	}
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)(handler)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.ListenAddr, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s, nil
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	health := apihandlers.NewHealthHandler(s.deps.Database, s.deps.Jobs, s.logger)
	api.HandleFunc("/liveness", health.Liveness).Methods(http.MethodGet)
	api.HandleFunc("/health", health.Health).Methods(http.MethodGet)

	scans := apihandlers.NewScanHandler(s.deps.Service, s.logger)
	api.HandleFunc("/scans", scans.StartScan).Methods(http.MethodPost)
	api.HandleFunc("/scans", scans.ListScans).Methods(http.MethodGet)
	api.HandleFunc("/scans/cleanup", scans.Cleanup).Methods(http.MethodPost)
	api.HandleFunc("/scans/{id}", scans.GetScan).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", scans.CancelScan).Methods(http.MethodDelete)
	api.HandleFunc("/scans/{id}/result", scans.GetScanResult).Methods(http.MethodGet)
	api.HandleFunc("/network", scans.NetworkMap).Methods(http.MethodGet)

	if s.deps.Progress != nil {
		api.Handle("/ws", s.deps.Progress).Methods(http.MethodGet)
	}

	metricsHandler := promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})
	api.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
}

// setupMiddleware configures middleware for the API server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(middleware.Metrics(s.deps.Metrics))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.ContentType())
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}

// recoveryLogger adapts the structured logger to gorilla's RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *logging.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Unrecovered panic in HTTP stack", "panic", fmt.Sprint(v...))
}
