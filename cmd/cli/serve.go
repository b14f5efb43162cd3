package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/netinventory/internal/api"
	"github.com/anstrom/netinventory/internal/config"
	"github.com/anstrom/netinventory/internal/db"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
	"github.com/anstrom/netinventory/internal/progress"
	"github.com/anstrom/netinventory/internal/scheduler"
	"github.com/anstrom/netinventory/internal/services"
)

const (
	serveShutdownTimeout   = 30 * time.Second
	systemMetricsInterval  = 15 * time.Second
	sinkConnectTimeout     = 10 * time.Second
	databaseConnectTimeout = 30 * time.Second
)

var serveNoDB bool

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the netinventory API server",
	Long: `Run the HTTP API with the scan engine, the scheduler and the progress feeds.

The server provides:
  - REST endpoints to start, list, inspect and cancel scan jobs
  - The stored network map (devices and connections)
  - A WebSocket feed of scan progress, optionally mirrored to Redis and RabbitMQ
  - Prometheus metrics and health checks
  - The periodic stale-scan sweep and any configured recurring scans`,
	Example: `  netinventory serve
  netinventory serve --host 0.0.0.0 --port 9090
  netinventory serve --no-db --config /etc/netinventory/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "API listen address (overrides config)")
	serveCmd.Flags().Int("port", 0, "API port (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoDB, "no-db", false, "Run without PostgreSQL; results are kept in memory only")

	for key, flag := range map[string]string{"api.listen_addr": "host", "api.port": "port"} {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

// progressSinks holds the progress destinations and the connections behind them.
type progressSinks struct {
	hub     *progress.Hub
	fanout  *progress.Fanout
	closers []io.Closer
}

// connectSinks always creates the websocket hub and adds the configured brokers.
// A broker that cannot be reached is logged and skipped.
func connectSinks(ctx context.Context, cfg config.ProgressConfig, logger *logging.Logger) *progressSinks {
	hub := progress.NewHub(logger)
	sinks := &progressSinks{hub: hub, fanout: progress.NewFanout(logger, hub), closers: []io.Closer{hub}}

	ctx, cancel := context.WithTimeout(ctx, sinkConnectTimeout)
	defer cancel()

	if cfg.Redis.Enabled {
		sink, client, err := progress.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			logger.Warn("Redis progress feed disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			sinks.fanout.Add(sink)
			sinks.closers = append(sinks.closers, client)
			logger.Info("Publishing scan progress to Redis", "addr", cfg.Redis.Addr, "channel", sink.Channel())
		}
	}

	if cfg.AMQP.Enabled {
		sink, err := progress.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ progress feed disabled", "error", err)
		} else {
			sinks.fanout.Add(sink)
			sinks.closers = append(sinks.closers, sink)
			logger.Info("Publishing scan progress to RabbitMQ", "exchange", cfg.AMQP.Exchange)
		}
	}
	return sinks
}

func (s *progressSinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// registerSchedules adds the stale sweep and every configured recurring scan.
func registerSchedules(sched *scheduler.Scheduler, cfg *config.Config) error {
	if err := sched.AddSweep(cfg.Engine.SweepSchedule); err != nil {
		return fmt.Errorf("failed to schedule stale sweep: %w", err)
	}
	for _, entry := range cfg.Schedules {
		opts, err := entry.Options(cfg.Engine.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", entry.Name, err)
		}
		if err := sched.AddScan(entry.Name, entry.Schedule, opts); err != nil {
			return fmt.Errorf("schedule %s: %w", entry.Name, err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.API.Enabled {
		return fmt.Errorf("API server is disabled in configuration\n" +
			"Enable it by setting 'api.enabled: true' in config")
	}

	logger := logging.Default()
	pm := metrics.NewPrometheusMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := api.Dependencies{Metrics: pm, Gatherer: pm.GetRegistry()}

	var store services.Store
	if !serveNoDB {
		connectCtx, cancel := context.WithTimeout(ctx, databaseConnectTimeout)
		database, err := db.ConnectAndMigrate(connectCtx, &cfg.Database, pm, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() {
			if closeErr := database.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", closeErr)
			}
		}()
		store = db.NewStore(database)
		deps.Database = database
		logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)
	} else {
		logger.Warn("Running without a database; the network map endpoint is unavailable")
	}

	sinks := connectSinks(ctx, cfg.Progress, logger)
	defer sinks.Close()

	engine := newEngine(cfg, pm, logger)
	service := services.NewScanService(engine, store, sinks.fanout, services.ScanServiceConfig{
		ProgressInterval: cfg.Engine.ProgressInterval,
		StaleThreshold:   cfg.Engine.StaleThreshold,
	}, logger)

	sched := scheduler.NewScheduler(service, logger)
	if err := registerSchedules(sched, cfg); err != nil {
		return err
	}

	deps.Service = service
	deps.Jobs = engine
	deps.Progress = sinks.hub
	server, err := api.New(cfg.API, deps, logger)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	go pm.StartPeriodicUpdates(ctx, systemMetricsInterval)
	sched.Start()

	fmt.Printf("API server listening on %s\n", server.GetAddress())
	fmt.Printf("Health check: http://%s/api/v1/health\n", server.GetAddress())

	serveErr := server.Start(ctx)
	if serveErr != nil {
		logger.Error("API server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", "error", err)
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Scan jobs did not stop in time", "error", err)
	}
	if err := service.Close(shutdownCtx); err != nil {
		logger.Warn("Scan results were not all recorded", "error", err)
	}

	logger.Info("Server stopped")
	return serveErr
}
