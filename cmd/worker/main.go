// The worker is the long-running monitoring process: it migrates the
// database, wires the check-cycle engine, runs the due-check scheduler, and
// serves /healthz and /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/bootstrap"
	"github.com/turtacn/KYB-Sentinel/internal/config"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/postgres"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/redis"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
		return err
	}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.Kafka, logger)
	defer producer.Close()

	metrics := prometheus.NewEngineMetrics(nil)

	engine, err := bootstrap.BuildEngine(cfg, conn, redisClient, producer, metrics, logger)
	if err != nil {
		return err
	}
	if engine.Sanctions == nil {
		logger.Warn("sanctions screening disabled by configuration")
	}

	scheduler := monitoring.NewScheduler(monitoring.SchedulerConfig{
		TickInterval:          cfg.Worker.TickInterval,
		PoolSize:              cfg.Worker.PoolSize,
		DefaultFrequency:      engine.DefaultFrequency,
		FailedCycleRetryAfter: cfg.Monitoring.FailedCycleRetryAfter,
	}, engine.Counterparties, engine.Orchestrator, common.SystemClock{}, logger)

	if engine.Sanctions != nil {
		err := config.Watch(configPath, func(next *config.Config) {
			engine.Sanctions.UpdateLists(bootstrap.KeywordLists(next.Verification.Lists))
			logger.Info("sanctions lists reloaded",
				logging.Int("lists", len(next.Verification.Lists)))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	go runRetentionLoop(ctx, engine, cfg.Monitoring, logger)

	healthSrv := newHealthServer(cfg.Worker.HealthPort, conn, redisClient, logger)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	logger.Info("worker started",
		logging.Int("pool_size", cfg.Worker.PoolSize),
		logging.Duration("tick_interval", cfg.Worker.TickInterval),
		logging.Int("health_port", cfg.Worker.HealthPort))

	runErr := scheduler.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown incomplete", logging.Err(err))
	}

	if runErr != nil && runErr != context.Canceled {
		return runErr
	}
	logger.Info("worker stopped")
	return nil
}

// runRetentionLoop enforces the retention windows once a day.  Pruning is
// best-effort housekeeping; failures are logged and retried next round.
func runRetentionLoop(ctx context.Context, engine *bootstrap.Engine, m config.MonitoringDefaults, logger logging.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	prune := func() {
		pruneCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		now := time.Now().UTC()
		if _, err := engine.SnapshotPruner.PruneHistory(pruneCtx, now.Add(-m.SnapshotRetention)); err != nil {
			logger.Warn("snapshot retention pruning failed", logging.Err(err))
		}
		if _, err := engine.AlertPruner.PruneAlerts(pruneCtx, now.Add(-m.AlertRetention)); err != nil {
			logger.Warn("alert retention pruning failed", logging.Err(err))
		}
	}

	prune()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// newHealthServer serves liveness and metrics.  /healthz reports 503 when
// either backing store is unreachable so orchestration can restart the pod.
func newHealthServer(port int, conn *postgres.Connection, redisClient *redis.Client, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := conn.HealthCheck(ctx); err != nil {
			logger.Warn("health check failed on postgres", logging.Err(err))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.HealthCheck(ctx); err != nil {
			logger.Warn("health check failed on redis", logging.Err(err))
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
