package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kanugurajesh/Assistly/internal/bootstrap"
	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/core/usecase"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/queue/nats"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/repository/postgres"
	"github.com/kanugurajesh/Assistly/internal/observability/logging"
	"github.com/kanugurajesh/Assistly/internal/observability/metrics"
)

// The worker watches doc_chunks and announces corpus changes so API replicas
// rebuild their keyword index.
func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadWithFile()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewIndexMetrics("worker", nil)
	executor := bootstrap.NewExecutor(cfg, nil)

	db, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	bus, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		slog.Error("corpus_events_connect_failed", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	watch := usecase.NewCorpusWatchUseCase(postgres.NewCorpusRepository(db, executor), bus).WithObserver(workerMetrics)
	interval := time.Duration(cfg.WorkerPollIntervalSec) * time.Second
	slog.Info("corpus_watch_started", "subject", cfg.NATSSubject, "interval", interval.String())
	if err := watch.Run(ctx, interval); err != nil {
		slog.Error("corpus_watch_stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
