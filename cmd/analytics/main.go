// Command analytics aggregates link engine activity.
//
// It consumes the engine-events topic, keeps running totals in memory
// (request counts, cache hit rate, latency percentiles, most suggested
// targets, items that get no suggestions, weakest SEO components) and serves
// them at GET /api/v1/analytics. With PostgreSQL configured the totals are
// snapshotted periodically.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samherejoy-web/BTools-sub000/internal/analytics"
	"github.com/samherejoy-web/BTools-sub000/internal/analytics/aggregator"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	"github.com/samherejoy-web/BTools-sub000/pkg/health"
	"github.com/samherejoy-web/BTools-sub000/pkg/kafka"
	"github.com/samherejoy-web/BTools-sub000/pkg/logger"
	"github.com/samherejoy-web/BTools-sub000/pkg/middleware"
	"github.com/samherejoy-web/BTools-sub000/pkg/postgres"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.EngineEvents, analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("engine events consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.EngineEvents)

	checker := health.NewChecker()
	if cfg.Postgres.Host != "" {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, stats snapshots disabled", "error", err)
		} else {
			defer pg.Close()
			aggregator.NewStore(pg).StartPeriodicSave(ctx, agg, snapshotInterval)
			checker.Register("postgres", health.Ping(pg.Ping, health.StatusDegraded))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
