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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samherejoy-web/BTools-sub000/internal/analytics"
	"github.com/samherejoy-web/BTools-sub000/internal/catalog"
	"github.com/samherejoy-web/BTools-sub000/internal/catalog/consumer"
	"github.com/samherejoy-web/BTools-sub000/internal/catalog/store"
	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/engine"
	"github.com/samherejoy-web/BTools-sub000/internal/indexer/corpus"
	"github.com/samherejoy-web/BTools-sub000/internal/linker/cache"
	"github.com/samherejoy-web/BTools-sub000/internal/linker/handler"
	"github.com/samherejoy-web/BTools-sub000/pkg/config"
	"github.com/samherejoy-web/BTools-sub000/pkg/health"
	"github.com/samherejoy-web/BTools-sub000/pkg/kafka"
	"github.com/samherejoy-web/BTools-sub000/pkg/logger"
	"github.com/samherejoy-web/BTools-sub000/pkg/metrics"
	"github.com/samherejoy-web/BTools-sub000/pkg/middleware"
	"github.com/samherejoy-web/BTools-sub000/pkg/postgres"
	pkgredis "github.com/samherejoy-web/BTools-sub000/pkg/redis"
	"github.com/samherejoy-web/BTools-sub000/pkg/resilience"
)

const cacheCallTimeout = 150 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults and LE_* env vars apply without it)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting link engine", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	eng := engine.New(cfg.Engine)

	var collector *analytics.Collector
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.EngineEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 0)
		collector.Start(ctx)
		defer collector.Close()
	}

	cat := catalog.New(eng, func(trigger string, info corpus.Info) {
		m.IndexRebuildsTotal.WithLabelValues(trigger).Inc()
		m.IndexVersion.Set(float64(info.Version))
		for _, t := range content.Types {
			m.IndexRecords.WithLabelValues(t.String()).Set(float64(info.ByType[t]))
		}
		collector.Track(analytics.EngineEvent{
			Type:       analytics.EventRebuild,
			SnapshotID: info.SnapshotID,
			Records:    info.Records,
			Trigger:    trigger,
		})
	})

	var (
		pg           *postgres.Client
		catalogStore *store.Store
	)
	if cfg.Postgres.Host != "" {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, catalog must be pushed through the API", "error", err)
		} else {
			defer pg.Close()
			catalogStore = store.New(pg)
			items, err := catalogStore.LoadAll(ctx)
			if err != nil {
				slog.Error("initial catalog load failed", "error", err)
			} else if _, err := cat.Load(ctx, items); err != nil {
				slog.Error("initial index build failed", "error", err)
			}
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		catalogConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogChanges, consumer.HandleMessage(cat, m))
		go func() {
			if err := catalogConsumer.Run(ctx); err != nil {
				slog.Error("catalog consumer error", "error", err)
			}
		}()
	}

	var (
		resultCache *cache.Cache
		redisClient *pkgredis.Client
	)
	redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		breaker := resilience.NewCircuitBreaker("redis-cache", resilience.BreakerConfig{})
		resultCache = cache.New(cache.Guard(redisClient, breaker, cacheCallTimeout), cfg.Redis.CacheTTL, m)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	checker := health.NewChecker()
	checker.Register("corpus_index", func(ctx context.Context) health.ComponentHealth {
		info, ok := eng.Stats()
		if !ok {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no snapshot built"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("snapshot %s v%d, %d records", info.SnapshotID, info.Version, info.Records),
		}
	})
	if redisClient != nil {
		checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
	}
	if pg != nil {
		checker.Register("postgres", health.Ping(pg.Ping, health.StatusDegraded))
	}

	deps := handler.Deps{
		Engine:    eng,
		Catalog:   cat,
		Cache:     resultCache,
		Collector: collector,
		Metrics:   m,
	}
	if catalogStore != nil {
		deps.Store = catalogStore
	}
	h := handler.New(deps)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *middleware.Limiter
	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		limiter = middleware.NewLimiter(rl.RequestsPerSecond, rl.Burst)
		slog.Info("rate limiting enabled", "rps", rl.RequestsPerSecond, "burst", rl.Burst)
	}

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(limiter)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + time.Second,
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

	slog.Info("link engine listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("link engine stopped")
}
