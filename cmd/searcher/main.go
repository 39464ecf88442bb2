// Command searcher runs the document search service. It owns one in-memory
// collection and serves ingestion, search, analysis and stats over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"cache_backend", cfg.Search.CacheBackend,
		"ingestion_mode", cfg.Ingestion.Mode,
		"kafka", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	coll := collection.New(cfg.Indexer, cfg.Search, collection.WithMetrics(m))
	checker := health.NewChecker()
	checker.Register("collection", func(context.Context) health.ComponentHealth {
		stats := coll.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms),
		}
	})

	queryCache, closeCache, err := newQueryCache(cfg, coll, m, checker)
	if err != nil {
		return err
	}
	defer closeCache()

	// Search events always reach the local aggregator; with Kafka they are
	// also published for the standalone analytics service.
	aggregator := analytics.NewAggregator()
	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		var sink analytics.Sink = aggregator
		if cfg.Kafka.Enabled {
			analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
			defer analyticsProducer.Close()
			sink = analytics.FanOut(aggregator, analyticsProducer)
		}
		collector = analytics.NewCollector(sink, cfg.Analytics.BufferSize, 0, 0)
		collector.Start(ctx)
		defer collector.Close()
	}

	var batchPublisher ingesthandler.BatchPublisher
	if cfg.Ingestion.Mode == config.IngestModeAsync {
		ingestProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer ingestProducer.Close()
		batchPublisher = publisher.New(ingestProducer, resilience.RetryConfig{}, cfg.Indexer.AnnotateOnIngest)
	}

	searchHandler := handler.New(coll, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	ingestHandler := ingesthandler.New(coll, batchPublisher, queryCache, collector, cfg.Ingestion.MaxBatchSize)
	analyticsHandler := analytics.NewHandler(aggregator, nil)

	mux := http.NewServeMux()
	searchHandler.Register(mux)
	ingestHandler.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Close()
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(cfg.CORS)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, registry)
		g.Go(func() error {
			<-gctx.Done()
			return shutdownMetrics(context.Background())
		})
	}
	if cfg.Kafka.Enabled {
		indexConsumer := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(coll, collector),
		))
		g.Go(func() error {
			return indexConsumer.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newQueryCache builds the configured cache backend. The returned close
// function is always safe to call.
func newQueryCache(cfg *config.Config, coll *collection.Collection, m *metrics.Metrics, checker *health.Checker) (*cache.QueryCache, func(), error) {
	noop := func() {}
	switch cfg.Search.CacheBackend {
	case config.CacheBackendNone:
		slog.Info("search caching disabled")
		return nil, noop, nil

	case config.CacheBackendMemory:
		backend, err := cache.NewMemoryBackend(cfg.Search.CacheSize)
		if err != nil {
			return nil, noop, fmt.Errorf("creating memory cache: %w", err)
		}
		slog.Info("search cache enabled", "backend", "memory", "size", cfg.Search.CacheSize)
		return cache.New(backend, coll.Generation, m), noop, nil

	case config.CacheBackendRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			checker.Register("redis", func(context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			})
			return nil, noop, nil
		}
		breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
		m.CircuitBreakerState.WithLabelValues("redis-cache").Set(float64(resilience.StateClosed))
		checker.Register("redis", health.DegradedPingCheck(client.Ping))

		instanceID := uuid.NewString()
		qc := cache.New(cache.NewRedisBackend(client, cfg.Redis.CacheTTL, breaker, instanceID), coll.Generation, m)
		slog.Info("search cache enabled",
			"backend", "redis",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
			"instance_id", instanceID,
		)
		return qc, func() { client.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Search.CacheBackend)
}
