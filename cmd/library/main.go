// Command library starts the document library HTTP API.
//
// It serves search, the document catalogue and its admin operations from
// PostgreSQL, caches search results in Redis, and delivers document events
// either through Kafka or in-process. Search analytics are aggregated in
// memory and snapshotted to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/library [-config configs/development.yaml] [-migrate=false]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	gwhandler "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/handler"
	gwmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/objectstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults plus LIB_* environment when empty)")
	migrate := flag.Bool("migrate", true, "apply the database schema on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting library service", "port", cfg.Server.Port, "kafka", cfg.Kafka.Enabled)

	if err := run(cfg, *migrate); err != nil {
		slog.Error("library service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("library service stopped")
}

func run(cfg *config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}
	slog.Info("connected to postgres")

	checker := health.NewChecker()
	checker.Register("postgres", health.Ping(db.Ping))

	// Redis backs the result cache and the shared rate limiter. Without it
	// search runs uncached and rate limits are per process.
	var (
		queryCache *cache.QueryCache
		limiter    gwmw.Limiter = ratelimit.New(cfg.Auth.RateLimitWindow)
	)
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		limiter = ratelimit.NewRedis(redisClient, cfg.Auth.RateLimitWindow)
		checker.RegisterOptional("redis", health.Ping(redisClient.Ping))
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	aggregator := analytics.NewAggregator()
	snapshots := analytics.NewSnapshotStore(db.DB)
	snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)

	subscribers := map[string]events.Handler{"document-analytics": aggregator.HandleDocumentEvent}
	if queryCache != nil {
		subscribers["cache"] = queryCache.HandleEvent
	}

	var (
		publisher events.Publisher
		tracker   analytics.Tracker = aggregator
	)
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka, m)
		defer kp.Close()
		publisher = kp
		for group, h := range subscribers {
			go func() {
				if err := events.Consume(ctx, cfg.Kafka, group, h); err != nil {
					slog.Error("document event consumer stopped", "group", group, "error", err)
				}
			}()
		}

		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, "analytics", aggregator.MessageHandler())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()
		slog.Info("kafka delivery enabled",
			"brokers", cfg.Kafka.Brokers,
			"document_topic", cfg.Kafka.Topics.DocumentEvents,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	} else {
		bus := events.NewBus()
		for _, h := range subscribers {
			bus.Subscribe(h)
		}
		publisher = bus
	}

	var files service.FileStore
	var uploads gwhandler.Uploader
	if cfg.Storage.Bucket != "" {
		store := objectstore.New(cfg.Storage)
		files, uploads = store, store
		slog.Info("file storage enabled", "bucket", cfg.Storage.Bucket)
	}

	tok := tokenizer.New(cfg.Indexer.StemCacheSize)
	store := pgstore.New(db)
	svc, err := service.New(store, service.Options{
		ExcludedFields: cfg.Indexer.ExcludedFields,
		Tokenizer:      tok,
		Publisher:      publisher,
		Files:          files,
		Metrics:        m,
	})
	if err != nil {
		return err
	}

	validator := apikey.NewValidator(db.DB)
	opts := gwhandler.Options{
		Tracker: tracker,
		Uploads: uploads,
		Keys:    validator,
		Search:  cfg.Search,
		Metrics: m,
	}
	if queryCache != nil {
		opts.Cache = queryCache
	}
	h := gwhandler.New(svc, executor.New(store, tok, m), opts)

	chain := router.New(router.Deps{
		Handler:   h,
		Analytics: analytics.NewHandler(aggregator, snapshots),
		Health:    checker,
		Validator: validator,
		Limiter:   limiter,
		Metrics:   m,
	}, router.Config{
		PublicRateLimit: cfg.Auth.PublicRateLimit,
		AllowOrigins:    cfg.Server.AllowOrigins,
		RequestTimeout:  cfg.Server.WriteTimeout,
		ImportTimeout:   cfg.Server.ImportTimeout,
	})

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

	slog.Info("library service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
