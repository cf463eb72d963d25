// Command linkchecker periodically probes the links of catalogued documents
// and marks unreachable ones as broken.
//
// Usage:
//
//	go run ./cmd/linkchecker [-config configs/development.yaml] [-once]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/linkcheck"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting link checker",
		"interval", cfg.LinkCheck.Interval,
		"concurrency", cfg.LinkCheck.Concurrency,
		"once", *once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled && !*once {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc, err := service.New(pgstore.New(db), service.Options{
		ExcludedFields: cfg.Indexer.ExcludedFields,
		Metrics:        m,
	})
	if err != nil {
		slog.Error("failed to create catalog service", "error", err)
		os.Exit(1)
	}
	checker := linkcheck.New(svc, cfg.LinkCheck, m)

	if *once {
		res, err := checker.RunOnce(ctx)
		if err != nil {
			slog.Error("link check failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("checked %d links: %d broken, %d changed, %d errors\n", res.Checked, res.Broken, res.Changed, res.Errors)
		return
	}
	if err := checker.Run(ctx); err != nil {
		slog.Error("link checker stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("link checker stopped")
}
