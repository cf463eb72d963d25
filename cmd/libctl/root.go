package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/redis"
)

// app holds what the subcommands share. Connections open lazily so that
// help output works without a database.
type app struct {
	configPath string
	actorName  string

	cfg     *config.Config
	db      *postgres.Client
	cleanup []func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "libctl",
		Short: "Operate the document library",
		Long: heredoc.Doc(`
			libctl runs maintenance tasks against the library database.

			Configuration comes from the file given with --config plus
			LIB_* environment variables. Every command acts with the
			admin role under the name given by --as.
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&a.actorName, "as", "libctl", "name recorded as the editor of changed documents")

	cmd.AddCommand(
		newMigrateCmd(a),
		newReindexCmd(a),
		newVerifyCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newKeysCmd(a),
	)
	return cmd
}

func (a *app) actor() catalog.Actor {
	return catalog.Actor{Name: a.actorName, Role: catalog.RoleAdmin}
}

func (a *app) database() (*postgres.Client, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.New(a.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	a.db = db
	a.cleanup = append(a.cleanup, func() { db.Close() })
	return db, nil
}

// catalog builds the catalog service. Changes are announced on Kafka when
// it is enabled; otherwise the search cache is flushed directly if Redis
// is reachable.
func (a *app) catalog() (*service.Service, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	var publisher events.Publisher = events.Discard{}
	if a.cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(a.cfg.Kafka, nil)
		a.cleanup = append(a.cleanup, func() { kp.Close() })
		publisher = kp
	} else if rc, err := pkgredis.NewClient(a.cfg.Redis); err == nil {
		a.cleanup = append(a.cleanup, func() { rc.Close() })
		bus := events.NewBus()
		bus.Subscribe(cache.New(rc, a.cfg.Redis, nil).HandleEvent)
		publisher = bus
	}
	return service.New(pgstore.New(db), service.Options{
		ExcludedFields: a.cfg.Indexer.ExcludedFields,
		Tokenizer:      tokenizer.New(a.cfg.Indexer.StemCacheSize),
		Publisher:      publisher,
	})
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
