// Package pgstore implements catalog.Store on PostgreSQL. Every repository
// runs against a postgres.Querier, so the same code serves both plain
// connections and the transaction opened by Do.
package pgstore

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
)

type repos struct {
	q      postgres.Querier
	logger *slog.Logger
}

func (r repos) Documents() catalog.DocumentRepository     { return documents(r) }
func (r repos) Tags() catalog.TagRepository               { return tags(r) }
func (r repos) Suggestions() catalog.SuggestionRepository { return suggestions(r) }
func (r repos) Saved() catalog.SavedRepository            { return saved(r) }
func (r repos) Index() index.Store                        { return index.NewPostgresStore(r.q) }

type Store struct {
	repos
	client *postgres.Client
}

func New(client *postgres.Client) *Store {
	return &Store{
		repos:  repos{q: client.DB, logger: slog.Default().With("component", "pgstore")},
		client: client,
	}
}

// Do runs fn in one transaction; document rows, tag links and index
// entries commit or roll back together.
func (s *Store) Do(ctx context.Context, fn func(r catalog.Repositories) error) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		return fn(repos{q: tx, logger: s.logger})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
