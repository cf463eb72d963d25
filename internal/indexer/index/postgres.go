package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
	"github.com/lib/pq"
)

const replaceBatchSize = 500

// PostgresStore keeps the index in the inverted_index table. Pass a *sql.Tx
// to make index changes commit or roll back with the document write.
type PostgresStore struct {
	q postgres.Querier
}

func NewPostgresStore(q postgres.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) Postings(ctx context.Context, terms []string) (map[string][]int64, error) {
	out := make(map[string][]int64, len(terms))
	if len(terms) == 0 {
		return out, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT term, postings FROM inverted_index WHERE term = ANY($1)`,
		pq.Array(terms),
	)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var term string
		var ids pq.Int64Array
		if err := rows.Scan(&term, &ids); err != nil {
			return nil, fmt.Errorf("scanning postings: %w", err)
		}
		out[term] = normalizePostings(ids)
	}
	return out, rows.Err()
}

// Add relies on the row lock taken by ON CONFLICT, so two writers adding
// different ids to the same new term both land.
func (s *PostgresStore) Add(ctx context.Context, term string, docID int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO inverted_index (term, postings) VALUES ($1, ARRAY[$2::BIGINT])
		ON CONFLICT (term) DO UPDATE
		SET postings = CASE
			WHEN $2::BIGINT = ANY(inverted_index.postings) THEN inverted_index.postings
			ELSE array_append(inverted_index.postings, $2::BIGINT)
		END`,
		term, docID,
	)
	if err != nil {
		return fmt.Errorf("adding %d to postings of %q: %w", docID, term, err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, term string, docID int64) error {
	if _, err := s.q.ExecContext(ctx,
		`UPDATE inverted_index SET postings = array_remove(postings, $2::BIGINT)
		 WHERE term = $1 AND $2::BIGINT = ANY(postings)`,
		term, docID,
	); err != nil {
		return fmt.Errorf("removing %d from postings of %q: %w", docID, term, err)
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM inverted_index WHERE term = $1 AND cardinality(postings) = 0`,
		term,
	); err != nil {
		return fmt.Errorf("pruning empty entry %q: %w", term, err)
	}
	return nil
}

// Replace truncates the table and writes entries in multi-row batches. Run
// it inside a transaction so readers never see a half-built index.
func (s *PostgresStore) Replace(ctx context.Context, entries map[string][]int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM inverted_index`); err != nil {
		return fmt.Errorf("clearing inverted index: %w", err)
	}
	batch := make([]any, 0, replaceBatchSize*2)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		var sb strings.Builder
		sb.WriteString(`INSERT INTO inverted_index (term, postings) VALUES `)
		for i := 0; i < len(batch)/2; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "($%d, $%d)", i*2+1, i*2+2)
		}
		if _, err := s.q.ExecContext(ctx, sb.String(), batch...); err != nil {
			return fmt.Errorf("inserting %d entries: %w", len(batch)/2, err)
		}
		batch = batch[:0]
		return nil
	}
	for term, ids := range entries {
		if len(ids) == 0 {
			continue
		}
		batch = append(batch, term, pq.Array(normalizePostings(ids)))
		if len(batch) >= replaceBatchSize*2 {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (s *PostgresStore) Scan(ctx context.Context, fn func(term string, postings []int64) error) error {
	rows, err := s.q.QueryContext(ctx, `SELECT term, postings FROM inverted_index ORDER BY term`)
	if err != nil {
		return fmt.Errorf("scanning inverted index: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var term string
		var ids pq.Int64Array
		if err := rows.Scan(&term, &ids); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		if err := fn(term, normalizePostings(ids)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM inverted_index`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting index entries: %w", err)
	}
	return n, nil
}
