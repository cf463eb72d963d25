package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

type tags repos

func (r tags) List(ctx context.Context) ([]catalog.Tag, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY LOWER(name)`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()
	out := make([]catalog.Tag, 0)
	for rows.Next() {
		var t catalog.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r tags) Ensure(ctx context.Context, name string) (catalog.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Tag{}, apperrors.Invalid("tag name is required")
	}
	// The no-op update makes RETURNING yield the existing row on conflict.
	var t catalog.Tag
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO tags (name) VALUES ($1)
		 ON CONFLICT ((LOWER(name))) DO UPDATE SET name = tags.name
		 RETURNING id, name`,
		name,
	).Scan(&t.ID, &t.Name)
	if err != nil {
		return catalog.Tag{}, fmt.Errorf("ensuring tag %q: %w", name, err)
	}
	return t, nil
}

func (r tags) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tag %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound(apperrors.ErrTagNotFound, id)
	}
	return nil
}

type suggestions repos

func (r suggestions) Create(ctx context.Context, s *catalog.Suggestion) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO suggestions (title, link, description) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Title, s.Link, s.Description,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting suggestion: %w", err)
	}
	return nil
}

func (r suggestions) Get(ctx context.Context, id int64) (*catalog.Suggestion, error) {
	var s catalog.Suggestion
	err := r.q.QueryRowContext(ctx,
		`SELECT id, title, link, description, created_at FROM suggestions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Title, &s.Link, &s.Description, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound(apperrors.ErrSuggestionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading suggestion %d: %w", id, err)
	}
	return &s, nil
}

func (r suggestions) List(ctx context.Context) ([]catalog.Suggestion, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, title, link, description, created_at FROM suggestions ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	defer rows.Close()
	out := make([]catalog.Suggestion, 0)
	for rows.Next() {
		var s catalog.Suggestion
		if err := rows.Scan(&s.ID, &s.Title, &s.Link, &s.Description, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r suggestions) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM suggestions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting suggestion %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound(apperrors.ErrSuggestionNotFound, id)
	}
	return nil
}

type saved repos

func (r saved) Save(ctx context.Context, userID string, docID int64) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO saved (user_id, document_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, docID,
	)
	if err != nil {
		return fmt.Errorf("saving document %d: %w", docID, err)
	}
	return nil
}

func (r saved) Unsave(ctx context.Context, userID string, docID int64) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM saved WHERE user_id = $1 AND document_id = $2`, userID, docID,
	); err != nil {
		return fmt.Errorf("unsaving document %d: %w", docID, err)
	}
	return nil
}

func (r saved) List(ctx context.Context, userID string) ([]catalog.SavedDocument, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT s.saved_date, `+documentColumns+`
		 FROM saved s JOIN documents d ON d.id = s.document_id
		 WHERE s.user_id = $1 ORDER BY s.saved_date DESC, d.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing saved documents: %w", err)
	}
	defer rows.Close()
	docs := documents(r)
	out := make([]catalog.SavedDocument, 0)
	for rows.Next() {
		var sd catalog.SavedDocument
		d, err := docs.scan(prefixScanner{rows: rows, first: &sd.SavedDate})
		if err != nil {
			return nil, fmt.Errorf("scanning saved document: %w", err)
		}
		sd.Document = d
		out = append(out, sd)
	}
	return out, rows.Err()
}

// prefixScanner scans one leading column before the document columns.
type prefixScanner struct {
	rows  *sql.Rows
	first any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.first}, dest...)...)
}
