package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
	"github.com/lib/pq"
)

type documents repos

const documentColumns = `d.id, d.doc_type, d.day, d.month, d.year, d.posted_date, d.last_edited_date,
	d.posted_by, d.last_edited_by, d.title, d.description, d.link, d.file, d.citation,
	d.document_status, d.volume, d.edition, d.series, d.publisher, d.editor_first_name,
	d.editor_last_name, d.author_first_name, d.author_last_name, d.page_start, d.page_end,
	d.issue, d.govt_body, d.section, d.region, d.country, d.other_type, d.source, d.studio,
	d.term_frequencies, d.broken_link,
	COALESCE((SELECT array_agg(t.name ORDER BY t.name) FROM tagged tg JOIN tags t ON t.id = tg.tag_id
		WHERE tg.document_id = d.id), '{}')`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r documents) scan(row rowScanner) (*catalog.Document, error) {
	var (
		d       catalog.Document
		docType string
		status  string
		tf      []byte
		tagList pq.StringArray
	)
	err := row.Scan(
		&d.ID, &docType, &d.Day, &d.Month, &d.Year, &d.PostedDate, &d.LastEditedDate,
		&d.PostedBy, &d.LastEditedBy, &d.Title, &d.Description, &d.Link, &d.File, &d.Citation,
		&status, &d.Volume, &d.Edition, &d.Series, &d.Publisher, &d.EditorFirstName,
		&d.EditorLastName, &d.AuthorFirstName, &d.AuthorLastName, &d.PageStart, &d.PageEnd,
		&d.Issue, &d.GovtBody, &d.Section, &d.Region, &d.Country, &d.OtherType, &d.Source, &d.Studio,
		&tf, &d.BrokenLink, &tagList,
	)
	if err != nil {
		return nil, err
	}
	d.DocType = catalog.DocType(docType)
	d.Status = catalog.Status(status)
	d.Tags = []string(tagList)
	freqs, ok := termfreq.Decode(tf)
	if !ok {
		r.logger.Warn("malformed term frequencies, treating as empty", "doc_id", d.ID)
	}
	d.TermFrequencies = freqs
	return &d, nil
}

func (r documents) get(ctx context.Context, id int64, lock string) (*catalog.Document, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE d.id = $1`+lock, id)
	d, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading document %d: %w", id, err)
	}
	return d, nil
}

func (r documents) Get(ctx context.Context, id int64) (*catalog.Document, error) {
	return r.get(ctx, id, "")
}

func (r documents) GetForUpdate(ctx context.Context, id int64) (*catalog.Document, error) {
	return r.get(ctx, id, " FOR UPDATE OF d")
}

func encodeFrequencies(f termfreq.Frequencies) ([]byte, error) {
	if f == nil {
		f = termfreq.Frequencies{}
	}
	return json.Marshal(f)
}

func (r documents) args(d *catalog.Document) ([]any, error) {
	tf, err := encodeFrequencies(d.TermFrequencies)
	if err != nil {
		return nil, fmt.Errorf("encoding term frequencies: %w", err)
	}
	return []any{
		string(d.DocType), d.Day, d.Month, d.Year, d.PostedDate, d.LastEditedDate,
		d.PostedBy, d.LastEditedBy, d.Title, d.Description, d.Link, d.File, d.Citation,
		string(d.Status), d.Volume, d.Edition, d.Series, d.Publisher, d.EditorFirstName,
		d.EditorLastName, d.AuthorFirstName, d.AuthorLastName, d.PageStart, d.PageEnd,
		d.Issue, d.GovtBody, d.Section, d.Region, d.Country, d.OtherType, d.Source, d.Studio,
		tf, int(d.BrokenLink),
	}, nil
}

const writableColumns = `doc_type, day, month, year, posted_date, last_edited_date,
	posted_by, last_edited_by, title, description, link, file, citation,
	document_status, volume, edition, series, publisher, editor_first_name,
	editor_last_name, author_first_name, author_last_name, page_start, page_end,
	issue, govt_body, section, region, country, other_type, source, studio,
	term_frequencies, broken_link`

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

func (r documents) Create(ctx context.Context, d *catalog.Document) error {
	args, err := r.args(d)
	if err != nil {
		return err
	}
	err = r.q.QueryRowContext(ctx,
		`INSERT INTO documents (`+writableColumns+`) VALUES (`+placeholders(1, len(args))+`) RETURNING id`,
		args...,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return r.linkTags(ctx, d)
}

func (r documents) Update(ctx context.Context, d *catalog.Document) error {
	args, err := r.args(d)
	if err != nil {
		return err
	}
	cols := strings.Split(writableColumns, ",")
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = fmt.Sprintf("%s = $%d", strings.TrimSpace(c), i+1)
	}
	args = append(args, d.ID)
	res, err := r.q.ExecContext(ctx,
		`UPDATE documents SET `+strings.Join(set, ", ")+fmt.Sprintf(` WHERE id = $%d`, len(args)),
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating document %d: %w", d.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, d.ID)
	}
	return r.linkTags(ctx, d)
}

// linkTags replaces the document's tag links with the tags named in d.Tags.
// The tags must already exist.
func (r documents) linkTags(ctx context.Context, d *catalog.Document) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM tagged WHERE document_id = $1`, d.ID); err != nil {
		return fmt.Errorf("clearing tags of document %d: %w", d.ID, err)
	}
	if len(d.Tags) == 0 {
		return nil
	}
	lower := make([]string, len(d.Tags))
	for i, t := range d.Tags {
		lower[i] = strings.ToLower(t)
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO tagged (tag_id, document_id)
		 SELECT id, $1 FROM tags WHERE LOWER(name) = ANY($2)
		 ON CONFLICT DO NOTHING`,
		d.ID, pq.Array(lower),
	); err != nil {
		return fmt.Errorf("linking tags of document %d: %w", d.ID, err)
	}
	return nil
}

func (r documents) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	return nil
}

// where translates ListOptions into a WHERE clause with numbered arguments.
func where(opts catalog.ListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg ...any) {
		for _, a := range arg {
			args = append(args, a)
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}
	f := opts.Filters
	if opts.IDs != nil {
		add("d.id = ANY(?)", pq.Array(opts.IDs))
	}
	if opts.PostedBy != "" {
		add("d.posted_by = ?", opts.PostedBy)
	}
	if opts.Broken != nil {
		add("d.broken_link = ?", int(*opts.Broken))
	}
	if len(f.DocTypes) > 0 {
		types := make([]string, len(f.DocTypes))
		for i, t := range f.DocTypes {
			types[i] = string(t)
		}
		add("d.doc_type = ANY(?)", pq.Array(types))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("d.document_status = ANY(?)", pq.Array(statuses))
	}
	if len(f.Tags) > 0 {
		lower := make([]string, len(f.Tags))
		for i, t := range f.Tags {
			lower[i] = strings.ToLower(t)
		}
		add(`EXISTS (SELECT 1 FROM tagged tg JOIN tags t ON t.id = tg.tag_id
			WHERE tg.document_id = d.id AND LOWER(t.name) = ANY(?))`, pq.Array(lower))
	}
	if f.Start != nil || f.End != nil {
		add("d.year <> 0")
	}
	if f.Start != nil {
		add("(d.year, d.month, d.day) >= (?, ?, ?)", f.Start.Year, f.Start.Month, f.Start.Day)
	}
	if f.End != nil {
		add("(d.year, d.month, d.day) <= (?, ?, ?)", f.End.Year, f.End.Month, f.End.Day)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r documents) List(ctx context.Context, opts catalog.ListOptions) (catalog.Page, error) {
	clause, args := where(opts)

	var page catalog.Page
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents d`+clause, args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("counting documents: %w", err)
	}

	order := " ORDER BY d.last_edited_date DESC, d.id DESC"
	if opts.Order == catalog.OrderID {
		order = " ORDER BY d.id"
	}
	query := `SELECT ` + documentColumns + ` FROM documents d` + clause + order
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	page.Documents = make([]*catalog.Document, 0)
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return page, fmt.Errorf("scanning document: %w", err)
		}
		page.Documents = append(page.Documents, d)
	}
	return page, rows.Err()
}

func (r documents) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (r documents) SetBrokenLink(ctx context.Context, id int64, state catalog.BrokenLink) error {
	res, err := r.q.ExecContext(ctx, `UPDATE documents SET broken_link = $2 WHERE id = $1`, id, int(state))
	if err != nil {
		return fmt.Errorf("updating link state of document %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	return nil
}

func (r documents) EachTermFrequencies(ctx context.Context, fn func(int64, termfreq.Frequencies) error) error {
	rows, err := r.q.QueryContext(ctx, `SELECT id, term_frequencies FROM documents ORDER BY id`)
	if err != nil {
		return fmt.Errorf("reading term frequencies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scanning term frequencies: %w", err)
		}
		freqs, ok := termfreq.Decode(raw)
		if !ok {
			r.logger.Warn("malformed term frequencies, treating as empty", "doc_id", id)
		}
		if err := fn(id, freqs); err != nil {
			return err
		}
	}
	return rows.Err()
}
