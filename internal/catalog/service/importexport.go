package service

import (
	"context"
	"errors"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/csvio"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ImportDocument stores one imported row. A row whose id names an existing
// document replaces it in place; any other row becomes a new document.
func (s *Service) ImportDocument(ctx context.Context, actor catalog.Actor, in *catalog.Document) (d *catalog.Document, created bool, err error) {
	if err := requireAdmin(actor); err != nil {
		return nil, false, err
	}
	d = in.Clone()
	if d.Status == "" {
		d.Status = catalog.StatusPublished
	}
	if err := d.Validate(); err != nil {
		return nil, false, err
	}
	now := s.now()
	err = s.store.Do(ctx, func(r catalog.Repositories) error {
		var old *catalog.Document
		if d.ID != 0 {
			old, err = r.Documents().GetForUpdate(ctx, d.ID)
			if err != nil && !errors.Is(err, apperrors.ErrDocumentNotFound) {
				return err
			}
		}
		d.LastEditedBy, d.LastEditedDate = actor.Name, now
		if old == nil {
			created = true
			d.ID = 0
			d.PostedBy, d.PostedDate = actor.Name, now
			d.BrokenLink = catalog.LinkNotBroken
			return s.save(ctx, r, nil, d)
		}
		d.PostedBy, d.PostedDate = old.PostedBy, old.PostedDate
		if d.Link == old.Link {
			d.BrokenLink = old.BrokenLink
		} else {
			d.BrokenLink = catalog.LinkNotBroken
		}
		return s.save(ctx, r, old, d)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.emit(ctx, events.DocumentCreated, d.ID, d.Status, actor)
	} else {
		s.emit(ctx, events.DocumentUpdated, d.ID, d.Status, actor)
	}
	return d, created, nil
}

// ImportCSV imports a CSV file of one document type row by row. Rows before
// a failing row stay imported; the error names the failing line.
func (s *Service) ImportCSV(ctx context.Context, actor catalog.Actor, src io.Reader, t catalog.DocType) (ImportResult, error) {
	var res ImportResult
	if err := requireAdmin(actor); err != nil {
		return res, err
	}
	rd, err := csvio.NewReader(src, t)
	if err != nil {
		return res, err
	}
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		_, created, err := s.ImportDocument(ctx, actor, row)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return res, apperrors.Newf(appErr.Err, appErr.StatusCode, "line %d: %s", rd.Line(), appErr.Message)
			}
			return res, err
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	s.logger.Info("csv imported", "doc_type", t, "created", res.Created, "updated", res.Updated, "actor", actor.Name)
	return res, nil
}

// ExportCSV writes every document of type t, newest id first.
func (s *Service) ExportCSV(ctx context.Context, actor catalog.Actor, dst io.Writer, t catalog.DocType) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	w, err := csvio.NewWriter(dst, t)
	if err != nil {
		return 0, err
	}
	page, err := s.store.Documents().List(ctx, catalog.ListOptions{
		Filters: catalog.Filters{DocTypes: []catalog.DocType{t}},
		Order:   catalog.OrderID,
	})
	if err != nil {
		return 0, err
	}
	for i := len(page.Documents) - 1; i >= 0; i-- {
		if err := w.Write(page.Documents[i]); err != nil {
			return 0, err
		}
	}
	return len(page.Documents), w.Flush()
}
