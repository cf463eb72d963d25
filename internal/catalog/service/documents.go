package service

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

// Create stores a new document. Contributors may create drafts or submit
// for review; only admins publish directly.
func (s *Service) Create(ctx context.Context, actor catalog.Actor, d *catalog.Document) (*catalog.Document, error) {
	if !actor.CanWrite() {
		return nil, forbidden("contributor or admin role required")
	}
	d = d.Clone()
	d.ID = 0
	if d.Status == "" {
		d.Status = catalog.StatusDraft
	}
	if d.Status == catalog.StatusPublished && !actor.IsAdmin() {
		return nil, forbidden("only admins can publish")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	d.PostedBy, d.LastEditedBy = actor.Name, actor.Name
	d.PostedDate, d.LastEditedDate = now, now
	d.BrokenLink = catalog.LinkNotBroken

	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		return s.save(ctx, r, nil, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document created", "doc_id", d.ID, "doc_type", d.DocType, "status", d.Status, "actor", actor.Name)
	s.emit(ctx, events.DocumentCreated, d.ID, d.Status, actor)
	return d, nil
}

// Get returns a document the actor is allowed to see. Hidden documents are
// reported as not found.
func (s *Service) Get(ctx context.Context, actor catalog.Actor, id int64) (*catalog.Document, error) {
	d, err := s.store.Documents().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(d) {
		return nil, apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	return d, nil
}

// loadForEdit locks a document inside a unit of work and checks the actor
// may change it.
func loadForEdit(ctx context.Context, r catalog.Repositories, actor catalog.Actor, id int64) (*catalog.Document, error) {
	old, err := r.Documents().GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(old) {
		return nil, apperrors.NotFound(apperrors.ErrDocumentNotFound, id)
	}
	if !actor.CanEdit(old) {
		return nil, forbidden("cannot edit document %d", id)
	}
	return old, nil
}

// Update replaces the editable fields of a document. Attribution and the
// posting date are kept. A contributor editing a published document sends
// it back to review. Changing the link clears the broken-link state.
func (s *Service) Update(ctx context.Context, actor catalog.Actor, id int64, in *catalog.Document) (*catalog.Document, error) {
	if !actor.CanWrite() {
		return nil, forbidden("contributor or admin role required")
	}
	var d *catalog.Document
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		old, err := loadForEdit(ctx, r, actor, id)
		if err != nil {
			return err
		}
		d = in.Clone()
		d.ID = id
		d.PostedBy, d.PostedDate = old.PostedBy, old.PostedDate
		d.LastEditedBy, d.LastEditedDate = actor.Name, s.now()
		if d.Status == "" {
			d.Status = old.Status
		}
		if d.Status == catalog.StatusPublished && !actor.IsAdmin() {
			d.Status = catalog.StatusUnderReview
		}
		if d.Link == old.Link {
			d.BrokenLink = old.BrokenLink
		} else {
			d.BrokenLink = catalog.LinkNotBroken
		}
		if err := d.Validate(); err != nil {
			return err
		}
		return s.save(ctx, r, old, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document updated", "doc_id", id, "status", d.Status, "actor", actor.Name)
	s.emit(ctx, events.DocumentUpdated, id, d.Status, actor)
	return d, nil
}

// Delete removes a document, its tag links and saved entries, and every
// posting that references it. The stored file is removed afterwards.
func (s *Service) Delete(ctx context.Context, actor catalog.Actor, id int64) error {
	if !actor.CanWrite() {
		return forbidden("contributor or admin role required")
	}
	var old *catalog.Document
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		var err error
		old, err = loadForEdit(ctx, r, actor, id)
		if err != nil {
			return err
		}
		if _, err := s.maintainer.Reconcile(ctx, r.Index(), id, old.TermFrequencies.Terms(), nil); err != nil {
			return err
		}
		return r.Documents().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.files != nil && old.File != "" {
		if err := s.files.Delete(ctx, old.File); err != nil {
			s.logger.Error("failed to delete document file", "doc_id", id, "key", old.File, "error", err)
		}
	}
	s.logger.Info("document deleted", "doc_id", id, "actor", actor.Name)
	s.emit(ctx, events.DocumentDeleted, id, old.Status, actor)
	return nil
}

func (s *Service) changeStatus(ctx context.Context, actor catalog.Actor, id int64, next func(catalog.Status) (catalog.Status, error)) (*catalog.Document, error) {
	var d *catalog.Document
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		old, err := loadForEdit(ctx, r, actor, id)
		if err != nil {
			return err
		}
		status, err := next(old.Status)
		if err != nil {
			return err
		}
		d = old.Clone()
		d.Status = status
		d.LastEditedBy, d.LastEditedDate = actor.Name, s.now()
		return s.save(ctx, r, old, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document status changed", "doc_id", id, "status", d.Status, "actor", actor.Name)
	s.emit(ctx, events.DocumentStatusChanged, id, d.Status, actor)
	return d, nil
}

// Submit moves a draft into the review queue.
func (s *Service) Submit(ctx context.Context, actor catalog.Actor, id int64) (*catalog.Document, error) {
	if !actor.CanWrite() {
		return nil, forbidden("contributor or admin role required")
	}
	return s.changeStatus(ctx, actor, id, func(from catalog.Status) (catalog.Status, error) {
		if from != catalog.StatusDraft {
			return "", invalidTransition(from, "submit")
		}
		return catalog.StatusUnderReview, nil
	})
}

// TogglePublish publishes a document, or returns a published one to review.
func (s *Service) TogglePublish(ctx context.Context, actor catalog.Actor, id int64) (*catalog.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, actor, id, func(from catalog.Status) (catalog.Status, error) {
		if from == catalog.StatusPublished {
			return catalog.StatusUnderReview, nil
		}
		return catalog.StatusPublished, nil
	})
}

// ToggleDraft switches a document between published and draft.
func (s *Service) ToggleDraft(ctx context.Context, actor catalog.Actor, id int64) (*catalog.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, actor, id, func(from catalog.Status) (catalog.Status, error) {
		switch from {
		case catalog.StatusPublished:
			return catalog.StatusDraft, nil
		case catalog.StatusDraft:
			return catalog.StatusPublished, nil
		}
		return "", invalidTransition(from, "toggle draft on")
	})
}

// Mine lists the actor's own documents, most recently edited first.
func (s *Service) Mine(ctx context.Context, actor catalog.Actor, limit, offset int) (catalog.Page, error) {
	if !actor.CanWrite() {
		return catalog.Page{}, forbidden("contributor or admin role required")
	}
	return s.store.Documents().List(ctx, catalog.ListOptions{
		PostedBy: actor.Name,
		Order:    catalog.OrderRecent,
		Limit:    limit,
		Offset:   offset,
	})
}

// ReviewQueue lists documents waiting for an admin decision.
func (s *Service) ReviewQueue(ctx context.Context, actor catalog.Actor, limit, offset int) (catalog.Page, error) {
	if err := requireAdmin(actor); err != nil {
		return catalog.Page{}, err
	}
	return s.store.Documents().List(ctx, catalog.ListOptions{
		Filters: catalog.Filters{Statuses: []catalog.Status{catalog.StatusUnderReview}},
		Order:   catalog.OrderRecent,
		Limit:   limit,
		Offset:  offset,
	})
}
