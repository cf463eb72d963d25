package service

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

// LinkTarget is a document link the link checker should probe.
type LinkTarget struct {
	DocumentID int64
	Link       string
}

// LinkTargets lists every document with a link whose state is not ignored.
func (s *Service) LinkTargets(ctx context.Context) ([]LinkTarget, error) {
	page, err := s.store.Documents().List(ctx, catalog.ListOptions{Order: catalog.OrderID})
	if err != nil {
		return nil, err
	}
	var out []LinkTarget
	for _, d := range page.Documents {
		if d.Link == "" || d.BrokenLink == catalog.LinkIgnore {
			continue
		}
		out = append(out, LinkTarget{DocumentID: d.ID, Link: d.Link})
	}
	return out, nil
}

// RecordLinkCheck stores the outcome of probing a document's link. Ignored
// links keep their state. It reports whether the stored state changed.
func (s *Service) RecordLinkCheck(ctx context.Context, docID int64, reachable bool) (bool, error) {
	changed := false
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		d, err := r.Documents().GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		next := catalog.LinkBroken
		if reachable {
			next = catalog.LinkNotBroken
		}
		if d.BrokenLink == catalog.LinkIgnore || d.BrokenLink == next {
			return nil
		}
		changed = true
		return r.Documents().SetBrokenLink(ctx, docID, next)
	})
	return changed, err
}

// BrokenLinks lists documents whose link was found unreachable.
func (s *Service) BrokenLinks(ctx context.Context, actor catalog.Actor, limit, offset int) (catalog.Page, error) {
	if err := requireAdmin(actor); err != nil {
		return catalog.Page{}, err
	}
	broken := catalog.LinkBroken
	return s.store.Documents().List(ctx, catalog.ListOptions{
		Broken: &broken,
		Order:  catalog.OrderID,
		Limit:  limit,
		Offset: offset,
	})
}

// IgnoreLink stops the link checker from reporting a document.
func (s *Service) IgnoreLink(ctx context.Context, actor catalog.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.store.Do(ctx, func(r catalog.Repositories) error {
		if _, err := r.Documents().GetForUpdate(ctx, id); err != nil {
			return err
		}
		return r.Documents().SetBrokenLink(ctx, id, catalog.LinkIgnore)
	})
}

// FixLink replaces a document's link and marks it reachable.
func (s *Service) FixLink(ctx context.Context, actor catalog.Actor, id int64, link string) (*catalog.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if link == "" {
		return nil, apperrors.Invalid("link is required")
	}
	var d *catalog.Document
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		old, err := r.Documents().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		d = old.Clone()
		d.Link = link
		d.BrokenLink = catalog.LinkNotBroken
		d.LastEditedBy, d.LastEditedDate = actor.Name, s.now()
		return s.save(ctx, r, old, d)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.DocumentUpdated, id, d.Status, actor)
	return d, nil
}
