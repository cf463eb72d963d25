package service

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

func (s *Service) Tags(ctx context.Context) ([]catalog.Tag, error) {
	return s.store.Tags().List(ctx)
}

// CreateTag returns the existing tag when one matches name ignoring case.
func (s *Service) CreateTag(ctx context.Context, actor catalog.Actor, name string) (catalog.Tag, error) {
	if err := requireAdmin(actor); err != nil {
		return catalog.Tag{}, err
	}
	if strings.TrimSpace(name) == "" {
		return catalog.Tag{}, apperrors.Invalid("tag name is required")
	}
	var tag catalog.Tag
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		var err error
		tag, err = r.Tags().Ensure(ctx, name)
		return err
	})
	return tag, err
}

// DeleteTag removes a tag from every document carrying it. Each affected
// document is saved again so its term frequencies and postings follow.
func (s *Service) DeleteTag(ctx context.Context, actor catalog.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var affected []int64
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		all, err := r.Tags().List(ctx)
		if err != nil {
			return err
		}
		var name string
		for _, t := range all {
			if t.ID == id {
				name = t.Name
			}
		}
		if name == "" {
			return apperrors.NotFound(apperrors.ErrTagNotFound, id)
		}
		page, err := r.Documents().List(ctx, catalog.ListOptions{
			Filters: catalog.Filters{Tags: []string{name}},
			Order:   catalog.OrderID,
		})
		if err != nil {
			return err
		}
		if err := r.Tags().Delete(ctx, id); err != nil {
			return err
		}
		for _, d := range page.Documents {
			old, err := r.Documents().GetForUpdate(ctx, d.ID)
			if err != nil {
				return err
			}
			if err := s.save(ctx, r, old, old.Clone()); err != nil {
				return err
			}
			affected = append(affected, d.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("tag deleted", "tag_id", id, "documents", len(affected), "actor", actor.Name)
	s.emit(ctx, events.TagDeleted, 0, "", actor)
	return nil
}
