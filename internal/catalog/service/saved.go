package service

import (
	"context"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

func requireKey(actor catalog.Actor) error {
	if actor.Anonymous() {
		return apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "an API key is required")
	}
	return nil
}

// Save bookmarks a visible document for the actor. Saving twice is a no-op.
func (s *Service) Save(ctx context.Context, actor catalog.Actor, docID int64) error {
	if err := requireKey(actor); err != nil {
		return err
	}
	if _, err := s.Get(ctx, actor, docID); err != nil {
		return err
	}
	return s.store.Saved().Save(ctx, actor.Name, docID)
}

func (s *Service) Unsave(ctx context.Context, actor catalog.Actor, docID int64) error {
	if err := requireKey(actor); err != nil {
		return err
	}
	return s.store.Saved().Unsave(ctx, actor.Name, docID)
}

// SavedDocuments lists the actor's bookmarks, newest first. Bookmarks of
// documents the actor can no longer see are left out.
func (s *Service) SavedDocuments(ctx context.Context, actor catalog.Actor) ([]catalog.SavedDocument, error) {
	if err := requireKey(actor); err != nil {
		return nil, err
	}
	all, err := s.store.Saved().List(ctx, actor.Name)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, sd := range all {
		if actor.CanSee(sd.Document) {
			out = append(out, sd)
		}
	}
	return out, nil
}
