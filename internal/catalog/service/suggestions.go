package service

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

// SuggestedOtherType labels drafts of type other created from a suggestion.
const SuggestedOtherType = "Suggested"

// Suggest records a public suggestion. Anyone may suggest.
func (s *Service) Suggest(ctx context.Context, sg catalog.Suggestion) (*catalog.Suggestion, error) {
	sg.Title = strings.TrimSpace(sg.Title)
	if sg.Title == "" {
		return nil, apperrors.Invalid("title is required")
	}
	sg.ID = 0
	sg.CreatedAt = s.now()
	if err := s.store.Suggestions().Create(ctx, &sg); err != nil {
		return nil, err
	}
	return &sg, nil
}

func (s *Service) Suggestions(ctx context.Context, actor catalog.Actor) ([]catalog.Suggestion, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Suggestions().List(ctx)
}

func (s *Service) Suggestion(ctx context.Context, actor catalog.Actor, id int64) (*catalog.Suggestion, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Suggestions().Get(ctx, id)
}

func (s *Service) DeleteSuggestion(ctx context.Context, actor catalog.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.store.Suggestions().Delete(ctx, id)
}

// DraftFromSuggestion turns a suggestion into a draft of the given type
// owned by the admin, and deletes the suggestion.
func (s *Service) DraftFromSuggestion(ctx context.Context, actor catalog.Actor, id int64, docType catalog.DocType) (*catalog.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !docType.Valid() {
		return nil, apperrors.Invalid("unknown document type %q", docType)
	}
	var d *catalog.Document
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		sg, err := r.Suggestions().Get(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		d = &catalog.Document{
			DocType:        docType,
			Title:          sg.Title,
			Link:           sg.Link,
			Description:    sg.Description,
			Status:         catalog.StatusDraft,
			PostedBy:       actor.Name,
			LastEditedBy:   actor.Name,
			PostedDate:     now,
			LastEditedDate: now,
			BrokenLink:     catalog.LinkNotBroken,
		}
		if docType == catalog.DocTypeOther {
			d.OtherType = SuggestedOtherType
		}
		if err := d.Validate(); err != nil {
			return err
		}
		if err := s.save(ctx, r, nil, d); err != nil {
			return err
		}
		return r.Suggestions().Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("draft created from suggestion", "suggestion_id", id, "doc_id", d.ID, "actor", actor.Name)
	s.emit(ctx, events.DocumentCreated, d.ID, d.Status, actor)
	return d, nil
}
