// Package service implements the catalog operations behind the HTTP API
// and the CLI. Every write runs as one unit of work that stores the
// document, its tag links and its term frequencies and reconciles the
// inverted index, then publishes a document event.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
)

// FileStore removes uploaded document files.
type FileStore interface {
	Delete(ctx context.Context, key string) error
}

type Options struct {
	// ExcludedFields is the corpus exclusion list; nil selects the default.
	ExcludedFields []string
	Tokenizer      *tokenizer.Tokenizer
	Publisher      events.Publisher
	Files          FileStore
	Metrics        *metrics.Metrics
}

type Service struct {
	store      catalog.Store
	maintainer *indexer.Maintainer
	tokenizer  *tokenizer.Tokenizer
	excluded   catalog.FieldSet
	publisher  events.Publisher
	files      FileStore
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     *slog.Logger
}

func New(store catalog.Store, opts Options) (*Service, error) {
	excluded, unknown := catalog.NewFieldSet(opts.ExcludedFields)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown excluded fields: %s", strings.Join(unknown, ", "))
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.New(tokenizer.DefaultStemCacheSize)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}
	return &Service{
		store:      store,
		maintainer: indexer.NewMaintainer(opts.Metrics),
		tokenizer:  opts.Tokenizer,
		excluded:   excluded,
		publisher:  opts.Publisher,
		files:      opts.Files,
		metrics:    opts.Metrics,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     slog.Default().With("component", "catalog"),
	}, nil
}

func forbidden(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrForbidden, http.StatusForbidden, format, args...)
}

func invalidTransition(from catalog.Status, op string) error {
	return apperrors.Newf(apperrors.ErrInvalidTransition, http.StatusConflict, "cannot %s a document that is %s", op, from)
}

func requireAdmin(actor catalog.Actor) error {
	if !actor.IsAdmin() {
		return forbidden("admin role required")
	}
	return nil
}

func (s *Service) frequencies(d *catalog.Document) termfreq.Frequencies {
	return termfreq.FromTerms(s.tokenizer.Normalize(d.Corpus(s.excluded)))
}

// save persists d and moves its index membership from old's terms to the
// terms of d's fresh corpus. old is nil for a new document.
func (s *Service) save(ctx context.Context, r catalog.Repositories, old, d *catalog.Document) error {
	canonical := make([]string, 0, len(d.Tags))
	for _, name := range d.Tags {
		tag, err := r.Tags().Ensure(ctx, name)
		if err != nil {
			return err
		}
		canonical = append(canonical, tag.Name)
	}
	d.Tags = canonical

	var pre termfreq.Set
	if old == nil {
		pre = termfreq.NewSet()
		d.TermFrequencies = s.frequencies(d)
		if err := r.Documents().Create(ctx, d); err != nil {
			return err
		}
		// The id is only known after insert; fold it in when it is indexed.
		if _, excluded := s.excluded["id"]; !excluded {
			d.TermFrequencies = s.frequencies(d)
			if err := r.Documents().Update(ctx, d); err != nil {
				return err
			}
		}
	} else {
		pre = old.TermFrequencies.Terms()
		d.TermFrequencies = s.frequencies(d)
		if err := r.Documents().Update(ctx, d); err != nil {
			return err
		}
	}
	_, err := s.maintainer.Reconcile(ctx, r.Index(), d.ID, pre, d.TermFrequencies.Terms())
	return err
}

func (s *Service) emit(ctx context.Context, t events.Type, docID int64, status catalog.Status, actor catalog.Actor) {
	if s.metrics != nil {
		s.metrics.DocumentEventsTotal.WithLabelValues(string(t)).Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:       t,
		DocumentID: docID,
		Status:     string(status),
		Actor:      actor.Name,
		At:         s.now(),
	})
}
