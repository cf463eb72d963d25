package service

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer"
)

// Reindex rebuilds the whole inverted index from stored term frequencies.
// With recompute set, every document's frequencies are first derived again
// from its corpus, which picks up a changed exclusion list or tokenizer.
func (s *Service) Reindex(ctx context.Context, actor catalog.Actor, recompute bool) (indexer.RebuildStats, error) {
	if err := requireAdmin(actor); err != nil {
		return indexer.RebuildStats{}, err
	}
	var stats indexer.RebuildStats
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		if recompute {
			page, err := r.Documents().List(ctx, catalog.ListOptions{Order: catalog.OrderID})
			if err != nil {
				return err
			}
			for _, d := range page.Documents {
				d.TermFrequencies = s.frequencies(d)
				if err := r.Documents().Update(ctx, d); err != nil {
					return err
				}
			}
		}
		var err error
		stats, err = s.maintainer.Rebuild(ctx, r.Index(), r.Documents())
		return err
	})
	if err != nil {
		return stats, err
	}
	s.emit(ctx, events.IndexRebuilt, 0, "", actor)
	return stats, nil
}

// Verify compares the inverted index with stored term frequencies without
// changing either.
func (s *Service) Verify(ctx context.Context, actor catalog.Actor) (indexer.VerifyReport, error) {
	if err := requireAdmin(actor); err != nil {
		return indexer.VerifyReport{}, err
	}
	var report indexer.VerifyReport
	err := s.store.Do(ctx, func(r catalog.Repositories) error {
		var err error
		report, err = s.maintainer.Verify(ctx, r.Index(), r.Documents())
		return err
	})
	return report, err
}
