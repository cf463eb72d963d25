// Package indexer keeps the inverted index consistent with the documents'
// persisted term frequencies: incrementally on every document write, and in
// bulk through Rebuild and Verify.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
)

// Delta records what one Reconcile call changed.
type Delta struct {
	DocID   int64    `json:"doc_id"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DocumentSource streams every document's persisted term frequencies.
type DocumentSource interface {
	EachTermFrequencies(ctx context.Context, fn func(docID int64, freqs termfreq.Frequencies) error) error
}

type Maintainer struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewMaintainer returns a Maintainer. m may be nil.
func NewMaintainer(m *metrics.Metrics) *Maintainer {
	return &Maintainer{
		metrics: m,
		logger:  slog.Default().With("component", "index-maintainer"),
	}
}

// Reconcile moves docID's index membership from the pre term set to the
// post term set. A new document passes an empty pre set and a deleted one
// an empty post set. Calling it with pre equal to post changes nothing.
func (m *Maintainer) Reconcile(ctx context.Context, store index.Store, docID int64, pre, post termfreq.Set) (Delta, error) {
	delta := Delta{
		DocID:   docID,
		Removed: pre.Difference(post).Sorted(),
		Added:   post.Difference(pre).Sorted(),
	}
	for _, term := range delta.Removed {
		if err := store.Remove(ctx, term, docID); err != nil {
			return delta, fmt.Errorf("reconciling document %d: %w", docID, err)
		}
	}
	for _, term := range delta.Added {
		if err := store.Add(ctx, term, docID); err != nil {
			return delta, fmt.Errorf("reconciling document %d: %w", docID, err)
		}
	}
	if m.metrics != nil {
		m.metrics.PostingChangesTotal.WithLabelValues("remove").Add(float64(len(delta.Removed)))
		m.metrics.PostingChangesTotal.WithLabelValues("add").Add(float64(len(delta.Added)))
	}
	if !delta.Empty() {
		m.logger.Debug("index reconciled",
			"doc_id", docID,
			"added", len(delta.Added),
			"removed", len(delta.Removed),
		)
	}
	return delta, nil
}

type RebuildStats struct {
	Documents int           `json:"documents"`
	Terms     int           `json:"terms"`
	Duration  time.Duration `json:"duration"`
}

// Rebuild recomputes every posting list from the persisted term frequencies
// and swaps them in with one Replace. It repairs any drift left by failed
// writes or rows imported without indexing.
func (m *Maintainer) Rebuild(ctx context.Context, store index.Store, src DocumentSource) (RebuildStats, error) {
	start := time.Now()
	entries, docs, err := collect(ctx, src)
	if err != nil {
		return RebuildStats{}, err
	}
	if err := store.Replace(ctx, entries); err != nil {
		return RebuildStats{}, fmt.Errorf("replacing index: %w", err)
	}
	stats := RebuildStats{Documents: docs, Terms: len(entries), Duration: time.Since(start)}
	if m.metrics != nil {
		m.metrics.ReindexDuration.Observe(stats.Duration.Seconds())
		m.metrics.IndexTerms.Set(float64(stats.Terms))
	}
	m.logger.Info("index rebuilt",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

// Discrepancy is one posting that disagrees with the documents. Missing
// means the document has the term but the index does not list it; otherwise
// the index lists a document that no longer has the term.
type Discrepancy struct {
	Term    string `json:"term"`
	DocID   int64  `json:"doc_id"`
	Missing bool   `json:"missing"`
}

type VerifyReport struct {
	Documents int           `json:"documents"`
	Terms     int           `json:"terms"`
	Missing   int           `json:"missing"`
	Stale     int           `json:"stale"`
	Samples   []Discrepancy `json:"samples,omitempty"`
}

func (r VerifyReport) Consistent() bool {
	return r.Missing == 0 && r.Stale == 0
}

const maxSamples = 50

// Verify compares the index with the documents without changing either.
func (m *Maintainer) Verify(ctx context.Context, store index.Store, src DocumentSource) (VerifyReport, error) {
	expected, docs, err := collect(ctx, src)
	if err != nil {
		return VerifyReport{}, err
	}
	report := VerifyReport{Documents: docs}
	note := func(d Discrepancy) {
		if d.Missing {
			report.Missing++
		} else {
			report.Stale++
		}
		if len(report.Samples) < maxSamples {
			report.Samples = append(report.Samples, d)
		}
	}

	seen := make(map[string]struct{}, len(expected))
	err = store.Scan(ctx, func(term string, postings []int64) error {
		report.Terms++
		seen[term] = struct{}{}
		want := make(map[int64]struct{}, len(expected[term]))
		for _, id := range expected[term] {
			want[id] = struct{}{}
		}
		for _, id := range postings {
			if _, ok := want[id]; ok {
				delete(want, id)
				continue
			}
			note(Discrepancy{Term: term, DocID: id})
		}
		for id := range want {
			note(Discrepancy{Term: term, DocID: id, Missing: true})
		}
		return nil
	})
	if err != nil {
		return VerifyReport{}, fmt.Errorf("scanning index: %w", err)
	}
	for term, ids := range expected {
		if _, ok := seen[term]; ok {
			continue
		}
		for _, id := range ids {
			note(Discrepancy{Term: term, DocID: id, Missing: true})
		}
	}
	if m.metrics != nil {
		m.metrics.IndexTerms.Set(float64(report.Terms))
	}
	if !report.Consistent() {
		m.logger.Warn("index is stale", "missing", report.Missing, "stale", report.Stale)
	}
	return report, nil
}

func collect(ctx context.Context, src DocumentSource) (map[string][]int64, int, error) {
	entries := make(map[string][]int64)
	docs := 0
	err := src.EachTermFrequencies(ctx, func(docID int64, freqs termfreq.Frequencies) error {
		docs++
		for term := range freqs {
			entries[term] = append(entries[term], docID)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("reading term frequencies: %w", err)
	}
	return entries, docs, nil
}
