// Package executor runs catalog searches: query normalization, OR retrieval
// over the inverted index, structural filtering and TF-IDF ranking.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/tracing"
)

// Query is one search request. Limit 0 returns every match.
type Query struct {
	Text    string          `json:"text"`
	Filters catalog.Filters `json:"filters"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type Hit struct {
	Document *catalog.Document `json:"document"`
	Score    float64           `json:"score"`
}

// SearchResult is one page of hits. TotalHits counts matches before paging.
// Ranked is false for a browse, where hits are in recency order.
type SearchResult struct {
	Query     string         `json:"query"`
	Terms     []string       `json:"terms,omitempty"`
	Ranked    bool           `json:"ranked"`
	TotalHits int            `json:"total_hits"`
	Hits      []Hit          `json:"hits"`
	TermStats map[string]int `json:"term_stats,omitempty"`
}

type Executor struct {
	store     catalog.Repositories
	tokenizer *tokenizer.Tokenizer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New returns an Executor reading from store. m may be nil.
func New(store catalog.Repositories, tok *tokenizer.Tokenizer, m *metrics.Metrics) *Executor {
	if tok == nil {
		tok = tokenizer.New(tokenizer.DefaultStemCacheSize)
	}
	return &Executor{
		store:     store,
		tokenizer: tok,
		metrics:   m,
		logger:    slog.Default().With("component", "query-executor"),
	}
}

// Execute runs q. Blank text browses every filtered document, newest edit
// first. Otherwise only documents containing at least one query term are
// candidates, so a query of unknown or stop words returns nothing.
func (e *Executor) Execute(ctx context.Context, q Query) (*SearchResult, error) {
	ctx, span := tracing.Start(ctx, "search.execute")
	defer span.End()

	q.Filters = q.Filters.Normalize()
	if err := q.Filters.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.Text) == "" {
		return e.browse(ctx, q)
	}

	terms := e.normalize(ctx, q.Text)
	result := &SearchResult{Query: q.Text, Terms: terms, Ranked: true, Hits: []Hit{}}
	if len(terms) == 0 {
		e.record("empty", 0)
		return result, nil
	}

	postings, err := e.retrieve(ctx, terms)
	if err != nil {
		return nil, err
	}
	result.TermStats = make(map[string]int, len(postings))
	candidates := make(map[int64]struct{})
	for term, ids := range postings {
		result.TermStats[term] = len(ids)
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		e.record("empty", 0)
		return result, nil
	}

	docs, total, err := e.filter(ctx, candidates, q.Filters)
	if err != nil {
		return nil, err
	}

	_, rankSpan := tracing.Start(ctx, "search.rank")
	freqs := make(map[int64]termfreq.Frequencies, len(docs))
	for id, d := range docs {
		freqs[id] = d.TermFrequencies
	}
	ranked := ranker.Rank(terms, freqs, ranker.Params{TotalDocs: total, DocFreq: result.TermStats})
	rankSpan.SetAttr("scored", len(ranked))
	rankSpan.End()

	result.TotalHits = len(ranked)
	for _, sd := range page(ranked, q.Offset, q.Limit) {
		result.Hits = append(result.Hits, Hit{Document: docs[sd.DocID], Score: sd.Score})
	}
	e.record("ranked", result.TotalHits)
	e.logger.Debug("query executed",
		"query", q.Text,
		"terms", terms,
		"candidates", len(candidates),
		"results", result.TotalHits,
	)
	return result, nil
}

func (e *Executor) normalize(ctx context.Context, text string) []string {
	_, span := tracing.Start(ctx, "search.normalize")
	defer span.End()
	terms := e.tokenizer.Normalize(text)
	span.SetAttr("terms", len(terms))
	return terms
}

func (e *Executor) retrieve(ctx context.Context, terms []string) (map[string][]int64, error) {
	ctx, span := tracing.Start(ctx, "search.retrieve")
	defer span.End()
	distinct := termfreq.FromTerms(terms).Terms().Sorted()
	postings, err := e.store.Index().Postings(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	span.SetAttr("terms", len(distinct))
	return postings, nil
}

// filter loads the candidates that pass the filters, along with the size of
// the unfiltered corpus.
func (e *Executor) filter(ctx context.Context, candidates map[int64]struct{}, f catalog.Filters) (map[int64]*catalog.Document, int, error) {
	ctx, span := tracing.Start(ctx, "search.filter")
	defer span.End()

	total, err := e.store.Documents().Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}
	ids := make([]int64, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	listed, err := e.store.Documents().List(ctx, catalog.ListOptions{IDs: ids, Filters: f, Order: catalog.OrderID})
	if err != nil {
		return nil, 0, fmt.Errorf("loading candidates: %w", err)
	}
	docs := make(map[int64]*catalog.Document, len(listed.Documents))
	for _, d := range listed.Documents {
		docs[d.ID] = d
	}
	span.SetAttr("candidates", len(ids))
	span.SetAttr("kept", len(docs))
	return docs, total, nil
}

func (e *Executor) browse(ctx context.Context, q Query) (*SearchResult, error) {
	listed, err := e.store.Documents().List(ctx, catalog.ListOptions{
		Filters: q.Filters,
		Order:   catalog.OrderRecent,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	result := &SearchResult{TotalHits: listed.Total, Hits: make([]Hit, 0, len(listed.Documents))}
	for _, d := range listed.Documents {
		result.Hits = append(result.Hits, Hit{Document: d})
	}
	e.record("browse", result.TotalHits)
	return result, nil
}

func (e *Executor) record(resultType string, hits int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchResultsCount.Observe(float64(hits))
}

func page(ranked []ranker.ScoredDoc, offset, limit int) []ranker.ScoredDoc {
	start := min(max(offset, 0), len(ranked))
	end := len(ranked)
	if limit > 0 {
		end = min(start+limit, end)
	}
	return ranked[start:end]
}
