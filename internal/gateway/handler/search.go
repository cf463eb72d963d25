package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	gwmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/logger"
)

// Search handles GET /api/v1/search.
//
// Parameters: q (free text), type, status and tag (repeatable or comma
// separated), start and end (inclusive date bounds), limit and offset.
// Callers other than admins only ever see published documents, so the
// status parameter is honoured for admins alone.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor := gwmw.Actor(r.Context())

	q, err := h.parseQuery(r, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	compute := func() (*executor.SearchResult, error) {
		return h.searcher.Execute(r.Context(), q)
	}
	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	if h.opts.Cache != nil {
		result, cacheHit, err = h.opts.Cache.GetOrCompute(r.Context(), q, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	latency := time.Since(start)
	if h.opts.Tracker != nil {
		eventType := analytics.EventSearch
		if result.Ranked && result.TotalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.opts.Tracker.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     q.Text,
			Terms:     result.Terms,
			Ranked:    result.Ranked,
			TotalHits: result.TotalHits,
			Returned:  len(result.Hits),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: start.UTC(),
			RequestID: logger.RequestID(r.Context()),
		})
	}

	cacheStatus := "MISS"
	if cacheHit {
		cacheStatus = "HIT"
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.SearchLatency.WithLabelValues(strings.ToLower(cacheStatus)).Observe(latency.Seconds())
	}
	w.Header().Set("X-Search-Latency", latency.String())
	w.Header().Set("X-Cache", cacheStatus)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseQuery(r *http.Request, actor catalog.Actor) (executor.Query, error) {
	params := r.URL.Query()
	q := executor.Query{Text: strings.TrimSpace(params.Get("q"))}

	for _, t := range listParam(params, "type") {
		q.Filters.DocTypes = append(q.Filters.DocTypes, catalog.DocType(strings.ToLower(t)))
	}
	if actor.IsAdmin() {
		for _, s := range listParam(params, "status") {
			status, err := catalog.ParseStatus(s)
			if err != nil {
				return q, err
			}
			q.Filters.Statuses = append(q.Filters.Statuses, status)
		}
	} else {
		q.Filters.Statuses = []catalog.Status{catalog.StatusPublished}
	}
	q.Filters.Tags = listParam(params, "tag")

	if v := params.Get("start"); v != "" {
		b, err := catalog.ParseDate(v, false)
		if err != nil {
			return q, err
		}
		q.Filters.Start = &b
	}
	if v := params.Get("end"); v != "" {
		b, err := catalog.ParseDate(v, true)
		if err != nil {
			return q, err
		}
		q.Filters.End = &b
	}

	limit, offset, err := h.paging(r)
	if err != nil {
		return q, err
	}
	q.Limit, q.Offset = limit, offset
	return q, nil
}

// listParam collects a repeatable parameter, splitting comma-separated
// values and dropping blanks.
func listParam(params url.Values, name string) []string {
	var out []string
	for _, v := range params[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.opts.Cache == nil {
		h.writeError(w, r, unavailable("search cache"))
		return
	}
	hits, misses := h.opts.Cache.Stats()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":      hits,
		"misses":    misses,
		"hit_ratio": ratio,
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.opts.Cache == nil {
		h.writeError(w, r, unavailable("search cache"))
		return
	}
	if err := h.opts.Cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
