package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	for i := 1; i <= 100; i++ {
		agg.Track(SearchEvent{Query: "water", Ranked: true, TotalHits: 3, LatencyMs: int64(i)})
	}
	agg.Track(SearchEvent{Query: "xyzzy", Ranked: true, TotalHits: 0, LatencyMs: 1})
	agg.Track(SearchEvent{Query: "", Ranked: false, TotalHits: 0, LatencyMs: 1, CacheHit: true})
	agg.HandleDocumentEvent(context.Background(), events.Event{Type: events.DocumentCreated})
	agg.HandleDocumentEvent(context.Background(), events.Event{Type: events.IndexRebuilt})

	s := agg.Stats()
	if s.TotalSearches != 102 || s.BrowseSearches != 1 || s.CacheHits != 1 {
		t.Fatalf("counts = %+v", s)
	}
	if s.ZeroResultCount != 1 || len(s.ZeroResultQueries) != 1 || s.ZeroResultQueries[0].Query != "xyzzy" {
		t.Fatalf("zero results = %d %v", s.ZeroResultCount, s.ZeroResultQueries)
	}
	if s.TopQueries[0].Query != "water" || s.TopQueries[0].Count != 100 {
		t.Fatalf("top queries = %v", s.TopQueries)
	}
	if s.DocumentWrites != 1 {
		t.Fatalf("document writes = %d", s.DocumentWrites)
	}
	if s.P99LatencyMs < s.P50LatencyMs {
		t.Fatalf("percentiles out of order: %+v", s)
	}
}

func TestAggregatorMessageHandler(t *testing.T) {
	agg := NewAggregator()
	value, _ := json.Marshal(SearchEvent{Query: "rivers", Ranked: true, TotalHits: 2})
	handle := agg.MessageHandler()
	if err := handle(context.Background(), nil, value); err != nil {
		t.Fatal(err)
	}
	if err := handle(context.Background(), nil, []byte("{")); err != nil {
		t.Fatal("undecodable messages should be dropped, not retried")
	}
	if agg.Stats().TotalSearches != 1 {
		t.Fatalf("stats = %+v", agg.Stats())
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (f *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.batches = append(f.batches, events)
	return nil
}

func TestCollectorRequeuesFailedBatch(t *testing.T) {
	pub := &fakePublisher{fail: true}
	c := NewCollector(pub, 10, time.Hour)
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})

	c.flush(context.Background())
	if c.BufferLen() != 2 {
		t.Fatalf("buffer after failed flush = %d", c.BufferLen())
	}

	pub.fail = false
	c.flush(context.Background())
	if c.BufferLen() != 0 || len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("buffer=%d batches=%v", c.BufferLen(), pub.batches)
	}
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(SearchEvent{Query: "a"})
	cancel()
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 {
		t.Fatalf("batches = %v", pub.batches)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(SearchEvent{Query: "water", Ranked: true, TotalHits: 1})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics", nil))
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalSearches != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics/history", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("history without store = %d %q", rec.Code, rec.Body.String())
	}
}
