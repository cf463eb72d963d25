package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/memstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	gwhandler "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/handler"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/objectstore"
)

type keys map[string]*apikey.KeyInfo

func (k keys) Validate(_ context.Context, raw string) (*apikey.KeyInfo, error) {
	if info, ok := k[raw]; ok {
		return info, nil
	}
	return nil, apikey.ErrInvalidKey
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*executor.SearchResult
	hits    int64
	misses  int64
}

func (c *memoryCache) GetOrCompute(_ context.Context, q executor.Query, fn func() (*executor.SearchResult, error)) (*executor.SearchResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cache.BuildKey(q)
	if r, ok := c.entries[key]; ok {
		c.hits++
		return r, true, nil
	}
	c.misses++
	r, err := fn()
	if err != nil {
		return nil, false, err
	}
	c.entries[key] = r
	return r, false, nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*executor.SearchResult{}
	return nil
}

func (c *memoryCache) Stats() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

type fakeUploads struct{}

func (fakeUploads) PresignUpload(_ context.Context, filename string) (*objectstore.Upload, error) {
	return &objectstore.Upload{Key: "documents/x/" + filename, URL: "https://s3.example/put", Method: http.MethodPut}, nil
}

func (fakeUploads) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://s3.example/get/" + key, nil
}

type testServer struct {
	handler    http.Handler
	cache      *memoryCache
	aggregator *analytics.Aggregator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	qc := &memoryCache{entries: map[string]*executor.SearchResult{}}
	svc, err := service.New(store, service.Options{})
	if err != nil {
		t.Fatal(err)
	}
	agg := analytics.NewAggregator()
	h := gwhandler.New(svc, executor.New(store, nil, nil), gwhandler.Options{
		Cache:   qc,
		Tracker: agg,
		Uploads: fakeUploads{},
		Search:  config.SearchConfig{DefaultLimit: 10, MaxResults: 50},
	})
	checker := health.NewChecker()
	checker.Register("catalog", health.Ping(store.Ping))
	validator := keys{
		"admin-key": {ID: 1, Name: "root", Role: catalog.RoleAdmin, RateLimit: 1000},
		"alice-key": {ID: 2, Name: "alice", Role: catalog.RoleContributor, RateLimit: 1000},
		"carol-key": {ID: 3, Name: "carol", Role: catalog.RoleReader, RateLimit: 1000},
	}
	return &testServer{
		handler: New(Deps{
			Handler:   h,
			Analytics: analytics.NewHandler(agg, nil),
			Health:    checker,
			Validator: validator,
			Limiter:   ratelimit.New(time.Minute),
		}, Config{PublicRateLimit: 1000, RequestTimeout: 5 * time.Second}),
		cache:      qc,
		aggregator: agg,
	}
}

func (s *testServer) do(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/documents", "alice-key",
		`{"doc_type":"book","title":"Cats of Rome","author_last_name":"Smith","tags":["Animals"]}`)
	expect(t, rec, http.StatusCreated)
	doc := decode[catalog.Document](t, rec)
	if doc.Status != catalog.StatusDraft || doc.PostedBy != "alice" {
		t.Fatalf("created %+v", doc)
	}
	path := "/api/v1/documents/" + itoa(doc.ID)

	expect(t, s.do(t, http.MethodGet, path, "", ""), http.StatusNotFound)
	expect(t, s.do(t, http.MethodGet, path, "alice-key", ""), http.StatusOK)

	res := decode[executor.SearchResult](t, s.do(t, http.MethodGet, "/api/v1/search?q=cats", "", ""))
	if res.TotalHits != 0 {
		t.Fatalf("draft leaked into public search: %+v", res)
	}

	expect(t, s.do(t, http.MethodPost, path+"/toggle-publish", "alice-key", ""), http.StatusForbidden)
	expect(t, s.do(t, http.MethodPost, path+"/submit", "alice-key", ""), http.StatusOK)
	review := decode[catalog.Page](t, s.do(t, http.MethodGet, "/api/v1/review", "admin-key", ""))
	if review.Total != 1 {
		t.Fatalf("review queue = %+v", review)
	}
	published := decode[catalog.Document](t, s.do(t, http.MethodPost, path+"/toggle-publish", "admin-key", ""))
	if published.Status != catalog.StatusPublished {
		t.Fatalf("status = %q", published.Status)
	}

	res = decode[executor.SearchResult](t, s.do(t, http.MethodGet, "/api/v1/search?q=cats&tag=animals", "", ""))
	if res.TotalHits != 1 || res.Hits[0].Document.ID != doc.ID || res.Hits[0].Score <= 0 {
		t.Fatalf("search = %+v", res)
	}

	expect(t, s.do(t, http.MethodDelete, path, "carol-key", ""), http.StatusForbidden)
	expect(t, s.do(t, http.MethodDelete, path, "alice-key", ""), http.StatusNoContent)
	expect(t, s.do(t, http.MethodGet, path, "admin-key", ""), http.StatusNotFound)
}

func TestAuthenticationAndRoles(t *testing.T) {
	s := newTestServer(t)
	body := `{"doc_type":"book","title":"T"}`

	expect(t, s.do(t, http.MethodPost, "/api/v1/documents", "", body), http.StatusForbidden)
	expect(t, s.do(t, http.MethodPost, "/api/v1/documents", "carol-key", body), http.StatusForbidden)
	expect(t, s.do(t, http.MethodPost, "/api/v1/documents", "nope", body), http.StatusUnauthorized)
	expect(t, s.do(t, http.MethodGet, "/api/v1/saved", "", ""), http.StatusUnauthorized)
	expect(t, s.do(t, http.MethodGet, "/api/v1/analytics", "carol-key", ""), http.StatusForbidden)
	expect(t, s.do(t, http.MethodGet, "/api/v1/cache/stats", "alice-key", ""), http.StatusForbidden)
	expect(t, s.do(t, http.MethodPost, "/api/v1/uploads", "carol-key", `{"filename":"a.pdf"}`), http.StatusForbidden)
}

func TestSearchValidationAndCaching(t *testing.T) {
	s := newTestServer(t)
	expect(t, s.do(t, http.MethodPost, "/api/v1/documents", "admin-key",
		`{"doc_type":"law","title":"Water rights act","document_status":"published","year":2001}`), http.StatusCreated)

	expect(t, s.do(t, http.MethodGet, "/api/v1/search?q=water&limit=0", "", ""), http.StatusBadRequest)
	expect(t, s.do(t, http.MethodGet, "/api/v1/search?q=water&type=poem", "", ""), http.StatusBadRequest)
	expect(t, s.do(t, http.MethodGet, "/api/v1/search?q=water&start=2010&end=2000", "", ""), http.StatusBadRequest)

	first := s.do(t, http.MethodGet, "/api/v1/search?q=water&type=law&start=2000&end=2005", "", "")
	expect(t, first, http.StatusOK)
	if first.Header().Get("X-Cache") != "MISS" || decode[executor.SearchResult](t, first).TotalHits != 1 {
		t.Fatalf("first search: %s %s", first.Header().Get("X-Cache"), first.Body.String())
	}
	second := s.do(t, http.MethodGet, "/api/v1/search?q=WATER&type=law&start=2000&end=2005", "", "")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatal("equivalent query should hit the cache")
	}
	expect(t, s.do(t, http.MethodGet, "/api/v1/search?q=nothingmatches", "", ""), http.StatusOK)

	stats := decode[analytics.AggregatedStats](t, s.do(t, http.MethodGet, "/api/v1/analytics", "admin-key", ""))
	if stats.TotalSearches != 3 || stats.ZeroResultCount != 1 {
		t.Fatalf("analytics = %+v", stats)
	}

	expect(t, s.do(t, http.MethodPost, "/api/v1/cache/invalidate", "admin-key", ""), http.StatusOK)
	third := s.do(t, http.MethodGet, "/api/v1/search?q=water&type=law&start=2000&end=2005", "", "")
	if third.Header().Get("X-Cache") != "MISS" {
		t.Fatal("invalidated cache should miss")
	}
}

func TestImportExportOverHTTP(t *testing.T) {
	s := newTestServer(t)
	csvBody := "Title,Author Last Name,Document Status\nExample,Nobody,\nDune,Herbert,\nEmma,Austen,draft\n"

	expect(t, s.do(t, http.MethodPost, "/api/v1/import?type=book", "alice-key", csvBody), http.StatusForbidden)
	rec := s.do(t, http.MethodPost, "/api/v1/import?filename=book.csv", "admin-key", csvBody)
	expect(t, rec, http.StatusOK)
	res := decode[service.ImportResult](t, rec)
	if res.Created != 2 || res.Updated != 0 {
		t.Fatalf("import = %+v", res)
	}

	pub := decode[executor.SearchResult](t, s.do(t, http.MethodGet, "/api/v1/search?q=herbert", "", ""))
	if pub.TotalHits != 1 {
		t.Fatalf("imported row not searchable: %+v", pub)
	}

	bad := s.do(t, http.MethodPost, "/api/v1/import?type=book", "admin-key", "Title,Colour\nX,red\n")
	expect(t, bad, http.StatusBadRequest)

	exp := s.do(t, http.MethodGet, "/api/v1/export?type=book", "admin-key", "")
	expect(t, exp, http.StatusOK)
	if !strings.Contains(exp.Header().Get("Content-Disposition"), "book.csv") {
		t.Fatalf("disposition = %q", exp.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(exp.Body.String(), "Dune") || !strings.Contains(exp.Body.String(), "Emma") {
		t.Fatalf("export body = %s", exp.Body.String())
	}
}

func TestTagsSuggestionsAndSaved(t *testing.T) {
	s := newTestServer(t)

	tag := decode[catalog.Tag](t, s.do(t, http.MethodPost, "/api/v1/tags", "admin-key", `{"name":"History"}`))
	tags := decode[[]catalog.Tag](t, s.do(t, http.MethodGet, "/api/v1/tags", "", ""))
	if len(tags) != 1 || tags[0].ID != tag.ID {
		t.Fatalf("tags = %+v", tags)
	}
	expect(t, s.do(t, http.MethodDelete, "/api/v1/tags/"+itoa(tag.ID), "admin-key", ""), http.StatusNoContent)

	sg := decode[catalog.Suggestion](t, s.do(t, http.MethodPost, "/api/v1/suggestions", "",
		`{"title":"Lost book","link":"https://example.org/lost"}`))
	expect(t, s.do(t, http.MethodGet, "/api/v1/suggestions", "", ""), http.StatusForbidden)
	draft := decode[catalog.Document](t, s.do(t, http.MethodPost, "/api/v1/suggestions/"+itoa(sg.ID)+"/draft", "admin-key",
		`{"doc_type":"book"}`))
	if draft.Title != "Lost book" || draft.Status != catalog.StatusDraft {
		t.Fatalf("draft = %+v", draft)
	}
	expect(t, s.do(t, http.MethodGet, "/api/v1/suggestions/"+itoa(sg.ID), "admin-key", ""), http.StatusNotFound)

	expect(t, s.do(t, http.MethodPost, "/api/v1/saved/"+itoa(draft.ID), "carol-key", ""), http.StatusNotFound)
	expect(t, s.do(t, http.MethodPost, "/api/v1/documents/"+itoa(draft.ID)+"/toggle-publish", "admin-key", ""), http.StatusOK)
	expect(t, s.do(t, http.MethodPost, "/api/v1/saved/"+itoa(draft.ID), "carol-key", ""), http.StatusNoContent)
	saved := decode[[]catalog.SavedDocument](t, s.do(t, http.MethodGet, "/api/v1/saved", "carol-key", ""))
	if len(saved) != 1 || saved[0].Document.ID != draft.ID {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestUploadsAndHealth(t *testing.T) {
	s := newTestServer(t)
	up := decode[objectstore.Upload](t, s.do(t, http.MethodPost, "/api/v1/uploads", "alice-key", `{"filename":"scan.pdf"}`))
	if up.Method != http.MethodPut || !strings.HasSuffix(up.Key, "scan.pdf") {
		t.Fatalf("upload = %+v", up)
	}
	expect(t, s.do(t, http.MethodPost, "/api/v1/uploads", "alice-key", `{}`), http.StatusBadRequest)

	rec := s.do(t, http.MethodPost, "/api/v1/documents", "alice-key",
		`{"doc_type":"report","title":"Scanned report","file":"`+up.Key+`"}`)
	expect(t, rec, http.StatusCreated)
	withFile := decode[catalog.Document](t, rec)
	rec = s.do(t, http.MethodGet, "/api/v1/documents/"+itoa(withFile.ID)+"/file", "alice-key", "")
	expect(t, rec, http.StatusTemporaryRedirect)
	if loc := rec.Header().Get("Location"); loc != "https://s3.example/get/"+up.Key {
		t.Fatalf("redirect to %q", loc)
	}
	expect(t, s.do(t, http.MethodGet, "/api/v1/documents/"+itoa(withFile.ID)+"/file", "", ""), http.StatusNotFound)

	rec = s.do(t, http.MethodPost, "/api/v1/documents", "alice-key", `{"doc_type":"report","title":"No scan"}`)
	noFile := decode[catalog.Document](t, rec)
	expect(t, s.do(t, http.MethodGet, "/api/v1/documents/"+itoa(noFile.ID)+"/file", "alice-key", ""), http.StatusNotFound)

	expect(t, s.do(t, http.MethodGet, "/health/live", "", ""), http.StatusOK)
	expect(t, s.do(t, http.MethodGet, "/health/ready", "bad-key", ""), http.StatusOK)
	rec = s.do(t, http.MethodGet, "/api/v1/search", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
