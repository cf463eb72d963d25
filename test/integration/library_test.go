// Package integration runs the library HTTP stack against a real PostgreSQL
// database. Tests skip when the database is unreachable.
//
// Run with:
//
//	TEST_POSTGRES_HOST=localhost go test -v ./test/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	gwhandler "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/handler"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
)

var admin = catalog.Actor{Name: "root", Role: catalog.RoleAdmin}

// skipIfNoPostgres connects, migrates and empties the test database, or
// skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	_, err = db.DB.ExecContext(t.Context(), `TRUNCATE documents, inverted_index, tags, tagged,
		suggestions, saved, api_keys, analytics_snapshots RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncating: %v", err)
	}
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "doclibrary_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "doclibrary"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

type env struct {
	srv  *httptest.Server
	svc  *service.Service
	keys *apikey.Validator
}

func newEnv(t *testing.T, db *postgres.Client) *env {
	t.Helper()
	store := pgstore.New(db)
	svc, err := service.New(store, service.Options{})
	if err != nil {
		t.Fatal(err)
	}
	keys := apikey.NewValidator(db.DB)
	h := gwhandler.New(svc, executor.New(store, nil, nil), gwhandler.Options{
		Keys:   keys,
		Search: config.SearchConfig{DefaultLimit: 10, MaxResults: 50},
	})
	checker := health.NewChecker()
	checker.Register("postgres", health.Ping(db.Ping))

	srv := httptest.NewServer(router.New(router.Deps{
		Handler:   h,
		Health:    checker,
		Validator: keys,
		Limiter:   ratelimit.New(time.Minute),
	}, router.Config{PublicRateLimit: 1000, RequestTimeout: 10 * time.Second}))
	t.Cleanup(srv.Close)
	return &env{srv: srv, svc: svc, keys: keys}
}

func (e *env) key(t *testing.T, name string, role catalog.Role, rateLimit int) string {
	t.Helper()
	raw, err := e.keys.CreateKey(t.Context(), name, role, rateLimit, nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}
	return raw
}

func (e *env) do(t *testing.T, method, path, key string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func assertConsistent(t *testing.T, svc *service.Service) {
	t.Helper()
	report, err := svc.Verify(t.Context(), admin)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent() {
		t.Fatalf("index drifted: %+v", report)
	}
}

func TestReadyEndpoint(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)

	status, body := e.do(t, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var report health.Report
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != health.StatusUp {
		t.Errorf("expected up, got %s", report.Status)
	}
}

func TestAnonymousAndInvalidKeys(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)

	if status, body := e.do(t, http.MethodGet, "/api/v1/search?q=treaty", "", nil); status != http.StatusOK {
		t.Errorf("anonymous search: expected 200, got %d: %s", status, body)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/search?q=treaty", "not-a-key", nil); status != http.StatusUnauthorized {
		t.Errorf("invalid key: expected 401, got %d", status)
	}
	doc := map[string]any{"doc_type": "book", "title": "Anonymous"}
	if status, _ := e.do(t, http.MethodPost, "/api/v1/documents", "", doc); status != http.StatusForbidden {
		t.Errorf("anonymous create: expected 403, got %d", status)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)
	adminKey := e.key(t, "root", catalog.RoleAdmin, 100)

	status, body := e.do(t, http.MethodPost, "/api/v1/admin/keys", adminKey,
		map[string]any{"name": "alice", "role": "contributor"})
	if status != http.StatusCreated {
		t.Fatalf("create key: expected 201, got %d: %s", status, body)
	}
	var created struct {
		Key string `json:"api_key"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Key == "" {
		t.Fatalf("create key response %s: %v", body, err)
	}

	info, err := e.keys.Validate(t.Context(), created.Key)
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != catalog.RoleContributor || info.Name != "alice" {
		t.Fatalf("unexpected key info %+v", info)
	}

	if status, body := e.do(t, http.MethodGet, "/api/v1/documents/mine", created.Key, nil); status != http.StatusOK {
		t.Fatalf("mine: expected 200, got %d: %s", status, body)
	}

	path := fmt.Sprintf("/api/v1/admin/keys/%d", info.ID)
	if status, body := e.do(t, http.MethodDelete, path, adminKey, nil); status != http.StatusNoContent {
		t.Fatalf("revoke: expected 204, got %d: %s", status, body)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/documents/mine", created.Key, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after revoke, got %d", status)
	}
	if status, _ := e.do(t, http.MethodDelete, path, adminKey, nil); status != http.StatusNotFound {
		t.Errorf("second revoke: expected 404, got %d", status)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)
	adminKey := e.key(t, "root", catalog.RoleAdmin, 100)
	aliceKey := e.key(t, "alice", catalog.RoleContributor, 100)

	status, body := e.do(t, http.MethodPost, "/api/v1/documents", aliceKey, map[string]any{
		"doc_type":    "report",
		"title":       "Fisheries management in the north",
		"description": "Salmon stocks and water quality",
		"tags":        []string{"Fisheries", "fisheries", "Water"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	var doc catalog.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Status != catalog.StatusDraft || doc.PostedBy != "alice" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if len(doc.Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", doc.Tags)
	}
	assertConsistent(t, e.svc)

	search := func() int {
		t.Helper()
		status, body := e.do(t, http.MethodGet, "/api/v1/search?q=salmon+fisheries", "", nil)
		if status != http.StatusOK {
			t.Fatalf("search: expected 200, got %d: %s", status, body)
		}
		var res executor.SearchResult
		if err := json.Unmarshal(body, &res); err != nil {
			t.Fatal(err)
		}
		return res.TotalHits
	}
	if n := search(); n != 0 {
		t.Fatalf("draft leaked into public search: %d hits", n)
	}

	id := strconv.FormatInt(doc.ID, 10)
	if status, body := e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/submit", aliceKey, nil); status != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", status, body)
	}
	if status, body := e.do(t, http.MethodPost, "/api/v1/documents/"+id+"/toggle-publish", adminKey, nil); status != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d: %s", status, body)
	}
	if n := search(); n != 1 {
		t.Fatalf("expected 1 hit after publish, got %d", n)
	}

	status, body = e.do(t, http.MethodPut, "/api/v1/documents/"+id, adminKey, map[string]any{
		"doc_type":        "report",
		"title":           "Mining in the north",
		"document_status": "published",
		"description":     "Gold and copper",
	})
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", status, body)
	}
	if n := search(); n != 0 {
		t.Fatalf("stale postings after update: %d hits", n)
	}
	assertConsistent(t, e.svc)

	if status, _ := e.do(t, http.MethodDelete, "/api/v1/documents/"+id, adminKey, nil); status != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", status)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/documents/"+id, adminKey, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
	assertConsistent(t, e.svc)
}

func TestTagFilterMatchesAnyTag(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)
	ctx := context.Background()

	for _, d := range []*catalog.Document{
		{DocType: catalog.DocTypeBook, Title: "Treaty one", Status: catalog.StatusPublished, Tags: []string{"treaties"}},
		{DocType: catalog.DocTypeLaw, Title: "Treaty two", Status: catalog.StatusPublished, Tags: []string{"law"}},
		{DocType: catalog.DocTypeBook, Title: "Treaty three", Status: catalog.StatusPublished},
	} {
		if _, err := e.svc.Create(ctx, admin, d); err != nil {
			t.Fatal(err)
		}
	}

	status, body := e.do(t, http.MethodGet, "/api/v1/search?q=treaty&tag=treaties,LAW", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res executor.SearchResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.TotalHits != 2 {
		t.Fatalf("expected 2 tagged hits, got %d", res.TotalHits)
	}
	for _, hit := range res.Hits {
		if hit.Document.Title == "Treaty three" {
			t.Errorf("untagged document matched tag filter")
		}
	}
}

func TestCSVRoundTripAndReindex(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)
	ctx := context.Background()

	for i := range 3 {
		_, err := e.svc.Create(ctx, admin, &catalog.Document{
			DocType:        catalog.DocTypeBook,
			Title:          fmt.Sprintf("Oral history volume %d", i+1),
			AuthorLastName: "Cardinal",
			Year:           1970 + i,
			Status:         catalog.StatusPublished,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := e.svc.ExportCSV(ctx, admin, &buf, catalog.DocTypeBook)
	if err != nil || n != 3 {
		t.Fatalf("export: n=%d err=%v", n, err)
	}

	edited := strings.Replace(buf.String(), "Oral history volume 2", "Oral traditions volume 2", 1)
	res, err := e.svc.ImportCSV(ctx, admin, strings.NewReader(edited), catalog.DocTypeBook)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 || res.Updated != 3 {
		t.Fatalf("expected 3 updates, got %+v", res)
	}
	assertConsistent(t, e.svc)

	if _, err := db.DB.ExecContext(ctx, `DELETE FROM inverted_index`); err != nil {
		t.Fatal(err)
	}
	report, err := e.svc.Verify(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if report.Consistent() {
		t.Fatal("expected drift after clearing the index")
	}
	stats, err := e.svc.Reindex(ctx, admin, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 3 {
		t.Errorf("expected 3 documents reindexed, got %d", stats.Documents)
	}
	assertConsistent(t, e.svc)
}

func TestRateLimiting(t *testing.T) {
	db := skipIfNoPostgres(t)
	e := newEnv(t, db)
	key := e.key(t, "ratelimit-test", catalog.RoleReader, 2)

	for i := range 2 {
		if status, _ := e.do(t, http.MethodGet, "/api/v1/search?q=test", key, nil); status != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, status)
		}
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/search?q=test", key, nil); status != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", status)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
