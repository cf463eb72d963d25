package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/memstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
)

var admin = catalog.Actor{Name: "root", Role: catalog.RoleAdmin}

func linkServer(t *testing.T) *httptest.Server {
	t.Helper()
	var flaky atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	mux.HandleFunc("/get-only", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunOnceRecordsBrokenLinks(t *testing.T) {
	ctx := context.Background()
	srv := linkServer(t)
	svc, err := service.New(memstore.New(), service.Options{})
	if err != nil {
		t.Fatal(err)
	}

	ids := map[string]int64{}
	for _, path := range []string{"/ok", "/gone", "/flaky", "/get-only", "/ignored"} {
		d, err := svc.Create(ctx, admin, &catalog.Document{
			DocType: catalog.DocTypeBook,
			Title:   "Doc " + path,
			Link:    srv.URL + path,
			Status:  catalog.StatusPublished,
		})
		if err != nil {
			t.Fatal(err)
		}
		ids[path] = d.ID
	}
	if err := svc.IgnoreLink(ctx, admin, ids["/ignored"]); err != nil {
		t.Fatal(err)
	}

	c := New(svc, config.LinkCheckConfig{Concurrency: 2, MaxAttempts: 3, RequestTimeout: time.Second}, metrics.NewUnregistered())
	c.retry.InitialDelay = time.Millisecond

	res, err := c.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Checked != 4 || res.Broken != 1 || res.Changed != 1 || res.Errors != 0 {
		t.Fatalf("result = %+v", res)
	}

	page, err := svc.BrokenLinks(ctx, admin, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Documents[0].ID != ids["/gone"] {
		t.Fatalf("broken = %+v", page)
	}
	ignored, err := svc.Get(ctx, admin, ids["/ignored"])
	if err != nil {
		t.Fatal(err)
	}
	if ignored.BrokenLink != catalog.LinkIgnore {
		t.Fatalf("ignored link state = %v", ignored.BrokenLink)
	}

	res, err = c.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 0 {
		t.Fatalf("second pass changed %d links", res.Changed)
	}
}

func TestProbeStopsOnCancel(t *testing.T) {
	srv := linkServer(t)
	c := New(nil, config.LinkCheckConfig{MaxAttempts: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.probe(ctx, srv.URL+"/ok"); err == nil {
		t.Fatal("expected an error for a cancelled probe")
	}
}

func TestProbeTreatsBadURLAsBroken(t *testing.T) {
	c := New(nil, config.LinkCheckConfig{MaxAttempts: 3}, nil)
	ok, err := c.probe(context.Background(), "://not a url")
	if err != nil || ok {
		t.Fatalf("probe = %v, %v", ok, err)
	}
}
