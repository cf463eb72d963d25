package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
)

func TestExtendDeadlineOutlivesServerWriteTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, "imported")
	})
	tests := []struct {
		name    string
		handler http.Handler
		wantOK  bool
	}{
		{"server deadline applies", slow, false},
		{"extended", ExtendDeadline(5 * time.Second)(slow), true},
		{"unbounded", ExtendDeadline(0)(slow), true},
		{"extended behind metrics writer", Metrics(metrics.NewUnregistered())(ExtendDeadline(5 * time.Second)(slow)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewUnstartedServer(tt.handler)
			srv.Config.WriteTimeout = 50 * time.Millisecond
			srv.Start()
			defer srv.Close()

			resp, err := srv.Client().Get(srv.URL)
			var body string
			if err == nil {
				b, readErr := io.ReadAll(resp.Body)
				resp.Body.Close()
				body, err = string(b), readErr
			}
			ok := err == nil && resp.StatusCode == http.StatusOK && body == "imported"
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (err %v, body %q)", ok, tt.wantOK, err, body)
			}
		})
	}
}

func TestExtendDeadlineWithoutConnection(t *testing.T) {
	called := false
	h := ExtendDeadline(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import", nil))
	if !called || rec.Code != http.StatusAccepted {
		t.Fatalf("called = %v, code = %d", called, rec.Code)
	}
}
