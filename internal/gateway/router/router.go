// Package router wires up the library API routes and applies the middleware
// chain (RequestID → Metrics → CORS → Auth → RateLimit → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/analytics"
	gwhandler "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/handler"
	gwmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/middleware"
)

type Config struct {
	PublicRateLimit int
	AllowOrigins    []string
	// RequestTimeout bounds every request except imports; 0 disables it.
	RequestTimeout time.Duration
	// ImportTimeout replaces the server read/write deadlines for imports;
	// 0 leaves imports unbounded.
	ImportTimeout time.Duration
}

// Deps are the components behind the routes. Analytics, Health and Metrics
// may be nil.
type Deps struct {
	Handler   *gwhandler.Handler
	Analytics *analytics.Handler
	Health    *health.Checker
	Validator gwmw.KeyValidator
	Limiter   gwmw.Limiter
	Metrics   *metrics.Metrics
}

// New builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	GET    /api/v1/search                          public search
//	GET    /api/v1/documents/{id}                  public (published) / owner / admin
//	POST   /api/v1/documents                       contributor, admin
//	PUT    /api/v1/documents/{id}                  contributor (own), admin
//	DELETE /api/v1/documents/{id}                  contributor (own), admin
//	GET    /api/v1/documents/{id}/file             as GET /api/v1/documents/{id}
//	GET    /api/v1/documents/mine                  contributor, admin
//	POST   /api/v1/documents/{id}/submit           contributor (own), admin
//	POST   /api/v1/documents/{id}/toggle-publish   admin
//	POST   /api/v1/documents/{id}/toggle-draft     admin
//	POST   /api/v1/uploads                         contributor, admin
//	GET    /api/v1/review                          admin
//	GET    /api/v1/tags                            public
//	POST   /api/v1/tags, DELETE /api/v1/tags/{id}  admin
//	POST   /api/v1/suggestions                     public
//	GET    /api/v1/suggestions[/{id}]              admin
//	DELETE /api/v1/suggestions/{id}                admin
//	POST   /api/v1/suggestions/{id}/draft          admin
//	GET    /api/v1/saved                           key holders
//	POST   /api/v1/saved/{id}, DELETE ...          key holders
//	GET    /api/v1/links/broken                    admin
//	POST   /api/v1/links/{id}/ignore, /fix         admin
//	POST   /api/v1/import, GET /api/v1/export      admin
//	POST   /api/v1/admin/reindex                   admin
//	GET    /api/v1/admin/verify                    admin
//	GET|POST|DELETE /api/v1/admin/keys[/{id}]      admin
//	GET    /api/v1/cache/stats                     admin
//	POST   /api/v1/cache/invalidate                admin
//	GET    /api/v1/analytics[/history]             admin
//	GET    /health/live, /health/ready             unauthenticated
func New(d Deps, cfg Config) http.Handler {
	h := d.Handler
	mux := http.NewServeMux()

	if d.Health != nil {
		mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())
	}

	mux.HandleFunc("GET /api/v1/search", h.Search)

	mux.HandleFunc("POST /api/v1/documents", h.CreateDocument)
	mux.HandleFunc("GET /api/v1/documents/mine", h.Mine)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("PUT /api/v1/documents/{id}", h.UpdateDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/file", h.DownloadFile)
	mux.HandleFunc("POST /api/v1/documents/{id}/submit", h.Submit)
	mux.HandleFunc("POST /api/v1/documents/{id}/toggle-publish", h.TogglePublish)
	mux.HandleFunc("POST /api/v1/documents/{id}/toggle-draft", h.ToggleDraft)
	mux.HandleFunc("POST /api/v1/uploads", h.PresignUpload)
	mux.HandleFunc("GET /api/v1/review", h.ReviewQueue)

	mux.HandleFunc("GET /api/v1/tags", h.ListTags)
	mux.HandleFunc("POST /api/v1/tags", h.CreateTag)
	mux.HandleFunc("DELETE /api/v1/tags/{id}", h.DeleteTag)

	mux.HandleFunc("POST /api/v1/suggestions", h.Suggest)
	mux.HandleFunc("GET /api/v1/suggestions", h.ListSuggestions)
	mux.HandleFunc("GET /api/v1/suggestions/{id}", h.GetSuggestion)
	mux.HandleFunc("DELETE /api/v1/suggestions/{id}", h.DeleteSuggestion)
	mux.HandleFunc("POST /api/v1/suggestions/{id}/draft", h.DraftFromSuggestion)

	mux.HandleFunc("GET /api/v1/saved", h.ListSaved)
	mux.HandleFunc("POST /api/v1/saved/{id}", h.SaveDocument)
	mux.HandleFunc("DELETE /api/v1/saved/{id}", h.UnsaveDocument)

	mux.HandleFunc("GET /api/v1/links/broken", h.BrokenLinks)
	mux.HandleFunc("POST /api/v1/links/{id}/ignore", h.IgnoreLink)
	mux.HandleFunc("POST /api/v1/links/{id}/fix", h.FixLink)

	mux.HandleFunc("GET /api/v1/export", h.Export)
	mux.HandleFunc("POST /api/v1/admin/reindex", h.Reindex)
	mux.HandleFunc("GET /api/v1/admin/verify", h.Verify)
	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)
	mux.HandleFunc("DELETE /api/v1/admin/keys/{id}", h.RevokeAPIKey)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	if d.Analytics != nil {
		mux.Handle("GET /api/v1/analytics", gwmw.AdminOnly(http.HandlerFunc(d.Analytics.Stats)))
		mux.Handle("GET /api/v1/analytics/history", gwmw.AdminOnly(http.HandlerFunc(d.Analytics.History)))
	}

	// Imports can run long, so they sit outside the request timeout and get
	// their own connection deadlines.
	root := http.NewServeMux()
	root.Handle("POST /api/v1/import", pkgmw.ExtendDeadline(cfg.ImportTimeout)(http.HandlerFunc(h.Import)))
	var bounded http.Handler = mux
	if cfg.RequestTimeout > 0 {
		bounded = pkgmw.Timeout(cfg.RequestTimeout)(mux)
	}
	root.Handle("/", bounded)

	// Middleware chain, applied inside-out:
	// request → RequestID → Metrics → CORS → Auth → RateLimit → mux
	var chain http.Handler = root
	if d.Limiter != nil {
		chain = gwmw.RateLimit(d.Limiter, cfg.PublicRateLimit)(chain)
	}
	chain = gwmw.Auth(d.Validator)(chain)
	chain = gwmw.CORS(gwmw.DefaultCORSConfig(cfg.AllowOrigins...))(chain)
	if d.Metrics != nil {
		chain = pkgmw.Metrics(d.Metrics)(chain)
	}
	chain = pkgmw.RequestID(chain)

	return chain
}
