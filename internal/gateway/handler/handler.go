// Package handler implements the library's HTTP endpoints on top of the
// catalog service, the query executor and the search result cache.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/objectstore"
)

const maxBodyBytes = 1 << 20

type Searcher interface {
	Execute(ctx context.Context, q executor.Query) (*executor.SearchResult, error)
}

// ResultCache is satisfied by cache.QueryCache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, q executor.Query, computeFn func() (*executor.SearchResult, error)) (*executor.SearchResult, bool, error)
	Invalidate(ctx context.Context) error
	Stats() (hits, misses int64)
}

type Uploader interface {
	PresignUpload(ctx context.Context, filename string) (*objectstore.Upload, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// KeyManager is satisfied by apikey.Validator.
type KeyManager interface {
	CreateKey(ctx context.Context, name string, role catalog.Role, rateLimit int, expiresAt *time.Time) (string, error)
	ListKeys(ctx context.Context) ([]apikey.KeyInfo, error)
	RevokeID(ctx context.Context, id int64) error
}

// Options carries the optional collaborators. Nil fields disable the
// endpoints that need them.
type Options struct {
	Cache   ResultCache
	Tracker analytics.Tracker
	Uploads Uploader
	Keys    KeyManager
	Search  config.SearchConfig
	Metrics *metrics.Metrics
	// MaxImportBytes bounds a CSV import body; 0 means 32 MiB.
	MaxImportBytes int64
}

type Handler struct {
	catalog  *service.Service
	searcher Searcher
	opts     Options
	logger   *slog.Logger
}

func New(svc *service.Service, searcher Searcher, opts Options) *Handler {
	if opts.Search.DefaultLimit <= 0 {
		opts.Search.DefaultLimit = 20
	}
	if opts.Search.MaxResults <= 0 {
		opts.Search.MaxResults = 100
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = 32 << 20
	}
	return &Handler{
		catalog:  svc,
		searcher: searcher,
		opts:     opts,
		logger:   slog.Default().With("component", "api-handler"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its status code. Server errors are logged and
// their detail withheld from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	h.writeJSON(w, status, map[string]string{"error": apperrors.PublicMessage(err)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Invalid("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperrors.Invalid("request body is empty")
		}
		return apperrors.Invalid("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Invalid("invalid id %q", raw)
	}
	return id, nil
}

// paging reads limit and offset, applying the configured default and cap.
func (h *Handler) paging(r *http.Request) (limit, offset int, err error) {
	limit = h.opts.Search.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, apperrors.Invalid("limit must be a positive integer")
		}
	}
	if limit > h.opts.Search.MaxResults {
		limit = h.opts.Search.MaxResults
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, apperrors.Invalid("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func unavailable(what string) error {
	return apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "%s is not configured", what)
}
