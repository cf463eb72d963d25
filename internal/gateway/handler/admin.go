package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/csvio"
	gwmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/middleware"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

// docTypeParam reads the document type of an import or export from the
// type parameter, falling back to a CSV file name such as books.csv.
func docTypeParam(r *http.Request) (catalog.DocType, error) {
	params := r.URL.Query()
	if v := params.Get("type"); v != "" {
		t := catalog.DocType(strings.ToLower(v))
		if !t.Valid() {
			return "", apperrors.Invalid("unknown document type %q", v)
		}
		return t, nil
	}
	if name := params.Get("filename"); name != "" {
		if t, ok := csvio.TypeFromFileName(name); ok {
			return t, nil
		}
		return "", apperrors.Invalid("cannot tell the document type from %q", name)
	}
	return "", apperrors.Invalid("type is required")
}

// Import handles POST /api/v1/import with a CSV body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := docTypeParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.opts.MaxImportBytes)
	res, err := h.catalog.ImportCSV(r.Context(), gwmw.Actor(r.Context()), body, t)
	if err != nil {
		h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
			"error":   apperrors.PublicMessage(err),
			"created": res.Created,
			"updated": res.Updated,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// Export handles GET /api/v1/export and answers with a CSV attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	t, err := docTypeParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	n, err := h.catalog.ExportCSV(r.Context(), gwmw.Actor(r.Context()), &buf, t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvio.FileName(t)+`"`)
	w.Header().Set("X-Document-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("failed to write export", "error", err)
	}
}

// Reindex handles POST /api/v1/admin/reindex. With recompute=true every
// document's term frequencies are rebuilt from its fields first.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	recompute, _ := strconv.ParseBool(r.URL.Query().Get("recompute"))
	stats, err := h.catalog.Reindex(r.Context(), gwmw.Actor(r.Context()), recompute)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents":   stats.Documents,
		"terms":       stats.Terms,
		"duration_ms": stats.Duration.Milliseconds(),
		"recomputed":  recompute,
	})
}

// Verify handles GET /api/v1/admin/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.catalog.Verify(r.Context(), gwmw.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// CreateAPIKey creates a new API key and returns the raw key (shown once).
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.opts.Keys == nil {
		h.writeError(w, r, unavailable("key management"))
		return
	}
	var req struct {
		Name      string       `json:"name"`
		Role      catalog.Role `json:"role"`
		RateLimit int          `json:"rate_limit"`
		ExpiresIn string       `json:"expires_in,omitempty"` // Go duration, e.g. "720h"
	}
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Name == "" {
		h.writeError(w, r, apperrors.Invalid("name is required"))
		return
	}
	if req.Role == "" {
		req.Role = catalog.RoleReader
	}
	if !req.Role.Valid() {
		h.writeError(w, r, apperrors.Invalid("unknown role %q", req.Role))
		return
	}
	if req.RateLimit <= 0 {
		req.RateLimit = 100
	}

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			h.writeError(w, r, apperrors.Invalid("invalid expires_in duration"))
			return
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	key, err := h.opts.Keys.CreateKey(r.Context(), req.Name, req.Role, req.RateLimit, expiresAt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"api_key": key,
		"name":    req.Name,
		"role":    string(req.Role),
		"message": "store this key securely, it cannot be retrieved again",
	})
}

// ListAPIKeys returns all active API keys (without hashes).
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.opts.Keys == nil {
		h.writeError(w, r, unavailable("key management"))
		return
	}
	keys, err := h.opts.Keys.ListKeys(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []apikey.KeyInfo{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"keys":  keys,
		"count": len(keys),
	})
}

func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.opts.Keys == nil {
		h.writeError(w, r, unavailable("key management"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.opts.Keys.RevokeID(r.Context(), id); err != nil {
		if errors.Is(err, apikey.ErrInvalidKey) {
			err = apperrors.Newf(apperrors.ErrInvalidInput, http.StatusNotFound, "no active key with id %d", id)
		}
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
