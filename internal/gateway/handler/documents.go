package handler

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	gwmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/middleware"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
)

func requireAdmin(r *http.Request) error {
	if !gwmw.Actor(r.Context()).IsAdmin() {
		return apperrors.New(apperrors.ErrForbidden, http.StatusForbidden, "admin role required")
	}
	return nil
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.catalog.Get(r.Context(), gwmw.Actor(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// CreateDocument handles POST /api/v1/documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var in catalog.Document
	if err := h.decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.catalog.Create(r.Context(), gwmw.Actor(r.Context()), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, d)
}

// UpdateDocument handles PUT /api/v1/documents/{id}.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in catalog.Document
	if err := h.decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.catalog.Update(r.Context(), gwmw.Actor(r.Context()), id, &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), gwmw.Actor(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusChange adapts one of the lifecycle operations to a handler.
func (h *Handler) statusChange(op func(r *http.Request, id int64) (*catalog.Document, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		d, err := op(r, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, d)
	}
}

// Submit handles POST /api/v1/documents/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.statusChange(func(r *http.Request, id int64) (*catalog.Document, error) {
		return h.catalog.Submit(r.Context(), gwmw.Actor(r.Context()), id)
	})(w, r)
}

// TogglePublish handles POST /api/v1/documents/{id}/toggle-publish.
func (h *Handler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	h.statusChange(func(r *http.Request, id int64) (*catalog.Document, error) {
		return h.catalog.TogglePublish(r.Context(), gwmw.Actor(r.Context()), id)
	})(w, r)
}

// ToggleDraft handles POST /api/v1/documents/{id}/toggle-draft.
func (h *Handler) ToggleDraft(w http.ResponseWriter, r *http.Request) {
	h.statusChange(func(r *http.Request, id int64) (*catalog.Document, error) {
		return h.catalog.ToggleDraft(r.Context(), gwmw.Actor(r.Context()), id)
	})(w, r)
}

// Mine handles GET /api/v1/documents/mine.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := h.paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.catalog.Mine(r.Context(), gwmw.Actor(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// ReviewQueue handles GET /api/v1/review.
func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := h.paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.catalog.ReviewQueue(r.Context(), gwmw.Actor(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// PresignUpload handles POST /api/v1/uploads. The returned key goes into a
// document's file field once the client has uploaded the bytes.
func (h *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	if !gwmw.Actor(r.Context()).CanWrite() {
		h.writeError(w, r, apperrors.New(apperrors.ErrForbidden, http.StatusForbidden, "contributor or admin role required"))
		return
	}
	if h.opts.Uploads == nil {
		h.writeError(w, r, unavailable("file storage"))
		return
	}
	var req struct {
		Filename string `json:"filename"`
	}
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Filename == "" {
		h.writeError(w, r, apperrors.Invalid("filename is required"))
		return
	}
	up, err := h.opts.Uploads.PresignUpload(r.Context(), req.Filename)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, up)
}

// DownloadFile handles GET /api/v1/documents/{id}/file by redirecting to a
// presigned URL for the document's stored file.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	if h.opts.Uploads == nil {
		h.writeError(w, r, unavailable("file storage"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.catalog.Get(r.Context(), gwmw.Actor(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if d.File == "" {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %d has no file", id))
		return
	}
	url, err := h.opts.Uploads.PresignDownload(r.Context(), d.File)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
