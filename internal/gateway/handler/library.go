package handler

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	gwmw "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/gateway/middleware"
)

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalog.Tags(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if tags == nil {
		tags = []catalog.Tag{}
	}
	h.writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tag, err := h.catalog.CreateTag(r.Context(), gwmw.Actor(r.Context()), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tag)
}

func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteTag(r.Context(), gwmw.Actor(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggest handles the public POST /api/v1/suggestions.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var in catalog.Suggestion
	if err := h.decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	sg, err := h.catalog.Suggest(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sg)
}

func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.Suggestions(r.Context(), gwmw.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []catalog.Suggestion{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sg, err := h.catalog.Suggestion(r.Context(), gwmw.Actor(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sg)
}

func (h *Handler) DeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteSuggestion(r.Context(), gwmw.Actor(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DraftFromSuggestion handles POST /api/v1/suggestions/{id}/draft with a
// body naming the document type of the new draft.
func (h *Handler) DraftFromSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		DocType catalog.DocType `json:"doc_type"`
	}
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.catalog.DraftFromSuggestion(r.Context(), gwmw.Actor(r.Context()), id, req.DocType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) ListSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := h.catalog.SavedDocuments(r.Context(), gwmw.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if saved == nil {
		saved = []catalog.SavedDocument{}
	}
	h.writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.Save(r.Context(), gwmw.Actor(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnsaveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.Unsave(r.Context(), gwmw.Actor(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BrokenLinks handles GET /api/v1/links/broken.
func (h *Handler) BrokenLinks(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := h.paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.catalog.BrokenLinks(r.Context(), gwmw.Actor(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) IgnoreLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.IgnoreLink(r.Context(), gwmw.Actor(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FixLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Link string `json:"link"`
	}
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.catalog.FixLink(r.Context(), gwmw.Actor(r.Context()), id, req.Link)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}
