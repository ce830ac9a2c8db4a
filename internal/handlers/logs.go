package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) AdminLogs(w http.ResponseWriter, r *http.Request) {
	vals := r.URL.Query()
	q := &models.LogsQuery{
		Action:   vals.Get("action"),
		Method:   vals.Get("method"),
		Path:     vals.Get("path"),
		Page:     queryInt(r, "page", 0),
		PageSize: queryInt(r, "page_size", 0),
	}
	entries, total, err := h.auditLog.List(r.Context(), eventFrom(r).Slug, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	pageHeaders(w, total, q.Page, q.PageSize)
	h.jsonResponse(w, http.StatusOK, entries)
}
