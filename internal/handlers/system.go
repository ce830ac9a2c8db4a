package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

// PublicConfig is the anonymous read the landing pages poll.
func (h *Handler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.system.PublicConfig(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, cfg)
}

func (h *Handler) AdminSetFlag(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsSuper {
		h.errorResponse(w, http.StatusForbidden, "only super admins can change system config")
		return
	}
	var req models.SetFlagRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	key := urlParam(r, "key")
	if err := h.system.SetFlag(r.Context(), key, req.Value); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}
