package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) AdminListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.badges.List(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, badges)
}

func (h *Handler) AdminCreateBadge(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBadgeRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	badge, err := h.badges.Create(r.Context(), eventFrom(r), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusCreated, badge)
}

func (h *Handler) AdminDeleteBadge(w http.ResponseWriter, r *http.Request) {
	badgeID, err := pathID(r, "badgeID")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.badges.Delete(r.Context(), eventFrom(r).ID, badgeID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}
