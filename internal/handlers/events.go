package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/cache"
	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request, scope string) {
	ctx := r.Context()
	key := cache.EventListKey(scope)

	var cached []models.EventSummary
	if h.cache.GetJSON(ctx, key, &cached) {
		h.jsonResponse(w, http.StatusOK, cached)
		return
	}

	events, err := h.events.ListPublic(ctx, scope)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.SetJSON(ctx, key, events)
	h.jsonResponse(w, http.StatusOK, events)
}

func (h *Handler) ListOngoingEvents(w http.ResponseWriter, r *http.Request) {
	h.listEvents(w, r, "ongoing")
}

func (h *Handler) ListAllEvents(w http.ResponseWriter, r *http.Request) {
	h.listEvents(w, r, "all")
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetPublic(r.Context(), urlParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, event)
}

func (h *Handler) GetEventRounds(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetPublic(r.Context(), urlParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rounds, err := h.events.PublicRounds(r.Context(), event.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, rounds)
}

// Admin surface.

func (h *Handler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListAdmin(r.Context(), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, events)
}

func (h *Handler) AdminCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsSuper {
		h.errorResponse(w, http.StatusForbidden, "only super admins can create events")
		return
	}
	var req models.CreateEventRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	event, err := h.events.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.InvalidateEvents(r.Context())
	h.jsonResponse(w, http.StatusCreated, event)
}

func (h *Handler) AdminGetEvent(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, eventFrom(r))
}

func (h *Handler) AdminUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateEventRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	event, err := h.events.Update(r.Context(), eventFrom(r).Slug, &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.InvalidateEvents(r.Context())
	h.jsonResponse(w, http.StatusOK, event)
}

func (h *Handler) AdminDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsSuper {
		h.errorResponse(w, http.StatusForbidden, "only super admins can delete events")
		return
	}
	if err := h.events.Delete(r.Context(), eventFrom(r).Slug); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.InvalidateEvents(r.Context())
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) AdminSetRegistration(w http.ResponseWriter, r *http.Request) {
	var req models.SetRegistrationOpenRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	event, err := h.events.SetRegistrationOpen(r.Context(), eventFrom(r).Slug, *req.Open)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.InvalidateEvents(r.Context())
	h.jsonResponse(w, http.StatusOK, event)
}

func (h *Handler) AdminSetVisibility(w http.ResponseWriter, r *http.Request) {
	var req models.SetVisibilityRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	event, err := h.events.SetVisibility(r.Context(), eventFrom(r).Slug, *req.Visible)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.InvalidateEvents(r.Context())
	h.jsonResponse(w, http.StatusOK, event)
}

func (h *Handler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.SetStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	event, err := h.events.SetStatus(r.Context(), eventFrom(r).Slug, req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.cache.InvalidateEvents(r.Context())
	h.jsonResponse(w, http.StatusOK, event)
}

func (h *Handler) AdminEventAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.identity.EventAdmins(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, admins)
}
