package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) AdminListPanels(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	panels, err := h.panels.List(r.Context(), round)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, panels)
}

func (h *Handler) AdminReplacePanels(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.UpdatePanelsRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	panels, err := h.panels.Replace(r.Context(), eventFrom(r), round, &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, panels)
}

func (h *Handler) AdminAutoAssign(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.AutoAssignRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	assignments, err := h.panels.AutoAssign(r.Context(), eventFrom(r), round, req.IncludeUnassignedOnly)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, assignments)
}

func (h *Handler) AdminAssignments(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	assignments, err := h.panels.Assignments(r.Context(), eventFrom(r), round)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, assignments)
}

func (h *Handler) AdminSetAssignments(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.SetAssignmentsRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	assignments, err := h.panels.SetAssignments(r.Context(), eventFrom(r), round, req.Assignments)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, assignments)
}

func (h *Handler) AdminEmailPanels(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.PanelEmailRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	queued, err := h.panels.NotifyJudges(r.Context(), eventFrom(r), round, &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"queued": queued})
}
