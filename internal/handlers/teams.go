package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTeamRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	team, err := h.teams.Create(r.Context(), eventFrom(r), userFrom(r), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusCreated, team)
}

func (h *Handler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	var req models.JoinTeamRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	team, err := h.teams.Join(r.Context(), eventFrom(r), userFrom(r), req.TeamCode)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, team)
}

func (h *Handler) InviteTeammate(w http.ResponseWriter, r *http.Request) {
	var req models.InviteTeamMemberRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	team, err := h.teams.Invite(r.Context(), eventFrom(r), userFrom(r).ID, req.Regno)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, team)
}

func (h *Handler) MyTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.TeamOf(r.Context(), eventFrom(r).ID, userFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, team)
}

func (h *Handler) AdminGetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "teamID")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	team, err := h.teams.ByID(r.Context(), eventFrom(r).ID, teamID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, team)
}

func (h *Handler) AdminDeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "teamID")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.teams.Delete(r.Context(), eventFrom(r).ID, teamID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}
