package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) AdminListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.rounds.List(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, rounds)
}

func (h *Handler) AdminCreateRound(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoundRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	round, err := h.rounds.Create(r.Context(), eventFrom(r), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusCreated, round)
}

// roundFrom resolves the {roundID} param against the event in context.
func (h *Handler) roundFrom(r *http.Request) (*models.Round, error) {
	roundID, err := pathID(r, "roundID")
	if err != nil {
		return nil, err
	}
	return h.rounds.ByID(r.Context(), eventFrom(r).ID, roundID)
}

func (h *Handler) AdminGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, round)
}

func (h *Handler) AdminUpdateRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.UpdateRoundRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	updated, err := h.rounds.Update(r.Context(), eventFrom(r), round.ID, &req, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, updated)
}

func (h *Handler) AdminDeleteRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.rounds.Delete(r.Context(), eventFrom(r), round.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) AdminFreezeRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	frozen, err := h.lifecycle.Freeze(r.Context(), eventFrom(r), round, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, frozen)
}

func (h *Handler) AdminUnfreezeRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	thawed, err := h.lifecycle.Unfreeze(r.Context(), eventFrom(r), round, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, thawed)
}
