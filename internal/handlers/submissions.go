package handlers

import (
	"net/http"

	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/models"
)

// participantEntity resolves the caller's scoring entity for the event in
// context, rejecting callers who never registered.
func (h *Handler) participantEntity(r *http.Request) (models.EntityRef, error) {
	event := eventFrom(r)
	entity, err := h.ledger.EntityFor(r.Context(), event, userFrom(r).ID)
	if err != nil {
		return models.EntityRef{}, err
	}
	if entity.IsZero() {
		return models.EntityRef{}, logic.E(logic.KindNotFound, "not registered for %q", event.Slug)
	}
	if _, err := h.ledger.RegistrationFor(r.Context(), event.ID, entity); err != nil {
		return models.EntityRef{}, err
	}
	return entity, nil
}

func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	entity, err := h.participantEntity(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sub, err := h.submissions.Get(r.Context(), round, entity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, sub)
}

func (h *Handler) PresignSubmission(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	entity, err := h.participantEntity(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.PresignSubmissionRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	upload, err := h.submissions.Presign(r.Context(), eventFrom(r), round, entity, userFrom(r).ID, &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, upload)
}

func (h *Handler) PutSubmission(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	entity, err := h.participantEntity(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.UpsertSubmissionRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	sub, err := h.submissions.Upsert(r.Context(), eventFrom(r), round, entity, userFrom(r).ID, &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, sub)
}

func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	entity, err := h.participantEntity(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.submissions.Delete(r.Context(), eventFrom(r), round, entity, userFrom(r).ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AdminUpdateSubmission is the lock-ignoring override for fixing submissions
// after deadlines.
func (h *Handler) AdminUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.AdminSubmissionRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	sub, err := h.submissions.AdminUpsert(r.Context(), eventFrom(r), round, &req, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, sub)
}
