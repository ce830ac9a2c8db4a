package handlers

import (
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/pdamit/events-api/internal/models"
)

// Register creates (or idempotently re-reads) the caller's registration.
// Team events refuse this endpoint; participants join through a team.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	user := userFrom(r)
	referredBy := r.URL.Query().Get("referral_code")

	reg, created, err := h.ledger.RegisterIndividual(r.Context(), event, user, referredBy)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.jsonResponse(w, status, reg)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.ledger.Dashboard(r.Context(), eventFrom(r), userFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, dashboard)
}

func (h *Handler) MyRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.ledger.MyRounds(r.Context(), eventFrom(r), userFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, rounds)
}

// QRCode issues the attendance token for the caller's entity in this event.
// With ?format=png the token is rendered as a scannable image.
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	user := userFrom(r)

	entity, err := h.ledger.EntityFor(r.Context(), event, user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if entity.IsZero() {
		h.errorResponse(w, http.StatusNotFound, fmt.Sprintf("not registered for %q", event.Slug))
		return
	}
	if _, err := h.ledger.RegistrationFor(r.Context(), event.ID, entity); err != nil {
		h.respondError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.IssueQR(user.ID, event.Slug, entity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "png" {
		png, err := qrcode.Encode(token, qrcode.Medium, 512)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.QRToken{Token: token, ExpiresAt: expiresAt})
}

// MyRegistration reports the caller's standing in this event: registration
// row plus team detail for team events.
func (h *Handler) MyRegistration(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	user := userFrom(r)
	ctx := r.Context()

	entity, err := h.ledger.EntityFor(ctx, event, user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := map[string]any{"registered": false}
	if !entity.IsZero() {
		reg, err := h.ledger.RegistrationFor(ctx, event.ID, entity)
		if err == nil {
			out["registered"] = true
			out["registration"] = reg
		}
		if event.IsTeamEvent() {
			team, err := h.teams.TeamOf(ctx, event.ID, user.ID)
			if err == nil {
				out["team"] = team
			}
		}
	}
	h.jsonResponse(w, http.StatusOK, out)
}

func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.ledger.MyEvents(r.Context(), userFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, events)
}

func (h *Handler) MyAchievements(w http.ResponseWriter, r *http.Request) {
	wall, err := h.badges.WallFor(r.Context(), userFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, wall)
}
