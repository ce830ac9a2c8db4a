package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pdamit/events-api/internal/models"
)

// leaderboardQuery reads board filters off the query string. Unparseable
// round IDs are dropped rather than failing the whole request.
func leaderboardQuery(r *http.Request) *models.LeaderboardQuery {
	vals := r.URL.Query()
	q := &models.LeaderboardQuery{
		Department: vals.Get("department"),
		Gender:     vals.Get("gender"),
		Batch:      vals.Get("batch"),
		Status:     vals.Get("status"),
		Search:     vals.Get("search"),
		Sort:       vals.Get("sort"),
		Page:       queryInt(r, "page", 0),
		PageSize:   queryInt(r, "page_size", 0),
	}
	if raw := vals.Get("round_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id < 1 {
				continue
			}
			q.RoundIDs = append(q.RoundIDs, id)
		}
	}
	return q
}

func (h *Handler) AdminLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := leaderboardQuery(r)
	rows, total, err := h.leaderboard.Board(r.Context(), eventFrom(r), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	pageHeaders(w, total, q.Page, q.PageSize)
	h.jsonResponse(w, http.StatusOK, rows)
}

func (h *Handler) AdminLeaderboardRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.leaderboard.EligibleRounds(r.Context(), eventFrom(r).ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, rounds)
}
