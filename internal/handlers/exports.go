package handlers

import (
	"fmt"
	"net/http"

	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func serveAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(body)
}

func (h *Handler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	rows, err := h.exports.Registrations(r.Context(), event)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	workbook, err := reports.BuildRegistrationsXLSX(event, rows)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	serveAttachment(w, xlsxContentType, fmt.Sprintf("registrations-%s.xlsx", event.Slug), workbook)
}

// ExportScores writes the scoring sheet in the same layout the importer
// accepts, so admins can edit offline and upload the result.
func (h *Handler) ExportScores(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rows, err := h.scores.Sheet(r.Context(), event, round)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	workbook, err := reports.BuildScoresXLSX(event, round, rows)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	serveAttachment(w, xlsxContentType,
		fmt.Sprintf("scores-%s-round-%d.xlsx", event.Slug, round.RoundNo), workbook)
}

func (h *Handler) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	event := eventFrom(r)
	rows, err := h.exports.LeaderboardAll(ctx, event, leaderboardQuery(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	base := fmt.Sprintf("leaderboard-%s", event.Slug)
	switch format := r.URL.Query().Get("format"); format {
	case "", "xlsx":
		workbook, err := reports.BuildLeaderboardXLSX(event, rows)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		serveAttachment(w, xlsxContentType, base+".xlsx", workbook)
	case "csv":
		body, err := reports.BuildLeaderboardCSV(event, rows)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		serveAttachment(w, "text/csv", base+".csv", body)
	case "pdf":
		logo, err := h.logo.Fetch(ctx)
		if err != nil {
			h.logger.Warnw("logo fetch failed", "error", err)
		}
		body, err := reports.BuildLeaderboardPDF(event, rows, logo)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		serveAttachment(w, "application/pdf", base+".pdf", body)
	default:
		h.respondError(w, r, logic.E(logic.KindBadInput, "unknown export format %q", format))
	}
}
