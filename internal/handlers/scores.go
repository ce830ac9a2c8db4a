package handlers

import (
	"io"
	"net/http"

	"github.com/pdamit/events-api/internal/models"
)

func (h *Handler) AdminScoreSheet(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sheet, err := h.scores.Sheet(r.Context(), eventFrom(r), round)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, sheet)
}

func (h *Handler) AdminSaveScores(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.SaveScoresRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.scores.Save(r.Context(), eventFrom(r), round, req.Entries, actorFrom(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"saved": len(req.Entries)})
}

// AdminImportScores applies an uploaded spreadsheet. The workbook arrives as
// the multipart "file" field; ?preview=true reports without writing.
func (h *Handler) AdminImportScores(w http.ResponseWriter, r *http.Request) {
	round, err := h.roundFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(MaxImportSize); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	sheet, err := io.ReadAll(io.LimitReader(file, MaxImportSize))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	report, err := h.scores.Import(r.Context(), eventFrom(r), round, sheet, queryBool(r, "preview"), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, report)
}

func (h *Handler) AdminMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req models.MarkAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.scores.MarkAttendance(r.Context(), eventFrom(r), &req, actorFrom(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"marked": len(req.Entries)})
}

// AdminScanAttendance consumes a participant QR token and marks the entity
// present for the given round.
func (h *Handler) AdminScanAttendance(w http.ResponseWriter, r *http.Request) {
	event := eventFrom(r)

	var req models.ScanAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	claims, err := h.tokens.ParseQR(req.Token)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid attendance token")
		return
	}
	if claims.EventSlug != event.Slug {
		h.errorResponse(w, http.StatusBadRequest, "token belongs to a different event")
		return
	}
	entity := models.EntityRef{Type: models.EntityType(claims.EntityType), ID: claims.EntityID}

	record, err := h.scores.Scan(r.Context(), event, req.RoundID, entity, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, record)
}
