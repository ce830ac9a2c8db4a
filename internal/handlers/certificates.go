package handlers

import (
	"fmt"
	"net/http"

	"github.com/pdamit/events-api/internal/reports"
)

// MyCertificate renders the caller's certificate for one event as a PDF.
// Participation is the floor; a podium badge upgrades the wording.
func (h *Handler) MyCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(r)

	data, err := h.badges.CertificateData(ctx, user.ID, urlParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	cert := reports.Certificate{
		UserName:   data.User.Name,
		Regno:      data.User.Regno,
		EventTitle: data.Event.Title,
		EventCode:  data.Event.EventCode,
	}
	if data.Badge != nil {
		cert.Place = data.Badge.Place
		cert.BadgeTitle = data.Badge.Title
		cert.AwardedOn = data.Badge.CreatedAt
	}

	logo, err := h.logo.Fetch(ctx)
	if err != nil {
		h.logger.Warnw("logo fetch failed", "error", err)
	}

	pdf, err := reports.BuildCertificatePDF(cert, logo)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("certificate-%s.pdf", data.Event.Slug)))
	w.Write(pdf)
}
