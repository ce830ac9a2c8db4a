package reports

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pdamit/events-api/internal/models"
)

const (
	communityName = "Personality Development Association"
	campusName    = "MIT Campus"

	logoFetchTimeout = 8 * time.Second
)

// LogoFetcher downloads the community logo used on PDF artefacts and keeps
// the bytes in process after the first success. A failed HTTPS fetch is
// retried once with certificate verification disabled; that relaxation never
// applies to any other outbound call.
type LogoFetcher struct {
	url    string
	client *http.Client
	lax    *http.Client

	mu     sync.Mutex
	cached []byte
}

func NewLogoFetcher(url string) *LogoFetcher {
	return &LogoFetcher{
		url:    url,
		client: &http.Client{Timeout: logoFetchTimeout},
		lax: &http.Client{
			Timeout: logoFetchTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Fetch returns the cached logo, or fetches it. A nil return with nil error
// means no logo is configured; PDFs render without one.
func (l *LogoFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if l == nil || l.url == "" {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return l.cached, nil
	}

	body, err := l.get(ctx, l.client)
	if err != nil {
		body, err = l.get(ctx, l.lax)
	}
	if err != nil {
		return nil, err
	}
	l.cached = body
	return body, nil
}

func (l *LogoFetcher) get(ctx context.Context, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("logo fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func imageType(b []byte) string {
	switch http.DetectContentType(b) {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	}
	return ""
}

func placeLogo(pdf *fpdf.Fpdf, logo []byte, x, y, w float64) {
	if len(logo) == 0 {
		return
	}
	kind := imageType(logo)
	if kind == "" {
		return
	}
	opts := fpdf.ImageOptions{ImageType: kind, ReadDpi: true}
	pdf.RegisterImageOptionsReader("community-logo", opts, bytes.NewReader(logo))
	pdf.ImageOptions("community-logo", x, y, w, 0, false, opts, 0, "")
}

// Certificate carries the inputs of one participant certificate. A zero
// Place renders a participation certificate; a podium place renders an
// achievement one.
type Certificate struct {
	UserName   string
	Regno      string
	EventTitle string
	EventCode  string
	Place      models.BadgePlace
	BadgeTitle string
	AwardedOn  time.Time
}

func placeLabel(p models.BadgePlace) string {
	switch p {
	case models.PlaceWinner:
		return "Winner"
	case models.PlaceRunner:
		return "Runner Up"
	case models.PlaceSpecialMention:
		return "Special Mention"
	}
	return ""
}

// BuildCertificatePDF renders a landscape A4 certificate.
func BuildCertificatePDF(cert Certificate, logo []byte) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetDrawColor(60, 60, 120)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(11, 11, pageW-22, pageH-22, "D")

	placeLogo(pdf, logo, pageW/2-14, 16, 28)

	pdf.SetY(48)
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 8, communityName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, campusName, "", 1, "C", false, 0, "")

	title := "Certificate of Participation"
	if cert.Place != "" {
		title = "Certificate of Achievement"
	}
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(40, 40, 100)
	pdf.CellFormat(0, 14, title, "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 7, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 11, cert.UserName, "", 1, "C", false, 0, "")
	if cert.Regno != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, "("+cert.Regno+")", "", 1, "C", false, 0, "")
	}

	line := fmt.Sprintf("participated in %s", cert.EventTitle)
	if label := placeLabel(cert.Place); label != "" {
		line = fmt.Sprintf("secured %s in %s", label, cert.EventTitle)
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 7, line, "", 1, "C", false, 0, "")
	if cert.BadgeTitle != "" && cert.BadgeTitle != cert.EventTitle {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 6, cert.BadgeTitle, "", 1, "C", false, 0, "")
	}

	pdf.SetY(pageH - 34)
	pdf.SetFont("Helvetica", "", 10)
	when := cert.AwardedOn
	if when.IsZero() {
		when = time.Now().UTC()
	}
	footer := fmt.Sprintf("Awarded on %s", when.Format("02 Jan 2006"))
	if cert.EventCode != "" {
		footer += "  |  " + cert.EventCode
	}
	pdf.CellFormat(0, 6, footer, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildLeaderboardPDF renders a full board as a portrait A4 table.
func BuildLeaderboardPDF(event *models.Event, rows []models.LeaderboardRow, logo []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	placeLogo(pdf, logo, pageW/2-10, 10, 20)
	pdf.SetY(34)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, event.Title+" Leaderboard", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Generated "+time.Now().UTC().Format("02 Jan 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	header := leaderboardHeader(event)
	widths := make([]float64, len(header))
	weights := leaderboardColumnWeights(event)
	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	for i, w := range weights {
		widths[i] = usable * w / totalWeight
	}

	printHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 240)
		for i, h := range header {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	printHeader()

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rows {
		cells := leaderboardLine(event, r)
		if pdf.GetY() > 270 {
			pdf.AddPage()
			printHeader()
			pdf.SetFont("Helvetica", "", 9)
		}
		for i, c := range cells {
			align := "L"
			if i == 0 || i >= len(cells)-3 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func leaderboardColumnWeights(event *models.Event) []float64 {
	if event.IsTeamEvent() {
		return []float64{1, 2, 4, 1.6, 1.8, 2, 1.8, 1.6}
	}
	return []float64{1, 2.4, 4, 2.4, 1.4, 1.8, 2, 1.8, 1.6}
}
