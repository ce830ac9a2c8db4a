// Package reports renders tabular artefacts for admins: audit CSVs written
// around lifecycle transitions, spreadsheet imports and exports, and PDF
// summaries.
package reports

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/pdamit/events-api/internal/models"
)

// AuditRow is one scoring-state line captured when a round is frozen or
// shortlisted.
type AuditRow struct {
	EntityID   int64
	Identifier string
	Name       string
	Status     models.RegistrationStatus
	Present    bool
	Scores     map[string]float64
	Total      float64
	Normalized float64
	PanelNo    *int
	PanelName  string
	Submission string
	Locked     bool
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildAuditCSV renders the frozen scoring state of a round, one row per
// registered entity, with a column per criterion.
func BuildAuditCSV(event *models.Event, round *models.Round, rows []AuditRow) ([]byte, error) {
	idHeader := "Register Number"
	if event.IsTeamEvent() {
		idHeader = "Team Code"
	}
	names := round.Criteria.Names()

	header := []string{"S.No", idHeader, "Name", "Status", "Present"}
	header = append(header, names...)
	header = append(header, "Total Score", "Normalized Score", "Panel No", "Panel Name", "Submission", "Submission Locked")

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i, r := range rows {
		rec := []string{strconv.Itoa(i + 1), r.Identifier, r.Name, string(r.Status), yesNo(r.Present)}
		for _, name := range names {
			rec = append(rec, num(r.Scores[name]))
		}
		panelNo := ""
		if r.PanelNo != nil {
			panelNo = strconv.Itoa(*r.PanelNo)
		}
		rec = append(rec, num(r.Total), num(r.Normalized), panelNo, r.PanelName, r.Submission, yesNo(r.Locked))
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
