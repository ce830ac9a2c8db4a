package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pdamit/events-api/internal/models"
)

// Identity column headers expected in score sheets, keyed by participant mode.
const (
	IDHeaderRegno    = "Register Number"
	IDHeaderTeamCode = "Team Code"
)

// SheetRow is one parsed line of an uploaded score sheet. Issues collects
// per-cell problems; a row with issues is reported to the admin instead of
// being imported.
type SheetRow struct {
	RowNumber int
	Key       string
	Name      string
	Present   *bool
	Scores    map[string]float64
	Issues    []string
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseScoreCell reads a plain number or an "a/b" ratio scaled to the
// criterion maximum. Blank cells read as zero.
func parseScoreCell(raw string, c models.Criterion) (float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ""
	}
	if numPart, denPart, isRatio := strings.Cut(raw, "/"); isRatio {
		a, errA := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(denPart), 64)
		if errA != nil || errB != nil || b <= 0 {
			return 0, fmt.Sprintf("unreadable %s value %q", c.Name, raw)
		}
		return a / b * c.MaxMarks, ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Sprintf("unreadable %s value %q", c.Name, raw)
	}
	return v, ""
}

func parsePresent(raw string) (*bool, string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, ""
	case "yes", "y", "true", "1", "present":
		v := true
		return &v, ""
	case "no", "n", "false", "0", "absent":
		v := false
		return &v, ""
	}
	return nil, fmt.Sprintf("unreadable Present value %q", raw)
}

// ParseScoreSheet reads the first worksheet of an uploaded workbook. The
// header row must contain idHeader and one column per criterion; Name (or
// Team Name) and Present columns are optional.
func ParseScoreSheet(sheet []byte, idHeader string, criteria models.Criteria) ([]SheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(sheet))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	cols := map[string]int{}
	for i, cell := range rows[0] {
		cols[normalizeHeader(cell)] = i
	}
	keyCol, ok := cols[normalizeHeader(idHeader)]
	if !ok {
		return nil, fmt.Errorf("missing %q column", idHeader)
	}
	nameCol, hasName := cols["name"]
	if !hasName {
		nameCol, hasName = cols["team name"]
	}
	presentCol, hasPresent := cols["present"]

	type boundCriterion struct {
		crit models.Criterion
		idx  int
	}
	bound := make([]boundCriterion, 0, len(criteria))
	for _, c := range criteria {
		idx, ok := cols[normalizeHeader(c.Name)]
		if !ok {
			return nil, fmt.Errorf("missing %q column", c.Name)
		}
		bound = append(bound, boundCriterion{crit: c, idx: idx})
	}

	out := []SheetRow{}
	for i, raw := range rows[1:] {
		if rowEmpty(raw) {
			continue
		}
		row := SheetRow{RowNumber: i + 2, Scores: map[string]float64{}}
		row.Key = strings.TrimSpace(cellAt(raw, keyCol))
		if hasName {
			row.Name = strings.TrimSpace(cellAt(raw, nameCol))
		}
		if row.Key == "" {
			row.Issues = append(row.Issues, "missing "+idHeader)
		}
		if hasPresent {
			p, issue := parsePresent(cellAt(raw, presentCol))
			if issue != "" {
				row.Issues = append(row.Issues, issue)
			} else {
				row.Present = p
			}
		}
		for _, bc := range bound {
			value, issue := parseScoreCell(cellAt(raw, bc.idx), bc.crit)
			if issue != "" {
				row.Issues = append(row.Issues, issue)
				continue
			}
			row.Scores[bc.crit.Name] = value
		}
		out = append(out, row)
	}
	return out, nil
}

func newWorkbook(sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RegistrationRow is one line of the registrations export.
type RegistrationRow struct {
	Identifier    string
	Name          string
	Email         string
	Department    string
	Batch         string
	Gender        string
	Status        models.RegistrationStatus
	ReferralCode  string
	ReferredBy    string
	ReferralCount int
	Members       string
	MemberCount   int
	RegisteredAt  time.Time
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// BuildRegistrationsXLSX renders the registration ledger of an event, with
// columns matching its participant mode.
func BuildRegistrationsXLSX(event *models.Event, rows []RegistrationRow) ([]byte, error) {
	f, err := newWorkbook("Registrations")
	if err != nil {
		return nil, err
	}

	var grid [][]any
	if event.IsTeamEvent() {
		grid = append(grid, []any{"S.No", IDHeaderTeamCode, "Team Name", "Members", "Member Count", "Status", "Registered At"})
		for i, r := range rows {
			grid = append(grid, []any{i + 1, r.Identifier, r.Name, r.Members, r.MemberCount, string(r.Status), stamp(r.RegisteredAt)})
		}
	} else {
		grid = append(grid, []any{"S.No", IDHeaderRegno, "Name", "Email", "Department", "Batch", "Gender", "Status", "Referral Code", "Referred By", "Referral Count", "Registered At"})
		for i, r := range rows {
			grid = append(grid, []any{i + 1, r.Identifier, r.Name, r.Email, r.Department, r.Batch, r.Gender, string(r.Status), r.ReferralCode, r.ReferredBy, r.ReferralCount, stamp(r.RegisteredAt)})
		}
	}
	if err := writeRows(f, "Registrations", grid); err != nil {
		f.Close()
		return nil, err
	}
	return workbookBytes(f)
}

// BuildScoresXLSX renders the scoring sheet of one round. The layout matches
// what ParseScoreSheet accepts, so an export can be edited and re-imported.
func BuildScoresXLSX(event *models.Event, round *models.Round, rows []models.ScoringSheetRow) ([]byte, error) {
	sheetName := fmt.Sprintf("Round %d", round.RoundNo)
	f, err := newWorkbook(sheetName)
	if err != nil {
		return nil, err
	}

	idHeader := IDHeaderRegno
	if event.IsTeamEvent() {
		idHeader = IDHeaderTeamCode
	}
	names := round.Criteria.Names()

	header := []any{idHeader, "Name", "Status", "Present"}
	for _, n := range names {
		header = append(header, n)
	}
	header = append(header, "Total Score", "Normalized Score", "Panel No")
	grid := [][]any{header}

	for _, r := range rows {
		key := r.Regno
		if event.IsTeamEvent() {
			key = r.TeamCode
		}
		present := ""
		if r.IsPresent != nil {
			present = yesNo(*r.IsPresent)
		}
		line := []any{key, r.Name, string(r.Status), present}
		for _, n := range names {
			if r.Score != nil {
				line = append(line, r.Score.CriteriaScores[n])
			} else {
				line = append(line, "")
			}
		}
		if r.Score != nil {
			line = append(line, r.Score.TotalScore, r.Score.NormalizedScore)
		} else {
			line = append(line, "", "")
		}
		if r.PanelNo != nil {
			line = append(line, *r.PanelNo)
		} else {
			line = append(line, "")
		}
		grid = append(grid, line)
	}
	if err := writeRows(f, sheetName, grid); err != nil {
		f.Close()
		return nil, err
	}
	return workbookBytes(f)
}

func leaderboardHeader(event *models.Event) []string {
	if event.IsTeamEvent() {
		return []string{"Rank", IDHeaderTeamCode, "Team Name", "Member Count", "Status", "Cumulative Score", "Rounds Participated", "Attendance"}
	}
	return []string{"Rank", IDHeaderRegno, "Name", "Department", "Batch", "Status", "Cumulative Score", "Rounds Participated", "Attendance"}
}

func leaderboardLine(event *models.Event, r models.LeaderboardRow) []string {
	rank := ""
	if r.Rank > 0 {
		rank = strconv.Itoa(r.Rank)
	}
	if event.IsTeamEvent() {
		return []string{rank, r.TeamCode, r.Name, strconv.Itoa(r.MemberCount), string(r.Status),
			num(r.CumulativeScore), strconv.Itoa(r.RoundsParticipated), strconv.Itoa(r.AttendanceCount)}
	}
	return []string{rank, r.Regno, r.Name, r.Department, r.Batch, string(r.Status),
		num(r.CumulativeScore), strconv.Itoa(r.RoundsParticipated), strconv.Itoa(r.AttendanceCount)}
}

// BuildLeaderboardXLSX renders a full board, ranked rows first.
func BuildLeaderboardXLSX(event *models.Event, rows []models.LeaderboardRow) ([]byte, error) {
	f, err := newWorkbook("Leaderboard")
	if err != nil {
		return nil, err
	}
	header := leaderboardHeader(event)
	grid := make([][]any, 0, len(rows)+1)
	line := make([]any, len(header))
	for i, h := range header {
		line[i] = h
	}
	grid = append(grid, line)
	for _, r := range rows {
		cells := leaderboardLine(event, r)
		line := make([]any, len(cells))
		for i, c := range cells {
			line[i] = c
		}
		grid = append(grid, line)
	}
	if err := writeRows(f, "Leaderboard", grid); err != nil {
		f.Close()
		return nil, err
	}
	return workbookBytes(f)
}

// BuildLeaderboardCSV renders the same board as text/csv.
func BuildLeaderboardCSV(event *models.Event, rows []models.LeaderboardRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(leaderboardHeader(event)); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(leaderboardLine(event, r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
