package reports

import (
	"bytes"
	"math"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/pdamit/events-api/internal/models"
)

func TestParseScoreCell(t *testing.T) {
	crit := models.Criterion{Name: "Design", MaxMarks: 50}

	tests := []struct {
		name      string
		raw       string
		want      float64
		wantIssue bool
	}{
		{"plain number", "42", 42, false},
		{"decimal", "37.5", 37.5, false},
		{"blank is zero", "  ", 0, false},
		{"ratio scales to max", "35/50", 35, false},
		{"partial ratio", "3/4", 37.5, false},
		{"ratio with spaces", " 1 / 2 ", 25, false},
		{"zero denominator", "3/0", 0, true},
		{"garbage", "abc", 0, true},
		{"garbage ratio", "a/b", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issue := parseScoreCell(tt.raw, crit)
			if (issue != "") != tt.wantIssue {
				t.Fatalf("issue = %q, wantIssue %v", issue, tt.wantIssue)
			}
			if !tt.wantIssue && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("parseScoreCell(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParsePresent(t *testing.T) {
	tests := []struct {
		raw       string
		want      *bool
		wantIssue bool
	}{
		{"", nil, false},
		{"yes", boolPtr(true), false},
		{"Y", boolPtr(true), false},
		{"TRUE", boolPtr(true), false},
		{"1", boolPtr(true), false},
		{"present", boolPtr(true), false},
		{"no", boolPtr(false), false},
		{"absent", boolPtr(false), false},
		{"0", boolPtr(false), false},
		{"maybe", nil, true},
	}
	for _, tt := range tests {
		t.Run("value "+tt.raw, func(t *testing.T) {
			got, issue := parsePresent(tt.raw)
			if (issue != "") != tt.wantIssue {
				t.Fatalf("issue = %q, wantIssue %v", issue, tt.wantIssue)
			}
			if tt.wantIssue {
				return
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func boolPtr(v bool) *bool { return &v }

func buildTestSheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("writing row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseScoreSheet(t *testing.T) {
	criteria := models.Criteria{
		{Name: "Idea", MaxMarks: 40},
		{Name: "Execution", MaxMarks: 60},
	}
	sheet := buildTestSheet(t, [][]any{
		{"Register Number", "Name", "Present", "Idea", "Execution"},
		{"220701001", "Anaya Iyer", "yes", "35", "30/60"},
		{"", "", "", "", ""},
		{"220701002", "Rohit Menon", "no", "", ""},
		{"", "Nameless", "yes", "10", "10"},
		{"220701004", "Arjun Nair", "yes", "oops", "50"},
	})

	rows, err := ParseScoreSheet(sheet, IDHeaderRegno, criteria)
	if err != nil {
		t.Fatalf("ParseScoreSheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (blank line skipped)", len(rows))
	}

	first := rows[0]
	if first.RowNumber != 2 || first.Key != "220701001" || first.Name != "Anaya Iyer" {
		t.Errorf("first row = %+v", first)
	}
	if first.Present == nil || !*first.Present {
		t.Error("first row should read present")
	}
	if first.Scores["Idea"] != 35 || first.Scores["Execution"] != 30 {
		t.Errorf("first row scores = %v", first.Scores)
	}

	second := rows[1]
	if second.Present == nil || *second.Present {
		t.Error("second row should read absent")
	}
	if second.Scores["Idea"] != 0 || second.Scores["Execution"] != 0 {
		t.Errorf("blank cells = %v, want zeros", second.Scores)
	}

	if len(rows[2].Issues) == 0 {
		t.Error("row without a register number carries no issue")
	}
	if len(rows[3].Issues) == 0 {
		t.Error("row with an unreadable score carries no issue")
	}
}

func TestParseScoreSheetMissingColumns(t *testing.T) {
	criteria := models.DefaultCriteria()

	noID := buildTestSheet(t, [][]any{{"Name", "Score"}})
	if _, err := ParseScoreSheet(noID, IDHeaderTeamCode, criteria); err == nil {
		t.Error("missing identity column was accepted")
	}

	noCriterion := buildTestSheet(t, [][]any{{"Team Code", "Name"}})
	if _, err := ParseScoreSheet(noCriterion, IDHeaderTeamCode, criteria); err == nil {
		t.Error("missing criterion column was accepted")
	}

	if _, err := ParseScoreSheet([]byte("not a workbook"), IDHeaderRegno, criteria); err == nil {
		t.Error("junk bytes were accepted")
	}
}

func TestScoresExportRoundTrips(t *testing.T) {
	event := &models.Event{ParticipantMode: models.ModeIndividual}
	round := &models.Round{RoundNo: 1, Criteria: models.Criteria{
		{Name: "Idea", MaxMarks: 40},
		{Name: "Execution", MaxMarks: 60},
	}}
	present := true
	sheetRows := []models.ScoringSheetRow{
		{
			Entity: models.UserEntity(7), Regno: "220701001", Name: "Anaya Iyer",
			Status: models.RegistrationActive, IsPresent: &present,
			Score: &models.Score{
				CriteriaScores: map[string]float64{"Idea": 30, "Execution": 45},
				TotalScore:     75, NormalizedScore: 75, IsPresent: true,
			},
		},
		{
			Entity: models.UserEntity(9), Regno: "220701002", Name: "Rohit Menon",
			Status: models.RegistrationActive,
		},
	}

	workbook, err := BuildScoresXLSX(event, round, sheetRows)
	if err != nil {
		t.Fatalf("BuildScoresXLSX: %v", err)
	}
	parsed, err := ParseScoreSheet(workbook, IDHeaderRegno, round.Criteria)
	if err != nil {
		t.Fatalf("re-importing exported sheet: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("got %d rows, want 2", len(parsed))
	}
	if parsed[0].Key != "220701001" || parsed[0].Scores["Idea"] != 30 || parsed[0].Scores["Execution"] != 45 {
		t.Errorf("first row = %+v", parsed[0])
	}
	if len(parsed[0].Issues) != 0 || len(parsed[1].Issues) != 0 {
		t.Errorf("exported sheet re-imports with issues: %v / %v", parsed[0].Issues, parsed[1].Issues)
	}
}

func TestBuildLeaderboardCSV(t *testing.T) {
	event := &models.Event{ParticipantMode: models.ModeTeam}
	rows := []models.LeaderboardRow{
		{Rank: 1, TeamCode: "TM001", Name: "Circuit Breakers", MemberCount: 3,
			Status: models.RegistrationActive, CumulativeScore: 181.5, RoundsParticipated: 2, AttendanceCount: 2},
		{TeamCode: "TM002", Name: "Null Pointers", MemberCount: 2,
			Status: models.RegistrationEliminated, CumulativeScore: 40, RoundsParticipated: 1, AttendanceCount: 1},
	}

	out, err := BuildLeaderboardCSV(event, rows)
	if err != nil {
		t.Fatalf("BuildLeaderboardCSV: %v", err)
	}
	records := parseCSV(t, out)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0][1] != IDHeaderTeamCode {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "1" || records[1][5] != "181.5" {
		t.Errorf("ranked row = %v", records[1])
	}
	if records[2][0] != "" {
		t.Errorf("eliminated row rank = %q, want blank", records[2][0])
	}
	if bytes.Contains(out, []byte("0.000000")) {
		t.Error("scores carry trailing zero padding")
	}
}
