package reports

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"testing"

	"github.com/pdamit/events-api/internal/models"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}
	return records
}

func TestBuildAuditCSVIndividual(t *testing.T) {
	event := &models.Event{ParticipantMode: models.ModeIndividual}
	round := &models.Round{Criteria: models.Criteria{
		{Name: "Idea", MaxMarks: 40},
		{Name: "Execution", MaxMarks: 60},
	}}
	panelNo := 2
	rows := []AuditRow{
		{
			EntityID: 7, Identifier: "220701001", Name: "Anaya Iyer",
			Status: models.RegistrationActive, Present: true,
			Scores: map[string]float64{"Idea": 35, "Execution": 50.5},
			Total:  85.5, Normalized: 85.5,
			PanelNo: &panelNo, PanelName: "Panel B",
			Submission: "https://cdn.example/deck.pdf", Locked: true,
		},
		{
			EntityID: 9, Identifier: "220701002", Name: "Rohit Menon",
			Status: models.RegistrationEliminated, Present: false,
			Scores: map[string]float64{}, Total: 0, Normalized: 0,
		},
	}

	out, err := BuildAuditCSV(event, round, rows)
	if err != nil {
		t.Fatalf("BuildAuditCSV: %v", err)
	}
	records := parseCSV(t, out)
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}

	wantHeader := []string{
		"S.No", "Register Number", "Name", "Status", "Present",
		"Idea", "Execution",
		"Total Score", "Normalized Score", "Panel No", "Panel Name", "Submission", "Submission Locked",
	}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Errorf("header = %v, want %v", records[0], wantHeader)
	}

	first := records[1]
	if first[0] != "1" || first[1] != "220701001" || first[4] != "yes" {
		t.Errorf("first row = %v", first)
	}
	if first[5] != "35" || first[6] != "50.5" || first[7] != "85.5" {
		t.Errorf("score cells = %v", first[5:8])
	}
	if first[9] != "2" || first[10] != "Panel B" || first[12] != "yes" {
		t.Errorf("panel/lock cells = %v", first[9:])
	}

	second := records[2]
	if second[0] != "2" || second[3] != string(models.RegistrationEliminated) || second[4] != "no" {
		t.Errorf("second row = %v", second)
	}
	if second[9] != "" {
		t.Errorf("unassigned panel cell = %q, want blank", second[9])
	}
}

func TestBuildAuditCSVTeamHeader(t *testing.T) {
	event := &models.Event{ParticipantMode: models.ModeTeam}
	round := &models.Round{Criteria: models.DefaultCriteria()}

	out, err := BuildAuditCSV(event, round, nil)
	if err != nil {
		t.Fatalf("BuildAuditCSV: %v", err)
	}
	records := parseCSV(t, out)
	if len(records) != 1 {
		t.Fatalf("got %d records, want header only", len(records))
	}
	if records[0][1] != "Team Code" {
		t.Errorf("identity header = %q, want Team Code", records[0][1])
	}
}
