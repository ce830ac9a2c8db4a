package logic

import (
	"testing"

	"github.com/pdamit/events-api/internal/models"
)

func TestValidateCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria models.Criteria
		wantErr  bool
	}{
		{"default rubric", models.DefaultCriteria(), false},
		{"two criteria", models.Criteria{{Name: "Idea", MaxMarks: 40}, {Name: "Execution", MaxMarks: 60}}, false},
		{"empty", models.Criteria{}, true},
		{"blank name", models.Criteria{{Name: "  ", MaxMarks: 10}}, true},
		{"duplicate name", models.Criteria{{Name: "Idea", MaxMarks: 10}, {Name: "Idea", MaxMarks: 20}}, true},
		{"zero max", models.Criteria{{Name: "Idea", MaxMarks: 0}}, true},
		{"negative max", models.Criteria{{Name: "Idea", MaxMarks: -5}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCriteria(tt.criteria)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCriteria() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && KindOf(err) != KindBadInput {
				t.Errorf("kind = %q, want %q", KindOf(err), KindBadInput)
			}
		})
	}
}

func TestValidatePanelDistribution(t *testing.T) {
	solo := &models.Event{ParticipantMode: models.ModeIndividual}
	team := &models.Event{ParticipantMode: models.ModeTeam}

	if err := validatePanelDistribution(team, models.DistributeByMembers); err != nil {
		t.Errorf("member weighting on a team event: %v", err)
	}
	if err := validatePanelDistribution(solo, models.DistributeByEntity); err != nil {
		t.Errorf("entity counting on a solo event: %v", err)
	}
	if err := validatePanelDistribution(solo, models.DistributeByMembers); err == nil {
		t.Error("member weighting on a solo event was accepted")
	}
}

func TestShortlistRequested(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }
	f64Ptr := func(v float64) *float64 { return &v }
	elimPtr := func(v models.EliminationType) *models.EliminationType { return &v }

	topK := models.EliminationTopK
	existing := &models.Round{
		EliminationType:  &topK,
		EliminationValue: f64Ptr(5),
	}
	fresh := &models.Round{}

	tests := []struct {
		name string
		cur  *models.Round
		req  models.UpdateRoundRequest
		want bool
	}{
		{"no freeze flag", fresh, models.UpdateRoundRequest{
			EliminationType: elimPtr(models.EliminationTopK), EliminationValue: f64Ptr(5),
		}, false},
		{"freeze false", fresh, models.UpdateRoundRequest{
			IsFrozen: boolPtr(false), EliminationType: elimPtr(models.EliminationTopK), EliminationValue: f64Ptr(5),
		}, false},
		{"freeze without elimination type", fresh, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationValue: f64Ptr(5),
		}, false},
		{"freeze without elimination value", fresh, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationType: elimPtr(models.EliminationTopK),
		}, false},
		{"first elimination on a round", fresh, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationType: elimPtr(models.EliminationTopK), EliminationValue: f64Ptr(5),
		}, true},
		{"changed value", existing, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationType: elimPtr(models.EliminationTopK), EliminationValue: f64Ptr(3),
		}, true},
		{"changed type", existing, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationType: elimPtr(models.EliminationMinScore), EliminationValue: f64Ptr(5),
		}, true},
		{"unchanged settings", existing, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationType: elimPtr(models.EliminationTopK), EliminationValue: f64Ptr(5),
		}, false},
		{"unchanged but eliminating absentees", existing, models.UpdateRoundRequest{
			IsFrozen: boolPtr(true), EliminationType: elimPtr(models.EliminationTopK), EliminationValue: f64Ptr(5),
			EliminateAbsent: true,
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortlistRequested(tt.cur, &tt.req); got != tt.want {
				t.Errorf("shortlistRequested() = %v, want %v", got, tt.want)
			}
		})
	}
}
