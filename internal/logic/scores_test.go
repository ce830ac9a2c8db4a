package logic

import (
	"testing"

	"github.com/pdamit/events-api/internal/models"
)

func TestNormalizedScore(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		maxTotal float64
		present  bool
		want     float64
	}{
		{"full marks", 100, 100, true, 100},
		{"half marks", 50, 100, true, 50},
		{"scaled rubric", 75, 150, true, 50},
		{"absent zeroes everything", 80, 100, false, 0},
		{"no rubric", 10, 0, true, 0},
		{"overshoot clamps", 120, 100, true, 100},
		{"negative clamps", -5, 100, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizedScore(tt.total, tt.maxTotal, tt.present); got != tt.want {
				t.Errorf("NormalizedScore(%v, %v, %v) = %v, want %v",
					tt.total, tt.maxTotal, tt.present, got, tt.want)
			}
		})
	}
}

func TestResolveEntryScores(t *testing.T) {
	criteria := models.Criteria{
		{Name: "Idea", MaxMarks: 40},
		{Name: "Execution", MaxMarks: 60},
	}

	t.Run("valid entry", func(t *testing.T) {
		scores, total, err := resolveEntryScores(criteria, map[string]float64{"Idea": 40, "Execution": 60}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 100 {
			t.Errorf("total = %v, want 100", total)
		}
		if scores["Idea"] != 40 || scores["Execution"] != 60 {
			t.Errorf("stored map = %v", scores)
		}
	})

	t.Run("missing criterion reads as zero", func(t *testing.T) {
		scores, total, err := resolveEntryScores(criteria, map[string]float64{"Idea": 25}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 25 {
			t.Errorf("total = %v, want 25", total)
		}
		if scores["Execution"] != 0 {
			t.Errorf("Execution = %v, want 0", scores["Execution"])
		}
	})

	t.Run("over maximum rejected", func(t *testing.T) {
		_, _, err := resolveEntryScores(criteria, map[string]float64{"Idea": 41}, true)
		if KindOf(err) != KindScoreRange {
			t.Errorf("kind = %q, want %q", KindOf(err), KindScoreRange)
		}
	})

	t.Run("negative rejected", func(t *testing.T) {
		_, _, err := resolveEntryScores(criteria, map[string]float64{"Idea": -1}, true)
		if KindOf(err) != KindScoreRange {
			t.Errorf("kind = %q, want %q", KindOf(err), KindScoreRange)
		}
	})

	t.Run("absent coerces to zeros", func(t *testing.T) {
		scores, total, err := resolveEntryScores(criteria, map[string]float64{"Idea": 99, "Execution": 99}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 0 {
			t.Errorf("total = %v, want 0", total)
		}
		for name, v := range scores {
			if v != 0 {
				t.Errorf("%s = %v, want 0", name, v)
			}
		}
	})
}

func TestNormalizeImportKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" tm001 ", "TM001"},
		{"220701001", "220701001"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeImportKey(tt.in); got != tt.want {
			t.Errorf("normalizeImportKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
