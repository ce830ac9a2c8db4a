package models

import (
	"testing"
)

func TestCriteriaMaxTotal(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     float64
	}{
		{"default", DefaultCriteria(), 100},
		{"two axes", Criteria{{Name: "Idea", MaxMarks: 40}, {Name: "Execution", MaxMarks: 60}}, 100},
		{"uneven", Criteria{{Name: "A", MaxMarks: 12.5}, {Name: "B", MaxMarks: 7.5}}, 20},
		{"empty", Criteria{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.MaxTotal(); got != tt.want {
				t.Errorf("MaxTotal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriteriaNames(t *testing.T) {
	c := Criteria{{Name: "Design", MaxMarks: 50}, {Name: "Performance", MaxMarks: 50}}
	names := c.Names()
	if len(names) != 2 || names[0] != "Design" || names[1] != "Performance" {
		t.Errorf("Names() = %v", names)
	}
}

func TestEntityRefColumns(t *testing.T) {
	user := UserEntity(7)
	if user.UserID() == nil || *user.UserID() != 7 {
		t.Errorf("UserID() = %v", user.UserID())
	}
	if user.TeamID() != nil {
		t.Errorf("TeamID() = %v, want nil", user.TeamID())
	}

	team := TeamEntity(9)
	if team.TeamID() == nil || *team.TeamID() != 9 {
		t.Errorf("TeamID() = %v", team.TeamID())
	}
	if team.UserID() != nil {
		t.Errorf("UserID() = %v, want nil", team.UserID())
	}

	var zero EntityRef
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if zero.UserID() != nil || zero.TeamID() != nil {
		t.Error("zero value should yield nil columns")
	}
}

func TestEntityFromColumns(t *testing.T) {
	uid, tid := int64(3), int64(4)

	got := EntityFromColumns(EntityUser, &uid, nil)
	if got != UserEntity(3) {
		t.Errorf("user columns = %v", got)
	}
	got = EntityFromColumns(EntityTeam, nil, &tid)
	if got != TeamEntity(4) {
		t.Errorf("team columns = %v", got)
	}
	got = EntityFromColumns(EntityTeam, &uid, nil)
	if got.ID != 0 {
		t.Errorf("mismatched columns = %v, want zero id", got)
	}
}

func TestEntityFor(t *testing.T) {
	if got := EntityFor(ModeIndividual, 5); got.Type != EntityUser {
		t.Errorf("individual mode yields %v", got)
	}
	if got := EntityFor(ModeTeam, 5); got.Type != EntityTeam {
		t.Errorf("team mode yields %v", got)
	}
	if EntityTypeFor(ModeTeam) != EntityTeam || EntityTypeFor(ModeIndividual) != EntityUser {
		t.Error("EntityTypeFor does not match participant mode")
	}
}

func TestEntityRefString(t *testing.T) {
	if got := UserEntity(12).String(); got != "USER:12" {
		t.Errorf("String() = %q", got)
	}
	if got := TeamEntity(3).String(); got != "TEAM:3" {
		t.Errorf("String() = %q", got)
	}
}

func TestRoundFinalized(t *testing.T) {
	tests := []struct {
		state RoundState
		want  bool
	}{
		{RoundDraft, false},
		{RoundPublished, false},
		{RoundActive, false},
		{RoundCompleted, true},
		{RoundReveal, true},
	}
	for _, tt := range tests {
		r := Round{State: tt.state}
		if got := r.Finalized(); got != tt.want {
			t.Errorf("Finalized() with state %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestRoundMimeAllowed(t *testing.T) {
	r := Round{AllowedMimeTypes: []string{"application/pdf", "image/png"}}
	if !r.MimeAllowed("application/pdf") {
		t.Error("allowlisted type rejected")
	}
	if r.MimeAllowed("video/mp4") {
		t.Error("non-listed type accepted")
	}
	empty := Round{}
	if empty.MimeAllowed("application/pdf") {
		t.Error("empty allowlist accepted a type")
	}
}

func TestRoundMaxFileSizeBytes(t *testing.T) {
	r := Round{MaxFileSizeMB: 25}
	if got := r.MaxFileSizeBytes(); got != 25<<20 {
		t.Errorf("MaxFileSizeBytes() = %d, want %d", got, 25<<20)
	}
}

func TestDefaultAllowedMimeTypes(t *testing.T) {
	types := DefaultAllowedMimeTypes()
	want := map[string]bool{"application/pdf": true, "image/png": true, "video/mp4": true, "application/zip": true}
	seen := map[string]bool{}
	for _, m := range types {
		seen[m] = true
	}
	for m := range want {
		if !seen[m] {
			t.Errorf("default allowlist missing %s", m)
		}
	}
}

func TestIsTeamEvent(t *testing.T) {
	team := Event{ParticipantMode: ModeTeam}
	solo := Event{ParticipantMode: ModeIndividual}
	if !team.IsTeamEvent() || solo.IsTeamEvent() {
		t.Error("IsTeamEvent does not follow participant mode")
	}
}
