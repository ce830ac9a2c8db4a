package logic

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindWrongMode, http.StatusBadRequest},
		{KindRegClosed, http.StatusForbidden},
		{KindNotEligible, http.StatusForbidden},
		{KindAlreadyInTeam, http.StatusConflict},
		{KindTeamFull, http.StatusBadRequest},
		{KindRoundFrozen, http.StatusBadRequest},
		{KindPanelRequired, http.StatusBadRequest},
		{KindScoreRange, http.StatusBadRequest},
		{KindSubmissionLocked, http.StatusBadRequest},
		{KindBadFile, http.StatusBadRequest},
		{KindInvalidElimination, http.StatusBadRequest},
		{KindDuplicate, http.StatusConflict},
		{KindPolicyDenied, http.StatusForbidden},
		{KindBadInput, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
		{Kind("SOMETHING_NEW"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := HTTPStatus(tt.kind); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	base := E(KindTeamFull, "team %s is full", "TM001")

	if got := KindOf(base); got != KindTeamFull {
		t.Errorf("KindOf(direct) = %s, want TEAM_FULL", got)
	}

	wrapped := fmt.Errorf("join failed: %w", base)
	if got := KindOf(wrapped); got != KindTeamFull {
		t.Errorf("KindOf(wrapped) = %s, want TEAM_FULL", got)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want INTERNAL", got)
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := E(KindScoreRange, "Idea must be within [0, %g]", 40.0)
	want := "SCORE_RANGE: Idea must be within [0, 40]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	inner := errors.New("connection reset")
	werr := Internal("saving scores", inner)
	if !errors.Is(werr, inner) {
		t.Error("Internal should wrap the cause for errors.Is")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "registrations_event_id_user_id_key"}

	if !isUniqueViolation(pgErr, "") {
		t.Error("expected any-constraint match for 23505")
	}
	if !isUniqueViolation(pgErr, "registrations_event_id_user_id_key") {
		t.Error("expected named-constraint match")
	}
	if isUniqueViolation(pgErr, "teams_event_id_team_code_key") {
		t.Error("did not expect a match for a different constraint")
	}
	if isUniqueViolation(errors.New("not pg"), "") {
		t.Error("plain errors are not unique violations")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Error("foreign key violations are not unique violations")
	}
}
