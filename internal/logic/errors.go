package logic

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is a stable machine-readable failure class. Handlers map kinds to HTTP
// statuses; clients branch on the kind string, never on the message.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindWrongMode          Kind = "WRONG_MODE"
	KindRegClosed          Kind = "REG_CLOSED"
	KindNotEligible        Kind = "NOT_ELIGIBLE"
	KindAlreadyInTeam      Kind = "ALREADY_IN_TEAM"
	KindTeamFull           Kind = "TEAM_FULL"
	KindRoundFrozen        Kind = "ROUND_FROZEN"
	KindPanelRequired      Kind = "PANEL_REQUIRED"
	KindScoreRange         Kind = "SCORE_RANGE"
	KindSubmissionLocked   Kind = "SUBMISSION_LOCKED"
	KindBadFile            Kind = "BAD_FILE"
	KindInvalidElimination Kind = "INVALID_ELIMINATION"
	KindDuplicate          Kind = "DUPLICATE"
	KindPolicyDenied       Kind = "POLICY_DENIED"
	KindBadInput           Kind = "BAD_INPUT"
	KindBadRounds          Kind = "BAD_ROUNDS"
	KindNotApplicable      Kind = "NOT_APPLICABLE"
	KindInternal           Kind = "INTERNAL"
)

// Error is the failure type every service returns for business-rule and
// validation violations. Infrastructure errors are wrapped with KindInternal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a bare kind error with a formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an infrastructure failure so handlers respond 500 without
// leaking the underlying error text.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the kind from any error chain, defaulting to INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindRegClosed, KindNotEligible, KindPolicyDenied:
		return http.StatusForbidden
	case KindAlreadyInTeam, KindDuplicate:
		return http.StatusConflict
	case KindWrongMode, KindTeamFull, KindRoundFrozen, KindPanelRequired,
		KindScoreRange, KindSubmissionLocked, KindBadFile,
		KindInvalidElimination, KindBadInput, KindBadRounds, KindNotApplicable:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint error,
// optionally scoped to a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
