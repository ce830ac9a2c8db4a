package logic

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/storage"
)

const roundColumns = `id, event_id, round_no, name, description, scheduled_at, state, criteria,
	elimination_type, elimination_value, is_frozen,
	requires_submission, submission_mode, submission_deadline, allowed_mime_types, max_file_size_mb, submissions_locked,
	panel_mode_enabled, panel_distribution, panel_structure_locked, created_at, updated_at`

type roundsService struct {
	pool  TxBeginner
	audit *AuditPublisher
}

func NewRoundsService(pool TxBeginner, audit *AuditPublisher) RoundsService {
	return &roundsService{pool: pool, audit: audit}
}

func scanRound(row pgx.Row) (*models.Round, error) {
	var r models.Round
	err := row.Scan(&r.ID, &r.EventID, &r.RoundNo, &r.Name, &r.Description, &r.ScheduledAt, &r.State, &r.Criteria,
		&r.EliminationType, &r.EliminationValue, &r.IsFrozen,
		&r.RequiresSubmission, &r.SubmissionMode, &r.SubmissionDeadline, &r.AllowedMimeTypes, &r.MaxFileSizeMB, &r.SubmissionsLocked,
		&r.PanelModeEnabled, &r.PanelDistribution, &r.PanelStructureLocked, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRounds(rows pgx.Rows) ([]models.Round, error) {
	out := []models.Round{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, Internal("scanning round row", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating rounds", err)
	}
	return out, nil
}

func validateCriteria(c models.Criteria) error {
	if len(c) == 0 {
		return E(KindBadInput, "criteria must not be empty")
	}
	seen := map[string]bool{}
	total := 0.0
	for _, crit := range c {
		name := strings.TrimSpace(crit.Name)
		if name == "" {
			return E(KindBadInput, "criterion name must not be empty")
		}
		if seen[name] {
			return E(KindBadInput, "duplicate criterion %q", name)
		}
		seen[name] = true
		if crit.MaxMarks <= 0 {
			return E(KindBadInput, "criterion %q must have positive max marks", name)
		}
		total += crit.MaxMarks
	}
	if total <= 0 {
		return E(KindBadInput, "criteria max marks must sum to a positive value")
	}
	return nil
}

func validatePanelDistribution(event *models.Event, dist models.PanelDistribution) error {
	if dist == models.DistributeByMembers && !event.IsTeamEvent() {
		return E(KindBadInput, "member_count_weighted distribution requires a TEAM event")
	}
	return nil
}

func syncRoundCount(ctx context.Context, tx pgx.Tx, eventID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE events
		SET round_count = (SELECT COUNT(*) FROM rounds r WHERE r.event_id = events.id), updated_at = now()
		WHERE id = $1`, eventID)
	return err
}

func (s *roundsService) ByID(ctx context.Context, eventID, roundID int64) (*models.Round, error) {
	r, err := scanRound(s.pool.QueryRow(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND id = $2`, eventID, roundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "round %d not found", roundID)
	}
	if err != nil {
		return nil, Internal("loading round", err)
	}
	return r, nil
}

func (s *roundsService) List(ctx context.Context, eventID int64) ([]models.Round, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 ORDER BY round_no`, eventID)
	if err != nil {
		return nil, Internal("listing rounds", err)
	}
	defer rows.Close()
	return collectRounds(rows)
}

func (s *roundsService) Create(ctx context.Context, event *models.Event, req *models.CreateRoundRequest) (*models.Round, error) {
	criteria := req.Criteria
	if len(criteria) == 0 {
		criteria = models.DefaultCriteria()
	}
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	mode := req.SubmissionMode
	if mode == "" {
		mode = models.SubmitFileOrLink
	}
	mimes := req.AllowedMimeTypes
	if len(mimes) == 0 {
		mimes = models.DefaultAllowedMimeTypes()
	}
	maxSize := req.MaxFileSizeMB
	if maxSize <= 0 {
		maxSize = models.DefaultMaxFileSizeMB
	}
	dist := req.PanelDistribution
	if dist == "" {
		dist = models.DistributeByEntity
	}
	if err := validatePanelDistribution(event, dist); err != nil {
		return nil, err
	}

	var round *models.Round
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM rounds WHERE event_id = $1`, event.ID).Scan(&count); err != nil {
			return Internal("counting rounds", err)
		}
		if event.RoundMode == models.RoundModeSingle && count >= 1 {
			return E(KindNotApplicable, "single-round events have exactly one round")
		}
		roundNo := req.RoundNo
		if roundNo <= 0 {
			roundNo = count + 1
		}

		created, err := scanRound(tx.QueryRow(ctx, `
			INSERT INTO rounds (event_id, round_no, name, description, scheduled_at, state, criteria,
				requires_submission, submission_mode, submission_deadline, allowed_mime_types, max_file_size_mb,
				panel_mode_enabled, panel_distribution)
			VALUES ($1, $2, $3, $4, $5, 'DRAFT', $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING `+roundColumns,
			event.ID, roundNo, req.Name, req.Description, req.ScheduledAt, criteria,
			req.RequiresSubmission, mode, req.SubmissionDeadline, mimes, maxSize,
			req.PanelModeEnabled, dist))
		if err != nil {
			if isUniqueViolation(err, "") {
				return E(KindDuplicate, "round %d already exists for this event", roundNo)
			}
			return Internal("inserting round", err)
		}
		round = created
		return syncRoundCount(ctx, tx, event.ID)
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

// moveRoundNo renumbers a round, swapping with whichever round already holds
// the target number. The parked value keeps the unique index satisfied
// mid-swap.
func moveRoundNo(ctx context.Context, tx pgx.Tx, eventID, roundID int64, from, to int) error {
	var otherID int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM rounds WHERE event_id = $1 AND round_no = $2`, eventID, to).Scan(&otherID)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err := tx.Exec(ctx, `UPDATE rounds SET round_no = $2, updated_at = now() WHERE id = $1`, roundID, to)
		return err
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE rounds SET round_no = -1 WHERE id = $1`, otherID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE rounds SET round_no = $2, updated_at = now() WHERE id = $1`, roundID, to); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE rounds SET round_no = $2, updated_at = now() WHERE id = $1`, otherID, from)
	return err
}

func (s *roundsService) Update(ctx context.Context, event *models.Event, roundID int64, req *models.UpdateRoundRequest, actor Actor) (*models.Round, error) {
	if req.Criteria != nil {
		if err := validateCriteria(req.Criteria); err != nil {
			return nil, err
		}
	}
	if req.PanelDistribution != nil {
		if err := validatePanelDistribution(event, *req.PanelDistribution); err != nil {
			return nil, err
		}
	}

	var (
		updated  *models.Round
		auditCSV []byte
	)
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanRound(tx.QueryRow(ctx,
			`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND id = $2 FOR UPDATE`, event.ID, roundID))
		if errors.Is(err, pgx.ErrNoRows) {
			return E(KindNotFound, "round %d not found", roundID)
		}
		if err != nil {
			return Internal("loading round", err)
		}

		if req.RoundNo != nil && *req.RoundNo != cur.RoundNo {
			var count int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM rounds WHERE event_id = $1`, event.ID).Scan(&count); err != nil {
				return Internal("counting rounds", err)
			}
			if *req.RoundNo < 1 || *req.RoundNo > count {
				return E(KindBadInput, "round_no %d is out of range 1..%d", *req.RoundNo, count)
			}
			if err := moveRoundNo(ctx, tx, event.ID, roundID, cur.RoundNo, *req.RoundNo); err != nil {
				return Internal("renumbering rounds", err)
			}
		}

		updated, err = scanRound(tx.QueryRow(ctx, `
			UPDATE rounds SET
				name = COALESCE($2, name),
				description = COALESCE($3, description),
				scheduled_at = COALESCE($4, scheduled_at),
				state = COALESCE($5, state),
				criteria = COALESCE($6, criteria),
				elimination_type = COALESCE($7, elimination_type),
				elimination_value = COALESCE($8, elimination_value),
				is_frozen = COALESCE($9, is_frozen),
				requires_submission = COALESCE($10, requires_submission),
				submission_mode = COALESCE($11, submission_mode),
				submission_deadline = COALESCE($12, submission_deadline),
				allowed_mime_types = COALESCE($13, allowed_mime_types),
				max_file_size_mb = COALESCE($14, max_file_size_mb),
				submissions_locked = COALESCE($15, submissions_locked),
				panel_mode_enabled = COALESCE($16, panel_mode_enabled),
				panel_distribution = COALESCE($17, panel_distribution),
				panel_structure_locked = COALESCE($18, panel_structure_locked),
				updated_at = now()
			WHERE id = $1
			RETURNING `+roundColumns,
			roundID, req.Name, req.Description, req.ScheduledAt, req.State, req.Criteria,
			req.EliminationType, req.EliminationValue, req.IsFrozen,
			req.RequiresSubmission, req.SubmissionMode, req.SubmissionDeadline,
			req.AllowedMimeTypes, req.MaxFileSizeMB, req.SubmissionsLocked,
			req.PanelModeEnabled, req.PanelDistribution, req.PanelStructureLocked))
		if err != nil {
			return Internal("updating round", err)
		}

		panelModeChanged := req.PanelModeEnabled != nil && *req.PanelModeEnabled != cur.PanelModeEnabled
		if req.Criteria != nil || panelModeChanged {
			if err := renormalizeRoundTx(ctx, tx, updated); err != nil {
				return err
			}
		}

		if shortlistRequested(cur, req) {
			if err := shortlistTx(ctx, tx, event, updated, req.EliminateAbsent); err != nil {
				return err
			}
			updated.State = models.RoundCompleted
			auditCSV, err = buildAuditCSVTx(ctx, tx, event, updated)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("updating round", err)
	}

	if auditCSV != nil {
		s.audit.Publish(event, updated, storage.AuditShortlist, auditCSV, actor)
	}
	return updated, nil
}

// shortlistRequested reports whether a patch asks for elimination: it must
// set the frozen flag, supply both elimination fields, and either change
// those fields or ask for absents to be eliminated.
func shortlistRequested(cur *models.Round, req *models.UpdateRoundRequest) bool {
	if req.IsFrozen == nil || !*req.IsFrozen {
		return false
	}
	if req.EliminationType == nil || req.EliminationValue == nil {
		return false
	}
	changed := cur.EliminationType == nil || *cur.EliminationType != *req.EliminationType ||
		cur.EliminationValue == nil || *cur.EliminationValue != *req.EliminationValue
	return changed || req.EliminateAbsent
}

func (s *roundsService) Delete(ctx context.Context, event *models.Event, roundID int64) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		round, err := scanRound(tx.QueryRow(ctx,
			`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND id = $2 FOR UPDATE`, event.ID, roundID))
		if errors.Is(err, pgx.ErrNoRows) {
			return E(KindNotFound, "round %d not found", roundID)
		}
		if err != nil {
			return Internal("loading round", err)
		}
		if round.State != models.RoundDraft {
			return E(KindNotApplicable, "only DRAFT rounds can be deleted")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM submissions WHERE round_id = $1`, roundID); err != nil {
			return Internal("deleting round submissions", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM rounds WHERE id = $1`, roundID); err != nil {
			return Internal("deleting round", err)
		}
		return syncRoundCount(ctx, tx, event.ID)
	})
}
