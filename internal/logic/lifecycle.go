package logic

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/reports"
	"github.com/pdamit/events-api/internal/storage"
	"github.com/pdamit/events-api/internal/worker"
)

// AuditPublisher uploads lifecycle audit CSVs off the request path and
// records the outcome in the event log. Upload failures never propagate to
// the caller; the lifecycle transition itself is already committed.
type AuditPublisher struct {
	store  storage.ObjectStore
	tasks  *worker.Pool
	logs   AuditLogService
	logger *zap.SugaredLogger
}

func NewAuditPublisher(store storage.ObjectStore, tasks *worker.Pool, logs AuditLogService, logger *zap.SugaredLogger) *AuditPublisher {
	return &AuditPublisher{store: store, tasks: tasks, logs: logs, logger: logger}
}

func (p *AuditPublisher) Publish(event *models.Event, round *models.Round, auditType string, csvData []byte, actor Actor) {
	key := storage.AuditKey(event.Slug, event.EventCode, round.RoundNo, auditType, time.Now().UTC(), actor.Regno)
	eventID := event.ID
	ok := p.tasks.Enqueue("audit_upload", func(ctx context.Context) error {
		entry := &models.EventLog{
			EventSlug:  event.Slug,
			EventID:    &eventID,
			AdminID:    actor.AdminID,
			AdminRegno: actor.Regno,
			AdminName:  actor.Name,
			Action:     auditType + "_audit",
			Method:     "SYSTEM",
			Path:       key,
			Meta:       map[string]any{"round_id": round.ID, "round_no": round.RoundNo},
		}
		var uploadErr error
		if p.store == nil {
			uploadErr = storage.ErrNotConfigured
		} else {
			var url string
			url, uploadErr = p.store.Upload(ctx, key, csvData, "text/csv")
			if uploadErr == nil {
				entry.Meta["audit_csv_url"] = url
			}
		}
		if uploadErr != nil {
			entry.Meta["audit_csv_error"] = uploadErr.Error()
			p.logger.Warnw("audit csv upload failed", "event", event.Slug, "round", round.RoundNo, "error", uploadErr)
		}
		return p.logs.Append(ctx, entry)
	})
	if !ok {
		p.logger.Errorw("audit upload task dropped", "event", event.Slug, "round", round.RoundNo, "type", auditType)
	}
}

type lifecycleService struct {
	pool  TxBeginner
	audit *AuditPublisher
}

func NewLifecycleService(pool TxBeginner, audit *AuditPublisher) LifecycleService {
	return &lifecycleService{pool: pool, audit: audit}
}

// renormalizeRoundTx recomputes normalized scores for every row of a round
// against the round's current criteria total.
func renormalizeRoundTx(ctx context.Context, tx pgx.Tx, round *models.Round) error {
	maxTotal := round.Criteria.MaxTotal()
	_, err := tx.Exec(ctx, `
		UPDATE scores SET normalized_score = CASE
			WHEN is_present AND $2::float8 > 0
				THEN LEAST(100, GREATEST(0, total_score / $2::float8 * 100))
			ELSE 0
		END
		WHERE round_id = $1`, round.ID, maxTotal)
	if err != nil {
		return Internal("renormalizing scores", err)
	}
	return nil
}

// backfillScoreRowsTx inserts an all-zero, absent Score row for every ACTIVE
// registered entity that has none for this round.
func backfillScoreRowsTx(ctx context.Context, tx pgx.Tx, event *models.Event, round *models.Round) error {
	zeroes := map[string]float64{}
	for _, name := range round.Criteria.Names() {
		zeroes[name] = 0
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO scores (event_id, round_id, entity_type, user_id, team_id, criteria_scores, total_score, normalized_score, is_present)
		SELECT r.event_id, $2, r.entity_type, r.user_id, r.team_id, $3, 0, 0, false
		FROM registrations r
		WHERE r.event_id = $1 AND r.status = 'ACTIVE' AND r.entity_type = $4
		AND NOT EXISTS (
			SELECT 1 FROM scores s
			WHERE s.round_id = $2 AND s.entity_type = r.entity_type
			AND COALESCE(s.user_id, s.team_id) = COALESCE(r.user_id, r.team_id)
		)`,
		event.ID, round.ID, zeroes, models.EntityTypeFor(event.ParticipantMode))
	if err != nil {
		return Internal("backfilling score rows", err)
	}
	return nil
}

// cumulativeTotalExpr is the per-entity score aggregate used by shortlisting
// and leaderboards: individuals accumulate normalized scores, teams raw
// totals.
func cumulativeTotalExpr(event *models.Event) string {
	if event.IsTeamEvent() {
		return "SUM(total_score)"
	}
	return "SUM(normalized_score)"
}

type shortlistCandidate struct {
	id      int64
	total   float64
	present bool
}

func eliminateTx(ctx context.Context, tx pgx.Tx, eventID int64, entityType models.EntityType, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE registrations SET status = 'ELIMINATED'
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = ANY($3)`,
		eventID, entityType, ids)
	if err != nil {
		return Internal("eliminating registrations", err)
	}
	return nil
}

// shortlistTx eliminates registrations per the round's elimination rule and
// completes the round. Runs inside the caller's transaction so a failure
// rolls back the whole update.
func shortlistTx(ctx context.Context, tx pgx.Tx, event *models.Event, round *models.Round, eliminateAbsent bool) error {
	if round.EliminationType == nil || round.EliminationValue == nil {
		return E(KindInvalidElimination, "elimination type and value are required")
	}
	entityType := models.EntityTypeFor(event.ParticipantMode)

	rows, err := tx.Query(ctx, `
		SELECT COALESCE(r.user_id, r.team_id) AS eid,
			COALESCE(p.is_present, false) AS present,
			COALESCE(t.total, 0) AS total
		FROM registrations r
		LEFT JOIN scores p ON p.round_id = $2 AND p.entity_type = r.entity_type
			AND COALESCE(p.user_id, p.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN (
			SELECT entity_type, COALESCE(user_id, team_id) AS eid, `+cumulativeTotalExpr(event)+` AS total
			FROM scores WHERE event_id = $1
			GROUP BY entity_type, COALESCE(user_id, team_id)
		) t ON t.entity_type = r.entity_type AND t.eid = COALESCE(r.user_id, r.team_id)
		WHERE r.event_id = $1 AND r.status = 'ACTIVE' AND r.entity_type = $3`,
		event.ID, round.ID, entityType)
	if err != nil {
		return Internal("loading shortlist candidates", err)
	}
	defer rows.Close()

	var pool []shortlistCandidate
	for rows.Next() {
		var c shortlistCandidate
		if err := rows.Scan(&c.id, &c.present, &c.total); err != nil {
			return Internal("scanning shortlist candidate", err)
		}
		pool = append(pool, c)
	}
	if err := rows.Err(); err != nil {
		return Internal("iterating shortlist candidates", err)
	}

	var eliminated []int64
	if eliminateAbsent {
		kept := pool[:0]
		for _, c := range pool {
			if c.present {
				kept = append(kept, c)
			} else {
				eliminated = append(eliminated, c.id)
			}
		}
		pool = kept
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].total != pool[j].total {
			return pool[i].total > pool[j].total
		}
		return pool[i].id < pool[j].id
	})

	switch *round.EliminationType {
	case models.EliminationTopK:
		k := int(*round.EliminationValue)
		if k < 0 {
			k = 0
		}
		for i := k; i < len(pool); i++ {
			eliminated = append(eliminated, pool[i].id)
		}
	case models.EliminationMinScore:
		threshold := *round.EliminationValue
		for _, c := range pool {
			if c.total < threshold {
				eliminated = append(eliminated, c.id)
			}
		}
	default:
		return E(KindInvalidElimination, "unknown elimination type %q", *round.EliminationType)
	}

	if err := eliminateTx(ctx, tx, event.ID, entityType, eliminated); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE rounds SET state = 'COMPLETED', updated_at = now() WHERE id = $1`, round.ID); err != nil {
		return Internal("completing round", err)
	}
	return nil
}

// buildAuditCSVTx snapshots the round's scoring state for every registered
// entity of the event's mode, inside the transaction that changed it.
func buildAuditCSVTx(ctx context.Context, tx pgx.Tx, event *models.Event, round *models.Round) ([]byte, error) {
	rows, err := tx.Query(ctx, `
		SELECT COALESCE(r.user_id, r.team_id) AS eid,
			COALESCE(u.regno, t.team_code, '') AS identifier,
			COALESCE(u.name, t.name, '') AS name,
			r.status,
			COALESCE(s.is_present, false),
			s.criteria_scores,
			COALESCE(s.total_score, 0), COALESCE(s.normalized_score, 0),
			p.panel_no, COALESCE(p.name, ''),
			COALESCE(sub.submission_type, ''), COALESCE(sub.is_locked, false)
		FROM registrations r
		LEFT JOIN users u ON r.entity_type = 'USER' AND u.id = r.user_id
		LEFT JOIN teams t ON r.entity_type = 'TEAM' AND t.id = r.team_id
		LEFT JOIN scores s ON s.round_id = $2 AND s.entity_type = r.entity_type
			AND COALESCE(s.user_id, s.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN panel_assignments pa ON pa.round_id = $2 AND pa.entity_type = r.entity_type
			AND COALESCE(pa.user_id, pa.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN panels p ON p.id = pa.panel_id
		LEFT JOIN submissions sub ON sub.round_id = $2 AND sub.entity_type = r.entity_type
			AND COALESCE(sub.user_id, sub.team_id) = COALESCE(r.user_id, r.team_id)
		WHERE r.event_id = $1 AND r.entity_type = $3
		ORDER BY identifier`,
		event.ID, round.ID, models.EntityTypeFor(event.ParticipantMode))
	if err != nil {
		return nil, Internal("loading audit rows", err)
	}
	defer rows.Close()

	var audit []reports.AuditRow
	for rows.Next() {
		var row reports.AuditRow
		err := rows.Scan(&row.EntityID, &row.Identifier, &row.Name, &row.Status, &row.Present,
			&row.Scores, &row.Total, &row.Normalized,
			&row.PanelNo, &row.PanelName, &row.Submission, &row.Locked)
		if err != nil {
			return nil, Internal("scanning audit row", err)
		}
		audit = append(audit, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating audit rows", err)
	}

	csvData, err := reports.BuildAuditCSV(event, round, audit)
	if err != nil {
		return nil, Internal("rendering audit csv", err)
	}
	return csvData, nil
}

func (s *lifecycleService) Freeze(ctx context.Context, event *models.Event, round *models.Round, actor Actor) (*models.Round, error) {
	var (
		updated  *models.Round
		auditCSV []byte
	)
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanRound(tx.QueryRow(ctx,
			`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND id = $2 FOR UPDATE`, event.ID, round.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			return E(KindNotFound, "round %d not found", round.ID)
		}
		if err != nil {
			return Internal("loading round", err)
		}
		if cur.IsFrozen {
			updated = cur
			return nil
		}

		if err := backfillScoreRowsTx(ctx, tx, event, cur); err != nil {
			return err
		}
		updated, err = scanRound(tx.QueryRow(ctx,
			`UPDATE rounds SET is_frozen = true, updated_at = now() WHERE id = $1 RETURNING `+roundColumns, cur.ID))
		if err != nil {
			return Internal("freezing round", err)
		}
		if updated.PanelModeEnabled {
			if err := renormalizeRoundTx(ctx, tx, updated); err != nil {
				return err
			}
		}
		auditCSV, err = buildAuditCSVTx(ctx, tx, event, updated)
		return err
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("freezing round", err)
	}

	if auditCSV != nil {
		s.audit.Publish(event, updated, storage.AuditFreeze, auditCSV, actor)
	}
	return updated, nil
}

func (s *lifecycleService) Unfreeze(ctx context.Context, event *models.Event, round *models.Round, actor Actor) (*models.Round, error) {
	updated, err := scanRound(s.pool.QueryRow(ctx,
		`UPDATE rounds SET is_frozen = false, state = 'ACTIVE', updated_at = now()
		WHERE event_id = $1 AND id = $2 RETURNING `+roundColumns, event.ID, round.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "round %d not found", round.ID)
	}
	if err != nil {
		return nil, Internal("unfreezing round", err)
	}
	return updated, nil
}
