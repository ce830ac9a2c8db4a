package logic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/cache"
	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/reports"
)

const scoreColumns = `id, event_id, round_id, entity_type, user_id, team_id,
	criteria_scores, total_score, normalized_score, is_present, updated_by, updated_at`

// scanReplayTTL is how long a QR scan claim blocks duplicate marks for the
// same entity and round.
const scanReplayTTL = 5 * time.Minute

type scoresService struct {
	pool   TxBeginner
	scans  *cache.Cache
	logger *zap.SugaredLogger
}

func NewScoresService(pool TxBeginner, scans *cache.Cache, logger *zap.SugaredLogger) ScoresService {
	return &scoresService{pool: pool, scans: scans, logger: logger}
}

func scanScore(row pgx.Row) (*models.Score, error) {
	var (
		s              models.Score
		entityType     models.EntityType
		userID, teamID *int64
	)
	err := row.Scan(&s.ID, &s.EventID, &s.RoundID, &entityType, &userID, &teamID,
		&s.CriteriaScores, &s.TotalScore, &s.NormalizedScore, &s.IsPresent, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Entity = models.EntityFromColumns(entityType, userID, teamID)
	return &s, nil
}

// NormalizedScore maps a raw total onto 0..100 against the criteria maximum.
// Absent entities always normalize to zero.
func NormalizedScore(total, maxTotal float64, present bool) float64 {
	if !present || maxTotal <= 0 {
		return 0
	}
	n := total / maxTotal * 100
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// resolveEntryScores validates one entry against the round's criteria and
// returns the stored map and total. Absent entries coerce to all zeros.
func resolveEntryScores(criteria models.Criteria, values map[string]float64, present bool) (map[string]float64, float64, error) {
	out := make(map[string]float64, len(criteria))
	if !present {
		for _, c := range criteria {
			out[c.Name] = 0
		}
		return out, 0, nil
	}
	total := 0.0
	for _, c := range criteria {
		v := values[c.Name]
		if v < 0 || v > c.MaxMarks {
			return nil, 0, E(KindScoreRange, "%s must be between 0 and %g", c.Name, c.MaxMarks)
		}
		out[c.Name] = v
		total += v
	}
	return out, total, nil
}

func upsertScoreTx(ctx context.Context, tx pgx.Tx, event *models.Event, round *models.Round, entity models.EntityRef,
	scores map[string]float64, total, normalized float64, present bool, updatedBy *int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE scores SET criteria_scores = $4, total_score = $5, normalized_score = $6,
			is_present = $7, updated_by = $8, updated_at = now()
		WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		round.ID, entity.Type, entity.ID, scores, total, normalized, present, updatedBy)
	if err != nil {
		return Internal("updating score", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO scores (event_id, round_id, entity_type, user_id, team_id,
			criteria_scores, total_score, normalized_score, is_present, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, round.ID, entity.Type, entity.UserID(), entity.TeamID(),
		scores, total, normalized, present, updatedBy)
	if err != nil {
		return Internal("inserting score", err)
	}
	return nil
}

func upsertAttendanceTx(ctx context.Context, tx pgx.Tx, event *models.Event, roundID int64, entity models.EntityRef, present bool, markedBy *int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE attendance SET is_present = $4, marked_by = $5, marked_at = now()
		WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		roundID, entity.Type, entity.ID, present, markedBy)
	if err != nil {
		return Internal("updating attendance", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO attendance (event_id, round_id, entity_type, user_id, team_id, is_present, marked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, roundID, entity.Type, entity.UserID(), entity.TeamID(), present, markedBy)
	if err != nil {
		return Internal("inserting attendance", err)
	}
	return nil
}

func registrationStatusTx(ctx context.Context, tx pgx.Tx, eventID int64, entity models.EntityRef) (models.RegistrationStatus, error) {
	var status models.RegistrationStatus
	err := tx.QueryRow(ctx,
		`SELECT status FROM registrations
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		eventID, entity.Type, entity.ID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", E(KindNotFound, "no registration for %s", entity)
	}
	if err != nil {
		return "", Internal("loading registration status", err)
	}
	return status, nil
}

func assignedEntityIDsTx(ctx context.Context, tx pgx.Tx, roundID int64) (map[int64]bool, error) {
	rows, err := tx.Query(ctx,
		`SELECT COALESCE(user_id, team_id) FROM panel_assignments WHERE round_id = $1`, roundID)
	if err != nil {
		return nil, Internal("loading panel assignments", err)
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, Internal("scanning assignment", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *scoresService) Save(ctx context.Context, event *models.Event, round *models.Round, entries []models.ScoreEntryRequest, actor Actor) error {
	if round.IsFrozen {
		return E(KindRoundFrozen, "Round is frozen")
	}
	maxTotal := round.Criteria.MaxTotal()

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var assigned map[int64]bool
		if round.PanelModeEnabled {
			var err error
			assigned, err = assignedEntityIDsTx(ctx, tx, round.ID)
			if err != nil {
				return err
			}
		}

		for _, entry := range entries {
			entity := models.EntityFor(event.ParticipantMode, entry.EntityID)
			status, err := registrationStatusTx(ctx, tx, event.ID, entity)
			if err != nil {
				return err
			}
			if status != models.RegistrationActive {
				return E(KindNotEligible, "%s is eliminated and cannot be scored", entity)
			}
			if round.PanelModeEnabled && entry.IsPresent && !assigned[entry.EntityID] {
				return E(KindPanelRequired, "%s has no panel assignment", entity)
			}

			scores, total, err := resolveEntryScores(round.Criteria, entry.CriteriaScores, entry.IsPresent)
			if err != nil {
				return err
			}
			normalized := NormalizedScore(total, maxTotal, entry.IsPresent)
			updatedBy := &actor.AdminID
			if err := upsertScoreTx(ctx, tx, event, round, entity, scores, total, normalized, entry.IsPresent, updatedBy); err != nil {
				return err
			}
			if err := upsertAttendanceTx(ctx, tx, event, round.ID, entity, entry.IsPresent, updatedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return Internal("saving scores", err)
	}
	return nil
}

func (s *scoresService) Sheet(ctx context.Context, event *models.Event, round *models.Round) ([]models.ScoringSheetRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(r.user_id, r.team_id) AS eid,
			COALESCE(u.regno, '') AS regno,
			COALESCE(t.team_code, '') AS team_code,
			COALESCE(u.name, t.name, '') AS name,
			r.status,
			COALESCE(mc.n, 0) AS member_count,
			pa.panel_id, p.panel_no,
			s.id, s.criteria_scores, s.total_score, s.normalized_score, s.is_present, s.updated_by, s.updated_at,
			a.is_present,
			sub.id, sub.submission_type, sub.file_url, sub.file_name, sub.file_size_bytes, sub.mime_type,
			sub.link_url, sub.notes, sub.version, sub.is_locked, sub.submitted_at, sub.updated_at
		FROM registrations r
		LEFT JOIN users u ON r.entity_type = 'USER' AND u.id = r.user_id
		LEFT JOIN teams t ON r.entity_type = 'TEAM' AND t.id = r.team_id
		LEFT JOIN (SELECT team_id, COUNT(*) AS n FROM team_members GROUP BY team_id) mc ON mc.team_id = r.team_id
		LEFT JOIN scores s ON s.round_id = $2 AND s.entity_type = r.entity_type
			AND COALESCE(s.user_id, s.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN attendance a ON a.round_id = $2 AND a.entity_type = r.entity_type
			AND COALESCE(a.user_id, a.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN panel_assignments pa ON pa.round_id = $2 AND pa.entity_type = r.entity_type
			AND COALESCE(pa.user_id, pa.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN panels p ON p.id = pa.panel_id
		LEFT JOIN submissions sub ON sub.round_id = $2 AND sub.entity_type = r.entity_type
			AND COALESCE(sub.user_id, sub.team_id) = COALESCE(r.user_id, r.team_id)
		WHERE r.event_id = $1 AND r.entity_type = $3
		ORDER BY name, eid`,
		event.ID, round.ID, models.EntityTypeFor(event.ParticipantMode))
	if err != nil {
		return nil, Internal("loading scoring sheet", err)
	}
	defer rows.Close()

	out := []models.ScoringSheetRow{}
	for rows.Next() {
		var (
			row       models.ScoringSheetRow
			eid       int64
			scoreID   *int64
			scMap     map[string]float64
			scTotal   *float64
			scNorm    *float64
			scPresent *bool
			scBy      *int64
			scAt      *time.Time
			attPres   *bool
			subID     *int64
			subType   *models.SubmissionType
			fileURL   *string
			fileName  *string
			fileSize  *int64
			mimeType  *string
			linkURL   *string
			notes     *string
			version   *int
			locked    *bool
			subAt     *time.Time
			subUpd    *time.Time
		)
		err := rows.Scan(&eid, &row.Regno, &row.TeamCode, &row.Name, &row.Status, &row.MemberCount,
			&row.PanelID, &row.PanelNo,
			&scoreID, &scMap, &scTotal, &scNorm, &scPresent, &scBy, &scAt,
			&attPres,
			&subID, &subType, &fileURL, &fileName, &fileSize, &mimeType,
			&linkURL, &notes, &version, &locked, &subAt, &subUpd)
		if err != nil {
			return nil, Internal("scanning scoring sheet row", err)
		}
		row.Entity = models.EntityFor(event.ParticipantMode, eid)
		if scoreID != nil {
			row.Score = &models.Score{
				ID: *scoreID, EventID: event.ID, RoundID: round.ID, Entity: row.Entity,
				CriteriaScores: scMap, TotalScore: *scTotal, NormalizedScore: *scNorm,
				IsPresent: *scPresent, UpdatedBy: scBy, UpdatedAt: *scAt,
			}
		}
		row.IsPresent = attPres
		if subID != nil {
			row.Submission = &models.Submission{
				ID: *subID, EventID: event.ID, RoundID: round.ID, Entity: row.Entity,
				SubmissionType: *subType,
				FileURL:        strOr(fileURL), FileName: strOr(fileName),
				FileSizeBytes: i64Or(fileSize), MimeType: strOr(mimeType),
				LinkURL: strOr(linkURL), Notes: strOr(notes),
				Version: *version, IsLocked: *locked,
				SubmittedAt: *subAt, UpdatedAt: *subUpd,
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating scoring sheet", err)
	}
	return out, nil
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func i64Or(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func (s *scoresService) MarkAttendance(ctx context.Context, event *models.Event, req *models.MarkAttendanceRequest, actor Actor) error {
	round, err := loadRoundTxless(ctx, s.pool, event.ID, req.RoundID)
	if err != nil {
		return err
	}
	if round.IsFrozen {
		return E(KindRoundFrozen, "Round is frozen")
	}

	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, entry := range req.Entries {
			entity := models.EntityFor(event.ParticipantMode, entry.EntityID)
			if _, err := registrationStatusTx(ctx, tx, event.ID, entity); err != nil {
				return err
			}
			updatedBy := &actor.AdminID
			if err := upsertAttendanceTx(ctx, tx, event, round.ID, entity, entry.IsPresent, updatedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return Internal("marking attendance", err)
	}
	return nil
}

func loadRoundTxless(ctx context.Context, db DB, eventID, roundID int64) (*models.Round, error) {
	r, err := scanRound(db.QueryRow(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND id = $2`, eventID, roundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "round %d not found", roundID)
	}
	if err != nil {
		return nil, Internal("loading round", err)
	}
	return r, nil
}

// Scan marks a participant present from a QR token. Scans are idempotent
// within the replay window: a repeat returns the existing row untouched.
func (s *scoresService) Scan(ctx context.Context, event *models.Event, roundID int64, entity models.EntityRef, actor Actor) (*models.AttendanceRecord, error) {
	round, err := loadRoundTxless(ctx, s.pool, event.ID, roundID)
	if err != nil {
		return nil, err
	}
	if round.IsFrozen {
		return nil, E(KindRoundFrozen, "Round is frozen")
	}

	status, err := s.registrationStatus(ctx, event.ID, entity)
	if err != nil {
		return nil, err
	}
	if status != models.RegistrationActive {
		return nil, E(KindNotEligible, "%s is eliminated", entity)
	}

	claimed := s.scans.ClaimScan(ctx, event.Slug, roundID, entity, scanReplayTTL)
	if claimed {
		err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
			updatedBy := &actor.AdminID
			return upsertAttendanceTx(ctx, tx, event, roundID, entity, true, updatedBy)
		})
		if err != nil {
			s.scans.ReleaseScan(ctx, event.Slug, roundID, entity)
			return nil, Internal("recording scan", err)
		}
	}
	return s.attendanceFor(ctx, event.ID, roundID, entity)
}

func (s *scoresService) registrationStatus(ctx context.Context, eventID int64, entity models.EntityRef) (models.RegistrationStatus, error) {
	var status models.RegistrationStatus
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM registrations
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		eventID, entity.Type, entity.ID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", E(KindNotFound, "no registration for %s", entity)
	}
	if err != nil {
		return "", Internal("loading registration status", err)
	}
	return status, nil
}

func (s *scoresService) attendanceFor(ctx context.Context, eventID, roundID int64, entity models.EntityRef) (*models.AttendanceRecord, error) {
	var (
		rec            models.AttendanceRecord
		entityType     models.EntityType
		userID, teamID *int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, event_id, round_id, entity_type, user_id, team_id, is_present, marked_by, marked_at
		FROM attendance
		WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		roundID, entity.Type, entity.ID).
		Scan(&rec.ID, &rec.EventID, &rec.RoundID, &entityType, &userID, &teamID,
			&rec.IsPresent, &rec.MarkedBy, &rec.MarkedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "no attendance recorded for %s", entity)
	}
	if err != nil {
		return nil, Internal("loading attendance", err)
	}
	rec.Entity = models.EntityFromColumns(entityType, userID, teamID)
	return &rec, nil
}

// Import applies a spreadsheet of scores. Rows that cannot be written are
// reported, never fatal; preview mode reports without writing.
func (s *scoresService) Import(ctx context.Context, event *models.Event, round *models.Round, sheet []byte, preview bool, actor Actor) (*models.ImportReport, error) {
	if round.IsFrozen {
		return nil, E(KindRoundFrozen, "Round is frozen")
	}

	idHeader := reports.IDHeaderRegno
	if event.IsTeamEvent() {
		idHeader = reports.IDHeaderTeamCode
	}
	parsed, err := reports.ParseScoreSheet(sheet, idHeader, round.Criteria)
	if err != nil {
		return nil, E(KindBadInput, "unreadable spreadsheet: %v", err)
	}

	known, err := s.loadImportTargets(ctx, event)
	if err != nil {
		return nil, err
	}

	report := &models.ImportReport{
		Preview:       preview,
		Identified:    []string{},
		Mismatched:    []models.ImportRowIssue{},
		Unidentified:  []models.ImportRowIssue{},
		OtherRequired: []models.ImportRowIssue{},
	}
	maxTotal := round.Criteria.MaxTotal()

	type pendingWrite struct {
		entity  models.EntityRef
		scores  map[string]float64
		total   float64
		present bool
	}
	var writes []pendingWrite

	for _, row := range parsed {
		if len(row.Issues) > 0 {
			report.OtherRequired = append(report.OtherRequired, models.ImportRowIssue{
				RowNumber: row.RowNumber, Key: row.Key, Name: row.Name,
				Reason: strings.Join(row.Issues, "; "),
			})
			continue
		}
		target, ok := known[normalizeImportKey(row.Key)]
		if !ok {
			report.Unidentified = append(report.Unidentified, models.ImportRowIssue{
				RowNumber: row.RowNumber, Key: row.Key, Name: row.Name, Reason: "no matching registration",
			})
			continue
		}
		if target.status != models.RegistrationActive {
			report.OtherRequired = append(report.OtherRequired, models.ImportRowIssue{
				RowNumber: row.RowNumber, Key: row.Key, Name: row.Name, Reason: "registration is eliminated",
			})
			continue
		}

		present := true
		if row.Present != nil {
			present = *row.Present
		}
		scores, total, err := resolveEntryScores(round.Criteria, row.Scores, present)
		if err != nil {
			report.OtherRequired = append(report.OtherRequired, models.ImportRowIssue{
				RowNumber: row.RowNumber, Key: row.Key, Name: row.Name, Reason: err.Error(),
			})
			continue
		}

		if row.Name != "" && !strings.EqualFold(strings.TrimSpace(row.Name), strings.TrimSpace(target.name)) {
			report.Mismatched = append(report.Mismatched, models.ImportRowIssue{
				RowNumber: row.RowNumber, Key: row.Key, Name: row.Name,
				Reason: "name does not match " + target.name,
			})
		} else {
			report.Identified = append(report.Identified, row.Key)
		}
		writes = append(writes, pendingWrite{entity: target.entity, scores: scores, total: total, present: present})
	}

	if preview || len(writes) == 0 {
		return report, nil
	}

	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, w := range writes {
			normalized := NormalizedScore(w.total, maxTotal, w.present)
			updatedBy := &actor.AdminID
			if err := upsertScoreTx(ctx, tx, event, round, w.entity, w.scores, w.total, normalized, w.present, updatedBy); err != nil {
				return err
			}
			if err := upsertAttendanceTx(ctx, tx, event, round.ID, w.entity, w.present, updatedBy); err != nil {
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
		return nil, Internal("writing imported scores", err)
	}
	report.Written = len(writes)
	return report, nil
}

type importTarget struct {
	entity models.EntityRef
	name   string
	status models.RegistrationStatus
}

func normalizeImportKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func (s *scoresService) loadImportTargets(ctx context.Context, event *models.Event) (map[string]importTarget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(u.regno, t.team_code, '') AS key,
			COALESCE(u.name, t.name, '') AS name,
			COALESCE(r.user_id, r.team_id) AS eid,
			r.status
		FROM registrations r
		LEFT JOIN users u ON r.entity_type = 'USER' AND u.id = r.user_id
		LEFT JOIN teams t ON r.entity_type = 'TEAM' AND t.id = r.team_id
		WHERE r.event_id = $1 AND r.entity_type = $2`,
		event.ID, models.EntityTypeFor(event.ParticipantMode))
	if err != nil {
		return nil, Internal("loading import targets", err)
	}
	defer rows.Close()

	out := map[string]importTarget{}
	for rows.Next() {
		var (
			key, name string
			eid       int64
			status    models.RegistrationStatus
		)
		if err := rows.Scan(&key, &name, &eid, &status); err != nil {
			return nil, Internal("scanning import target", err)
		}
		out[normalizeImportKey(key)] = importTarget{
			entity: models.EntityFor(event.ParticipantMode, eid),
			name:   name,
			status: status,
		}
	}
	return out, rows.Err()
}
