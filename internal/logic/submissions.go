package logic

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/storage"
)

const submissionColumns = `id, event_id, round_id, entity_type, user_id, team_id,
	submission_type, file_url, file_name, file_size_bytes, mime_type,
	link_url, notes, version, is_locked, submitted_at, updated_at, updated_by`

// Submission lock reasons, ordered by precedence.
const (
	LockFinalized = "finalized"
	LockFrozen    = "frozen"
	LockDeadline  = "deadline"
	LockAdmin     = "admin"
)

type submissionsService struct {
	pool  TxBeginner
	store storage.ObjectStore
}

func NewSubmissionsService(pool TxBeginner, store storage.ObjectStore) SubmissionsService {
	return &submissionsService{pool: pool, store: store}
}

// SubmissionLockReason reports why a round rejects submission writes, or ""
// when open. Finalized outranks frozen, which outranks the deadline, which
// outranks the admin lock.
func SubmissionLockReason(round *models.Round, now time.Time) string {
	if round.Finalized() {
		return LockFinalized
	}
	if round.IsFrozen {
		return LockFrozen
	}
	if round.SubmissionDeadline != nil && !now.Before(round.SubmissionDeadline.UTC()) {
		return LockDeadline
	}
	if round.SubmissionsLocked {
		return LockAdmin
	}
	return ""
}

func lockMessage(reason string) string {
	switch reason {
	case LockFinalized:
		return "Round is finalized"
	case LockFrozen:
		return "Round is frozen"
	case LockDeadline:
		return "Submission deadline has passed"
	case LockAdmin:
		return "Submissions are locked"
	}
	return "Submissions are locked"
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var (
		s              models.Submission
		entityType     models.EntityType
		userID, teamID *int64
	)
	err := row.Scan(&s.ID, &s.EventID, &s.RoundID, &entityType, &userID, &teamID,
		&s.SubmissionType, &s.FileURL, &s.FileName, &s.FileSizeBytes, &s.MimeType,
		&s.LinkURL, &s.Notes, &s.Version, &s.IsLocked, &s.SubmittedAt, &s.UpdatedAt, &s.UpdatedBy)
	if err != nil {
		return nil, err
	}
	s.Entity = models.EntityFromColumns(entityType, userID, teamID)
	return &s, nil
}

func submissionFor(ctx context.Context, db DB, roundID int64, entity models.EntityRef, forUpdate bool) (*models.Submission, error) {
	suffix := ""
	if forUpdate {
		suffix = " FOR UPDATE"
	}
	sub, err := scanSubmission(db.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`+suffix,
		roundID, entity.Type, entity.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Internal("loading submission", err)
	}
	return sub, nil
}

// Get never 404s: an entity that has not submitted reads as a version-zero
// row.
func (s *submissionsService) Get(ctx context.Context, round *models.Round, entity models.EntityRef) (*models.Submission, error) {
	sub, err := submissionFor(ctx, s.pool, round.ID, entity, false)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &models.Submission{EventID: round.EventID, RoundID: round.ID, Entity: entity, Version: 0}, nil
	}
	return sub, nil
}

// requireOwnership enforces that the acting user may write this entity's
// submission: themselves for individuals, the leader for teams.
func requireOwnership(ctx context.Context, db DB, entity models.EntityRef, userID int64) error {
	if entity.Type == models.EntityUser {
		if entity.ID != userID {
			return E(KindPolicyDenied, "cannot submit for another participant")
		}
		return nil
	}
	var isLeader bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1 AND leader_id = $2)`,
		entity.ID, userID).Scan(&isLeader)
	if err != nil {
		return Internal("checking team leadership", err)
	}
	if !isLeader {
		return E(KindPolicyDenied, "only the team leader can submit")
	}
	return nil
}

func (s *submissionsService) Presign(ctx context.Context, event *models.Event, round *models.Round, entity models.EntityRef, userID int64, req *models.PresignSubmissionRequest) (*models.PresignedUpload, error) {
	if !round.RequiresSubmission {
		return nil, E(KindNotApplicable, "round %d does not take submissions", round.RoundNo)
	}
	if round.SubmissionMode == models.SubmitLink {
		return nil, E(KindNotApplicable, "round %d takes link submissions only", round.RoundNo)
	}
	if err := requireOwnership(ctx, s.pool, entity, userID); err != nil {
		return nil, err
	}

	reason := SubmissionLockReason(round, time.Now().UTC())
	if reason == "" {
		existing, err := submissionFor(ctx, s.pool, round.ID, entity, false)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.IsLocked {
			reason = LockAdmin
		}
	}
	if reason != "" {
		return nil, E(KindSubmissionLocked, "%s", lockMessage(reason))
	}

	if !round.MimeAllowed(req.MimeType) {
		return nil, E(KindBadFile, "file type %q is not allowed for this round", req.MimeType)
	}
	if req.FileSizeBytes <= 0 || req.FileSizeBytes > round.MaxFileSizeBytes() {
		return nil, E(KindBadFile, "file size must be between 1 byte and %d MB", round.MaxFileSizeMB)
	}

	if s.store == nil {
		return nil, E(KindNotApplicable, "object storage is not configured")
	}
	key := storage.SubmissionKey(event.Slug, round.ID, req.FileName)
	presigned, err := s.store.PresignUpload(ctx, key, req.MimeType, req.FileSizeBytes)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, E(KindNotApplicable, "object storage is not configured")
		}
		return nil, Internal("presigning upload", err)
	}
	return presigned, nil
}

// validateVariant checks the variant-specific payload rules and blanks the
// other variant's fields in the returned copy.
func validateVariant(round *models.Round, req *models.UpsertSubmissionRequest, enforceMode bool) (*models.UpsertSubmissionRequest, error) {
	out := *req
	switch req.SubmissionType {
	case models.SubmissionFile:
		if enforceMode && round.SubmissionMode == models.SubmitLink {
			return nil, E(KindBadInput, "round %d takes link submissions only", round.RoundNo)
		}
		if out.FileURL == "" {
			return nil, E(KindBadInput, "file submissions need a file_url")
		}
		if !round.MimeAllowed(out.MimeType) {
			return nil, E(KindBadFile, "file type %q is not allowed for this round", out.MimeType)
		}
		if out.FileSizeBytes <= 0 || out.FileSizeBytes > round.MaxFileSizeBytes() {
			return nil, E(KindBadFile, "file size must be between 1 byte and %d MB", round.MaxFileSizeMB)
		}
		out.LinkURL = ""
	case models.SubmissionLink:
		if enforceMode && round.SubmissionMode == models.SubmitFile {
			return nil, E(KindBadInput, "round %d takes file submissions only", round.RoundNo)
		}
		if out.LinkURL == "" {
			return nil, E(KindBadInput, "link submissions need a link_url")
		}
		out.FileURL, out.FileName, out.MimeType, out.FileSizeBytes = "", "", "", 0
	default:
		return nil, E(KindBadInput, "unknown submission type %q", req.SubmissionType)
	}
	return &out, nil
}

func writeSubmissionTx(ctx context.Context, tx pgx.Tx, event *models.Event, round *models.Round, entity models.EntityRef,
	req *models.UpsertSubmissionRequest, updatedBy *int64) (*models.Submission, error) {
	sub, err := scanSubmission(tx.QueryRow(ctx, `
		UPDATE submissions SET submission_type = $4, file_url = $5, file_name = $6,
			file_size_bytes = $7, mime_type = $8, link_url = $9, notes = $10,
			version = version + 1, updated_at = now(), updated_by = $11
		WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3
		RETURNING `+submissionColumns,
		round.ID, entity.Type, entity.ID,
		req.SubmissionType, req.FileURL, req.FileName, req.FileSizeBytes, req.MimeType,
		req.LinkURL, req.Notes, updatedBy))
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, Internal("updating submission", err)
	}

	sub, err = scanSubmission(tx.QueryRow(ctx, `
		INSERT INTO submissions (event_id, round_id, entity_type, user_id, team_id,
			submission_type, file_url, file_name, file_size_bytes, mime_type, link_url, notes, version, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13)
		RETURNING `+submissionColumns,
		event.ID, round.ID, entity.Type, entity.UserID(), entity.TeamID(),
		req.SubmissionType, req.FileURL, req.FileName, req.FileSizeBytes, req.MimeType,
		req.LinkURL, req.Notes, updatedBy))
	if err != nil {
		return nil, Internal("inserting submission", err)
	}
	return sub, nil
}

func (s *submissionsService) Upsert(ctx context.Context, event *models.Event, round *models.Round, entity models.EntityRef, userID int64, req *models.UpsertSubmissionRequest) (*models.Submission, error) {
	if !round.RequiresSubmission {
		return nil, E(KindNotApplicable, "round %d does not take submissions", round.RoundNo)
	}
	if err := requireOwnership(ctx, s.pool, entity, userID); err != nil {
		return nil, err
	}
	payload, err := validateVariant(round, req, true)
	if err != nil {
		return nil, err
	}

	var sub *models.Submission
	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := submissionFor(ctx, tx, round.ID, entity, true)
		if err != nil {
			return err
		}
		reason := SubmissionLockReason(round, time.Now().UTC())
		if reason == "" && existing != nil && existing.IsLocked {
			reason = LockAdmin
		}
		if reason != "" {
			return E(KindSubmissionLocked, "%s", lockMessage(reason))
		}
		sub, err = writeSubmissionTx(ctx, tx, event, round, entity, payload, nil)
		return err
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("saving submission", err)
	}
	return sub, nil
}

func (s *submissionsService) Delete(ctx context.Context, event *models.Event, round *models.Round, entity models.EntityRef, userID int64) error {
	if err := requireOwnership(ctx, s.pool, entity, userID); err != nil {
		return err
	}
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := submissionFor(ctx, tx, round.ID, entity, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return E(KindNotFound, "no submission to delete")
		}
		reason := SubmissionLockReason(round, time.Now().UTC())
		if reason == "" && existing.IsLocked {
			reason = LockAdmin
		}
		if reason != "" {
			return E(KindSubmissionLocked, "%s", lockMessage(reason))
		}
		_, err = tx.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, existing.ID)
		if err != nil {
			return Internal("deleting submission", err)
		}
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return Internal("deleting submission", err)
	}
	return nil
}

// AdminUpsert bypasses every lock and the round's variant restriction; it
// exists to fix submissions after deadlines.
func (s *submissionsService) AdminUpsert(ctx context.Context, event *models.Event, round *models.Round, req *models.AdminSubmissionRequest, actor Actor) (*models.Submission, error) {
	entity := models.EntityFor(event.ParticipantMode, req.EntityID)
	payload, err := validateVariant(round, &req.UpsertSubmissionRequest, false)
	if err != nil {
		return nil, err
	}

	var sub *models.Submission
	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := registrationStatusTx(ctx, tx, event.ID, entity); err != nil {
			return err
		}
		updatedBy := &actor.AdminID
		sub, err = writeSubmissionTx(ctx, tx, event, round, entity, payload, updatedBy)
		return err
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("saving submission", err)
	}
	return sub, nil
}
