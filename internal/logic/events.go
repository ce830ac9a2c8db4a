package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pdamit/events-api/internal/models"
)

const eventColumns = `id, slug, event_code, title, description, community_id, poster_url, whatsapp_url,
	event_type, format, template, participant_mode, round_mode, round_count,
	team_min_size, team_max_size, status, registration_open, is_visible, open_for, created_at, updated_at`

type eventsService struct {
	pool TxBeginner
}

func NewEventsService(pool TxBeginner) EventsService {
	return &eventsService{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Slug, &e.EventCode, &e.Title, &e.Description, &e.CommunityID,
		&e.PosterURL, &e.WhatsappURL, &e.EventType, &e.Format, &e.Template,
		&e.ParticipantMode, &e.RoundMode, &e.RoundCount, &e.TeamMinSize, &e.TeamMaxSize,
		&e.Status, &e.RegistrationOpen, &e.IsVisible, &e.OpenFor, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *eventsService) BySlug(ctx context.Context, slug string) (*models.Event, error) {
	ev, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "event %q not found", slug)
	}
	if err != nil {
		return nil, Internal("loading event", err)
	}
	return ev, nil
}

func summarize(e *models.Event, regCount int) models.EventSummary {
	return models.EventSummary{
		ID:                e.ID,
		Slug:              e.Slug,
		EventCode:         e.EventCode,
		Title:             e.Title,
		Description:       e.Description,
		PosterURL:         e.PosterURL,
		WhatsappURL:       e.WhatsappURL,
		EventType:         e.EventType,
		Format:            e.Format,
		ParticipantMode:   e.ParticipantMode,
		RoundMode:         e.RoundMode,
		RoundCount:        e.RoundCount,
		TeamMinSize:       e.TeamMinSize,
		TeamMaxSize:       e.TeamMaxSize,
		Status:            e.Status,
		RegistrationOpen:  e.RegistrationOpen,
		OpenFor:           e.OpenFor,
		RegistrationCount: regCount,
	}
}

func listEventSummaries(ctx context.Context, db DB, where string, args ...any) ([]models.EventSummary, error) {
	rows, err := db.Query(ctx, `
		SELECT `+eventColumns+`,
			(SELECT COUNT(*) FROM registrations r WHERE r.event_id = events.id) AS registration_count
		FROM events
		`+where+`
		ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, Internal("listing events", err)
	}
	defer rows.Close()

	out := []models.EventSummary{}
	for rows.Next() {
		var e models.Event
		var count int
		err := rows.Scan(&e.ID, &e.Slug, &e.EventCode, &e.Title, &e.Description, &e.CommunityID,
			&e.PosterURL, &e.WhatsappURL, &e.EventType, &e.Format, &e.Template,
			&e.ParticipantMode, &e.RoundMode, &e.RoundCount, &e.TeamMinSize, &e.TeamMaxSize,
			&e.Status, &e.RegistrationOpen, &e.IsVisible, &e.OpenFor, &e.CreatedAt, &e.UpdatedAt,
			&count)
		if err != nil {
			return nil, Internal("scanning event row", err)
		}
		out = append(out, summarize(&e, count))
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating events", err)
	}
	return out, nil
}

func (s *eventsService) ListPublic(ctx context.Context, scope string) ([]models.EventSummary, error) {
	switch scope {
	case "ongoing":
		return listEventSummaries(ctx, s.pool, `WHERE is_visible AND status = 'OPEN'`)
	case "all":
		return listEventSummaries(ctx, s.pool, `WHERE is_visible`)
	default:
		return nil, E(KindBadInput, "unknown listing scope %q", scope)
	}
}

func (s *eventsService) GetPublic(ctx context.Context, slug string) (*models.EventSummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`,
			(SELECT COUNT(*) FROM registrations r WHERE r.event_id = events.id) AS registration_count
		FROM events
		WHERE slug = $1 AND is_visible`, slug)

	var e models.Event
	var count int
	err := row.Scan(&e.ID, &e.Slug, &e.EventCode, &e.Title, &e.Description, &e.CommunityID,
		&e.PosterURL, &e.WhatsappURL, &e.EventType, &e.Format, &e.Template,
		&e.ParticipantMode, &e.RoundMode, &e.RoundCount, &e.TeamMinSize, &e.TeamMaxSize,
		&e.Status, &e.RegistrationOpen, &e.IsVisible, &e.OpenFor, &e.CreatedAt, &e.UpdatedAt,
		&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "event %q not found", slug)
	}
	if err != nil {
		return nil, Internal("loading event", err)
	}
	summary := summarize(&e, count)
	return &summary, nil
}

// PublicRounds lists rounds participants may see: everything past DRAFT.
func (s *eventsService) PublicRounds(ctx context.Context, eventID int64) ([]models.Round, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND state <> 'DRAFT' ORDER BY round_no`, eventID)
	if err != nil {
		return nil, Internal("listing rounds", err)
	}
	defer rows.Close()
	return collectRounds(rows)
}

func (s *eventsService) ListAdmin(ctx context.Context, actor Actor) ([]models.AdminEventSummary, error) {
	where := `WHERE EXISTS (SELECT 1 FROM admin_events ae WHERE ae.event_id = events.id AND ae.admin_id = $1)`
	args := []any{actor.AdminID}
	if actor.IsSuper {
		where, args = "", nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`,
			(SELECT COUNT(*) FROM registrations r WHERE r.event_id = events.id) AS registration_count
		FROM events
		`+where+`
		ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, Internal("listing admin events", err)
	}
	defer rows.Close()

	out := []models.AdminEventSummary{}
	for rows.Next() {
		var e models.Event
		var count int
		err := rows.Scan(&e.ID, &e.Slug, &e.EventCode, &e.Title, &e.Description, &e.CommunityID,
			&e.PosterURL, &e.WhatsappURL, &e.EventType, &e.Format, &e.Template,
			&e.ParticipantMode, &e.RoundMode, &e.RoundCount, &e.TeamMinSize, &e.TeamMaxSize,
			&e.Status, &e.RegistrationOpen, &e.IsVisible, &e.OpenFor, &e.CreatedAt, &e.UpdatedAt,
			&count)
		if err != nil {
			return nil, Internal("scanning admin event row", err)
		}
		out = append(out, models.AdminEventSummary{
			EventSummary: summarize(&e, count),
			IsVisible:    e.IsVisible,
			Template:     e.Template,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating admin events", err)
	}
	return out, nil
}

// nextFreeSlug finds the first untaken slug candidate for a base.
func nextFreeSlug(ctx context.Context, db DB, base string) (string, error) {
	rows, err := db.Query(ctx, `SELECT slug FROM events WHERE slug = $1 OR slug LIKE $1 || '-%'`, base)
	if err != nil {
		return "", fmt.Errorf("querying slugs: %w", err)
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return "", fmt.Errorf("scanning slug: %w", err)
		}
		taken[s] = true
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating slugs: %w", err)
	}

	for n := 1; ; n++ {
		if cand := SlugCandidate(base, n); !taken[cand] {
			return cand, nil
		}
	}
}

func validateTeamBounds(mode models.ParticipantMode, min, max *int) error {
	if mode == models.ModeTeam {
		if min == nil || max == nil {
			return E(KindBadInput, "team events require team_min_size and team_max_size")
		}
		if *min > *max {
			return E(KindBadInput, "team_min_size must not exceed team_max_size")
		}
		return nil
	}
	if min != nil || max != nil {
		return E(KindBadInput, "team size bounds are only valid for TEAM events")
	}
	return nil
}

func (s *eventsService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	if err := validateTeamBounds(req.ParticipantMode, req.TeamMinSize, req.TeamMaxSize); err != nil {
		return nil, err
	}
	roundCount := req.RoundCount
	if req.RoundMode == models.RoundModeSingle || roundCount < 1 {
		roundCount = 1
	}

	base := Slugify(req.Title)
	if base == "" {
		base = "event"
	}

	var ev *models.Event
	for attempt := 0; attempt < mintRetries; attempt++ {
		err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
			slug, err := nextFreeSlug(ctx, tx, base)
			if err != nil {
				return Internal("minting slug", err)
			}
			var next int64
			if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM events`).Scan(&next); err != nil {
				return Internal("minting event code", err)
			}

			// New events start closed and hidden; admins open them explicitly.
			created, err := scanEvent(tx.QueryRow(ctx, `
				INSERT INTO events (slug, event_code, title, description, community_id, poster_url, whatsapp_url,
					event_type, format, template, participant_mode, round_mode, round_count,
					team_min_size, team_max_size, status, registration_open, is_visible, open_for)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 'CLOSED', false, false, $16)
				RETURNING `+eventColumns,
				slug, EventCode(next), req.Title, req.Description, req.CommunityID,
				req.PosterURL, req.WhatsappURL, req.EventType, req.Format, req.Template,
				req.ParticipantMode, req.RoundMode, roundCount,
				req.TeamMinSize, req.TeamMaxSize, req.OpenFor))
			if err != nil {
				return err
			}
			ev = created
			return nil
		})
		if err == nil {
			return ev, nil
		}
		// Concurrent creates race on slug or event_code; remint and retry.
		if isUniqueViolation(err, "") {
			continue
		}
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("creating event", err)
	}
	return nil, E(KindDuplicate, "could not mint a unique slug or event code for %q", req.Title)
}

func (s *eventsService) Update(ctx context.Context, slug string, req *models.UpdateEventRequest) (*models.Event, error) {
	current, err := s.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	min, max := current.TeamMinSize, current.TeamMaxSize
	if req.TeamMinSize != nil {
		min = req.TeamMinSize
	}
	if req.TeamMaxSize != nil {
		max = req.TeamMaxSize
	}
	if err := validateTeamBounds(current.ParticipantMode, min, max); err != nil {
		return nil, err
	}

	ev, err := scanEvent(s.pool.QueryRow(ctx, `
		UPDATE events SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			community_id = COALESCE($4, community_id),
			poster_url = COALESCE($5, poster_url),
			whatsapp_url = COALESCE($6, whatsapp_url),
			event_type = COALESCE($7, event_type),
			format = COALESCE($8, format),
			open_for = COALESCE($9, open_for),
			team_min_size = COALESCE($10, team_min_size),
			team_max_size = COALESCE($11, team_max_size),
			updated_at = now()
		WHERE slug = $1
		RETURNING `+eventColumns,
		slug, req.Title, req.Description, req.CommunityID, req.PosterURL, req.WhatsappURL,
		req.EventType, req.Format, req.OpenFor, req.TeamMinSize, req.TeamMaxSize))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "event %q not found", slug)
	}
	if err != nil {
		return nil, Internal("updating event", err)
	}
	return ev, nil
}

func (s *eventsService) Delete(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE slug = $1`, slug)
	if err != nil {
		return Internal("deleting event", err)
	}
	if tag.RowsAffected() == 0 {
		return E(KindNotFound, "event %q not found", slug)
	}
	return nil
}

func (s *eventsService) setFlag(ctx context.Context, slug, column string, value any) (*models.Event, error) {
	ev, err := scanEvent(s.pool.QueryRow(ctx,
		`UPDATE events SET `+column+` = $2, updated_at = now() WHERE slug = $1 RETURNING `+eventColumns,
		slug, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "event %q not found", slug)
	}
	if err != nil {
		return nil, Internal("updating event "+column, err)
	}
	return ev, nil
}

func (s *eventsService) SetRegistrationOpen(ctx context.Context, slug string, open bool) (*models.Event, error) {
	return s.setFlag(ctx, slug, "registration_open", open)
}

func (s *eventsService) SetVisibility(ctx context.Context, slug string, visible bool) (*models.Event, error) {
	return s.setFlag(ctx, slug, "is_visible", visible)
}

func (s *eventsService) SetStatus(ctx context.Context, slug string, status models.EventStatus) (*models.Event, error) {
	return s.setFlag(ctx, slug, "status", status)
}
