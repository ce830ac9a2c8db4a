package logic

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pdamit/events-api/internal/models"
)

const badgeColumns = `id, event_id, title, place, entity_type, user_id, team_id, score, COALESCE(image_url, ''), created_at`

type badgesService struct {
	pool TxBeginner
}

func NewBadgesService(pool TxBeginner) BadgesService {
	return &badgesService{pool: pool}
}

// CertificateData is everything the PDF renderer needs for one participant
// certificate.
type CertificateData struct {
	User  *models.User
	Event *models.Event
	Badge *models.Badge
}

func scanBadge(row pgx.Row) (*models.Badge, error) {
	var (
		b              models.Badge
		entityType     models.EntityType
		userID, teamID *int64
	)
	err := row.Scan(&b.ID, &b.EventID, &b.Title, &b.Place, &entityType, &userID, &teamID,
		&b.Score, &b.ImageURL, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Entity = models.EntityFromColumns(entityType, userID, teamID)
	return &b, nil
}

func (s *badgesService) Create(ctx context.Context, event *models.Event, req *models.CreateBadgeRequest) (*models.Badge, error) {
	entity := models.EntityFor(event.ParticipantMode, req.EntityID)
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations
			WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3)`,
		event.ID, entity.Type, entity.ID).Scan(&exists)
	if err != nil {
		return nil, Internal("checking registration", err)
	}
	if !exists {
		return nil, E(KindNotFound, "no registration for %s", entity)
	}

	badge, err := scanBadge(s.pool.QueryRow(ctx, `
		INSERT INTO badges (event_id, title, place, entity_type, user_id, team_id, score, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+badgeColumns,
		event.ID, req.Title, req.Place, entity.Type, entity.UserID(), entity.TeamID(), req.Score, req.ImageURL))
	if err != nil {
		return nil, Internal("inserting badge", err)
	}
	return badge, nil
}

func (s *badgesService) List(ctx context.Context, eventID int64) ([]models.Badge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+badgeColumns+` FROM badges
		WHERE event_id = $1
		ORDER BY CASE place WHEN 'WINNER' THEN 1 WHEN 'RUNNER' THEN 2 ELSE 3 END, created_at`, eventID)
	if err != nil {
		return nil, Internal("listing badges", err)
	}
	defer rows.Close()

	out := []models.Badge{}
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, Internal("scanning badge", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating badges", err)
	}
	return out, nil
}

func (s *badgesService) Delete(ctx context.Context, eventID, badgeID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM badges WHERE event_id = $1 AND id = $2`, eventID, badgeID)
	if err != nil {
		return Internal("deleting badge", err)
	}
	if tag.RowsAffected() == 0 {
		return E(KindNotFound, "badge %d not found", badgeID)
	}
	return nil
}

// WallFor lists the badges a user earned directly or through a team.
func (s *badgesService) WallFor(ctx context.Context, userID int64) ([]models.Achievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.slug, e.title, b.title, b.place, b.score, COALESCE(b.image_url, ''), b.created_at
		FROM badges b
		JOIN events e ON e.id = b.event_id
		WHERE (b.entity_type = 'USER' AND b.user_id = $1)
			OR (b.entity_type = 'TEAM' AND b.team_id IN (SELECT team_id FROM team_members WHERE user_id = $1))
		ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, Internal("listing achievements", err)
	}
	defer rows.Close()

	out := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.EventSlug, &a.EventTitle, &a.Title, &a.Place, &a.Score, &a.ImageURL, &a.AwardedAt); err != nil {
			return nil, Internal("scanning achievement", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating achievements", err)
	}
	return out, nil
}

// CertificateData loads the certificate inputs for a user's run of an event.
// Participation is required; a podium badge is attached when one exists, best
// place first.
func (s *badgesService) CertificateData(ctx context.Context, userID int64, slug string) (*CertificateData, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, regno, name, COALESCE(email, ''), COALESCE(profile_name, ''),
			COALESCE(department, ''), COALESCE(gender, ''), COALESCE(batch, ''), is_mit, created_at
		FROM users WHERE id = $1`, userID).
		Scan(&user.ID, &user.Regno, &user.Name, &user.Email, &user.ProfileName,
			&user.Department, &user.Gender, &user.Batch, &user.IsMIT, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "user %d not found", userID)
	}
	if err != nil {
		return nil, Internal("loading user", err)
	}

	event, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "event %q not found", slug)
	}
	if err != nil {
		return nil, Internal("loading event", err)
	}

	var participated bool
	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations WHERE event_id = $1 AND entity_type = 'USER' AND user_id = $2
			UNION
			SELECT 1 FROM team_members WHERE event_id = $1 AND user_id = $2
		)`, event.ID, userID).Scan(&participated)
	if err != nil {
		return nil, Internal("checking participation", err)
	}
	if !participated {
		return nil, E(KindNotFound, "no participation in %q", event.Title)
	}

	data := &CertificateData{User: &user, Event: event}
	badge, err := scanBadge(s.pool.QueryRow(ctx, `
		SELECT `+badgeColumns+` FROM badges
		WHERE event_id = $1 AND (
			(entity_type = 'USER' AND user_id = $2)
			OR (entity_type = 'TEAM' AND team_id IN (SELECT team_id FROM team_members WHERE event_id = $1 AND user_id = $2))
		)
		ORDER BY CASE place WHEN 'WINNER' THEN 1 WHEN 'RUNNER' THEN 2 ELSE 3 END
		LIMIT 1`, event.ID, userID))
	if err == nil {
		data.Badge = badge
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, Internal("loading badge", err)
	}
	return data, nil
}
