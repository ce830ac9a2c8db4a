package logic

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pdamit/events-api/internal/models"
)

const userColumns = `id, regno, name, COALESCE(email, ''), COALESCE(profile_name, ''),
	COALESCE(department, ''), COALESCE(gender, ''), COALESCE(batch, ''), is_mit, created_at`

const profileNameRetries = 5

type identityService struct {
	pool TxBeginner
}

func NewIdentityService(pool TxBeginner) IdentityService {
	return &identityService{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Regno, &u.Name, &u.Email, &u.ProfileName,
		&u.Department, &u.Gender, &u.Batch, &u.IsMIT, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *identityService) UserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "user %d not found", id)
	}
	if err != nil {
		return nil, Internal("loading user", err)
	}
	return user, nil
}

func (s *identityService) UserByRegno(ctx context.Context, regno string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE UPPER(regno) = UPPER($1)`, regno))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "no user with register number %q", regno)
	}
	if err != nil {
		return nil, Internal("loading user", err)
	}
	return user, nil
}

func (s *identityService) AdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	var a models.Admin
	err := s.pool.QueryRow(ctx,
		`SELECT id, regno, name, COALESCE(email, ''), is_super FROM admins WHERE id = $1`, id).
		Scan(&a.ID, &a.Regno, &a.Name, &a.Email, &a.IsSuper)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "admin %d not found", id)
	}
	if err != nil {
		return nil, Internal("loading admin", err)
	}
	return &a, nil
}

// EventAdmins lists the admins bound to an event. The bootstrap account is
// operational plumbing and never shows up here.
func (s *identityService) EventAdmins(ctx context.Context, eventID int64) ([]models.Admin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.regno, a.name, COALESCE(a.email, ''), a.is_super
		FROM admins a
		JOIN admin_events ae ON ae.admin_id = a.id
		WHERE ae.event_id = $1 AND a.regno <> $2
		ORDER BY a.name`, eventID, models.BootstrapRegno)
	if err != nil {
		return nil, Internal("listing event admins", err)
	}
	defer rows.Close()

	out := []models.Admin{}
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ID, &a.Regno, &a.Name, &a.Email, &a.IsSuper); err != nil {
			return nil, Internal("scanning admin", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating admins", err)
	}
	return out, nil
}

func (s *identityService) PolicyAllows(ctx context.Context, actor Actor, eventID int64) (bool, error) {
	if actor.IsSuper {
		return true, nil
	}
	var allowed bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admin_events WHERE admin_id = $1 AND event_id = $2)`,
		actor.AdminID, eventID).Scan(&allowed)
	if err != nil {
		return false, Internal("checking event policy", err)
	}
	return allowed, nil
}

// EnsureProfileName backfills a missing profile name. Concurrent mints for
// the same user are harmless: the guarded update keeps the first one.
func (s *identityService) EnsureProfileName(ctx context.Context, user *models.User) error {
	if user.ProfileName != "" {
		return nil
	}
	seed := ProfileNameSeed(user.Name)
	for attempt := 0; attempt < profileNameRetries; attempt++ {
		candidate, err := ProfileNameCandidate(seed)
		if err != nil {
			return Internal("minting profile name", err)
		}
		tag, err := s.pool.Exec(ctx, `
			UPDATE users SET profile_name = $1
			WHERE id = $2 AND COALESCE(profile_name, '') = ''`, candidate, user.ID)
		if isUniqueViolation(err, "") {
			continue
		}
		if err != nil {
			return Internal("saving profile name", err)
		}
		if tag.RowsAffected() > 0 {
			user.ProfileName = candidate
		}
		return nil
	}
	return E(KindInternal, "could not mint a unique profile name for user %d", user.ID)
}
