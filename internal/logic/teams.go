package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/mailer"
	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/worker"
)

const teamColumns = `id, event_id, team_code, name, leader_id, created_at`

type teamsService struct {
	pool   TxBeginner
	mail   *mailer.Mailer
	tasks  *worker.Pool
	logger *zap.SugaredLogger
}

func NewTeamsService(pool TxBeginner, mail *mailer.Mailer, tasks *worker.Pool, logger *zap.SugaredLogger) TeamsService {
	return &teamsService{pool: pool, mail: mail, tasks: tasks, logger: logger}
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(&t.ID, &t.EventID, &t.TeamCode, &t.Name, &t.LeaderID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func loadTeamDetail(ctx context.Context, db DB, eventID, teamID int64) (*models.TeamDetail, error) {
	team, err := scanTeam(db.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE event_id = $1 AND id = $2`, eventID, teamID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "team %d not found", teamID)
	}
	if err != nil {
		return nil, Internal("loading team", err)
	}

	rows, err := db.Query(ctx, `
		SELECT tm.id, tm.team_id, tm.event_id, tm.user_id, tm.role, u.regno, u.name
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY (tm.role <> 'leader'), u.name`, teamID)
	if err != nil {
		return nil, Internal("loading team members", err)
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.EventID, &m.UserID, &m.Role, &m.Regno, &m.Name); err != nil {
			return nil, Internal("scanning team member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating team members", err)
	}
	return &models.TeamDetail{Team: *team, Members: members}, nil
}

func memberOfAnyTeam(ctx context.Context, db DB, eventID, userID int64) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_members WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID).Scan(&exists)
	if err != nil {
		return false, Internal("checking team membership", err)
	}
	return exists, nil
}

// nextTeamCode mints the event-scoped team code. Codes run TM001..TM999 and
// fall back to random five-character codes once the sequence is exhausted.
func nextTeamCode(ctx context.Context, db DB, eventID int64) (string, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM teams WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		return "", Internal("counting teams", err)
	}
	if count < 999 {
		return fmt.Sprintf("TM%03d", count+1), nil
	}
	code, err := MintCode()
	if err != nil {
		return "", Internal("minting team code", err)
	}
	return code, nil
}

func (s *teamsService) gate(event *models.Event, user *models.User) error {
	if !event.IsTeamEvent() {
		return E(KindWrongMode, "event %q takes individual registrations", event.Title)
	}
	if !event.RegistrationOpen {
		return E(KindRegClosed, "registrations are closed for %q", event.Title)
	}
	if event.OpenFor == models.AudienceMIT && !user.IsMIT {
		return E(KindNotEligible, "event %q is open to MIT students only", event.Title)
	}
	return nil
}

func (s *teamsService) Create(ctx context.Context, event *models.Event, leader *models.User, name string) (*models.TeamDetail, error) {
	if err := s.gate(event, leader); err != nil {
		return nil, err
	}

	var teamID int64
	for attempt := 0; attempt < mintRetries; attempt++ {
		err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
			inTeam, err := memberOfAnyTeam(ctx, tx, event.ID, leader.ID)
			if err != nil {
				return err
			}
			if inTeam {
				return E(KindAlreadyInTeam, "%s is already in a team for this event", leader.Regno)
			}

			code, err := nextTeamCode(ctx, tx, event.ID)
			if err != nil {
				return err
			}
			team, err := scanTeam(tx.QueryRow(ctx, `
				INSERT INTO teams (event_id, team_code, name, leader_id)
				VALUES ($1, $2, $3, $4)
				RETURNING `+teamColumns, event.ID, code, name, leader.ID))
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO team_members (team_id, event_id, user_id, role)
				VALUES ($1, $2, $3, 'leader')`, team.ID, event.ID, leader.ID); err != nil {
				return Internal("inserting leader membership", err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO registrations (event_id, entity_type, team_id, status)
				VALUES ($1, 'TEAM', $2, 'ACTIVE')`, event.ID, team.ID); err != nil {
				return Internal("inserting team registration", err)
			}
			teamID = team.ID
			return nil
		})
		if err == nil {
			break
		}
		// Concurrent creates race on the team code; recount and retry.
		if isUniqueViolation(err, "") {
			teamID = 0
			continue
		}
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("creating team", err)
	}
	if teamID == 0 {
		return nil, E(KindDuplicate, "could not mint a unique team code")
	}

	detail, err := loadTeamDetail(ctx, s.pool, event.ID, teamID)
	if err != nil {
		return nil, err
	}
	s.queueTeamEmail(event, leader, &detail.Team)
	return detail, nil
}

func (s *teamsService) queueTeamEmail(event *models.Event, leader *models.User, team *models.Team) {
	if leader.Email == "" {
		return
	}
	to := leader.Email
	subject, body := mailer.TeamCreatedBody(leader.Name, event.Title, team.Name, team.TeamCode)
	if ok := s.tasks.Enqueue("team_email", func(ctx context.Context) error {
		return s.mail.Send(ctx, to, subject, body)
	}); !ok {
		s.logger.Warnw("team email dropped", "event", event.Slug, "to", to)
	}
}

func (s *teamsService) Join(ctx context.Context, event *models.Event, user *models.User, teamCode string) (*models.TeamDetail, error) {
	if err := s.gate(event, user); err != nil {
		return nil, err
	}

	var teamID int64
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Lock the team row so concurrent joins see each other's member
		// count.
		team, err := scanTeam(tx.QueryRow(ctx,
			`SELECT `+teamColumns+` FROM teams WHERE event_id = $1 AND team_code = $2 FOR UPDATE`,
			event.ID, teamCode))
		if errors.Is(err, pgx.ErrNoRows) {
			return E(KindNotFound, "no team with code %q", teamCode)
		}
		if err != nil {
			return Internal("loading team", err)
		}

		inTeam, err := memberOfAnyTeam(ctx, tx, event.ID, user.ID)
		if err != nil {
			return err
		}
		if inTeam {
			return E(KindAlreadyInTeam, "%s is already in a team for this event", user.Regno)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, team.ID).Scan(&count); err != nil {
			return Internal("counting team members", err)
		}
		if event.TeamMaxSize != nil && count >= *event.TeamMaxSize {
			return E(KindTeamFull, "team %s is full", team.TeamCode)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO team_members (team_id, event_id, user_id, role)
			VALUES ($1, $2, $3, 'member')`, team.ID, event.ID, user.ID); err != nil {
			return Internal("inserting membership", err)
		}
		if err := ensureTeamRegistration(ctx, tx, event.ID, team.ID); err != nil {
			return err
		}
		teamID = team.ID
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("joining team", err)
	}
	return loadTeamDetail(ctx, s.pool, event.ID, teamID)
}

func ensureTeamRegistration(ctx context.Context, tx pgx.Tx, eventID, teamID int64) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND entity_type = 'TEAM' AND team_id = $2)`,
		eventID, teamID).Scan(&exists)
	if err != nil {
		return Internal("checking team registration", err)
	}
	if exists {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO registrations (event_id, entity_type, team_id, status)
		VALUES ($1, 'TEAM', $2, 'ACTIVE')`, eventID, teamID); err != nil {
		return Internal("inserting team registration", err)
	}
	return nil
}

func (s *teamsService) Invite(ctx context.Context, event *models.Event, leaderID int64, regno string) (*models.TeamDetail, error) {
	var teamID int64
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var leaderTeamID int64
		err := tx.QueryRow(ctx,
			`SELECT team_id FROM team_members WHERE event_id = $1 AND user_id = $2 AND role = 'leader'`,
			event.ID, leaderID).Scan(&leaderTeamID)
		if errors.Is(err, pgx.ErrNoRows) {
			return E(KindPolicyDenied, "only the team leader can invite members")
		}
		if err != nil {
			return Internal("resolving leader team", err)
		}

		if _, err := scanTeam(tx.QueryRow(ctx,
			`SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, leaderTeamID)); err != nil {
			return Internal("locking team", err)
		}

		var invitee models.User
		err = tx.QueryRow(ctx,
			`SELECT id, regno, name, COALESCE(email, ''), is_mit FROM users WHERE regno = $1`, regno).
			Scan(&invitee.ID, &invitee.Regno, &invitee.Name, &invitee.Email, &invitee.IsMIT)
		if errors.Is(err, pgx.ErrNoRows) {
			return E(KindNotFound, "no user with register number %q", regno)
		}
		if err != nil {
			return Internal("loading invitee", err)
		}
		if event.OpenFor == models.AudienceMIT && !invitee.IsMIT {
			return E(KindNotEligible, "event %q is open to MIT students only", event.Title)
		}

		inTeam, err := memberOfAnyTeam(ctx, tx, event.ID, invitee.ID)
		if err != nil {
			return err
		}
		if inTeam {
			return E(KindAlreadyInTeam, "%s is already in a team for this event", invitee.Regno)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, leaderTeamID).Scan(&count); err != nil {
			return Internal("counting team members", err)
		}
		if event.TeamMaxSize != nil && count >= *event.TeamMaxSize {
			return E(KindTeamFull, "team is full")
		}

		// Invites are recorded as immediately accepted; there is no pending
		// flow on this surface.
		if _, err := tx.Exec(ctx, `
			UPDATE team_invites SET team_id = $2, invited_by = $3, status = 'ACCEPTED'
			WHERE event_id = $1 AND regno = $4`, event.ID, leaderTeamID, leaderID, regno); err != nil {
			return Internal("updating invite", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO team_invites (event_id, team_id, regno, invited_by, status)
			SELECT $1, $2, $3, $4, 'ACCEPTED'
			WHERE NOT EXISTS (SELECT 1 FROM team_invites WHERE event_id = $1 AND regno = $3)`,
			event.ID, leaderTeamID, regno, leaderID); err != nil {
			return Internal("inserting invite", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO team_members (team_id, event_id, user_id, role)
			VALUES ($1, $2, $3, 'member')`, leaderTeamID, event.ID, invitee.ID); err != nil {
			return Internal("inserting membership", err)
		}
		teamID = leaderTeamID
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("inviting member", err)
	}
	return loadTeamDetail(ctx, s.pool, event.ID, teamID)
}

func (s *teamsService) ByID(ctx context.Context, eventID, teamID int64) (*models.TeamDetail, error) {
	return loadTeamDetail(ctx, s.pool, eventID, teamID)
}

func (s *teamsService) TeamOf(ctx context.Context, eventID, userID int64) (*models.TeamDetail, error) {
	var teamID int64
	err := s.pool.QueryRow(ctx,
		`SELECT team_id FROM team_members WHERE event_id = $1 AND user_id = $2`, eventID, userID).Scan(&teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "no team membership for this event")
	}
	if err != nil {
		return nil, Internal("resolving team membership", err)
	}
	return loadTeamDetail(ctx, s.pool, eventID, teamID)
}

func (s *teamsService) Delete(ctx context.Context, eventID, teamID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE event_id = $1 AND id = $2`, eventID, teamID)
	if err != nil {
		return Internal("deleting team", err)
	}
	if tag.RowsAffected() == 0 {
		return E(KindNotFound, "team %d not found", teamID)
	}
	return nil
}
