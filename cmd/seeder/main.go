// Command seeder fills a local database with demo identities, two events,
// and enough registrations to exercise every surface by hand. It prints
// ready-to-use bearer tokens for one participant and one admin on exit.
// Never point it at production.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdamit/events-api/internal/auth"
	"github.com/pdamit/events-api/internal/config"
	"github.com/pdamit/events-api/internal/database"
	"github.com/pdamit/events-api/internal/models"
)

const sessionTTL = 30 * 24 * time.Hour

func main() {
	if err := run(); err != nil {
		log.Printf("seed failed: %v", err)
		os.Exit(1)
	}
}

type demoUser struct {
	regno, name, email, department, gender, batch string
}

var demoUsers = []demoUser{
	{"220701001", "Anaya Iyer", "anaya@mitindia.edu", "CSE", "F", "2026"},
	{"220701002", "Rohit Menon", "rohit@mitindia.edu", "ECE", "M", "2026"},
	{"220701003", "Divya Krishnan", "divya@mitindia.edu", "CSE", "F", "2027"},
	{"220701004", "Arjun Nair", "arjun@mitindia.edu", "MECH", "M", "2026"},
	{"220701005", "Sneha Raj", "sneha@mitindia.edu", "IT", "F", "2027"},
	{"220701006", "Karthik Subramanian", "karthik@mitindia.edu", "EEE", "M", "2026"},
	{"220701007", "Priya Venkatesh", "priya@mitindia.edu", "CSE", "F", "2028"},
	{"220701008", "Vishal Kumar", "vishal@mitindia.edu", "IT", "M", "2028"},
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("postgres pool: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	userIDs := make([]int64, len(demoUsers))
	for i, u := range demoUsers {
		err := pool.QueryRow(ctx, `
			INSERT INTO users (regno, name, email, department, gender, batch, is_mit)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			ON CONFLICT (regno) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`,
			u.regno, u.name, u.email, u.department, u.gender, u.batch).Scan(&userIDs[i])
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.regno, err)
		}
	}

	var superID, adminID int64
	if err := pool.QueryRow(ctx, `
		INSERT INTO admins (regno, name, email, is_super)
		VALUES ('PDA0001', 'Meera Pillai', 'meera@mitindia.edu', true)
		ON CONFLICT (regno) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`).Scan(&superID); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	if err := pool.QueryRow(ctx, `
		INSERT INTO admins (regno, name, email, is_super)
		VALUES ('PDA0002', 'Sanjay Rao', 'sanjay@mitindia.edu', false)
		ON CONFLICT (regno) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`).Scan(&adminID); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	soloID, err := seedSoloEvent(ctx, pool, userIDs)
	if err != nil {
		return err
	}
	teamEventID, err := seedTeamEvent(ctx, pool, userIDs)
	if err != nil {
		return err
	}

	for _, eventID := range []int64{soloID, teamEventID} {
		if _, err := pool.Exec(ctx, `
			INSERT INTO admin_events (admin_id, event_id) VALUES ($1, $2)
			ON CONFLICT (admin_id, event_id) DO NOTHING`, adminID, eventID); err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.QRTokenTTL)
	participantToken, err := tokens.IssueParticipant(userIDs[0], demoUsers[0].regno, sessionTTL)
	if err != nil {
		return err
	}
	adminToken, err := tokens.IssueAdmin(adminID, "PDA0002", false, sessionTTL)
	if err != nil {
		return err
	}
	superToken, err := tokens.IssueAdmin(superID, "PDA0001", true, sessionTTL)
	if err != nil {
		return err
	}

	fmt.Println("Seed complete.")
	fmt.Printf("participant (%s): %s\n", demoUsers[0].regno, participantToken)
	fmt.Printf("admin (PDA0002):  %s\n", adminToken)
	fmt.Printf("super (PDA0001):  %s\n", superToken)
	return nil
}

// seedSoloEvent creates an individual-mode ideathon with one scoring round
// and two registrations linked by a referral.
func seedSoloEvent(ctx context.Context, pool *pgxpool.Pool, userIDs []int64) (int64, error) {
	var eventID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO events (slug, event_code, title, description,
			event_type, format, template, participant_mode, round_mode, round_count,
			status, registration_open, is_visible, open_for)
		VALUES ('ideathon-2026', 'EVT001', 'Ideathon 2026', 'Pitch your wildest idea.',
			$1, $2, $3, $4, $5, 1, $6, true, true, $7)
		ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title
		RETURNING id`,
		models.EventTypeTechnical, models.FormatOffline, models.TemplateAttendanceScoring,
		models.ModeIndividual, models.RoundModeSingle, models.EventOpen, models.AudienceAll).
		Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("seed solo event: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO rounds (event_id, round_no, name, description, state, criteria)
		VALUES ($1, 1, 'Pitch Round', 'Five minutes, two judges.', $2,
			'[{"name": "Idea", "max_marks": 40}, {"name": "Execution", "max_marks": 60}]'::jsonb)
		ON CONFLICT (event_id, round_no) DO NOTHING`,
		eventID, models.RoundPublished); err != nil {
		return 0, fmt.Errorf("seed solo round: %w", err)
	}

	// First registrant carries a fixed referral code; the second one used it.
	if _, err := pool.Exec(ctx, `
		INSERT INTO registrations (event_id, entity_type, user_id, status, referral_code, referral_count)
		VALUES ($1, $2, $3, $4, 'XR7AQ', 1)
		ON CONFLICT (event_id, user_id) WHERE user_id IS NOT NULL DO NOTHING`,
		eventID, models.EntityUser, userIDs[0], models.RegistrationActive); err != nil {
		return 0, fmt.Errorf("seed registration: %w", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO registrations (event_id, entity_type, user_id, status, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, 'MK2PL', 'XR7AQ')
		ON CONFLICT (event_id, user_id) WHERE user_id IS NOT NULL DO NOTHING`,
		eventID, models.EntityUser, userIDs[1], models.RegistrationActive); err != nil {
		return 0, fmt.Errorf("seed referred registration: %w", err)
	}
	return eventID, nil
}

// seedTeamEvent creates a team-mode hackathon with a full three-member team.
func seedTeamEvent(ctx context.Context, pool *pgxpool.Pool, userIDs []int64) (int64, error) {
	var eventID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO events (slug, event_code, title, description,
			event_type, format, template, participant_mode, round_mode, round_count,
			team_min_size, team_max_size, status, registration_open, is_visible, open_for)
		VALUES ('robo-rumble', 'EVT002', 'Robo Rumble', 'Build, battle, repeat.',
			$1, $2, $3, $4, $5, 2, 2, 3, $6, true, true, $7)
		ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title
		RETURNING id`,
		models.EventTypeHackathon, models.FormatOffline, models.TemplateAttendanceScoring,
		models.ModeTeam, models.RoundModeMulti, models.EventOpen, models.AudienceMIT).
		Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("seed team event: %w", err)
	}

	for i, round := range []string{"Qualifiers", "Finals"} {
		if _, err := pool.Exec(ctx, `
			INSERT INTO rounds (event_id, round_no, name, state, criteria)
			VALUES ($1, $2, $3, $4,
				'[{"name": "Design", "max_marks": 50}, {"name": "Performance", "max_marks": 50}]'::jsonb)
			ON CONFLICT (event_id, round_no) DO NOTHING`,
			eventID, i+1, round, models.RoundPublished); err != nil {
			return 0, fmt.Errorf("seed team round: %w", err)
		}
	}

	var teamID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO teams (event_id, team_code, name, leader_id)
		VALUES ($1, 'TM001', 'Circuit Breakers', $2)
		ON CONFLICT (event_id, team_code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, eventID, userIDs[2]).Scan(&teamID)
	if err != nil {
		return 0, fmt.Errorf("seed team: %w", err)
	}

	members := []struct {
		userID int64
		role   models.TeamRole
	}{
		{userIDs[2], models.RoleLeader},
		{userIDs[3], models.RoleMember},
		{userIDs[4], models.RoleMember},
	}
	for _, m := range members {
		if _, err := pool.Exec(ctx, `
			INSERT INTO team_members (team_id, event_id, user_id, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (event_id, user_id) DO NOTHING`,
			teamID, eventID, m.userID, m.role); err != nil {
			return 0, fmt.Errorf("seed team member: %w", err)
		}
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO registrations (event_id, entity_type, team_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, team_id) WHERE team_id IS NOT NULL DO NOTHING`,
		eventID, models.EntityTeam, teamID, models.RegistrationActive); err != nil {
		return 0, fmt.Errorf("seed team registration: %w", err)
	}
	return eventID, nil
}
