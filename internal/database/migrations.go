// Package database owns schema setup. Migrations are idempotent CREATE IF
// NOT EXISTS statements applied in dependency order at startup.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations applies the full schema. Every statement is idempotent, so
// running against an already-migrated database is a no-op.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		createUsersTable,
		createAdminsTable,
		createEventsTable,
		createAdminEventsTable,
		createTeamsTable,
		createTeamMembersTable,
		createTeamInvitesTable,
		createRegistrationsTable,
		createRoundsTable,
		createPanelsTable,
		createPanelMembersTable,
		createPanelAssignmentsTable,
		createScoresTable,
		createAttendanceTable,
		createSubmissionsTable,
		createBadgesTable,
		createEventLogsTable,
		createSystemConfigTable,
		createIndexes,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Identity tables are written by the club's provisioning pipeline; this
// service only reads them, but owns their shape so a fresh database works.
const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    regno VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(120) NOT NULL,
    email VARCHAR(255),
    profile_name VARCHAR(80) UNIQUE,
    department VARCHAR(120),
    gender VARCHAR(20),
    batch VARCHAR(20),
    is_mit BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createAdminsTable = `
CREATE TABLE IF NOT EXISTS admins (
    id BIGSERIAL PRIMARY KEY,
    regno VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(120) NOT NULL,
    email VARCHAR(255),
    is_super BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    slug VARCHAR(120) NOT NULL UNIQUE,
    event_code VARCHAR(12) NOT NULL UNIQUE,
    title VARCHAR(140) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    community_id BIGINT,
    poster_url TEXT NOT NULL DEFAULT '',
    whatsapp_url TEXT NOT NULL DEFAULT '',
    event_type VARCHAR(20) NOT NULL,
    format VARCHAR(20) NOT NULL,
    template VARCHAR(30) NOT NULL,
    participant_mode VARCHAR(20) NOT NULL,
    round_mode VARCHAR(10) NOT NULL,
    round_count INT NOT NULL DEFAULT 1,
    team_min_size INT,
    team_max_size INT,
    status VARCHAR(10) NOT NULL DEFAULT 'CLOSED',
    registration_open BOOLEAN NOT NULL DEFAULT false,
    is_visible BOOLEAN NOT NULL DEFAULT false,
    open_for VARCHAR(10) NOT NULL DEFAULT 'ALL',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createAdminEventsTable = `
CREATE TABLE IF NOT EXISTS admin_events (
    id BIGSERIAL PRIMARY KEY,
    admin_id BIGINT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (admin_id, event_id)
);
`

const createTeamsTable = `
CREATE TABLE IF NOT EXISTS teams (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    team_code VARCHAR(10) NOT NULL,
    name VARCHAR(120) NOT NULL,
    leader_id BIGINT NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (event_id, team_code)
);
`

const createTeamMembersTable = `
CREATE TABLE IF NOT EXISTS team_members (
    id BIGSERIAL PRIMARY KEY,
    team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL REFERENCES users(id),
    role VARCHAR(10) NOT NULL DEFAULT 'member',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (event_id, user_id)
);
`

const createTeamInvitesTable = `
CREATE TABLE IF NOT EXISTS team_invites (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    regno VARCHAR(20) NOT NULL,
    invited_by BIGINT NOT NULL REFERENCES users(id),
    status VARCHAR(12) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (event_id, regno)
);
`

// Registrations carry either a user or a team, never both. The same shape
// repeats on scores, attendance, submissions, badges, and assignments.
const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    entity_type VARCHAR(10) NOT NULL,
    user_id BIGINT REFERENCES users(id),
    team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
    referral_code VARCHAR(10),
    referred_by VARCHAR(10),
    referral_count INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (
        (entity_type = 'USER' AND user_id IS NOT NULL AND team_id IS NULL)
        OR (entity_type = 'TEAM' AND team_id IS NOT NULL AND user_id IS NULL)
    )
);
`

const createRoundsTable = `
CREATE TABLE IF NOT EXISTS rounds (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    round_no INT NOT NULL,
    name VARCHAR(140) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    scheduled_at TIMESTAMPTZ,
    state VARCHAR(12) NOT NULL DEFAULT 'DRAFT',
    criteria JSONB NOT NULL DEFAULT '[]'::jsonb,
    elimination_type VARCHAR(12),
    elimination_value DOUBLE PRECISION,
    is_frozen BOOLEAN NOT NULL DEFAULT false,
    requires_submission BOOLEAN NOT NULL DEFAULT false,
    submission_mode VARCHAR(15) NOT NULL DEFAULT 'file_or_link',
    submission_deadline TIMESTAMPTZ,
    allowed_mime_types TEXT[] NOT NULL DEFAULT '{}',
    max_file_size_mb INT NOT NULL DEFAULT 0,
    submissions_locked BOOLEAN NOT NULL DEFAULT false,
    panel_mode_enabled BOOLEAN NOT NULL DEFAULT false,
    panel_distribution VARCHAR(25) NOT NULL DEFAULT 'team_count',
    panel_structure_locked BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (event_id, round_no)
);
`

const createPanelsTable = `
CREATE TABLE IF NOT EXISTS panels (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
    panel_no INT NOT NULL,
    name VARCHAR(120) NOT NULL,
    meeting_link TEXT,
    scheduled_at TIMESTAMPTZ,
    instructions TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (round_id, panel_no)
);
`

const createPanelMembersTable = `
CREATE TABLE IF NOT EXISTS panel_members (
    id BIGSERIAL PRIMARY KEY,
    panel_id BIGINT NOT NULL REFERENCES panels(id) ON DELETE CASCADE,
    admin_id BIGINT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    UNIQUE (panel_id, admin_id)
);
`

const createPanelAssignmentsTable = `
CREATE TABLE IF NOT EXISTS panel_assignments (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
    panel_id BIGINT NOT NULL REFERENCES panels(id) ON DELETE CASCADE,
    entity_type VARCHAR(10) NOT NULL,
    user_id BIGINT REFERENCES users(id),
    team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (
        (entity_type = 'USER' AND user_id IS NOT NULL AND team_id IS NULL)
        OR (entity_type = 'TEAM' AND team_id IS NOT NULL AND user_id IS NULL)
    )
);
`

const createScoresTable = `
CREATE TABLE IF NOT EXISTS scores (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
    entity_type VARCHAR(10) NOT NULL,
    user_id BIGINT REFERENCES users(id),
    team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
    criteria_scores JSONB NOT NULL DEFAULT '{}'::jsonb,
    total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    normalized_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_present BOOLEAN NOT NULL DEFAULT false,
    updated_by BIGINT REFERENCES admins(id),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (
        (entity_type = 'USER' AND user_id IS NOT NULL AND team_id IS NULL)
        OR (entity_type = 'TEAM' AND team_id IS NOT NULL AND user_id IS NULL)
    )
);
`

const createAttendanceTable = `
CREATE TABLE IF NOT EXISTS attendance (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
    entity_type VARCHAR(10) NOT NULL,
    user_id BIGINT REFERENCES users(id),
    team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
    is_present BOOLEAN NOT NULL DEFAULT false,
    marked_by BIGINT REFERENCES admins(id),
    marked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (
        (entity_type = 'USER' AND user_id IS NOT NULL AND team_id IS NULL)
        OR (entity_type = 'TEAM' AND team_id IS NOT NULL AND user_id IS NULL)
    )
);
`

const createSubmissionsTable = `
CREATE TABLE IF NOT EXISTS submissions (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
    entity_type VARCHAR(10) NOT NULL,
    user_id BIGINT REFERENCES users(id),
    team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
    submission_type VARCHAR(10) NOT NULL,
    file_url TEXT NOT NULL DEFAULT '',
    file_name VARCHAR(255) NOT NULL DEFAULT '',
    file_size_bytes BIGINT NOT NULL DEFAULT 0,
    mime_type VARCHAR(120) NOT NULL DEFAULT '',
    link_url TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    version INT NOT NULL DEFAULT 1,
    is_locked BOOLEAN NOT NULL DEFAULT false,
    submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_by BIGINT,
    CHECK (
        (entity_type = 'USER' AND user_id IS NOT NULL AND team_id IS NULL)
        OR (entity_type = 'TEAM' AND team_id IS NOT NULL AND user_id IS NULL)
    )
);
`

const createBadgesTable = `
CREATE TABLE IF NOT EXISTS badges (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    title VARCHAR(140) NOT NULL,
    place VARCHAR(20) NOT NULL,
    entity_type VARCHAR(10) NOT NULL,
    user_id BIGINT REFERENCES users(id),
    team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
    score DOUBLE PRECISION,
    image_url TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (
        (entity_type = 'USER' AND user_id IS NOT NULL AND team_id IS NULL)
        OR (entity_type = 'TEAM' AND team_id IS NOT NULL AND user_id IS NULL)
    )
);
`

// Log rows outlive the events they describe; the FK clears instead of
// cascading so history survives event deletion.
const createEventLogsTable = `
CREATE TABLE IF NOT EXISTS event_logs (
    id BIGSERIAL PRIMARY KEY,
    event_slug VARCHAR(120) NOT NULL,
    event_id BIGINT REFERENCES events(id) ON DELETE SET NULL,
    admin_id BIGINT NOT NULL,
    admin_regno VARCHAR(20) NOT NULL,
    admin_name VARCHAR(120) NOT NULL,
    action VARCHAR(40) NOT NULL,
    method VARCHAR(10) NOT NULL,
    path TEXT NOT NULL,
    meta JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createSystemConfigTable = `
CREATE TABLE IF NOT EXISTS system_config (
    key VARCHAR(80) PRIMARY KEY,
    value TEXT NOT NULL DEFAULT '',
    recruit_url TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS registrations_event_user_uq
    ON registrations (event_id, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS registrations_event_team_uq
    ON registrations (event_id, team_id) WHERE team_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS registrations_event_referral_uq
    ON registrations (event_id, referral_code) WHERE referral_code IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS panel_assignments_round_user_uq
    ON panel_assignments (round_id, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS panel_assignments_round_team_uq
    ON panel_assignments (round_id, team_id) WHERE team_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS scores_round_user_uq
    ON scores (round_id, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS scores_round_team_uq
    ON scores (round_id, team_id) WHERE team_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS attendance_round_user_uq
    ON attendance (round_id, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS attendance_round_team_uq
    ON attendance (round_id, team_id) WHERE team_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS submissions_round_user_uq
    ON submissions (round_id, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS submissions_round_team_uq
    ON submissions (round_id, team_id) WHERE team_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS registrations_event_idx ON registrations (event_id);
CREATE INDEX IF NOT EXISTS rounds_event_idx ON rounds (event_id);
CREATE INDEX IF NOT EXISTS scores_round_idx ON scores (round_id);
CREATE INDEX IF NOT EXISTS attendance_round_idx ON attendance (round_id);
CREATE INDEX IF NOT EXISTS team_members_event_idx ON team_members (event_id);
CREATE INDEX IF NOT EXISTS event_logs_slug_idx ON event_logs (event_slug, created_at DESC);
`
