// Package logic implements the event engine: registration, teams, rounds,
// panels, scoring, submissions, lifecycle transitions, leaderboards, and the
// audit sink. Services own their SQL; handlers own HTTP concerns.
package logic

import (
	"context"

	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/reports"
)

// Actor identifies the admin performing a mutation. It flows into audit rows
// and updated_by columns.
type Actor struct {
	AdminID int64
	Regno   string
	Name    string
	IsSuper bool
}

// EventsService owns event identity and moderation state.
type EventsService interface {
	ListPublic(ctx context.Context, scope string) ([]models.EventSummary, error)
	GetPublic(ctx context.Context, slug string) (*models.EventSummary, error)
	BySlug(ctx context.Context, slug string) (*models.Event, error)
	PublicRounds(ctx context.Context, eventID int64) ([]models.Round, error)
	ListAdmin(ctx context.Context, actor Actor) ([]models.AdminEventSummary, error)
	Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error)
	Update(ctx context.Context, slug string, req *models.UpdateEventRequest) (*models.Event, error)
	Delete(ctx context.Context, slug string) error
	SetRegistrationOpen(ctx context.Context, slug string, open bool) (*models.Event, error)
	SetVisibility(ctx context.Context, slug string, visible bool) (*models.Event, error)
	SetStatus(ctx context.Context, slug string, status models.EventStatus) (*models.Event, error)
}

// LedgerService owns registrations and the participant-facing reads built on
// top of them.
type LedgerService interface {
	RegisterIndividual(ctx context.Context, event *models.Event, user *models.User, referredBy string) (*models.Registration, bool, error)
	RegistrationFor(ctx context.Context, eventID int64, entity models.EntityRef) (*models.Registration, error)
	EntityFor(ctx context.Context, event *models.Event, userID int64) (models.EntityRef, error)
	Dashboard(ctx context.Context, event *models.Event, userID int64) (*models.Dashboard, error)
	MyRounds(ctx context.Context, event *models.Event, userID int64) ([]models.MyRoundStatus, error)
	MyEvents(ctx context.Context, userID int64) ([]models.EventSummary, error)
}

// TeamsService owns team rows, membership, and invites.
type TeamsService interface {
	Create(ctx context.Context, event *models.Event, leader *models.User, name string) (*models.TeamDetail, error)
	Join(ctx context.Context, event *models.Event, user *models.User, teamCode string) (*models.TeamDetail, error)
	Invite(ctx context.Context, event *models.Event, leaderID int64, regno string) (*models.TeamDetail, error)
	ByID(ctx context.Context, eventID, teamID int64) (*models.TeamDetail, error)
	TeamOf(ctx context.Context, eventID, userID int64) (*models.TeamDetail, error)
	Delete(ctx context.Context, eventID, teamID int64) error
}

// RoundsService owns round rows and the renumber/patch rules. Updates that
// set the frozen flag with both elimination fields run the shortlist pass in
// the same transaction.
type RoundsService interface {
	ByID(ctx context.Context, eventID, roundID int64) (*models.Round, error)
	List(ctx context.Context, eventID int64) ([]models.Round, error)
	Create(ctx context.Context, event *models.Event, req *models.CreateRoundRequest) (*models.Round, error)
	Update(ctx context.Context, event *models.Event, roundID int64, req *models.UpdateRoundRequest, actor Actor) (*models.Round, error)
	Delete(ctx context.Context, event *models.Event, roundID int64) error
}

// PanelsService owns panels, judge membership, and entity assignments.
type PanelsService interface {
	List(ctx context.Context, round *models.Round) ([]models.Panel, error)
	Replace(ctx context.Context, event *models.Event, round *models.Round, req *models.UpdatePanelsRequest) ([]models.Panel, error)
	Assignments(ctx context.Context, event *models.Event, round *models.Round) ([]models.AssignmentRow, error)
	AutoAssign(ctx context.Context, event *models.Event, round *models.Round, onlyUnassigned bool) ([]models.AssignmentRow, error)
	SetAssignments(ctx context.Context, event *models.Event, round *models.Round, overrides []models.AssignmentOverride) ([]models.AssignmentRow, error)
	NotifyJudges(ctx context.Context, event *models.Event, round *models.Round, req *models.PanelEmailRequest) (int, error)
}

// ScoresService owns scores and attendance, including the spreadsheet import.
type ScoresService interface {
	Sheet(ctx context.Context, event *models.Event, round *models.Round) ([]models.ScoringSheetRow, error)
	Save(ctx context.Context, event *models.Event, round *models.Round, entries []models.ScoreEntryRequest, actor Actor) error
	Import(ctx context.Context, event *models.Event, round *models.Round, sheet []byte, preview bool, actor Actor) (*models.ImportReport, error)
	MarkAttendance(ctx context.Context, event *models.Event, req *models.MarkAttendanceRequest, actor Actor) error
	Scan(ctx context.Context, event *models.Event, roundID int64, entity models.EntityRef, actor Actor) (*models.AttendanceRecord, error)
}

// SubmissionsService owns the per-(round, entity) artefact rows and their
// lock rules.
type SubmissionsService interface {
	Get(ctx context.Context, round *models.Round, entity models.EntityRef) (*models.Submission, error)
	Presign(ctx context.Context, event *models.Event, round *models.Round, entity models.EntityRef, userID int64, req *models.PresignSubmissionRequest) (*models.PresignedUpload, error)
	Upsert(ctx context.Context, event *models.Event, round *models.Round, entity models.EntityRef, userID int64, req *models.UpsertSubmissionRequest) (*models.Submission, error)
	Delete(ctx context.Context, event *models.Event, round *models.Round, entity models.EntityRef, userID int64) error
	AdminUpsert(ctx context.Context, event *models.Event, round *models.Round, req *models.AdminSubmissionRequest, actor Actor) (*models.Submission, error)
}

// LifecycleService owns freeze and unfreeze. Shortlisting runs through
// RoundsService.Update, which delegates into this service's transaction
// helpers.
type LifecycleService interface {
	Freeze(ctx context.Context, event *models.Event, round *models.Round, actor Actor) (*models.Round, error)
	Unfreeze(ctx context.Context, event *models.Event, round *models.Round, actor Actor) (*models.Round, error)
}

// LeaderboardService computes ranked, filtered, paginated boards.
type LeaderboardService interface {
	Board(ctx context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, int, error)
	EligibleRounds(ctx context.Context, eventID int64) ([]models.Round, error)
}

// ExportsService assembles the row sets behind file downloads.
type ExportsService interface {
	Registrations(ctx context.Context, event *models.Event) ([]reports.RegistrationRow, error)
	LeaderboardAll(ctx context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, error)
}

// BadgesService owns podium badges and the participant achievement wall.
type BadgesService interface {
	Create(ctx context.Context, event *models.Event, req *models.CreateBadgeRequest) (*models.Badge, error)
	List(ctx context.Context, eventID int64) ([]models.Badge, error)
	Delete(ctx context.Context, eventID, badgeID int64) error
	WallFor(ctx context.Context, userID int64) ([]models.Achievement, error)
	CertificateData(ctx context.Context, userID int64, slug string) (*CertificateData, error)
}

// AuditLogService is the append-only action sink.
type AuditLogService interface {
	Append(ctx context.Context, entry *models.EventLog) error
	List(ctx context.Context, eventSlug string, q *models.LogsQuery) ([]models.EventLog, int, error)
}

// IdentityService reads the identity store. Credentials never pass through
// this API; only attributes needed for boards, policy, and panels.
type IdentityService interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByRegno(ctx context.Context, regno string) (*models.User, error)
	AdminByID(ctx context.Context, id int64) (*models.Admin, error)
	EventAdmins(ctx context.Context, eventID int64) ([]models.Admin, error)
	PolicyAllows(ctx context.Context, actor Actor, eventID int64) (bool, error)
	EnsureProfileName(ctx context.Context, user *models.User) error
}

// SystemService owns the system_config flag table.
type SystemService interface {
	PublicConfig(ctx context.Context) (*models.PublicConfig, error)
	FlagEnabled(ctx context.Context, key string) bool
	SetFlag(ctx context.Context, key, value string) error
	EnsureDefaults(ctx context.Context) error
}
