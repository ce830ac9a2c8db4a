// Package models defines the domain types and data-transfer objects for the
// events API. Handlers, logic services, and reports all share these types, so
// none of them owns the definitions.
package models

import (
	"time"
)

// EventType classifies what kind of managed event this is.
type EventType string

const (
	EventTypeTechnical EventType = "TECHNICAL"
	EventTypeHackathon EventType = "HACKATHON"
	EventTypeSignature EventType = "SIGNATURE"
	EventTypeSession   EventType = "SESSION"
	EventTypeWorkshop  EventType = "WORKSHOP"
	EventTypeGeneral   EventType = "EVENT"
)

// EventFormat is the delivery format of an event.
type EventFormat string

const (
	FormatOnline  EventFormat = "ONLINE"
	FormatOffline EventFormat = "OFFLINE"
	FormatHybrid  EventFormat = "HYBRID"
)

// EventTemplate decides whether rounds carry scores or only attendance.
type EventTemplate string

const (
	TemplateAttendanceOnly    EventTemplate = "ATTENDANCE_ONLY"
	TemplateAttendanceScoring EventTemplate = "ATTENDANCE_SCORING"
)

// ParticipantMode decides whether entities are individual users or teams.
type ParticipantMode string

const (
	ModeIndividual ParticipantMode = "INDIVIDUAL"
	ModeTeam       ParticipantMode = "TEAM"
)

// RoundMode distinguishes single-round events from multi-round tournaments.
type RoundMode string

const (
	RoundModeSingle RoundMode = "SINGLE"
	RoundModeMulti  RoundMode = "MULTI"
)

// EventStatus is the coarse open/closed switch of an event.
type EventStatus string

const (
	EventOpen   EventStatus = "OPEN"
	EventClosed EventStatus = "CLOSED"
)

// Audience restricts who may register.
type Audience string

const (
	AudienceMIT Audience = "MIT"
	AudienceAll Audience = "ALL"
)

// RegistrationStatus is the lifecycle state of a participation row.
type RegistrationStatus string

const (
	RegistrationActive     RegistrationStatus = "ACTIVE"
	RegistrationEliminated RegistrationStatus = "ELIMINATED"
)

// RoundState is the lifecycle state of a round.
type RoundState string

const (
	RoundDraft     RoundState = "DRAFT"
	RoundPublished RoundState = "PUBLISHED"
	RoundActive    RoundState = "ACTIVE"
	RoundCompleted RoundState = "COMPLETED"
	RoundReveal    RoundState = "REVEAL"
)

// SubmissionMode is what kind of artefact a round accepts.
type SubmissionMode string

const (
	SubmitFile       SubmissionMode = "file"
	SubmitLink       SubmissionMode = "link"
	SubmitFileOrLink SubmissionMode = "file_or_link"
)

// SubmissionType is the variant actually stored for an entity.
type SubmissionType string

const (
	SubmissionFile SubmissionType = "file"
	SubmissionLink SubmissionType = "link"
)

// EliminationType selects the shortlisting rule applied on a frozen round.
type EliminationType string

const (
	EliminationTopK     EliminationType = "top_k"
	EliminationMinScore EliminationType = "min_score"
)

// PanelDistribution selects how auto-assignment measures panel load.
type PanelDistribution string

const (
	DistributeByEntity  PanelDistribution = "team_count"
	DistributeByMembers PanelDistribution = "member_count_weighted"
)

// BadgePlace is the podium position a badge records.
type BadgePlace string

const (
	PlaceWinner         BadgePlace = "WINNER"
	PlaceRunner         BadgePlace = "RUNNER"
	PlaceSpecialMention BadgePlace = "SPECIAL_MENTION"
)

// TeamRole is a member's role inside a team.
type TeamRole string

const (
	RoleLeader TeamRole = "leader"
	RoleMember TeamRole = "member"
)

// BootstrapRegno is the reserved seed admin account. It bypasses event policy
// but is never offered as a panel judge candidate.
const BootstrapRegno = "0000000000"

// Criterion is one named scoring axis of a round.
type Criterion struct {
	Name     string  `json:"name" validate:"required,max=80"`
	MaxMarks float64 `json:"max_marks" validate:"gt=0"`
}

// Criteria is the ordered evaluation rubric of a round.
type Criteria []Criterion

// DefaultCriteria is the rubric applied when a round is created without one.
func DefaultCriteria() Criteria {
	return Criteria{{Name: "Score", MaxMarks: 100}}
}

// MaxTotal returns the sum of max marks across all criteria.
func (c Criteria) MaxTotal() float64 {
	var total float64
	for _, cr := range c {
		total += cr.MaxMarks
	}
	return total
}

// Names returns the criterion names in rubric order.
func (c Criteria) Names() []string {
	names := make([]string, len(c))
	for i, cr := range c {
		names[i] = cr.Name
	}
	return names
}

// DefaultAllowedMimeTypes is the submission MIME allowlist applied when a
// round is created without one: PDF, PPT/PPTX, PNG, JPEG, WEBP, MP4, MOV, ZIP.
func DefaultAllowedMimeTypes() []string {
	return []string{
		"application/pdf",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"image/png",
		"image/jpeg",
		"image/webp",
		"video/mp4",
		"video/quicktime",
		"application/zip",
	}
}

// DefaultMaxFileSizeMB is the submission size cap applied on round creation.
const DefaultMaxFileSizeMB = 25

// Event is a competition or session with its own ledger, rounds and boards.
type Event struct {
	ID               int64           `json:"id"`
	Slug             string          `json:"slug"`
	EventCode        string          `json:"event_code"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	CommunityID      *int64          `json:"community_id,omitempty"`
	PosterURL        string          `json:"poster_url,omitempty"`
	WhatsappURL      string          `json:"whatsapp_url,omitempty"`
	EventType        EventType       `json:"event_type"`
	Format           EventFormat     `json:"format"`
	Template         EventTemplate   `json:"template"`
	ParticipantMode  ParticipantMode `json:"participant_mode"`
	RoundMode        RoundMode       `json:"round_mode"`
	RoundCount       int             `json:"round_count"`
	TeamMinSize      *int            `json:"team_min_size,omitempty"`
	TeamMaxSize      *int            `json:"team_max_size,omitempty"`
	Status           EventStatus     `json:"status"`
	RegistrationOpen bool            `json:"registration_open"`
	IsVisible        bool            `json:"is_visible"`
	OpenFor          Audience        `json:"open_for"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsTeamEvent reports whether registrations are team rows.
func (e *Event) IsTeamEvent() bool { return e.ParticipantMode == ModeTeam }

// Registration ties one entity (user or team) to one event.
type Registration struct {
	ID            int64              `json:"id"`
	EventID       int64              `json:"event_id"`
	Entity        EntityRef          `json:"entity"`
	Status        RegistrationStatus `json:"status"`
	ReferralCode  string             `json:"referral_code,omitempty"`
	ReferredBy    string             `json:"referred_by,omitempty"`
	ReferralCount int                `json:"referral_count"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Team is a per-event grouping of users under a leader.
type Team struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	TeamCode  string    `json:"team_code"`
	Name      string    `json:"name"`
	LeaderID  int64     `json:"leader_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember is one user's membership row inside a team.
type TeamMember struct {
	ID      int64    `json:"id"`
	TeamID  int64    `json:"team_id"`
	EventID int64    `json:"event_id"`
	UserID  int64    `json:"user_id"`
	Role    TeamRole `json:"role"`

	// Joined user attributes, populated by reads that need them.
	Regno string `json:"regno,omitempty"`
	Name  string `json:"name,omitempty"`
}

// TeamInvite records a leader inviting a registrant by register number.
type TeamInvite struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	TeamID    int64     `json:"team_id"`
	Regno     string    `json:"regno"`
	InvitedBy int64     `json:"invited_by"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Round is one ordered phase of an event.
type Round struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	RoundNo     int        `json:"round_no"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	State       RoundState `json:"state"`
	Criteria    Criteria   `json:"criteria"`

	EliminationType  *EliminationType `json:"elimination_type,omitempty"`
	EliminationValue *float64         `json:"elimination_value,omitempty"`
	IsFrozen         bool             `json:"is_frozen"`

	RequiresSubmission bool           `json:"requires_submission"`
	SubmissionMode     SubmissionMode `json:"submission_mode"`
	SubmissionDeadline *time.Time     `json:"submission_deadline,omitempty"`
	AllowedMimeTypes   []string       `json:"allowed_mime_types"`
	MaxFileSizeMB      int            `json:"max_file_size_mb"`
	SubmissionsLocked  bool           `json:"submissions_locked"`

	PanelModeEnabled     bool              `json:"panel_mode_enabled"`
	PanelDistribution    PanelDistribution `json:"panel_distribution"`
	PanelStructureLocked bool              `json:"panel_structure_locked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finalized reports whether the round is past scoring (COMPLETED or REVEAL).
func (r *Round) Finalized() bool {
	return r.State == RoundCompleted || r.State == RoundReveal
}

// MimeAllowed reports whether a MIME type is on this round's allowlist.
func (r *Round) MimeAllowed(mime string) bool {
	for _, m := range r.AllowedMimeTypes {
		if m == mime {
			return true
		}
	}
	return false
}

// MaxFileSizeBytes is the submission size cap in bytes.
func (r *Round) MaxFileSizeBytes() int64 {
	return int64(r.MaxFileSizeMB) << 20
}

// Panel is a judging group within a round.
type Panel struct {
	ID           int64      `json:"id"`
	EventID      int64      `json:"event_id"`
	RoundID      int64      `json:"round_id"`
	PanelNo      int        `json:"panel_no"`
	Name         string     `json:"name"`
	MeetingLink  string     `json:"meeting_link,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Instructions string     `json:"instructions,omitempty"`

	Members []PanelMember `json:"members,omitempty"`
}

// PanelMember binds a judge (an admin of the event) to a panel.
type PanelMember struct {
	ID      int64  `json:"id"`
	PanelID int64  `json:"panel_id"`
	AdminID int64  `json:"admin_id"`
	Regno   string `json:"regno,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

// PanelAssignment maps an entity to exactly one panel within a round.
type PanelAssignment struct {
	ID      int64     `json:"id"`
	EventID int64     `json:"event_id"`
	RoundID int64     `json:"round_id"`
	PanelID int64     `json:"panel_id"`
	Entity  EntityRef `json:"entity"`
}

// Score is the per-(round, entity) scoring row.
type Score struct {
	ID              int64              `json:"id"`
	EventID         int64              `json:"event_id"`
	RoundID         int64              `json:"round_id"`
	Entity          EntityRef          `json:"entity"`
	CriteriaScores  map[string]float64 `json:"criteria_scores"`
	TotalScore      float64            `json:"total_score"`
	NormalizedScore float64            `json:"normalized_score"`
	IsPresent       bool               `json:"is_present"`
	UpdatedBy       *int64             `json:"updated_by,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AttendanceRecord is the per-(round, entity) presence row.
type AttendanceRecord struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	RoundID   int64     `json:"round_id"`
	Entity    EntityRef `json:"entity"`
	IsPresent bool      `json:"is_present"`
	MarkedBy  *int64    `json:"marked_by,omitempty"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Submission is the per-(round, entity) artefact row. Version starts at 1 and
// increments on every successful write; an absent row reads as version 0.
type Submission struct {
	ID             int64          `json:"id"`
	EventID        int64          `json:"event_id"`
	RoundID        int64          `json:"round_id"`
	Entity         EntityRef      `json:"entity"`
	SubmissionType SubmissionType `json:"submission_type"`
	FileURL        string         `json:"file_url,omitempty"`
	FileName       string         `json:"file_name,omitempty"`
	FileSizeBytes  int64          `json:"file_size_bytes,omitempty"`
	MimeType       string         `json:"mime_type,omitempty"`
	LinkURL        string         `json:"link_url,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Version        int            `json:"version"`
	IsLocked       bool           `json:"is_locked"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UpdatedBy      *int64         `json:"updated_by,omitempty"`
}

// Badge is a podium placement awarded to a user or a team for an event.
type Badge struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	Title     string     `json:"title"`
	Place     BadgePlace `json:"place"`
	Entity    EntityRef  `json:"entity"`
	Score     *float64   `json:"score,omitempty"`
	ImageURL  string     `json:"image_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// User is the read model of the identity store. Credential handling lives
// outside this service; only attributes needed for boards and exports appear.
type User struct {
	ID          int64     `json:"id"`
	Regno       string    `json:"regno"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	ProfileName string    `json:"profile_name,omitempty"`
	Department  string    `json:"department,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Batch       string    `json:"batch,omitempty"`
	IsMIT       bool      `json:"is_mit"`
	CreatedAt   time.Time `json:"created_at"`
}

// Admin is the read model of an administrative account.
type Admin struct {
	ID      int64  `json:"id"`
	Regno   string `json:"regno"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	IsSuper bool   `json:"is_super"`
}

// EventLog is one append-only audit row.
type EventLog struct {
	ID         int64          `json:"id"`
	EventSlug  string         `json:"event_slug"`
	EventID    *int64         `json:"event_id,omitempty"`
	AdminID    int64          `json:"admin_id"`
	AdminRegno string         `json:"admin_regno"`
	AdminName  string         `json:"admin_name"`
	Action     string         `json:"action"`
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ConfigEntry is one row of the system_config feature-flag table.
type ConfigEntry struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	RecruitURL string    `json:"recruit_url,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Feature flag keys stored in system_config.
const (
	FlagRecruitmentOpen = "pda_recruitment_open"
	FlagPersohubParity  = "persohub_events_parity_enabled"
)
