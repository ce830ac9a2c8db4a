package models

import "time"

// Request payloads. Validation tags are enforced by the handler layer before
// any service call; services assume structurally valid input.

type CreateEventRequest struct {
	Title           string          `json:"title" validate:"required,min=3,max=140"`
	Description     string          `json:"description" validate:"max=5000"`
	CommunityID     *int64          `json:"community_id,omitempty"`
	PosterURL       string          `json:"poster_url,omitempty" validate:"omitempty,url"`
	WhatsappURL     string          `json:"whatsapp_url,omitempty" validate:"omitempty,url"`
	EventType       EventType       `json:"event_type" validate:"required,oneof=TECHNICAL HACKATHON SIGNATURE SESSION WORKSHOP EVENT"`
	Format          EventFormat     `json:"format" validate:"required,oneof=ONLINE OFFLINE HYBRID"`
	Template        EventTemplate   `json:"template" validate:"required,oneof=ATTENDANCE_ONLY ATTENDANCE_SCORING"`
	ParticipantMode ParticipantMode `json:"participant_mode" validate:"required,oneof=INDIVIDUAL TEAM"`
	RoundMode       RoundMode       `json:"round_mode" validate:"required,oneof=SINGLE MULTI"`
	RoundCount      int             `json:"round_count" validate:"min=1,max=20"`
	TeamMinSize     *int            `json:"team_min_size,omitempty" validate:"omitempty,min=1"`
	TeamMaxSize     *int            `json:"team_max_size,omitempty" validate:"omitempty,min=1"`
	OpenFor         Audience        `json:"open_for" validate:"required,oneof=MIT ALL"`
}

type UpdateEventRequest struct {
	Title       *string      `json:"title,omitempty" validate:"omitempty,min=3,max=140"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=5000"`
	CommunityID *int64       `json:"community_id,omitempty"`
	PosterURL   *string      `json:"poster_url,omitempty" validate:"omitempty,url"`
	WhatsappURL *string      `json:"whatsapp_url,omitempty" validate:"omitempty,url"`
	EventType   *EventType   `json:"event_type,omitempty" validate:"omitempty,oneof=TECHNICAL HACKATHON SIGNATURE SESSION WORKSHOP EVENT"`
	Format      *EventFormat `json:"format,omitempty" validate:"omitempty,oneof=ONLINE OFFLINE HYBRID"`
	OpenFor     *Audience    `json:"open_for,omitempty" validate:"omitempty,oneof=MIT ALL"`
	TeamMinSize *int         `json:"team_min_size,omitempty" validate:"omitempty,min=1"`
	TeamMaxSize *int         `json:"team_max_size,omitempty" validate:"omitempty,min=1"`
}

type SetRegistrationOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

type SetVisibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

type SetStatusRequest struct {
	Status EventStatus `json:"status" validate:"required,oneof=OPEN CLOSED"`
}

type CreateTeamRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
}

type JoinTeamRequest struct {
	TeamCode string `json:"team_code" validate:"required,len=5,alphanum"`
}

type InviteTeamMemberRequest struct {
	Regno string `json:"regno" validate:"required,min=4,max=20"`
}

type CreateRoundRequest struct {
	RoundNo     int        `json:"round_no" validate:"min=1,max=20"`
	Name        string     `json:"name" validate:"required,min=2,max=140"`
	Description string     `json:"description" validate:"max=5000"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Criteria    Criteria   `json:"criteria,omitempty" validate:"omitempty,dive"`

	RequiresSubmission bool           `json:"requires_submission"`
	SubmissionMode     SubmissionMode `json:"submission_mode,omitempty" validate:"omitempty,oneof=file link file_or_link"`
	SubmissionDeadline *time.Time     `json:"submission_deadline,omitempty"`
	AllowedMimeTypes   []string       `json:"allowed_mime_types,omitempty"`
	MaxFileSizeMB      int            `json:"max_file_size_mb,omitempty" validate:"omitempty,min=1,max=500"`

	PanelModeEnabled  bool              `json:"panel_mode_enabled"`
	PanelDistribution PanelDistribution `json:"panel_distribution,omitempty" validate:"omitempty,oneof=team_count member_count_weighted"`
}

// UpdateRoundRequest is a patch. Setting is_frozen together with both
// elimination fields triggers shortlisting when either field changed or
// eliminate_absent is requested.
type UpdateRoundRequest struct {
	RoundNo     *int        `json:"round_no,omitempty" validate:"omitempty,min=1,max=20"`
	Name        *string     `json:"name,omitempty" validate:"omitempty,min=2,max=140"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=5000"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	State       *RoundState `json:"state,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ACTIVE COMPLETED REVEAL"`
	Criteria    Criteria    `json:"criteria,omitempty" validate:"omitempty,dive"`

	EliminationType  *EliminationType `json:"elimination_type,omitempty" validate:"omitempty,oneof=top_k min_score"`
	EliminationValue *float64         `json:"elimination_value,omitempty"`
	IsFrozen         *bool            `json:"is_frozen,omitempty"`
	EliminateAbsent  bool             `json:"eliminate_absent,omitempty"`

	RequiresSubmission *bool           `json:"requires_submission,omitempty"`
	SubmissionMode     *SubmissionMode `json:"submission_mode,omitempty" validate:"omitempty,oneof=file link file_or_link"`
	SubmissionDeadline *time.Time      `json:"submission_deadline,omitempty"`
	AllowedMimeTypes   []string        `json:"allowed_mime_types,omitempty"`
	MaxFileSizeMB      *int            `json:"max_file_size_mb,omitempty" validate:"omitempty,min=1,max=500"`
	SubmissionsLocked  *bool           `json:"submissions_locked,omitempty"`

	PanelModeEnabled     *bool              `json:"panel_mode_enabled,omitempty"`
	PanelDistribution    *PanelDistribution `json:"panel_distribution,omitempty" validate:"omitempty,oneof=team_count member_count_weighted"`
	PanelStructureLocked *bool              `json:"panel_structure_locked,omitempty"`
}

type ScoreEntryRequest struct {
	EntityID       int64              `json:"entity_id" validate:"required"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	IsPresent      bool               `json:"is_present"`
}

type SaveScoresRequest struct {
	Entries []ScoreEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type PanelPayload struct {
	PanelNo      int        `json:"panel_no" validate:"min=1,max=50"`
	Name         string     `json:"name" validate:"required,min=1,max=140"`
	MeetingLink  string     `json:"meeting_link,omitempty" validate:"omitempty,url"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Instructions string     `json:"instructions,omitempty" validate:"max=5000"`
	AdminIDs     []int64    `json:"admin_ids"`
}

type UpdatePanelsRequest struct {
	Panels []PanelPayload `json:"panels" validate:"required,dive"`
}

type AutoAssignRequest struct {
	IncludeUnassignedOnly bool `json:"include_unassigned_only"`
}

type AssignmentOverride struct {
	EntityID int64  `json:"entity_id" validate:"required"`
	PanelID  *int64 `json:"panel_id"`
}

type SetAssignmentsRequest struct {
	Assignments []AssignmentOverride `json:"assignments" validate:"required,min=1,dive"`
}

type PanelEmailRequest struct {
	PanelIDs []int64 `json:"panel_ids,omitempty"`
	Subject  string  `json:"subject,omitempty" validate:"max=200"`
	Message  string  `json:"message,omitempty" validate:"max=5000"`
}

type AttendanceEntryRequest struct {
	EntityID  int64 `json:"entity_id" validate:"required"`
	IsPresent bool  `json:"is_present"`
}

type MarkAttendanceRequest struct {
	RoundID int64                    `json:"round_id" validate:"required"`
	Entries []AttendanceEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type ScanAttendanceRequest struct {
	Token   string `json:"token" validate:"required"`
	RoundID int64  `json:"round_id" validate:"required"`
}

type PresignSubmissionRequest struct {
	FileName      string `json:"file_name" validate:"required,max=255"`
	MimeType      string `json:"mime_type" validate:"required"`
	FileSizeBytes int64  `json:"file_size_bytes" validate:"required,min=1"`
}

type UpsertSubmissionRequest struct {
	SubmissionType SubmissionType `json:"submission_type" validate:"required,oneof=file link"`
	FileURL        string         `json:"file_url,omitempty" validate:"omitempty,url"`
	FileName       string         `json:"file_name,omitempty" validate:"max=255"`
	FileSizeBytes  int64          `json:"file_size_bytes,omitempty" validate:"min=0"`
	MimeType       string         `json:"mime_type,omitempty"`
	LinkURL        string         `json:"link_url,omitempty" validate:"omitempty,url"`
	Notes          string         `json:"notes,omitempty" validate:"max=2000"`
}

// AdminSubmissionRequest is the lock-ignoring admin override; it targets an
// entity explicitly because the admin is not the submitting participant.
type AdminSubmissionRequest struct {
	EntityID int64 `json:"entity_id" validate:"required"`
	UpsertSubmissionRequest
}

type CreateBadgeRequest struct {
	Title    string     `json:"title" validate:"required,min=2,max=140"`
	Place    BadgePlace `json:"place" validate:"required,oneof=WINNER RUNNER SPECIAL_MENTION"`
	EntityID int64      `json:"entity_id" validate:"required"`
	Score    *float64   `json:"score,omitempty"`
	ImageURL string     `json:"image_url,omitempty" validate:"omitempty,url"`
}

// LeaderboardQuery carries the parsed filter/sort/page state of a board read.
type LeaderboardQuery struct {
	Department string
	Gender     string
	Batch      string
	Status     string
	Search     string
	RoundIDs   []int64
	Sort       string
	Page       int
	PageSize   int
}

// LogsQuery filters the audit log listing.
type LogsQuery struct {
	Action   string
	Method   string
	Path     string
	Page     int
	PageSize int
}

// SetFlagRequest updates one system_config row.
type SetFlagRequest struct {
	Value string `json:"value" validate:"required,max=255"`
}
