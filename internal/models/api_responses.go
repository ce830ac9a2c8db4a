package models

import "time"

// Response payloads shared between the logic and handler layers.

// EventSummary is the public listing shape: no admin-only fields.
type EventSummary struct {
	ID                int64           `json:"id"`
	Slug              string          `json:"slug"`
	EventCode         string          `json:"event_code"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	PosterURL         string          `json:"poster_url,omitempty"`
	WhatsappURL       string          `json:"whatsapp_url,omitempty"`
	EventType         EventType       `json:"event_type"`
	Format            EventFormat     `json:"format"`
	ParticipantMode   ParticipantMode `json:"participant_mode"`
	RoundMode         RoundMode       `json:"round_mode"`
	RoundCount        int             `json:"round_count"`
	TeamMinSize       *int            `json:"team_min_size,omitempty"`
	TeamMaxSize       *int            `json:"team_max_size,omitempty"`
	Status            EventStatus     `json:"status"`
	RegistrationOpen  bool            `json:"registration_open"`
	OpenFor           Audience        `json:"open_for"`
	RegistrationCount int             `json:"registration_count"`
}

// AdminEventSummary extends the public shape with moderation fields.
type AdminEventSummary struct {
	EventSummary
	IsVisible bool          `json:"is_visible"`
	Template  EventTemplate `json:"template"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TeamDetail is a team with its member roster.
type TeamDetail struct {
	Team    Team         `json:"team"`
	Members []TeamMember `json:"members"`
}

// Dashboard is the participant's per-event view after registration.
type Dashboard struct {
	Event        EventSummary  `json:"event"`
	Registration *Registration `json:"registration,omitempty"`
	Team         *TeamDetail   `json:"team,omitempty"`
	Rounds       []Round       `json:"rounds"`
}

// MyRoundStatus is the participant-facing state of one round.
type MyRoundStatus struct {
	Round      Round       `json:"round"`
	Score      *Score      `json:"score,omitempty"`
	Attendance *bool       `json:"attendance,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
	LockReason string      `json:"lock_reason,omitempty"`
	Panel      *Panel      `json:"panel,omitempty"`
}

// QRToken is the attendance token handed to a participant.
type QRToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PresignedUpload is the storage handle returned by the presign endpoint.
type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	MimeType  string `json:"mime_type"`
}

// ScoringSheetRow joins everything an admin needs to score one entity.
type ScoringSheetRow struct {
	Entity      EntityRef          `json:"entity"`
	Regno       string             `json:"regno,omitempty"`
	TeamCode    string             `json:"team_code,omitempty"`
	Name        string             `json:"name"`
	Status      RegistrationStatus `json:"status"`
	MemberCount int                `json:"member_count,omitempty"`
	PanelID     *int64             `json:"panel_id,omitempty"`
	PanelNo     *int               `json:"panel_no,omitempty"`
	Score       *Score             `json:"score,omitempty"`
	IsPresent   *bool              `json:"is_present,omitempty"`
	Submission  *Submission        `json:"submission,omitempty"`
}

// LeaderboardRow is one ranked board entry; Rank is 0 for unranked
// (eliminated) entities.
type LeaderboardRow struct {
	Rank               int                `json:"rank,omitempty"`
	Entity             EntityRef          `json:"entity"`
	Name               string             `json:"name"`
	Regno              string             `json:"regno,omitempty"`
	TeamCode           string             `json:"team_code,omitempty"`
	Department         string             `json:"department,omitempty"`
	Gender             string             `json:"gender,omitempty"`
	Batch              string             `json:"batch,omitempty"`
	MemberCount        int                `json:"member_count,omitempty"`
	Status             RegistrationStatus `json:"status"`
	CumulativeScore    float64            `json:"cumulative_score"`
	RoundsParticipated int                `json:"rounds_participated"`
	AttendanceCount    int                `json:"attendance_count"`
	RoundScores        map[int64]float64  `json:"round_scores,omitempty"`
}

// ImportRowIssue describes one spreadsheet row the importer could not apply.
type ImportRowIssue struct {
	RowNumber int    `json:"row_number"`
	Key       string `json:"key"`
	Name      string `json:"name,omitempty"`
	Reason    string `json:"reason"`
}

// ImportReport summarizes a score import run. In preview mode nothing was
// written and Written is always 0.
type ImportReport struct {
	Preview       bool             `json:"preview"`
	Identified    []string         `json:"identified"`
	Mismatched    []ImportRowIssue `json:"mismatched"`
	Unidentified  []ImportRowIssue `json:"unidentified"`
	OtherRequired []ImportRowIssue `json:"other_required"`
	Written       int              `json:"written"`
}

// AssignmentRow is the per-entity view of panel membership for a round.
type AssignmentRow struct {
	Entity      EntityRef `json:"entity"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	MemberCount int       `json:"member_count,omitempty"`
	PanelID     *int64    `json:"panel_id,omitempty"`
	PanelNo     *int      `json:"panel_no,omitempty"`
	Total       float64   `json:"total"`
}

// PublicConfig is the anonymous configuration read.
type PublicConfig struct {
	RecruitmentOpen bool   `json:"recruitment_open"`
	RecruitURL      string `json:"recruit_url,omitempty"`
}

// Achievement is one badge on a participant's wall.
type Achievement struct {
	EventSlug  string     `json:"event_slug"`
	EventTitle string     `json:"event_title"`
	Title      string     `json:"title"`
	Place      BadgePlace `json:"place"`
	Score      *float64   `json:"score,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	AwardedAt  time.Time  `json:"awarded_at"`
}
