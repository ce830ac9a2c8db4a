package handlers

import (
	"context"

	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/models"
)

// Function-field mocks: each method delegates to its field and panics when a
// test exercises a call path it never set up.

type mockEventsService struct {
	listPublicFn   func(ctx context.Context, scope string) ([]models.EventSummary, error)
	getPublicFn    func(ctx context.Context, slug string) (*models.EventSummary, error)
	bySlugFn       func(ctx context.Context, slug string) (*models.Event, error)
	setVisibilityFn func(ctx context.Context, slug string, visible bool) (*models.Event, error)
}

func (m *mockEventsService) ListPublic(ctx context.Context, scope string) ([]models.EventSummary, error) {
	if m.listPublicFn == nil {
		panic("unexpected ListPublic call")
	}
	return m.listPublicFn(ctx, scope)
}

func (m *mockEventsService) GetPublic(ctx context.Context, slug string) (*models.EventSummary, error) {
	if m.getPublicFn == nil {
		panic("unexpected GetPublic call")
	}
	return m.getPublicFn(ctx, slug)
}

func (m *mockEventsService) BySlug(ctx context.Context, slug string) (*models.Event, error) {
	if m.bySlugFn == nil {
		panic("unexpected BySlug call")
	}
	return m.bySlugFn(ctx, slug)
}

func (m *mockEventsService) PublicRounds(ctx context.Context, eventID int64) ([]models.Round, error) {
	panic("unexpected PublicRounds call")
}

func (m *mockEventsService) ListAdmin(ctx context.Context, actor logic.Actor) ([]models.AdminEventSummary, error) {
	panic("unexpected ListAdmin call")
}

func (m *mockEventsService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	panic("unexpected Create call")
}

func (m *mockEventsService) Update(ctx context.Context, slug string, req *models.UpdateEventRequest) (*models.Event, error) {
	panic("unexpected Update call")
}

func (m *mockEventsService) Delete(ctx context.Context, slug string) error {
	panic("unexpected Delete call")
}

func (m *mockEventsService) SetRegistrationOpen(ctx context.Context, slug string, open bool) (*models.Event, error) {
	panic("unexpected SetRegistrationOpen call")
}

func (m *mockEventsService) SetVisibility(ctx context.Context, slug string, visible bool) (*models.Event, error) {
	if m.setVisibilityFn == nil {
		panic("unexpected SetVisibility call")
	}
	return m.setVisibilityFn(ctx, slug, visible)
}

func (m *mockEventsService) SetStatus(ctx context.Context, slug string, status models.EventStatus) (*models.Event, error) {
	panic("unexpected SetStatus call")
}

type mockLedgerService struct {
	myEventsFn func(ctx context.Context, userID int64) ([]models.EventSummary, error)
}

func (m *mockLedgerService) RegisterIndividual(ctx context.Context, event *models.Event, user *models.User, referredBy string) (*models.Registration, bool, error) {
	panic("unexpected RegisterIndividual call")
}

func (m *mockLedgerService) RegistrationFor(ctx context.Context, eventID int64, entity models.EntityRef) (*models.Registration, error) {
	panic("unexpected RegistrationFor call")
}

func (m *mockLedgerService) EntityFor(ctx context.Context, event *models.Event, userID int64) (models.EntityRef, error) {
	panic("unexpected EntityFor call")
}

func (m *mockLedgerService) Dashboard(ctx context.Context, event *models.Event, userID int64) (*models.Dashboard, error) {
	panic("unexpected Dashboard call")
}

func (m *mockLedgerService) MyRounds(ctx context.Context, event *models.Event, userID int64) ([]models.MyRoundStatus, error) {
	panic("unexpected MyRounds call")
}

func (m *mockLedgerService) MyEvents(ctx context.Context, userID int64) ([]models.EventSummary, error) {
	if m.myEventsFn == nil {
		panic("unexpected MyEvents call")
	}
	return m.myEventsFn(ctx, userID)
}

type mockIdentityService struct {
	userByIDFn     func(ctx context.Context, id int64) (*models.User, error)
	adminByIDFn    func(ctx context.Context, id int64) (*models.Admin, error)
	policyAllowsFn func(ctx context.Context, actor logic.Actor, eventID int64) (bool, error)
}

func (m *mockIdentityService) UserByID(ctx context.Context, id int64) (*models.User, error) {
	if m.userByIDFn == nil {
		panic("unexpected UserByID call")
	}
	return m.userByIDFn(ctx, id)
}

func (m *mockIdentityService) UserByRegno(ctx context.Context, regno string) (*models.User, error) {
	panic("unexpected UserByRegno call")
}

func (m *mockIdentityService) AdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	if m.adminByIDFn == nil {
		panic("unexpected AdminByID call")
	}
	return m.adminByIDFn(ctx, id)
}

func (m *mockIdentityService) EventAdmins(ctx context.Context, eventID int64) ([]models.Admin, error) {
	panic("unexpected EventAdmins call")
}

func (m *mockIdentityService) PolicyAllows(ctx context.Context, actor logic.Actor, eventID int64) (bool, error) {
	if m.policyAllowsFn == nil {
		panic("unexpected PolicyAllows call")
	}
	return m.policyAllowsFn(ctx, actor, eventID)
}

func (m *mockIdentityService) EnsureProfileName(ctx context.Context, user *models.User) error {
	panic("unexpected EnsureProfileName call")
}

type mockSystemService struct {
	flagEnabledFn func(ctx context.Context, key string) bool
}

func (m *mockSystemService) PublicConfig(ctx context.Context) (*models.PublicConfig, error) {
	panic("unexpected PublicConfig call")
}

func (m *mockSystemService) FlagEnabled(ctx context.Context, key string) bool {
	if m.flagEnabledFn == nil {
		panic("unexpected FlagEnabled call")
	}
	return m.flagEnabledFn(ctx, key)
}

func (m *mockSystemService) SetFlag(ctx context.Context, key, value string) error {
	panic("unexpected SetFlag call")
}

func (m *mockSystemService) EnsureDefaults(ctx context.Context) error {
	panic("unexpected EnsureDefaults call")
}

type mockLeaderboardService struct {
	boardFn func(ctx context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, int, error)
}

func (m *mockLeaderboardService) Board(ctx context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, int, error) {
	if m.boardFn == nil {
		panic("unexpected Board call")
	}
	return m.boardFn(ctx, event, q)
}

func (m *mockLeaderboardService) EligibleRounds(ctx context.Context, eventID int64) ([]models.Round, error) {
	panic("unexpected EligibleRounds call")
}

type mockAuditLogService struct {
	appendFn func(ctx context.Context, entry *models.EventLog) error
}

func (m *mockAuditLogService) Append(ctx context.Context, entry *models.EventLog) error {
	if m.appendFn == nil {
		panic("unexpected Append call")
	}
	return m.appendFn(ctx, entry)
}

func (m *mockAuditLogService) List(ctx context.Context, eventSlug string, q *models.LogsQuery) ([]models.EventLog, int, error) {
	panic("unexpected List call")
}
