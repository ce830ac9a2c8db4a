package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/auth"
	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/models"
)

const testSecret = "test-secret"

func newTestHandler(cfg Config) *Handler {
	cfg.Logger = zap.NewNop()
	if cfg.Tokens == nil {
		cfg.Tokens = auth.NewTokenManager(testSecret, time.Hour)
	}
	return New(cfg)
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestListOngoingEvents(t *testing.T) {
	var gotScope string
	events := &mockEventsService{
		listPublicFn: func(_ context.Context, scope string) ([]models.EventSummary, error) {
			gotScope = scope
			return []models.EventSummary{
				{Slug: "ideathon-2026", Title: "Ideathon 2026"},
				{Slug: "robo-rumble", Title: "Robo Rumble"},
			}, nil
		},
	}
	h := newTestHandler(Config{Events: events})

	rec := doRequest(t, h.Routes(), http.MethodGet, "/api/pda/events/ongoing", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotScope != "ongoing" {
		t.Errorf("scope = %q, want ongoing", gotScope)
	}
	var out []models.EventSummary
	decodeBody(t, rec, &out)
	if len(out) != 2 || out[0].Slug != "ideathon-2026" {
		t.Errorf("body = %+v", out)
	}
}

func TestGetEventNotFound(t *testing.T) {
	events := &mockEventsService{
		getPublicFn: func(_ context.Context, slug string) (*models.EventSummary, error) {
			return nil, logic.E(logic.KindNotFound, "event %q not found", slug)
		},
	}
	h := newTestHandler(Config{Events: events})

	rec := doRequest(t, h.Routes(), http.MethodGet, "/api/pda/events/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var out map[string]string
	decodeBody(t, rec, &out)
	if out["kind"] != string(logic.KindNotFound) {
		t.Errorf("kind = %q, want NOT_FOUND", out["kind"])
	}
}

func TestParityAliasGate(t *testing.T) {
	events := &mockEventsService{
		listPublicFn: func(context.Context, string) ([]models.EventSummary, error) {
			return []models.EventSummary{}, nil
		},
	}

	for _, enabled := range []bool{false, true} {
		var gotFlag string
		system := &mockSystemService{
			flagEnabledFn: func(_ context.Context, key string) bool {
				gotFlag = key
				return enabled
			},
		}
		h := newTestHandler(Config{Events: events, System: system})

		rec := doRequest(t, h.Routes(), http.MethodGet, "/api/persohub/events/all", "", "")
		want := http.StatusNotFound
		if enabled {
			want = http.StatusOK
		}
		if rec.Code != want {
			t.Errorf("enabled=%v: status = %d, want %d", enabled, rec.Code, want)
		}
		if gotFlag != models.FlagPersohubParity {
			t.Errorf("gate checked flag %q", gotFlag)
		}
	}
}

func TestParticipantAuth(t *testing.T) {
	identity := &mockIdentityService{
		userByIDFn: func(_ context.Context, id int64) (*models.User, error) {
			if id != 7 {
				return nil, logic.E(logic.KindNotFound, "user %d not found", id)
			}
			return &models.User{ID: 7, Regno: "220701001", Name: "Anaya Iyer"}, nil
		},
	}
	ledger := &mockLedgerService{
		myEventsFn: func(_ context.Context, userID int64) ([]models.EventSummary, error) {
			if userID != 7 {
				t.Errorf("MyEvents for user %d, want 7", userID)
			}
			return []models.EventSummary{{Slug: "ideathon-2026"}}, nil
		},
	}
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	h := newTestHandler(Config{Identity: identity, Ledger: ledger, Tokens: tokens})
	router := h.Routes()

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/pda/me/events", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/pda/me/events", "not-a-jwt", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("admin token rejected on participant surface", func(t *testing.T) {
		token, err := tokens.IssueAdmin(3, "PDA0002", false, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		rec := doRequest(t, router, http.MethodGet, "/api/pda/me/events", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("attendance token rejected as session", func(t *testing.T) {
		token, _, err := tokens.IssueQR(7, "ideathon-2026", models.UserEntity(7))
		if err != nil {
			t.Fatal(err)
		}
		rec := doRequest(t, router, http.MethodGet, "/api/pda/me/events", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid session", func(t *testing.T) {
		token, err := tokens.IssueParticipant(7, "220701001", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		rec := doRequest(t, router, http.MethodGet, "/api/pda/me/events", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
		}
		var out []models.EventSummary
		decodeBody(t, rec, &out)
		if len(out) != 1 || out[0].Slug != "ideathon-2026" {
			t.Errorf("body = %+v", out)
		}
	})
}

func adminFixture(t *testing.T, allowed bool) (Config, string) {
	t.Helper()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	token, err := tokens.IssueAdmin(3, "PDA0002", false, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	identity := &mockIdentityService{
		adminByIDFn: func(_ context.Context, id int64) (*models.Admin, error) {
			return &models.Admin{ID: id, Regno: "PDA0002", Name: "Sanjay Rao"}, nil
		},
		policyAllowsFn: func(_ context.Context, actor logic.Actor, eventID int64) (bool, error) {
			return allowed, nil
		},
	}
	events := &mockEventsService{
		bySlugFn: func(_ context.Context, slug string) (*models.Event, error) {
			return &models.Event{ID: 42, Slug: slug, ParticipantMode: models.ModeIndividual}, nil
		},
	}
	return Config{Identity: identity, Events: events, Tokens: tokens}, token
}

func TestAdminEventPolicyDenied(t *testing.T) {
	cfg, token := adminFixture(t, false)
	h := newTestHandler(cfg)

	rec := doRequest(t, h.Routes(), http.MethodGet, "/api/pda-admin/events/ideathon-2026/leaderboard", token, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var out map[string]string
	decodeBody(t, rec, &out)
	if out["kind"] != string(logic.KindPolicyDenied) {
		t.Errorf("kind = %q, want POLICY_DENIED", out["kind"])
	}
}

func TestAdminLeaderboardHeaders(t *testing.T) {
	cfg, token := adminFixture(t, true)
	cfg.Leaderboard = &mockLeaderboardService{
		boardFn: func(_ context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, int, error) {
			if event.ID != 42 {
				t.Errorf("board for event %d, want 42", event.ID)
			}
			if q.Page != 2 || q.PageSize != 10 {
				t.Errorf("query paging = %d/%d, want 2/10", q.Page, q.PageSize)
			}
			return []models.LeaderboardRow{{Rank: 11, Name: "Anaya Iyer"}}, 57, nil
		},
	}
	h := newTestHandler(cfg)

	rec := doRequest(t, h.Routes(), http.MethodGet,
		"/api/pda-admin/events/ideathon-2026/leaderboard?page=2&page_size=10", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Total-Count"); got != "57" {
		t.Errorf("X-Total-Count = %q, want 57", got)
	}
	if got := rec.Header().Get("X-Page"); got != "2" {
		t.Errorf("X-Page = %q, want 2", got)
	}
	if got := rec.Header().Get("X-Page-Size"); got != "10" {
		t.Errorf("X-Page-Size = %q, want 10", got)
	}
}

func TestAuditedMutationAppendsLog(t *testing.T) {
	cfg, token := adminFixture(t, true)
	cfg.Events.(*mockEventsService).setVisibilityFn = func(_ context.Context, slug string, visible bool) (*models.Event, error) {
		return &models.Event{ID: 42, Slug: slug, IsVisible: visible}, nil
	}

	var appended []*models.EventLog
	cfg.AuditLog = &mockAuditLogService{
		appendFn: func(_ context.Context, entry *models.EventLog) error {
			appended = append(appended, entry)
			return nil
		},
	}
	h := newTestHandler(cfg)

	rec := doRequest(t, h.Routes(), http.MethodPut,
		"/api/pda-admin/events/ideathon-2026/visibility", token, `{"visible": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if len(appended) != 1 {
		t.Fatalf("appended %d audit rows, want 1", len(appended))
	}
	entry := appended[0]
	if entry.Action != "set_visibility" || entry.Method != http.MethodPut {
		t.Errorf("entry = %+v", entry)
	}
	if entry.EventSlug != "ideathon-2026" || entry.EventID == nil || *entry.EventID != 42 {
		t.Errorf("event reference = %q / %v", entry.EventSlug, entry.EventID)
	}
	if entry.AdminRegno != "PDA0002" {
		t.Errorf("admin regno = %q", entry.AdminRegno)
	}
}

func TestAuditedMutationSkipsLogOnFailure(t *testing.T) {
	cfg, token := adminFixture(t, true)
	cfg.Events.(*mockEventsService).setVisibilityFn = func(_ context.Context, slug string, visible bool) (*models.Event, error) {
		return nil, logic.E(logic.KindNotFound, "event %q not found", slug)
	}
	cfg.AuditLog = &mockAuditLogService{
		appendFn: func(_ context.Context, entry *models.EventLog) error {
			t.Errorf("audit row appended for failed mutation: %+v", entry)
			return nil
		},
	}
	h := newTestHandler(cfg)

	rec := doRequest(t, h.Routes(), http.MethodPut,
		"/api/pda-admin/events/ideathon-2026/visibility", token, `{"visible": true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
