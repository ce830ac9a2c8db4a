package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/config"
)

func TestSendWithoutSMTPIsNoop(t *testing.T) {
	m, err := New(config.SMTPConfig{From: "no-reply@pdamit.in"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Send(context.Background(), "x@example.com", "subject", "body"); err != nil {
		t.Errorf("unconfigured Send should be a logged no-op, got %v", err)
	}
}

func TestTeamCreatedBody(t *testing.T) {
	subject, body := TeamCreatedBody("Asha", "Hack The Valley", "Null Pointers", "TM001")

	if !strings.Contains(subject, "Null Pointers") {
		t.Errorf("subject %q missing team name", subject)
	}
	if !strings.Contains(body, "TM001") {
		t.Errorf("body missing team code:\n%s", body)
	}
	if !strings.Contains(body, "Hack The Valley") {
		t.Errorf("body missing event title:\n%s", body)
	}
}

func TestPanelNoticeBody(t *testing.T) {
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	subject, body := PanelNoticeBody("Dr. Rao", "Hack The Valley", "Panel 1", "https://meet.example/abc", &at, "Score all criteria.")

	if !strings.Contains(subject, "Panel 1") {
		t.Errorf("subject %q missing panel name", subject)
	}
	for _, want := range []string{"https://meet.example/abc", "Score all criteria.", "Dr. Rao"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestPanelNoticeBodyOmitsEmptyFields(t *testing.T) {
	_, body := PanelNoticeBody("Dr. Rao", "Hack The Valley", "Panel 2", "", nil, "")
	if strings.Contains(body, "Meeting link") {
		t.Errorf("body should omit empty meeting link:\n%s", body)
	}
	if strings.Contains(body, "Scheduled") {
		t.Errorf("body should omit missing schedule:\n%s", body)
	}
}
