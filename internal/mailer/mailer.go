// Package mailer sends the transactional emails of the event flow:
// registration and team confirmations to participants, meeting details to
// panel judges. Sends run on the background pool, never on request paths.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/config"
)

// Sender is what the rest of the service depends on.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Mailer struct {
	client *mail.Client
	from   string
	logger *zap.SugaredLogger
}

// New builds a mailer from SMTP configuration. With SMTP unconfigured the
// mailer logs sends instead of failing, which keeps local development quiet.
func New(cfg config.SMTPConfig, logger *zap.Logger) (*Mailer, error) {
	m := &Mailer{from: cfg.From, logger: logger.Sugar()}
	if !cfg.Enabled() {
		return m, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(8*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.client == nil {
		m.logger.Infow("Email send skipped (SMTP not configured)", "to", to, "subject", subject)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from %s: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to %s: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

// RegistrationBody renders the registration confirmation text.
func RegistrationBody(name, eventTitle string) (subject, body string) {
	subject = fmt.Sprintf("Registered: %s", eventTitle)
	body = fmt.Sprintf("Hi %s,\n\nYour registration for %s is confirmed. Keep an eye on your dashboard for round schedules and announcements.\n", name, eventTitle)
	return subject, body
}

// TeamCreatedBody renders the team creation confirmation, including the join
// code the leader shares with teammates.
func TeamCreatedBody(leaderName, eventTitle, teamName, teamCode string) (subject, body string) {
	subject = fmt.Sprintf("Team %s created for %s", teamName, eventTitle)
	body = fmt.Sprintf("Hi %s,\n\nYour team %q is registered for %s.\nTeam code: %s\n\nShare the code with your teammates so they can join.\n",
		leaderName, teamName, eventTitle, teamCode)
	return subject, body
}

// PanelNoticeBody renders the judge notification with meeting details.
func PanelNoticeBody(judgeName, eventTitle, panelName, meetingLink string, scheduledAt *time.Time, instructions string) (subject, body string) {
	subject = fmt.Sprintf("Judging panel %s: %s", panelName, eventTitle)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\nYou are assigned to %s for %s.\n", judgeName, panelName, eventTitle)
	if scheduledAt != nil {
		fmt.Fprintf(&sb, "Scheduled: %s\n", scheduledAt.UTC().Format(time.RFC1123))
	}
	if meetingLink != "" {
		fmt.Fprintf(&sb, "Meeting link: %s\n", meetingLink)
	}
	if instructions != "" {
		fmt.Fprintf(&sb, "\n%s\n", instructions)
	}
	return subject, sb.String()
}
