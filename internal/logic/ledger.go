package logic

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdamit/events-api/internal/mailer"
	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/worker"
)

const registrationColumns = `id, event_id, entity_type, user_id, team_id, status,
	COALESCE(referral_code, ''), COALESCE(referred_by, ''), referral_count, created_at`

type ledgerService struct {
	pool     TxBeginner
	identity IdentityService
	mail     *mailer.Mailer
	tasks    *worker.Pool
	logger   *zap.SugaredLogger
}

func NewLedgerService(pool TxBeginner, identity IdentityService, mail *mailer.Mailer, tasks *worker.Pool, logger *zap.SugaredLogger) LedgerService {
	return &ledgerService{pool: pool, identity: identity, mail: mail, tasks: tasks, logger: logger}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var (
		r              models.Registration
		entityType     models.EntityType
		userID, teamID *int64
	)
	err := row.Scan(&r.ID, &r.EventID, &entityType, &userID, &teamID, &r.Status,
		&r.ReferralCode, &r.ReferredBy, &r.ReferralCount, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Entity = models.EntityFromColumns(entityType, userID, teamID)
	return &r, nil
}

func (s *ledgerService) RegisterIndividual(ctx context.Context, event *models.Event, user *models.User, referredBy string) (*models.Registration, bool, error) {
	if !event.RegistrationOpen {
		return nil, false, E(KindRegClosed, "registrations are closed for %q", event.Title)
	}
	if event.OpenFor == models.AudienceMIT && !user.IsMIT {
		return nil, false, E(KindNotEligible, "event %q is open to MIT students only", event.Title)
	}
	if event.IsTeamEvent() {
		return nil, false, E(KindWrongMode, "event %q takes team registrations", event.Title)
	}

	var (
		reg     *models.Registration
		created bool
	)
	for attempt := 0; attempt < mintRetries; attempt++ {
		code, err := MintCode()
		if err != nil {
			return nil, false, Internal("minting referral code", err)
		}
		err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
			existing, err := scanRegistration(tx.QueryRow(ctx,
				`SELECT `+registrationColumns+` FROM registrations
				WHERE event_id = $1 AND entity_type = 'USER' AND user_id = $2`, event.ID, user.ID))
			if err == nil {
				reg = existing
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return Internal("loading registration", err)
			}

			// Resolve the referrer before inserting so a row can never
			// credit itself.
			var referrerID *int64
			if referredBy != "" {
				var id int64
				err := tx.QueryRow(ctx,
					`SELECT id FROM registrations
					WHERE event_id = $1 AND entity_type = 'USER' AND referral_code = $2`,
					event.ID, referredBy).Scan(&id)
				switch {
				case err == nil:
					referrerID = &id
				case errors.Is(err, pgx.ErrNoRows):
					// Unknown codes register fine, they just credit nobody.
				default:
					return Internal("resolving referral", err)
				}
			}

			inserted, err := scanRegistration(tx.QueryRow(ctx, `
				INSERT INTO registrations (event_id, entity_type, user_id, status, referral_code, referred_by)
				VALUES ($1, 'USER', $2, 'ACTIVE', $3, $4)
				RETURNING `+registrationColumns,
				event.ID, user.ID, code, referredBy))
			if err != nil {
				return err
			}
			if referrerID != nil {
				if _, err := tx.Exec(ctx,
					`UPDATE registrations SET referral_count = referral_count + 1 WHERE id = $1`, *referrerID); err != nil {
					return Internal("crediting referral", err)
				}
			}
			reg = inserted
			created = true
			return nil
		})
		if err == nil {
			break
		}
		// Referral-code and double-register races both surface as unique
		// violations; rerunning the transaction resolves either.
		if isUniqueViolation(err, "") {
			continue
		}
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, false, appErr
		}
		return nil, false, Internal("registering", err)
	}
	if reg == nil {
		return nil, false, E(KindDuplicate, "could not mint a unique referral code")
	}

	if created {
		if err := s.identity.EnsureProfileName(ctx, user); err != nil {
			s.logger.Warnw("ensuring profile name", "regno", user.Regno, "error", err)
		}
		s.queueRegistrationEmail(event, user)
	}
	return reg, created, nil
}

func (s *ledgerService) queueRegistrationEmail(event *models.Event, user *models.User) {
	if user.Email == "" {
		return
	}
	to, name := user.Email, user.Name
	subject, body := mailer.RegistrationBody(name, event.Title)
	if ok := s.tasks.Enqueue("registration_email", func(ctx context.Context) error {
		return s.mail.Send(ctx, to, subject, body)
	}); !ok {
		s.logger.Warnw("registration email dropped", "event", event.Slug, "to", to)
	}
}

func (s *ledgerService) RegistrationFor(ctx context.Context, eventID int64, entity models.EntityRef) (*models.Registration, error) {
	reg, err := scanRegistration(s.pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		eventID, entity.Type, entity.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "no registration for %s", entity)
	}
	if err != nil {
		return nil, Internal("loading registration", err)
	}
	return reg, nil
}

// EntityFor resolves the scoring identity a user acts as within an event.
// For team events a user with no team yet resolves to the zero EntityRef.
func (s *ledgerService) EntityFor(ctx context.Context, event *models.Event, userID int64) (models.EntityRef, error) {
	if !event.IsTeamEvent() {
		return models.UserEntity(userID), nil
	}
	var teamID int64
	err := s.pool.QueryRow(ctx,
		`SELECT team_id FROM team_members WHERE event_id = $1 AND user_id = $2`, event.ID, userID).Scan(&teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.EntityRef{}, nil
	}
	if err != nil {
		return models.EntityRef{}, Internal("resolving team membership", err)
	}
	return models.TeamEntity(teamID), nil
}

func (s *ledgerService) Dashboard(ctx context.Context, event *models.Event, userID int64) (*models.Dashboard, error) {
	entity, err := s.EntityFor(ctx, event, userID)
	if err != nil {
		return nil, err
	}

	dash := &models.Dashboard{Rounds: []models.Round{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var count int
		if err := s.pool.QueryRow(gctx,
			`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, event.ID).Scan(&count); err != nil {
			return Internal("counting registrations", err)
		}
		dash.Event = summarize(event, count)
		return nil
	})
	g.Go(func() error {
		rows, err := s.pool.Query(gctx,
			`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND state <> 'DRAFT' ORDER BY round_no`, event.ID)
		if err != nil {
			return Internal("listing rounds", err)
		}
		defer rows.Close()
		dash.Rounds, err = collectRounds(rows)
		return err
	})
	if !entity.IsZero() {
		g.Go(func() error {
			reg, err := s.RegistrationFor(gctx, event.ID, entity)
			if err != nil {
				if KindOf(err) == KindNotFound {
					return nil
				}
				return err
			}
			dash.Registration = reg
			return nil
		})
	}
	if entity.Type == models.EntityTeam && !entity.IsZero() {
		g.Go(func() error {
			team, err := loadTeamDetail(gctx, s.pool, event.ID, entity.ID)
			if err != nil {
				if KindOf(err) == KindNotFound {
					return nil
				}
				return err
			}
			dash.Team = team
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

func (s *ledgerService) MyRounds(ctx context.Context, event *models.Event, userID int64) ([]models.MyRoundStatus, error) {
	entity, err := s.EntityFor(ctx, event, userID)
	if err != nil {
		return nil, err
	}
	if entity.IsZero() {
		return nil, E(KindNotFound, "not registered for %q", event.Title)
	}
	if _, err := s.RegistrationFor(ctx, event.ID, entity); err != nil {
		return nil, err
	}

	rounds, err := func() ([]models.Round, error) {
		rows, err := s.pool.Query(ctx,
			`SELECT `+roundColumns+` FROM rounds WHERE event_id = $1 AND state <> 'DRAFT' ORDER BY round_no`, event.ID)
		if err != nil {
			return nil, Internal("listing rounds", err)
		}
		defer rows.Close()
		return collectRounds(rows)
	}()
	if err != nil {
		return nil, err
	}

	var (
		scores      map[int64]*models.Score
		attendance  map[int64]bool
		submissions map[int64]*models.Submission
		panels      map[int64]*models.Panel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scores, err = scoresByRound(gctx, s.pool, event.ID, entity)
		return err
	})
	g.Go(func() error {
		var err error
		attendance, err = attendanceByRound(gctx, s.pool, event.ID, entity)
		return err
	})
	g.Go(func() error {
		var err error
		submissions, err = submissionsByRound(gctx, s.pool, event.ID, entity)
		return err
	})
	g.Go(func() error {
		var err error
		panels, err = assignedPanelsByRound(gctx, s.pool, event.ID, entity)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]models.MyRoundStatus, 0, len(rounds))
	for _, r := range rounds {
		st := models.MyRoundStatus{Round: r}
		if r.State == models.RoundReveal {
			st.Score = scores[r.ID]
		}
		if present, ok := attendance[r.ID]; ok {
			st.Attendance = &present
		}
		if r.RequiresSubmission {
			st.Submission = submissions[r.ID]
			st.LockReason = SubmissionLockReason(&r, now)
		}
		if r.PanelModeEnabled {
			st.Panel = panels[r.ID]
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *ledgerService) MyEvents(ctx context.Context, userID int64) ([]models.EventSummary, error) {
	return listEventSummaries(ctx, s.pool, `
		WHERE id IN (
			SELECT event_id FROM registrations WHERE entity_type = 'USER' AND user_id = $1
			UNION
			SELECT event_id FROM team_members WHERE user_id = $1
		)`, userID)
}

func scoresByRound(ctx context.Context, db DB, eventID int64, entity models.EntityRef) (map[int64]*models.Score, error) {
	rows, err := db.Query(ctx,
		`SELECT `+scoreColumns+` FROM scores
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		eventID, entity.Type, entity.ID)
	if err != nil {
		return nil, Internal("loading scores", err)
	}
	defer rows.Close()

	out := map[int64]*models.Score{}
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, Internal("scanning score", err)
		}
		out[sc.RoundID] = sc
	}
	return out, rows.Err()
}

func attendanceByRound(ctx context.Context, db DB, eventID int64, entity models.EntityRef) (map[int64]bool, error) {
	rows, err := db.Query(ctx,
		`SELECT round_id, is_present FROM attendance
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		eventID, entity.Type, entity.ID)
	if err != nil {
		return nil, Internal("loading attendance", err)
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var roundID int64
		var present bool
		if err := rows.Scan(&roundID, &present); err != nil {
			return nil, Internal("scanning attendance", err)
		}
		out[roundID] = present
	}
	return out, rows.Err()
}

func submissionsByRound(ctx context.Context, db DB, eventID int64, entity models.EntityRef) (map[int64]*models.Submission, error) {
	rows, err := db.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		WHERE event_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		eventID, entity.Type, entity.ID)
	if err != nil {
		return nil, Internal("loading submissions", err)
	}
	defer rows.Close()

	out := map[int64]*models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, Internal("scanning submission", err)
		}
		out[sub.RoundID] = sub
	}
	return out, rows.Err()
}

func assignedPanelsByRound(ctx context.Context, db DB, eventID int64, entity models.EntityRef) (map[int64]*models.Panel, error) {
	rows, err := db.Query(ctx, `
		SELECT pa.round_id, p.id, p.event_id, p.round_id, p.panel_no, p.name,
			COALESCE(p.meeting_link, ''), p.scheduled_at, COALESCE(p.instructions, '')
		FROM panel_assignments pa
		JOIN panels p ON p.id = pa.panel_id
		WHERE pa.event_id = $1 AND pa.entity_type = $2 AND COALESCE(pa.user_id, pa.team_id) = $3`,
		eventID, entity.Type, entity.ID)
	if err != nil {
		return nil, Internal("loading panel assignments", err)
	}
	defer rows.Close()

	out := map[int64]*models.Panel{}
	for rows.Next() {
		var roundID int64
		var p models.Panel
		if err := rows.Scan(&roundID, &p.ID, &p.EventID, &p.RoundID, &p.PanelNo, &p.Name,
			&p.MeetingLink, &p.ScheduledAt, &p.Instructions); err != nil {
			return nil, Internal("scanning assigned panel", err)
		}
		out[roundID] = &p
	}
	return out, rows.Err()
}
