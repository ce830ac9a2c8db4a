package logic

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/reports"
)

type exportsService struct {
	pool  TxBeginner
	board LeaderboardService
}

func NewExportsService(pool TxBeginner, board LeaderboardService) ExportsService {
	return &exportsService{pool: pool, board: board}
}

// Registrations lists the full ledger of an event in export row form.
func (s *exportsService) Registrations(ctx context.Context, event *models.Event) ([]reports.RegistrationRow, error) {
	if event.IsTeamEvent() {
		return s.teamRegistrations(ctx, event)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT u.regno, u.name, COALESCE(u.email, ''), COALESCE(u.department, ''),
			COALESCE(u.batch, ''), COALESCE(u.gender, ''), r.status,
			COALESCE(r.referral_code, ''), COALESCE(r.referred_by, ''), r.referral_count, r.created_at
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1 AND r.entity_type = 'USER'
		ORDER BY u.regno`, event.ID)
	if err != nil {
		return nil, Internal("listing registrations", err)
	}
	defer rows.Close()

	out := []reports.RegistrationRow{}
	for rows.Next() {
		var r reports.RegistrationRow
		err := rows.Scan(&r.Identifier, &r.Name, &r.Email, &r.Department, &r.Batch, &r.Gender,
			&r.Status, &r.ReferralCode, &r.ReferredBy, &r.ReferralCount, &r.RegisteredAt)
		if err != nil {
			return nil, Internal("scanning registration row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating registrations", err)
	}
	return out, nil
}

func (s *exportsService) teamRegistrations(ctx context.Context, event *models.Event) ([]reports.RegistrationRow, error) {
	members := map[int64][]string{}
	mrows, err := s.pool.Query(ctx, `
		SELECT tm.team_id, u.name, u.regno
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.event_id = $1
		ORDER BY tm.team_id, (tm.role <> 'leader'), u.name`, event.ID)
	if err != nil {
		return nil, Internal("listing team members", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			teamID      int64
			name, regno string
		)
		if err := mrows.Scan(&teamID, &name, &regno); err != nil {
			return nil, Internal("scanning team member", err)
		}
		members[teamID] = append(members[teamID], fmt.Sprintf("%s (%s)", name, regno))
	}
	if err := mrows.Err(); err != nil {
		return nil, Internal("iterating team members", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.team_code, t.name, r.status, r.created_at
		FROM registrations r
		JOIN teams t ON t.id = r.team_id
		WHERE r.event_id = $1 AND r.entity_type = 'TEAM'
		ORDER BY t.team_code`, event.ID)
	if err != nil {
		return nil, Internal("listing team registrations", err)
	}
	defer rows.Close()

	out := []reports.RegistrationRow{}
	for rows.Next() {
		var (
			r      reports.RegistrationRow
			teamID int64
		)
		if err := rows.Scan(&teamID, &r.Identifier, &r.Name, &r.Status, &r.RegisteredAt); err != nil {
			return nil, Internal("scanning team registration", err)
		}
		r.Members = strings.Join(members[teamID], ", ")
		r.MemberCount = len(members[teamID])
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating team registrations", err)
	}
	return out, nil
}

// LeaderboardAll walks every board page so exports carry the complete
// standings, not the first page.
func (s *exportsService) LeaderboardAll(ctx context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, error) {
	pageQ := *q
	pageQ.Page = 1
	pageQ.PageSize = maxPageSize

	all := []models.LeaderboardRow{}
	for {
		page, total, err := s.board.Board(ctx, event, &pageQ)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
		pageQ.Page++
	}
}
