package logic

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/mailer"
	"github.com/pdamit/events-api/internal/models"
	"github.com/pdamit/events-api/internal/worker"
)

type panelsService struct {
	pool   TxBeginner
	mail   *mailer.Mailer
	tasks  *worker.Pool
	logger *zap.SugaredLogger
}

func NewPanelsService(pool TxBeginner, mail *mailer.Mailer, tasks *worker.Pool, logger *zap.SugaredLogger) PanelsService {
	return &panelsService{pool: pool, mail: mail, tasks: tasks, logger: logger}
}

func loadPanels(ctx context.Context, db DB, roundID int64) ([]models.Panel, error) {
	rows, err := db.Query(ctx, `
		SELECT id, event_id, round_id, panel_no, name, COALESCE(meeting_link, ''), scheduled_at, COALESCE(instructions, '')
		FROM panels WHERE round_id = $1 ORDER BY panel_no`, roundID)
	if err != nil {
		return nil, Internal("listing panels", err)
	}
	defer rows.Close()

	panels := []models.Panel{}
	index := map[int64]int{}
	for rows.Next() {
		var p models.Panel
		if err := rows.Scan(&p.ID, &p.EventID, &p.RoundID, &p.PanelNo, &p.Name,
			&p.MeetingLink, &p.ScheduledAt, &p.Instructions); err != nil {
			return nil, Internal("scanning panel", err)
		}
		p.Members = []models.PanelMember{}
		index[p.ID] = len(panels)
		panels = append(panels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating panels", err)
	}
	if len(panels) == 0 {
		return panels, nil
	}

	memberRows, err := db.Query(ctx, `
		SELECT pm.id, pm.panel_id, pm.admin_id, a.regno, a.name, COALESCE(a.email, '')
		FROM panel_members pm
		JOIN admins a ON a.id = pm.admin_id
		WHERE pm.panel_id IN (SELECT id FROM panels WHERE round_id = $1)
		ORDER BY a.name`, roundID)
	if err != nil {
		return nil, Internal("listing panel members", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var m models.PanelMember
		if err := memberRows.Scan(&m.ID, &m.PanelID, &m.AdminID, &m.Regno, &m.Name, &m.Email); err != nil {
			return nil, Internal("scanning panel member", err)
		}
		if i, ok := index[m.PanelID]; ok {
			panels[i].Members = append(panels[i].Members, m)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, Internal("iterating panel members", err)
	}
	return panels, nil
}

func (s *panelsService) List(ctx context.Context, round *models.Round) ([]models.Panel, error) {
	return loadPanels(ctx, s.pool, round.ID)
}

// eventAdminIDsTx is the pool of admins who may judge: admins bound to the
// event, minus the bootstrap account.
func eventAdminIDsTx(ctx context.Context, tx pgx.Tx, eventID int64) (map[int64]bool, error) {
	rows, err := tx.Query(ctx, `
		SELECT a.id FROM admins a
		JOIN admin_events ae ON ae.admin_id = a.id
		WHERE ae.event_id = $1 AND a.regno <> $2`, eventID, models.BootstrapRegno)
	if err != nil {
		return nil, Internal("listing event admins", err)
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, Internal("scanning admin id", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *panelsService) Replace(ctx context.Context, event *models.Event, round *models.Round, req *models.UpdatePanelsRequest) ([]models.Panel, error) {
	seen := map[int]bool{}
	for _, p := range req.Panels {
		if seen[p.PanelNo] {
			return nil, E(KindBadInput, "duplicate panel number %d", p.PanelNo)
		}
		seen[p.PanelNo] = true
	}

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		existing := map[int]int64{}
		rows, err := tx.Query(ctx, `SELECT panel_no, id FROM panels WHERE round_id = $1 FOR UPDATE`, round.ID)
		if err != nil {
			return Internal("locking panels", err)
		}
		for rows.Next() {
			var no int
			var id int64
			if err := rows.Scan(&no, &id); err != nil {
				rows.Close()
				return Internal("scanning panel", err)
			}
			existing[no] = id
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return Internal("iterating panels", err)
		}

		if round.PanelStructureLocked {
			if len(req.Panels) != len(existing) {
				return E(KindBadInput, "panel structure is locked; panels cannot be added or removed")
			}
			for _, p := range req.Panels {
				if _, ok := existing[p.PanelNo]; !ok {
					return E(KindBadInput, "panel structure is locked; panel %d does not exist", p.PanelNo)
				}
			}
		}

		admins, err := eventAdminIDsTx(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		for _, p := range req.Panels {
			for _, adminID := range p.AdminIDs {
				if !admins[adminID] {
					return E(KindBadInput, "admin %d is not an admin of this event", adminID)
				}
			}
		}

		removed := false
		for no, id := range existing {
			if !seen[no] {
				if _, err := tx.Exec(ctx, `DELETE FROM panels WHERE id = $1`, id); err != nil {
					return Internal("deleting panel", err)
				}
				removed = true
			}
		}

		for _, p := range req.Panels {
			panelID, ok := existing[p.PanelNo]
			if ok {
				_, err = tx.Exec(ctx, `
					UPDATE panels SET name = $2, meeting_link = $3, scheduled_at = $4, instructions = $5
					WHERE id = $1`, panelID, p.Name, p.MeetingLink, p.ScheduledAt, p.Instructions)
				if err != nil {
					return Internal("updating panel", err)
				}
			} else {
				err = tx.QueryRow(ctx, `
					INSERT INTO panels (event_id, round_id, panel_no, name, meeting_link, scheduled_at, instructions)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					RETURNING id`,
					event.ID, round.ID, p.PanelNo, p.Name, p.MeetingLink, p.ScheduledAt, p.Instructions).Scan(&panelID)
				if err != nil {
					return Internal("inserting panel", err)
				}
			}

			if _, err := tx.Exec(ctx, `
				DELETE FROM panel_members WHERE panel_id = $1 AND NOT (admin_id = ANY($2))`,
				panelID, p.AdminIDs); err != nil {
				return Internal("removing panel members", err)
			}
			for _, adminID := range p.AdminIDs {
				if _, err := tx.Exec(ctx, `
					INSERT INTO panel_members (panel_id, admin_id)
					SELECT $1, $2
					WHERE NOT EXISTS (SELECT 1 FROM panel_members WHERE panel_id = $1 AND admin_id = $2)`,
					panelID, adminID); err != nil {
					return Internal("adding panel member", err)
				}
			}
		}

		// A removed panel takes its assignments with it.
		if removed && round.PanelModeEnabled {
			return renormalizeRoundTx(ctx, tx, round)
		}
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("replacing panels", err)
	}
	return loadPanels(ctx, s.pool, round.ID)
}

// loadCandidatesTx returns the round's scoring candidates with their
// cumulative totals, member counts, and any current assignment.
func loadCandidatesTx(ctx context.Context, tx pgx.Tx, event *models.Event, round *models.Round) ([]assignCandidate, error) {
	rows, err := tx.Query(ctx, `
		SELECT COALESCE(r.user_id, r.team_id) AS eid,
			COALESCE(mc.n, 0) AS member_count,
			COALESCE(t.total, 0) AS total,
			pa.panel_id
		FROM registrations r
		LEFT JOIN (SELECT team_id, COUNT(*) AS n FROM team_members GROUP BY team_id) mc ON mc.team_id = r.team_id
		LEFT JOIN (
			SELECT entity_type, COALESCE(user_id, team_id) AS eid, `+cumulativeTotalExpr(event)+` AS total
			FROM scores WHERE event_id = $1
			GROUP BY entity_type, COALESCE(user_id, team_id)
		) t ON t.entity_type = r.entity_type AND t.eid = COALESCE(r.user_id, r.team_id)
		LEFT JOIN panel_assignments pa ON pa.round_id = $2 AND pa.entity_type = r.entity_type
			AND COALESCE(pa.user_id, pa.team_id) = COALESCE(r.user_id, r.team_id)
		WHERE r.event_id = $1 AND r.status = 'ACTIVE' AND r.entity_type = $3
		ORDER BY eid`,
		event.ID, round.ID, models.EntityTypeFor(event.ParticipantMode))
	if err != nil {
		return nil, Internal("loading candidates", err)
	}
	defer rows.Close()

	var out []assignCandidate
	for rows.Next() {
		var (
			c           assignCandidate
			memberCount int
		)
		if err := rows.Scan(&c.ID, &memberCount, &c.Total, &c.PanelID); err != nil {
			return nil, Internal("scanning candidate", err)
		}
		c.Weight = 1
		if event.IsTeamEvent() && round.PanelDistribution == models.DistributeByMembers {
			c.Weight = max(memberCount, 1)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func loadPanelSlotsTx(ctx context.Context, tx pgx.Tx, roundID int64) ([]panelSlot, error) {
	rows, err := tx.Query(ctx, `SELECT id, panel_no FROM panels WHERE round_id = $1 ORDER BY panel_no`, roundID)
	if err != nil {
		return nil, Internal("listing panels", err)
	}
	defer rows.Close()

	var out []panelSlot
	for rows.Next() {
		var p panelSlot
		if err := rows.Scan(&p.ID, &p.PanelNo); err != nil {
			return nil, Internal("scanning panel", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func upsertAssignmentTx(ctx context.Context, tx pgx.Tx, event *models.Event, roundID, panelID int64, entity models.EntityRef) error {
	tag, err := tx.Exec(ctx, `
		UPDATE panel_assignments SET panel_id = $4
		WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
		roundID, entity.Type, entity.ID, panelID)
	if err != nil {
		return Internal("updating assignment", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO panel_assignments (event_id, round_id, panel_id, entity_type, user_id, team_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, roundID, panelID, entity.Type, entity.UserID(), entity.TeamID())
	if err != nil {
		return Internal("inserting assignment", err)
	}
	return nil
}

func (s *panelsService) AutoAssign(ctx context.Context, event *models.Event, round *models.Round, onlyUnassigned bool) ([]models.AssignmentRow, error) {
	if !round.PanelModeEnabled {
		return nil, E(KindNotApplicable, "panel mode is not enabled for round %d", round.RoundNo)
	}

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		slots, err := loadPanelSlotsTx(ctx, tx, round.ID)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return E(KindBadInput, "round %d has no panels", round.RoundNo)
		}
		candidates, err := loadCandidatesTx(ctx, tx, event, round)
		if err != nil {
			return err
		}

		entityType := models.EntityTypeFor(event.ParticipantMode)
		seed := assignSeed(event.ID, round.ID, entityType, round.PanelDistribution, onlyUnassigned, slots, candidates)
		placed := autoAssign(seed, candidates, slots, onlyUnassigned)

		for entityID, panelID := range placed {
			entity := models.EntityFor(event.ParticipantMode, entityID)
			if err := upsertAssignmentTx(ctx, tx, event, round.ID, panelID, entity); err != nil {
				return err
			}
		}
		return renormalizeRoundTx(ctx, tx, round)
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("auto-assigning panels", err)
	}
	return s.Assignments(ctx, event, round)
}

func (s *panelsService) SetAssignments(ctx context.Context, event *models.Event, round *models.Round, overrides []models.AssignmentOverride) ([]models.AssignmentRow, error) {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		candidates, err := loadCandidatesTx(ctx, tx, event, round)
		if err != nil {
			return err
		}
		valid := map[int64]bool{}
		for _, c := range candidates {
			valid[c.ID] = true
		}
		slots, err := loadPanelSlotsTx(ctx, tx, round.ID)
		if err != nil {
			return err
		}
		panelIDs := map[int64]bool{}
		for _, p := range slots {
			panelIDs[p.ID] = true
		}

		for _, o := range overrides {
			if !valid[o.EntityID] {
				return E(KindBadInput, "entity %d is not a scoring candidate", o.EntityID)
			}
			entity := models.EntityFor(event.ParticipantMode, o.EntityID)
			if o.PanelID == nil {
				if _, err := tx.Exec(ctx, `
					DELETE FROM panel_assignments
					WHERE round_id = $1 AND entity_type = $2 AND COALESCE(user_id, team_id) = $3`,
					round.ID, entity.Type, entity.ID); err != nil {
					return Internal("removing assignment", err)
				}
				continue
			}
			if !panelIDs[*o.PanelID] {
				return E(KindBadInput, "panel %d is not part of round %d", *o.PanelID, round.RoundNo)
			}
			if err := upsertAssignmentTx(ctx, tx, event, round.ID, *o.PanelID, entity); err != nil {
				return err
			}
		}

		if round.PanelModeEnabled {
			return renormalizeRoundTx(ctx, tx, round)
		}
		return nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, Internal("setting assignments", err)
	}
	return s.Assignments(ctx, event, round)
}

func (s *panelsService) Assignments(ctx context.Context, event *models.Event, round *models.Round) ([]models.AssignmentRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(r.user_id, r.team_id) AS eid,
			COALESCE(u.name, t.name, '') AS name,
			COALESCE(u.regno, t.team_code, '') AS key,
			COALESCE(mc.n, 0) AS member_count,
			pa.panel_id, p.panel_no,
			COALESCE(tt.total, 0) AS total
		FROM registrations r
		LEFT JOIN users u ON r.entity_type = 'USER' AND u.id = r.user_id
		LEFT JOIN teams t ON r.entity_type = 'TEAM' AND t.id = r.team_id
		LEFT JOIN (SELECT team_id, COUNT(*) AS n FROM team_members GROUP BY team_id) mc ON mc.team_id = r.team_id
		LEFT JOIN panel_assignments pa ON pa.round_id = $2 AND pa.entity_type = r.entity_type
			AND COALESCE(pa.user_id, pa.team_id) = COALESCE(r.user_id, r.team_id)
		LEFT JOIN panels p ON p.id = pa.panel_id
		LEFT JOIN (
			SELECT entity_type, COALESCE(user_id, team_id) AS eid, `+cumulativeTotalExpr(event)+` AS total
			FROM scores WHERE event_id = $1
			GROUP BY entity_type, COALESCE(user_id, team_id)
		) tt ON tt.entity_type = r.entity_type AND tt.eid = COALESCE(r.user_id, r.team_id)
		WHERE r.event_id = $1 AND r.status = 'ACTIVE' AND r.entity_type = $3
		ORDER BY name, eid`,
		event.ID, round.ID, models.EntityTypeFor(event.ParticipantMode))
	if err != nil {
		return nil, Internal("listing assignments", err)
	}
	defer rows.Close()

	out := []models.AssignmentRow{}
	for rows.Next() {
		var (
			row models.AssignmentRow
			eid int64
		)
		if err := rows.Scan(&eid, &row.Name, &row.Key, &row.MemberCount, &row.PanelID, &row.PanelNo, &row.Total); err != nil {
			return nil, Internal("scanning assignment row", err)
		}
		row.Entity = models.EntityFor(event.ParticipantMode, eid)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal("iterating assignments", err)
	}
	return out, nil
}

func (s *panelsService) NotifyJudges(ctx context.Context, event *models.Event, round *models.Round, req *models.PanelEmailRequest) (int, error) {
	panels, err := loadPanels(ctx, s.pool, round.ID)
	if err != nil {
		return 0, err
	}
	wanted := map[int64]bool{}
	for _, id := range req.PanelIDs {
		wanted[id] = true
	}

	queued := 0
	for _, panel := range panels {
		if len(wanted) > 0 && !wanted[panel.ID] {
			continue
		}
		instructions := panel.Instructions
		if req.Message != "" {
			instructions = req.Message
		}
		for _, member := range panel.Members {
			if member.Email == "" {
				continue
			}
			subject, body := mailer.PanelNoticeBody(member.Name, event.Title, panel.Name,
				panel.MeetingLink, panel.ScheduledAt, instructions)
			if req.Subject != "" {
				subject = req.Subject
			}
			to := member.Email
			if ok := s.tasks.Enqueue("panel_email", func(taskCtx context.Context) error {
				return s.mail.Send(taskCtx, to, subject, body)
			}); ok {
				queued++
			} else {
				s.logger.Warnw("panel email dropped", "event", event.Slug, "to", to)
			}
		}
	}
	return queued, nil
}
