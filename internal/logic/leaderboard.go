package logic

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdamit/events-api/internal/models"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

type leaderboardService struct {
	pool TxBeginner
}

func NewLeaderboardService(pool TxBeginner) LeaderboardService {
	return &leaderboardService{pool: pool}
}

// EligibleRounds are the rounds whose scores count toward boards: frozen or
// past scoring.
func (s *leaderboardService) EligibleRounds(ctx context.Context, eventID int64) ([]models.Round, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+roundColumns+` FROM rounds
		WHERE event_id = $1 AND (is_frozen OR state IN ('COMPLETED', 'REVEAL'))
		ORDER BY round_no`, eventID)
	if err != nil {
		return nil, Internal("listing eligible rounds", err)
	}
	defer rows.Close()
	return collectRounds(rows)
}

var boardSorts = map[string]string{
	"rank":        "(status <> 'ACTIVE'), total DESC, LOWER(name)",
	"score_desc":  "total DESC, LOWER(name)",
	"score_asc":   "total ASC, LOWER(name)",
	"name_asc":    "LOWER(name) ASC",
	"name_desc":   "LOWER(name) DESC",
	"rounds_desc": "rounds_participated DESC, total DESC",
	"rounds_asc":  "rounds_participated ASC, total DESC",
}

func (s *leaderboardService) Board(ctx context.Context, event *models.Event, q *models.LeaderboardQuery) ([]models.LeaderboardRow, int, error) {
	eligible, err := s.EligibleRounds(ctx, event.ID)
	if err != nil {
		return nil, 0, err
	}
	eligibleIDs := map[int64]bool{}
	for _, r := range eligible {
		eligibleIDs[r.ID] = true
	}

	roundIDs := q.RoundIDs
	if len(roundIDs) == 0 {
		roundIDs = make([]int64, 0, len(eligible))
		for _, r := range eligible {
			roundIDs = append(roundIDs, r.ID)
		}
	} else {
		for _, id := range roundIDs {
			if !eligibleIDs[id] {
				return nil, 0, E(KindBadRounds, "round %d is not eligible for the leaderboard", id)
			}
		}
	}

	sortKey := q.Sort
	if sortKey == "" {
		sortKey = "rank"
	}
	orderBy, ok := boardSorts[sortKey]
	if !ok {
		return nil, 0, E(KindBadInput, "unknown sort %q", q.Sort)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	q.Page, q.PageSize = page, pageSize

	metric := "normalized_score"
	if event.IsTeamEvent() {
		metric = "total_score"
	}

	args := []any{event.ID, roundIDs, models.EntityTypeFor(event.ParticipantMode)}
	var filters []string
	addFilter := func(clause string, value any) {
		args = append(args, value)
		filters = append(filters, fmt.Sprintf(clause, len(args)))
	}
	if q.Department != "" {
		addFilter("department = $%d", q.Department)
	}
	if q.Gender != "" {
		addFilter("gender = $%d", q.Gender)
	}
	if q.Batch != "" {
		addFilter("batch = $%d", q.Batch)
	}
	if q.Status != "" {
		addFilter("status = $%d", strings.ToUpper(q.Status))
	}
	if q.Search != "" {
		args = append(args, q.Search)
		n := len(args)
		filters = append(filters, fmt.Sprintf(
			"(name ILIKE '%%' || $%d || '%%' OR regno ILIKE '%%' || $%d || '%%' OR team_code ILIKE '%%' || $%d || '%%')",
			n, n, n))
	}
	where := ""
	if len(filters) > 0 {
		where = " WHERE " + strings.Join(filters, " AND ")
	}

	args = append(args, pageSize, (page-1)*pageSize)
	limitArg, offsetArg := len(args)-1, len(args)

	query := `
		WITH totals AS (
			SELECT entity_type, COALESCE(user_id, team_id) AS eid,
				SUM(` + metric + `) AS total,
				COUNT(DISTINCT round_id) FILTER (WHERE is_present) AS rounds_participated
			FROM scores
			WHERE event_id = $1 AND round_id = ANY($2)
			GROUP BY entity_type, COALESCE(user_id, team_id)
		),
		att AS (
			SELECT entity_type, COALESCE(user_id, team_id) AS eid,
				COUNT(DISTINCT round_id) FILTER (WHERE is_present) AS attended
			FROM attendance
			WHERE event_id = $1 AND round_id = ANY($2)
			GROUP BY entity_type, COALESCE(user_id, team_id)
		),
		board AS (
			SELECT COALESCE(r.user_id, r.team_id) AS eid,
				COALESCE(u.name, t.name, '') AS name,
				COALESCE(u.regno, '') AS regno,
				COALESCE(t.team_code, '') AS team_code,
				COALESCE(u.department, '') AS department,
				COALESCE(u.gender, '') AS gender,
				COALESCE(u.batch, '') AS batch,
				COALESCE(mc.n, 0) AS member_count,
				r.status,
				COALESCE(tt.total, 0) AS total,
				COALESCE(tt.rounds_participated, 0) AS rounds_participated,
				COALESCE(att.attended, 0) AS attendance_count
			FROM registrations r
			LEFT JOIN users u ON r.entity_type = 'USER' AND u.id = r.user_id
			LEFT JOIN teams t ON r.entity_type = 'TEAM' AND t.id = r.team_id
			LEFT JOIN (SELECT team_id, COUNT(*) AS n FROM team_members GROUP BY team_id) mc ON mc.team_id = r.team_id
			LEFT JOIN totals tt ON tt.entity_type = r.entity_type AND tt.eid = COALESCE(r.user_id, r.team_id)
			LEFT JOIN att ON att.entity_type = r.entity_type AND att.eid = COALESCE(r.user_id, r.team_id)
			WHERE r.event_id = $1 AND r.entity_type = $3
		),
		filtered AS (
			SELECT * FROM board` + where + `
		),
		ranked AS (
			SELECT filtered.*,
				CASE WHEN status = 'ACTIVE'
					THEN DENSE_RANK() OVER (PARTITION BY (status = 'ACTIVE') ORDER BY total DESC, LOWER(name))
					ELSE 0
				END AS rank,
				COUNT(*) OVER () AS total_count
			FROM filtered
		)
		SELECT eid, name, regno, team_code, department, gender, batch, member_count,
			status, total, rounds_participated, attendance_count, rank, total_count
		FROM ranked
		ORDER BY ` + orderBy + `
		LIMIT $` + fmt.Sprint(limitArg) + ` OFFSET $` + fmt.Sprint(offsetArg)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, Internal("querying leaderboard", err)
	}
	defer rows.Close()

	out := []models.LeaderboardRow{}
	total := 0
	for rows.Next() {
		var (
			row models.LeaderboardRow
			eid int64
		)
		err := rows.Scan(&eid, &row.Name, &row.Regno, &row.TeamCode, &row.Department, &row.Gender, &row.Batch,
			&row.MemberCount, &row.Status, &row.CumulativeScore, &row.RoundsParticipated, &row.AttendanceCount,
			&row.Rank, &total)
		if err != nil {
			return nil, 0, Internal("scanning leaderboard row", err)
		}
		row.Entity = models.EntityFor(event.ParticipantMode, eid)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, Internal("iterating leaderboard", err)
	}

	if err := s.attachRoundScores(ctx, event, roundIDs, metric, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// attachRoundScores fills the per-round breakdown for the page's entities.
func (s *leaderboardService) attachRoundScores(ctx context.Context, event *models.Event, roundIDs []int64, metric string, page []models.LeaderboardRow) error {
	if len(page) == 0 || len(roundIDs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(page))
	index := map[int64]int{}
	for i, row := range page {
		ids = append(ids, row.Entity.ID)
		index[row.Entity.ID] = i
	}

	rows, err := s.pool.Query(ctx, `
		SELECT round_id, COALESCE(user_id, team_id) AS eid, `+metric+`
		FROM scores
		WHERE event_id = $1 AND round_id = ANY($2) AND entity_type = $3
			AND COALESCE(user_id, team_id) = ANY($4)`,
		event.ID, roundIDs, models.EntityTypeFor(event.ParticipantMode), ids)
	if err != nil {
		return Internal("loading round scores", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			roundID, eid int64
			value        float64
		)
		if err := rows.Scan(&roundID, &eid, &value); err != nil {
			return Internal("scanning round score", err)
		}
		i, ok := index[eid]
		if !ok {
			continue
		}
		if page[i].RoundScores == nil {
			page[i].RoundScores = map[int64]float64{}
		}
		page[i].RoundScores[roundID] = value
	}
	return rows.Err()
}
