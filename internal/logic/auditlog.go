package logic

import (
	"context"
	"strconv"

	"github.com/pdamit/events-api/internal/models"
)

type auditLogService struct {
	pool TxBeginner
}

func NewAuditLogService(pool TxBeginner) AuditLogService {
	return &auditLogService{pool: pool}
}

func (s *auditLogService) Append(ctx context.Context, entry *models.EventLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_logs (event_slug, event_id, admin_id, admin_regno, admin_name, action, method, path, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.EventSlug, entry.EventID, entry.AdminID, entry.AdminRegno, entry.AdminName,
		entry.Action, entry.Method, entry.Path, entry.Meta)
	if err != nil {
		return Internal("appending event log", err)
	}
	return nil
}

func (s *auditLogService) List(ctx context.Context, eventSlug string, q *models.LogsQuery) ([]models.EventLog, int, error) {
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

	where := `WHERE event_slug = $1`
	args := []any{eventSlug}
	if q.Action != "" {
		args = append(args, q.Action)
		where += ` AND action = $` + strconv.Itoa(len(args))
	}
	if q.Method != "" {
		args = append(args, q.Method)
		where += ` AND method = $` + strconv.Itoa(len(args))
	}
	if q.Path != "" {
		args = append(args, q.Path)
		where += ` AND path ILIKE '%' || $` + strconv.Itoa(len(args)) + ` || '%'`
	}
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, `
		SELECT id, event_slug, event_id, admin_id, admin_regno, admin_name,
			action, method, path, COALESCE(meta, '{}'::jsonb), created_at,
			COUNT(*) OVER() AS total_count
		FROM event_logs `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, Internal("listing event logs", err)
	}
	defer rows.Close()

	out := []models.EventLog{}
	total := 0
	for rows.Next() {
		var entry models.EventLog
		err := rows.Scan(&entry.ID, &entry.EventSlug, &entry.EventID, &entry.AdminID,
			&entry.AdminRegno, &entry.AdminName, &entry.Action, &entry.Method,
			&entry.Path, &entry.Meta, &entry.CreatedAt, &total)
		if err != nil {
			return nil, 0, Internal("scanning event log", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, Internal("iterating event logs", err)
	}
	return out, total, nil
}
