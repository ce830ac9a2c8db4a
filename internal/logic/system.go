package logic

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/models"
)

type systemService struct {
	pool   TxBeginner
	logger *zap.SugaredLogger
}

func NewSystemService(pool TxBeginner, logger *zap.SugaredLogger) SystemService {
	return &systemService{pool: pool, logger: logger}
}

func (s *systemService) PublicConfig(ctx context.Context) (*models.PublicConfig, error) {
	var entry models.ConfigEntry
	err := s.pool.QueryRow(ctx,
		`SELECT key, value, COALESCE(recruit_url, ''), updated_at FROM system_config WHERE key = $1`,
		models.FlagRecruitmentOpen).
		Scan(&entry.Key, &entry.Value, &entry.RecruitURL, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.PublicConfig{}, nil
	}
	if err != nil {
		return nil, Internal("loading public config", err)
	}
	cfg := &models.PublicConfig{RecruitmentOpen: flagTruthy(entry.Value)}
	if cfg.RecruitmentOpen {
		cfg.RecruitURL = entry.RecruitURL
	}
	return cfg, nil
}

// FlagEnabled reads a feature flag. Missing rows and read errors both report
// the flag as off so a config hiccup disables surfaces instead of opening them.
func (s *systemService) FlagEnabled(ctx context.Context, key string) bool {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Warnw("flag read failed", "key", key, "error", err)
		return false
	}
	return flagTruthy(value)
}

func (s *systemService) SetFlag(ctx context.Context, key, value string) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE system_config SET value = $2, updated_at = NOW() WHERE key = $1`, key, value)
		if err != nil {
			return Internal("updating flag", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO system_config (key, value) VALUES ($1, $2)`, key, value); err != nil {
				return Internal("inserting flag", err)
			}
		}
		return nil
	})
	return err
}

// EnsureDefaults seeds the flag rows the API consults. Recruitment starts
// closed; the persohub alias starts enabled.
func (s *systemService) EnsureDefaults(ctx context.Context) error {
	defaults := map[string]string{
		models.FlagRecruitmentOpen: "false",
		models.FlagPersohubParity:  "true",
	}
	for key, value := range defaults {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO system_config (key, value)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM system_config WHERE key = $1)`, key, value)
		if err != nil {
			return Internal("seeding config defaults", err)
		}
	}
	return nil
}

func flagTruthy(value string) bool {
	switch value {
	case "true", "TRUE", "1", "yes", "on":
		return true
	}
	return false
}
