// Package handlers owns the HTTP surface: routing, auth middleware, request
// decoding, and response framing. Business rules live in internal/logic;
// handlers translate between the wire and the services.
package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/auth"
	"github.com/pdamit/events-api/internal/cache"
	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/reports"
	"github.com/pdamit/events-api/internal/worker"
)

// MaxBodySize limits the size of JSON request bodies to 1MB. Spreadsheet
// uploads use MaxImportSize instead.
const (
	MaxBodySize   = 1 << 20
	MaxImportSize = 10 << 20
)

type Config struct {
	Postgres   *pgxpool.Pool
	Redis      *redis.Client
	Logger     *zap.Logger
	Tokens     *auth.TokenManager
	Cache      *cache.Cache
	WorkerPool *worker.Pool
	Logo       *reports.LogoFetcher

	// Services
	Events      logic.EventsService
	Ledger      logic.LedgerService
	Teams       logic.TeamsService
	Rounds      logic.RoundsService
	Panels      logic.PanelsService
	Scores      logic.ScoresService
	Submissions logic.SubmissionsService
	Lifecycle   logic.LifecycleService
	Leaderboard logic.LeaderboardService
	Exports     logic.ExportsService
	Badges      logic.BadgesService
	AuditLog    logic.AuditLogService
	Identity    logic.IdentityService
	System      logic.SystemService
}

type Handler struct {
	pg        *pgxpool.Pool
	redis     *redis.Client
	logger    *zap.SugaredLogger
	validator *validator.Validate
	tokens    *auth.TokenManager
	cache     *cache.Cache
	pool      *worker.Pool
	logo      *reports.LogoFetcher

	events      logic.EventsService
	ledger      logic.LedgerService
	teams       logic.TeamsService
	rounds      logic.RoundsService
	panels      logic.PanelsService
	scores      logic.ScoresService
	submissions logic.SubmissionsService
	lifecycle   logic.LifecycleService
	leaderboard logic.LeaderboardService
	exports     logic.ExportsService
	badges      logic.BadgesService
	auditLog    logic.AuditLogService
	identity    logic.IdentityService
	system      logic.SystemService
}

func New(cfg Config) *Handler {
	return &Handler{
		pg:          cfg.Postgres,
		redis:       cfg.Redis,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
		tokens:      cfg.Tokens,
		cache:       cfg.Cache,
		pool:        cfg.WorkerPool,
		logo:        cfg.Logo,
		events:      cfg.Events,
		ledger:      cfg.Ledger,
		teams:       cfg.Teams,
		rounds:      cfg.Rounds,
		panels:      cfg.Panels,
		scores:      cfg.Scores,
		submissions: cfg.Submissions,
		lifecycle:   cfg.Lifecycle,
		leaderboard: cfg.Leaderboard,
		exports:     cfg.Exports,
		badges:      cfg.Badges,
		auditLog:    cfg.AuditLog,
		identity:    cfg.Identity,
		system:      cfg.System,
	}
}
