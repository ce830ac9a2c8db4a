// Package main boots the events API: configuration, logging, Postgres,
// Redis, object storage, the background worker pool, and the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdamit/events-api/internal/auth"
	"github.com/pdamit/events-api/internal/cache"
	"github.com/pdamit/events-api/internal/config"
	"github.com/pdamit/events-api/internal/database"
	"github.com/pdamit/events-api/internal/handlers"
	"github.com/pdamit/events-api/internal/logic"
	"github.com/pdamit/events-api/internal/mailer"
	"github.com/pdamit/events-api/internal/reports"
	"github.com/pdamit/events-api/internal/storage"
	"github.com/pdamit/events-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("postgres pool: %w", err)
	}
	defer pool.Close()
	if err := database.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sugar.Warnw("Redis unreachable at startup, caching degraded", "error", err)
	}

	var store storage.ObjectStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		store = s3Store
		sugar.Infow("Object storage ready", "bucket", cfg.Storage.Bucket)
	} else {
		store = storage.NewLocal(cfg.Storage.UploadDir)
		sugar.Infow("No bucket configured, storing uploads locally", "dir", cfg.Storage.UploadDir)
	}

	mail, err := mailer.New(cfg.SMTP, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	tasks := worker.NewPool(worker.PoolConfig{
		WorkerCount: cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		Logger:      logger,
	})
	tasks.Start(ctx)
	defer tasks.Stop()

	appCache := cache.New(rdb, cfg.Redis.EventCacheTTL, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.QRTokenTTL)

	identity := logic.NewIdentityService(pool)
	events := logic.NewEventsService(pool)
	ledger := logic.NewLedgerService(pool, identity, mail, tasks, sugar)
	teams := logic.NewTeamsService(pool, mail, tasks, sugar)
	auditLog := logic.NewAuditLogService(pool)
	publisher := logic.NewAuditPublisher(store, tasks, auditLog, sugar)
	rounds := logic.NewRoundsService(pool, publisher)
	lifecycle := logic.NewLifecycleService(pool, publisher)
	panels := logic.NewPanelsService(pool, mail, tasks, sugar)
	scores := logic.NewScoresService(pool, appCache, sugar)
	submissions := logic.NewSubmissionsService(pool, store)
	leaderboard := logic.NewLeaderboardService(pool)
	exports := logic.NewExportsService(pool, leaderboard)
	badges := logic.NewBadgesService(pool)
	system := logic.NewSystemService(pool, sugar)

	if err := system.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("seed system config: %w", err)
	}

	h := handlers.New(handlers.Config{
		Postgres:    pool,
		Redis:       rdb,
		Logger:      logger,
		Tokens:      tokens,
		Cache:       appCache,
		WorkerPool:  tasks,
		Logo:        reports.NewLogoFetcher(cfg.Server.LogoURL),
		Events:      events,
		Ledger:      ledger,
		Teams:       teams,
		Rounds:      rounds,
		Panels:      panels,
		Scores:      scores,
		Submissions: submissions,
		Lifecycle:   lifecycle,
		Leaderboard: leaderboard,
		Exports:     exports,
		Badges:      badges,
		AuditLog:    auditLog,
		Identity:    identity,
		System:      system,
	})

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Total-Count", "X-Page", "X-Page-Size"},
		AllowCredentials: true,
		MaxAge:           300,
	})(h.Routes())

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		sugar.Infow("Server listening", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sugar.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
