// Package bootstrap собирает инфраструктуру, общую для api и worker:
// логгер, хранилище и кеш лидерборда.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/tracks-academy/progress-ledger/config"
	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/badge"
	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/custom"
	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/postgres"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/redis"
	"github.com/tracks-academy/progress-ledger/pkg/circuitbreaker"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config, component string) (*logger.Logger, error) {
	log, err := logger.New(logger.Options{
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log.With(logger.Component(component), logger.String("version", cfg.App.Version)), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORES
// ══════════════════════════════════════════════════════════════════════════════

// Stores groups every repository the ledger needs.
type Stores struct {
	Learners    learner.Repository
	Catalog     catalog.Repository
	Completions progress.CompletionRepository
	Submissions submission.Repository
	Checkins    checkin.Repository
	Custom      custom.Repository
	Ledger      ledger.Repository
	Activities  activity.Repository
	Badges      badge.Repository

	// Backend is "postgres" or "memory".
	Backend string

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks the backing store.
func (s *Stores) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close releases connections.
func (s *Stores) Close() { s.close() }

// OpenStores connects to PostgreSQL. Without DATABASE_URL (allowed outside
// production) the process runs on the in-memory store.
func OpenStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL is empty, using in-memory store; data is lost on restart")
		return memoryStores(memory.Open()), nil
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, conn, log); err != nil {
			conn.Close()
			return nil, err
		}
	}

	cat := postgres.NewCatalogRepository(conn)
	return &Stores{
		Learners:    postgres.NewLearnerRepository(conn),
		Catalog:     cat,
		Completions: cat,
		Submissions: postgres.NewSubmissionRepository(conn),
		Checkins:    postgres.NewCheckinRepository(conn),
		Custom:      postgres.NewCustomRepository(conn),
		Ledger:      postgres.NewLedgerRepository(conn),
		Activities:  postgres.NewActivityRepository(conn),
		Badges:      postgres.NewBadgeRepository(conn),
		Backend:     "postgres",
		ping:        conn.Ping,
		close: func() {
			log.Info("closing database connection...")
			conn.Close()
		},
	}, nil
}

func migrate(ctx context.Context, conn *postgres.Connection, log *logger.Logger) error {
	log.Info("running database migrations...")
	m := postgres.NewMigrator(conn)
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", logger.Err(err))
		return nil
	}
	applied := 0
	for _, mg := range status {
		if mg.IsApplied {
			applied++
		}
	}
	log.Info("migrations completed", logger.Int("applied", applied), logger.Int("total", len(status)))
	return nil
}

func memoryStores(db *memory.DB) *Stores {
	cat := memory.NewCatalogRepository(db)
	return &Stores{
		Learners:    memory.NewLearnerRepository(db),
		Catalog:     cat,
		Completions: cat,
		Submissions: memory.NewSubmissionRepository(db),
		Checkins:    memory.NewCheckinRepository(db),
		Custom:      memory.NewCustomRepository(db),
		Ledger:      memory.NewLedgerRepository(db),
		Activities:  memory.NewActivityRepository(db),
		Badges:      memory.NewBadgeRepository(db),
		Backend:     "memory",
		ping:        func(context.Context) error { return nil },
		close:       func() {},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache is the optional Redis read model with its breaker.
// A zero value (nil Cache) means every read goes to the store.
type LeaderboardCache struct {
	Cache   leaderboard.Cache
	Breaker *circuitbreaker.CircuitBreaker

	redis *redis.Cache
}

// Enabled reports whether a cache is wired.
func (lc *LeaderboardCache) Enabled() bool { return lc.Cache != nil }

// Close closes the Redis client.
func (lc *LeaderboardCache) Close() {
	if lc.redis != nil {
		_ = lc.redis.Close()
	}
}

// OpenLeaderboardCache connects to Redis unless it is disabled by
// REDIS_DISABLED or the leaderboard.cache feature flag. A failed connection
// is logged and the process continues without the cache.
func OpenLeaderboardCache(ctx context.Context, cfg *config.Config, log *logger.Logger) *LeaderboardCache {
	if cfg.Redis.Disabled || !cfg.Features.IsEnabled(config.FeatureLeaderboardCache) {
		log.Info("leaderboard cache disabled, reads go to the store")
		return &LeaderboardCache{}
	}

	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	rc.KeyPrefix = cfg.Redis.KeyPrefix

	log.Info("connecting to Redis...", logger.String("addr", rc.Addr()))
	cache, err := redis.NewCache(ctx, rc)
	if err != nil {
		log.Warn("failed to connect to Redis, leaderboard cache disabled", logger.Err(err))
		return &LeaderboardCache{}
	}
	log.Info("Redis connection established")

	breakerLog := log.With(logger.Component("circuitbreaker"))
	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		breakerLog.Warn("circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	return &LeaderboardCache{
		Cache:   redis.NewLeaderboardCache(cache),
		Breaker: breaker,
		redis:   cache,
	}
}

// ShutdownContext returns a context bounded by the configured shutdown timeout.
func ShutdownContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
