// Package main - точка входа HTTP API журнала прогресса.
//
// API принимает отметки уроков, ежедневные check-in, сдачу заданий и
// проверку администратором, а также отдаёт прогресс, историю XP и лидерборд.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/tracks-academy/progress-ledger/config"
	"github.com/tracks-academy/progress-ledger/internal/application/command"
	"github.com/tracks-academy/progress-ledger/internal/application/eventhandler"
	"github.com/tracks-academy/progress-ledger/internal/application/query"
	"github.com/tracks-academy/progress-ledger/internal/bootstrap"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/messaging"
	httpserver "github.com/tracks-academy/progress-ledger/internal/interface/http"
	"github.com/tracks-academy/progress-ledger/internal/interface/http/handlers"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := bootstrap.NewLogger(cfg, "api")
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting progress ledger API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Location.String()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ И КЕШ
	// ─────────────────────────────────────────────────────────────────────────
	stores, err := bootstrap.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	lb := bootstrap.OpenLeaderboardCache(ctx, cfg, log)
	defer lb.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewInMemoryEventBus(messaging.Config{
		AsyncMode:      true,
		WorkerPoolSize: cfg.EventBus.WorkerPoolSize,
		Logger:         log,
	})
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	badges := stores.Badges
	if !cfg.Features.IsEnabled(config.FeatureBadgeAwards) {
		badges = nil
		log.Info("automatic badge awards disabled")
	}
	onXP := eventhandler.NewOnXPChangedHandler(stores.Learners, badges, lb.Cache, lb.Breaker, bus, log)
	if err := bus.Subscribe(shared.EventXPChanged, onXP.Handle); err != nil {
		return fmt.Errorf("subscribe xp handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	checkinCfg := command.DefaultPerformCheckinConfig()
	checkinCfg.EnforceDateWindow = cfg.Features.IsEnabled(config.FeatureCheckinDateWindow)

	xpLedger := command.NewXPLedger(stores.Ledger, bus, log)

	health := handlers.NewHealthChecker(cfg.App.Version)
	health.AddCheck(stores.Backend, handlers.PingCheck(stores))

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.AdminTokenHash = cfg.Admin.TokenHash
	if cfg.IsDevelopment() {
		httpCfg.Mode = gin.DebugMode
	}

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Checkin:      command.NewPerformCheckinHandler(stores.Checkins, bus, checkinCfg, log),
		ToggleLesson: command.NewToggleLessonHandler(stores.Learners, stores.Catalog, stores.Completions, bus, log),
		ToggleCustom: command.NewToggleCustomItemHandler(stores.Custom, bus, log),
		SubmitProof:  command.NewSubmitTaskProofHandler(stores.Learners, stores.Catalog, stores.Submissions, bus, log),
		Review:       command.NewReviewSubmissionHandler(stores.Submissions, stores.Catalog, bus, log),
		AdjustXP:     command.NewAdjustXPHandler(xpLedger, log),
		GetProgress:  query.NewGetProgressHandler(stores.Learners, stores.Catalog, stores.Completions, stores.Submissions),
		GetCheckin:   query.NewGetCheckinHandler(stores.Checkins),
		Leaderboard:  query.NewGetLeaderboardHandler(stores.Learners, lb.Cache, lb.Breaker, log),
		TeamMembers:  query.NewGetTeamMembersHandler(stores.Learners),
		XPHistory:    query.NewGetXPHistoryHandler(stores.Learners, stores.Ledger),
		Activities:   query.NewGetActivitiesHandler(stores.Learners, stores.Activities),
		Health:       health,
		Logger:       log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()
	log.Info("progress ledger API is running",
		logger.String("address", httpCfg.Address()),
		logger.String("store", stores.Backend),
		logger.Bool("leaderboard_cache", lb.Enabled()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	}

	shutdownCtx, shutdownCancel := bootstrap.ShutdownContext(cfg)
	defer shutdownCancel()

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}
	bus.Drain()
	log.Info("shutdown completed successfully")
	return nil
}
