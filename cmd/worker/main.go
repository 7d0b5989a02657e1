// Package main - точка входа фонового процесса (Worker) журнала прогресса.
//
// Worker отвечает за периодические задачи:
// - Пересборка кеша лидерборда в Redis из PostgreSQL
// - Ночная сверка отображаемых колонок прогресса
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tracks-academy/progress-ledger/config"
	"github.com/tracks-academy/progress-ledger/internal/application/query"
	"github.com/tracks-academy/progress-ledger/internal/bootstrap"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/scheduler"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/scheduler/jobs"
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

	log, err := bootstrap.NewLogger(cfg, "worker")
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting progress ledger worker",
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
	// 3. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{Logger: log, Location: cfg.App.Location})

	if lb.Enabled() {
		rebuild := jobs.NewRebuildLeaderboardJob(stores.Learners, lb.Cache, lb.Breaker, log, jobs.RebuildLeaderboardConfig{
			Timeout: cfg.Scheduler.JobTimeout,
		})
		if err := sched.Register(rebuild, scheduler.Every(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("register %s: %w", rebuild.Name(), err)
		}
	} else {
		log.Info("leaderboard cache disabled, rebuild job not registered")
	}

	if cfg.Features.IsEnabled(config.FeatureReconcileProgress) {
		computer := query.NewGetProgressHandler(stores.Learners, stores.Catalog, stores.Completions, stores.Submissions)
		reconcile := jobs.NewReconcileProgressJob(stores.Learners, computer, log, jobs.ReconcileProgressConfig{
			BatchSize:   cfg.Scheduler.ReconcileBatchSize,
			Concurrency: cfg.Scheduler.ReconcileConcurrency,
			Timeout:     cfg.Scheduler.JobTimeout,
		})
		daily, err := scheduler.Daily(cfg.Scheduler.ReconcileHour, cfg.Scheduler.ReconcileMinute, cfg.App.Location)
		if err != nil {
			return fmt.Errorf("reconcile schedule: %w", err)
		}
		if err := sched.Register(reconcile, daily); err != nil {
			return fmt.Errorf("register %s: %w", reconcile.Name(), err)
		}
	} else {
		log.Info("progress reconciliation disabled")
	}

	for _, j := range sched.ListJobs() {
		log.Info("scheduled job",
			logger.String("job", j.Name),
			logger.String("schedule", j.Schedule),
			logger.Time("next_run", j.NextRun),
		)
	}

	// Кеш после рестарта Redis пуст, поэтому прогреваем его сразу.
	if lb.Enabled() {
		if _, err := sched.RunNow(ctx, jobs.RebuildLeaderboardJobName); err != nil && !errors.Is(err, scheduler.ErrJobNotFound) {
			log.Warn("initial leaderboard rebuild failed", logger.Err(err))
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	log.Info("progress ledger worker is running", logger.String("store", stores.Backend))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	// Stop отменяет контекст задач и ждёт их завершения.
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", logger.Err(err))
		return err
	}
	for _, j := range sched.ListJobs() {
		log.Info("job summary",
			logger.String("job", j.Name),
			logger.Int64("runs", j.RunCount),
			logger.Int64("failures", j.FailCount),
			logger.Int64("skipped", j.SkipCount),
		)
	}
	log.Info("shutdown completed successfully")
	return nil
}
