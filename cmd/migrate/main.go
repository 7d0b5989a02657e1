// Package main - утилита миграций схемы PostgreSQL.
//
//	migrate up      применить все новые миграции
//	migrate down    откатить последнюю применённую
//	migrate status  показать состояние
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tracks-academy/progress-ledger/config"
	"github.com/tracks-academy/progress-ledger/internal/bootstrap"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/postgres"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

const usage = "usage: migrate up|down|status"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(ctx, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	log, err := bootstrap.NewLogger(cfg, "migrate")
	if err != nil {
		return err
	}
	defer log.Sync()

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = 2
	pgCfg.MinConns = 0
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer conn.Close()

	m := postgres.NewMigrator(conn)
	switch cmd {
	case "up":
		if err := m.Migrate(ctx); err != nil {
			return err
		}
		log.Info("migrations applied")
	case "down":
		if err := m.Rollback(ctx); err != nil {
			return err
		}
		log.Info("last migration rolled back")
	case "status":
	default:
		return fmt.Errorf("unknown command %q; %s", cmd, usage)
	}

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	for _, mg := range status {
		fields := []logger.Field{
			logger.Int("version", mg.Version),
			logger.String("name", mg.Name),
			logger.Bool("applied", mg.IsApplied),
		}
		if mg.IsApplied {
			fields = append(fields, logger.Time("applied_at", mg.AppliedAt))
		}
		log.Info("migration", fields...)
	}
	return nil
}
