package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/screwyprof/stakecart/migrator"
	"github.com/screwyprof/stakecart/migrator/config"
	"github.com/screwyprof/stakecart/pkg/logger"
	"github.com/screwyprof/stakecart/pkg/pgxdb"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	cfg := config.New()

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	log.Info("Starting database migrator service",
		slog.String("migrationsDir", cfg.MigrationsDir),
		slog.String("version", version),
		slog.String("date", date),
	)

	// Create a context that cancels on SIGINT/SIGTERM _or_ when the timeout elapses
	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(baseCtx, cfg.OperationTimeout)
	defer cancel()

	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	log.Info("Applying database migrations")
	if err := migrator.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
		log.Error("Failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("Database migrations applied successfully")

	if cfg.DemoAccount != "" && cfg.DemoSnapshots > 0 {
		log.Info("Seeding demo journal",
			slog.String("account", cfg.DemoAccount),
			slog.Int("snapshots", cfg.DemoSnapshots),
		)
		if err := migrator.SeedDemoJournal(ctx, db, cfg.DemoAccount, cfg.DemoSnapshots); err != nil {
			log.Error("Failed to seed demo journal", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("Demo journal seeded successfully")
	}

	log.Info("Database migrator completed successfully")
}
