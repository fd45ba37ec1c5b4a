package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	mongostore "github.com/storges/tapminer/internal/gateways/mongo"
	"github.com/storges/tapminer/tapminer"
	"github.com/storges/tapminer/tapminer/database"
	"github.com/storges/tapminer/tapminer/database/repositories"
	"github.com/storges/tapminer/tapminer/logger"
	"github.com/storges/tapminer/tapminer/migration"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	batchSize := flag.Int("batch", 1000, "players per insert batch")
	sleep := flag.Duration("sleep", 0, "pause between batches")
	dryRun := flag.Bool("dry-run", false, "read and convert without writing")
	reset := flag.Bool("reset", false, "truncate the PostgreSQL tables before migrating")
	flag.Parse()

	cfg, err := tapminer.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.AddSource)

	ctx := context.Background()

	source, err := mongostore.Connect(ctx, cfg.Mongo)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer source.Close(context.Background())

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}
	if *reset && !*dryRun {
		if err := db.ResetTables(ctx); err != nil {
			slog.Error("Failed to reset tables", slog.Any("error", err))
			os.Exit(1)
		}
	}

	migrator := migration.NewMigrator(source, repositories.NewPlayerRepository(db.BunDB()), cfg.Rules())
	migrator.SetBatchSize(*batchSize)
	migrator.SetSleepBetween(*sleep)
	migrator.SetDryRun(*dryRun)

	start := time.Now()
	if err := migrator.MigratePlayers(ctx); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	count, err := migrator.Verify(ctx)
	if err != nil {
		slog.Error("Verification failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Migration completed successfully!",
		slog.String("type", "db"),
		slog.Int("players_in_postgres", count),
		slog.Duration("took", time.Since(start)))
}
