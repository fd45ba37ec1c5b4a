package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storges/tapminer/backend"
	"github.com/storges/tapminer/backend/handlers"
	mongostore "github.com/storges/tapminer/internal/gateways/mongo"
	"github.com/storges/tapminer/tapminer"
	"github.com/storges/tapminer/tapminer/archive"
	"github.com/storges/tapminer/tapminer/database"
	"github.com/storges/tapminer/tapminer/database/repositories"
	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/logger"
	"github.com/storges/tapminer/tapminer/notify"
	"github.com/storges/tapminer/tapminer/persistence"
	"github.com/storges/tapminer/tapminer/session"
)

var (
	version = "dev"
	commit  = "unknown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	path := flag.String("config", "config.toml", "path to config")
	initSchema := flag.Bool("init-schema", false, "Whether to create the PostgreSQL schema on startup")
	flag.Parse()

	cfg, err := tapminer.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.AddSource)

	logger.LogSystem("Starting Tapminer",
		slog.String("version", version),
		slog.String("commit", commit),
		slog.String("store", cfg.Store.Backend))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	storeStart := time.Now()
	store, pinger, closeStore, err := openStore(ctx, cfg, *initSchema)
	if err != nil {
		cancel()
		slog.Error("Profile store connection failed",
			slog.String("type", "db"),
			slog.Any("error", err),
			slog.Duration("took", time.Since(storeStart)))
		os.Exit(-1)
	}
	slog.Info("Profile store connected",
		slog.String("type", "db"),
		slog.String("status", cfg.Store.Backend),
		slog.Duration("took", time.Since(storeStart)))

	rules := cfg.Rules()
	outbox := persistence.NewOutbox(cfg.OutboxConfig())
	bridge := persistence.NewBridge(store, persistence.NewLRUCache(cfg.Cache.Size), outbox, rules, clock.Real(),
		persistence.WithHydrateTimeout(cfg.Persistence.HydrateTimeout.Duration))

	var (
		opts      []session.Option
		announcer *notify.Announcer
	)
	if cfg.Discord.Enabled() {
		if announcer, err = notify.New(cfg.Discord); err != nil {
			slog.Error("Invalid Discord configuration", slog.Any("error", err))
			os.Exit(-1)
		}
		opts = append(opts, session.WithAnnouncer(announcer))
		slog.Info("Discord announcements enabled", slog.String("type", "sys"))
	}
	if cfg.Spaces.Enabled() {
		archiver, err := archive.New(ctx, cfg.Spaces)
		if err != nil {
			slog.Error("Invalid Spaces configuration", slog.Any("error", err))
			os.Exit(-1)
		}
		opts = append(opts, session.WithArchiver(archiver))
		slog.Info("Snapshot archive enabled",
			slog.String("type", "sys"),
			slog.String("bucket", cfg.Spaces.Bucket))
	}
	cancel()

	manager := session.NewManager(cfg.SessionConfig(), rules, bridge, opts...)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	manager.StartCleanupRoutine(runCtx)

	app := backend.NewApp(runCtx, backend.Config{
		AllowOrigins: cfg.Web.AllowOrigins,
		RateLimit:    cfg.Web.RateLimit,
		RateBurst:    cfg.Web.RateBurst,
		ReadTimeout:  cfg.Web.ReadTimeout.Duration,
	}, &handlers.WebApp{
		Sessions:  manager,
		Bridge:    bridge,
		Store:     pinger,
		StoreName: cfg.Store.Backend,
		Version:   version,
		Commit:    commit,
	})

	go func() {
		slog.Info("Starting HTTP server",
			slog.String("type", "sys"),
			slog.String("address", cfg.Web.Address))
		if err := app.Listen(cfg.Web.Address); err != nil {
			slog.Error("HTTP server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-runCtx.Done()
	logger.LogSystem("Shutting down Tapminer...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", slog.Any("error", err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		slog.Error("Session shutdown incomplete", slog.Any("error", err))
	}
	if err := outbox.Close(shutdownCtx); err != nil {
		slog.Error("Outbox did not drain", slog.Any("error", err))
	}
	stats := outbox.Stats()
	slog.Info("Outbox drained",
		slog.String("type", "db"),
		slog.Int64("written", stats.Written),
		slog.Int64("failed", stats.Failed),
		slog.Int64("dropped", stats.Dropped))

	if announcer != nil {
		announcer.Close()
	}
	closeStore()

	logger.LogSystem("Tapminer shutdown complete")
}

func openStore(ctx context.Context, cfg *tapminer.Config, initSchema bool) (persistence.Store, handlers.Pinger, func(), error) {
	switch cfg.Store.Backend {
	case tapminer.StoreMongo:
		store, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, nil, nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		closeFn := func() {
			if err := store.Close(context.Background()); err != nil {
				slog.Error("Failed to disconnect MongoDB", slog.Any("error", err))
			}
		}
		return store, store, closeFn, nil

	default:
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		if initSchema {
			if err := db.InitializeSchema(ctx); err != nil {
				db.Close()
				return nil, nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
			}
		}
		return repositories.NewStore(db.BunDB()), db, db.Close, nil
	}
}
