package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/storges/tapminer/backend/handlers"
	"github.com/storges/tapminer/backend/middleware"
	"github.com/storges/tapminer/backend/utils"
)

type Config struct {
	AllowOrigins string
	RateLimit    float64
	RateBurst    int
	ReadTimeout  time.Duration
}

// NewApp builds the fiber app serving the game API. Background work started
// by its middleware stops when ctx is done.
func NewApp(ctx context.Context, cfg Config, webApp *handlers.WebApp) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Tapminer API",
		ServerHeader:          "Tapminer",
		ErrorHandler:          middleware.CustomErrorHandler,
		ReadTimeout:           cfg.ReadTimeout,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(middleware.LoggingMiddleware())

	SetupRoutes(ctx, app, cfg, webApp)
	return app
}

func SetupRoutes(ctx context.Context, app *fiber.App, cfg Config, webApp *handlers.WebApp) {
	app.Get("/health", handlers.HealthCheck(webApp))

	api := app.Group("/api")
	if cfg.RateLimit > 0 {
		api.Use(middleware.RateLimit(ctx, cfg.RateLimit, max(cfg.RateBurst, 1)))
	}

	players := api.Group("/players/:id")
	players.Post("/session", handlers.OpenSession(webApp))
	players.Delete("/session", handlers.CloseSession(webApp))
	players.Get("", handlers.GetPlayer(webApp))
	players.Get("/events", handlers.PlayerEvents(webApp))
	players.Post("/tap", handlers.Tap(webApp))
	players.Post("/claim", handlers.Claim(webApp))
	players.Post("/upgrades/:track", handlers.BuyUpgrade(webApp))
	players.Get("/tasks", handlers.ListTasks(webApp))
	players.Post("/tasks/:task/claim", handlers.ClaimTask(webApp))
	players.Post("/referrals", handlers.RecordReferral(webApp))

	api.Get("/leaderboard", handlers.Leaderboard(webApp))
	api.Get("/stats", handlers.Stats(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return utils.SendNotFound(c, "Route not found")
	})
}
