package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/storges/tapminer/backend/utils"
)

// LoggingMiddleware logs HTTP requests in a structured format
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		logLevel := slog.LevelDebug
		if statusCode >= 400 && statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if statusCode >= 500 {
			logLevel = slog.LevelError
		}

		attrs := []any{
			slog.String("type", "sys"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("code", statusCode),
			slog.Duration("took", time.Since(start)),
			slog.String("ip", utils.GetIPAddress(c)),
		}

		message := "HTTP request processed"
		if err != nil {
			message = "HTTP request failed"
			attrs = append(attrs, slog.Any("error", err))
		}

		slog.Log(c.UserContext(), logLevel, message, attrs...)
		return err
	}
}
