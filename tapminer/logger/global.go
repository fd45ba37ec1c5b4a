package logger

import (
	"log/slog"
	"time"
)

// Setup installs the colored handler as the default logger.
func Setup(level slog.Level, addSource bool) {
	slog.SetDefault(slog.New(NewHandler(Options{Level: level, AddSource: addSource})))
}

// LogAction logs a player action
func LogAction(name, playerID string, applied bool, duration time.Duration) {
	status := "applied"
	if !applied {
		status = "rejected"
	}
	slog.Debug("Action processed",
		slog.String("type", "action"),
		slog.String("name", name),
		slog.String("player_id", playerID),
		slog.String("status", status),
		slog.Duration("took", duration),
	)
}

// LogQuery logs database operations
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
		slog.String("query", query),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Debug("Query executed", attrs...)
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
