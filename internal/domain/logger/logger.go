package logger

import (
	"log/slog"
	"time"
)

// QueryLogger times one document store operation and logs its outcome.
type QueryLogger struct {
	Operation  string
	Collection string
	Filter     any
	StartTime  time.Time
}

func NewQueryLogger(operation, collection string, filter any) *QueryLogger {
	return &QueryLogger{
		Operation:  operation,
		Collection: collection,
		Filter:     filter,
		StartTime:  time.Now(),
	}
}

func (l *QueryLogger) Log(err error, affected int64) {
	duration := time.Since(l.StartTime)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", l.Operation),
			slog.String("collection", l.Collection),
			slog.Any("filter", l.Filter),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return
	}

	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("collection", l.Collection),
		slog.Any("filter", l.Filter),
		slog.Duration("took", duration),
		slog.Int64("affected", affected),
	)
}
