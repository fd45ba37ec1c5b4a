package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeAction LogType = "ACT"
	TypeDB     LogType = "DB"
	TypeSystem LogType = "SYS"
	TypeError  LogType = "ERR"
)

// disgo rest chatter that drowns out the game logs
var skippedMessages = []string{
	"new request",
	"new response",
	"locking rest bucket",
	"unlocking rest bucket",
	"cleaning up bucket",
	"cleaned up rate limit buckets",
	"rate limit response headers",
}

// internal attrs are rendered into the message instead of the trailer
var internalAttrs = map[string]bool{
	"type":      true,
	"name":      true,
	"player_id": true,
	"status":    true,
	"took":      true,
	"error":     true,
}

type CustomHandler struct {
	opts   *slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

type Options struct {
	Level     slog.Level
	AddSource bool
	Output    io.Writer
}

func NewHandler(o Options) *CustomHandler {
	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	return &CustomHandler{
		opts:   &slog.HandlerOptions{Level: o.Level, AddSource: o.AddSource},
		out:    out,
		mu:     &sync.Mutex{},
		attrs:  make([]slog.Attr, 0),
		groups: make([]string, 0),
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	return &CustomHandler{
		opts:   h.opts,
		out:    h.out,
		mu:     h.mu,
		attrs:  append(merged, attrs...),
		groups: h.groups,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	return &CustomHandler{
		opts:   h.opts,
		out:    h.out,
		mu:     h.mu,
		attrs:  h.attrs,
		groups: append(groups, name),
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor, levelText = colorGreen, "INFO"
	default:
		levelColor, levelText = colorPurple, "DEBUG"
	}

	fields := collect(h.attrs, &r)

	message := r.Message
	if r.Level >= slog.LevelError {
		if loc := errorLocation(&r, h.opts.AddSource); loc != "" {
			message = fmt.Sprintf("%s (%s)", message, loc)
		}
		if fields.err != "" {
			message = fmt.Sprintf("%s: %s", message, fields.err)
		}
	}
	if fields.name != "" && fields.playerID != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, fields.name, fields.playerID)
	} else if fields.playerID != "" {
		message = fmt.Sprintf("%s [player %s]", message, fields.playerID)
	}
	if fields.status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, fields.status)
	}
	if fields.took != "" {
		message = fmt.Sprintf("%s (took %s)", message, fields.took)
	}

	var trailer strings.Builder
	prefix := strings.Join(h.groups, ".")
	for _, attr := range fields.rest {
		key := attr.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&trailer, " %s=%v", key, attr.Value)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.out, "%s[Tapminer] [%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		r.Time.Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		fields.logType,
		message,
		trailer.String(),
		colorReset,
	)
	return err
}

type recordFields struct {
	logType  LogType
	name     string
	playerID string
	status   string
	took     string
	err      string
	rest     []slog.Attr
}

func collect(handlerAttrs []slog.Attr, r *slog.Record) recordFields {
	f := recordFields{logType: TypeSystem}
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case "type":
			f.logType = logTypeOf(a.Value.String())
		case "name":
			f.name = a.Value.String()
		case "player_id":
			f.playerID = a.Value.String()
		case "status":
			f.status = a.Value.String()
		case "took":
			f.took = a.Value.String()
		case "error":
			f.err = fmt.Sprintf("%v", a.Value)
		}
		if !internalAttrs[a.Key] {
			f.rest = append(f.rest, a)
		}
		return true
	}
	for _, a := range handlerAttrs {
		visit(a)
	}
	r.Attrs(visit)
	return f
}

func logTypeOf(v string) LogType {
	switch v {
	case "action":
		return TypeAction
	case "db":
		return TypeDB
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

func shouldSkipLog(r *slog.Record) bool {
	msg := strings.ToLower(r.Message)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func errorLocation(r *slog.Record, addSource bool) string {
	if !addSource || r.PC == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
