package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandlerFormatting(t *testing.T) {
	tests := []struct {
		name    string
		log     func(l *slog.Logger)
		want    []string
		notWant []string
	}{
		{
			name: "Action with player and status",
			log: func(l *slog.Logger) {
				l.Info("Action processed",
					slog.String("type", "action"),
					slog.String("name", "tap"),
					slog.String("player_id", "p1"),
					slog.String("status", "applied"),
					slog.Duration("took", 2*time.Millisecond))
			},
			want:    []string{"[Tapminer]", "[ACT]", "[tap by p1]", "[Status: applied]", "(took 2ms)"},
			notWant: []string{"type="},
		},
		{
			name: "Error carries details",
			log: func(l *slog.Logger) {
				l.Error("Write failed", slog.String("type", "db"), slog.Any("error", errors.New("boom")))
			},
			want: []string{"ERROR", "[DB]", "Write failed: boom"},
		},
		{
			name: "Extra attributes trail the message",
			log: func(l *slog.Logger) {
				l.With(slog.Int("workers", 4)).WithGroup("outbox").Info("Started", slog.String("op", "set"))
			},
			want: []string{"[SYS]", "workers=4", "outbox.op=set"},
		},
		{
			name: "Debug below level is dropped",
			log: func(l *slog.Logger) {
				l.Debug("hidden")
			},
			notWant: []string{"hidden"},
		},
		{
			name: "disgo rest noise is skipped",
			log: func(l *slog.Logger) {
				l.Info("new request: POST /channels")
			},
			notWant: []string{"new request"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(NewHandler(Options{Level: slog.LevelInfo, Output: &buf})))
			out := buf.String()

			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output %q contains %q", out, w)
				}
			}
		})
	}
}
