package tapminer

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/storges/tapminer/tapminer/economy/state"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigMatchesRules(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Rules() != state.DefaultRules() {
		t.Errorf("Rules() = %+v, want %+v", cfg.Rules(), state.DefaultRules())
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[store]
backend = "mongo"

[economy]
claim_cooldown = "7h"
regen_interval = "250ms"
max_energy = 8000

[sessions]
idle_timeout = "5m"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Log.Level != slog.LevelDebug {
		t.Errorf("Log.Level = %v, want debug", cfg.Log.Level)
	}
	if cfg.Store.Backend != StoreMongo {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}

	rules := cfg.Rules()
	if rules.ClaimCooldown != 7*time.Hour || rules.RegenInterval != 250*time.Millisecond {
		t.Errorf("durations = %v/%v", rules.ClaimCooldown, rules.RegenInterval)
	}
	if rules.MaxEnergy != 8000 || rules.InitialEnergy != state.DefaultInitialEnergy {
		t.Errorf("energy = %d/%d", rules.InitialEnergy, rules.MaxEnergy)
	}
	if got := cfg.SessionConfig().IdleTimeout; got != 5*time.Minute {
		t.Errorf("IdleTimeout = %v", got)
	}
	if got := cfg.OutboxConfig().MaxAttempts; got != 3 {
		t.Errorf("MaxAttempts = %d, want default 3", got)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "Bad duration", body: "[economy]\nclaim_cooldown = \"soon\"", want: "failed to decode"},
		{name: "Unknown backend", body: "[store]\nbackend = \"redis\"", want: "store.backend"},
		{name: "Energy above cap", body: "[economy]\ninitial_energy = 9000", want: "energy bounds"},
		{name: "Zero interval", body: "[economy]\nmining_interval = \"0s\"", want: "mining_interval"},
		{name: "Unknown key", body: "[economy]\nturbo = true", want: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
