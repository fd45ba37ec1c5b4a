package tapminer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/storges/tapminer/internal/gateways/mongo"
	"github.com/storges/tapminer/tapminer/archive"
	"github.com/storges/tapminer/tapminer/database"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/notify"
	"github.com/storges/tapminer/tapminer/persistence"
	"github.com/storges/tapminer/tapminer/session"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// LoadConfig decodes the file at path over DefaultConfig, so a file only
// needs the keys it changes.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	Web         WebConfig         `toml:"web"`
	Store       StoreConfig       `toml:"store"`
	DB          database.DBConfig `toml:"db"`
	Mongo       mongo.Config      `toml:"mongo"`
	Cache       CacheConfig       `toml:"cache"`
	Economy     EconomyConfig     `toml:"economy"`
	Persistence PersistenceConfig `toml:"persistence"`
	Sessions    SessionsConfig    `toml:"sessions"`
	Discord     notify.Config     `toml:"discord"`
	Spaces      archive.Config    `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type WebConfig struct {
	Address      string   `toml:"address"`
	AllowOrigins string   `toml:"allow_origins"`
	RateLimit    float64  `toml:"rate_limit"`
	RateBurst    int      `toml:"rate_burst"`
	ReadTimeout  Duration `toml:"read_timeout"`
}

type StoreConfig struct {
	Backend string `toml:"backend"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

type EconomyConfig struct {
	InitialEnergy         int      `toml:"initial_energy"`
	MaxEnergy             int      `toml:"max_energy"`
	IncomeRate            float64  `toml:"income_rate"`
	TapEnergyCost         int      `toml:"tap_energy_cost"`
	BoosterChance         float64  `toml:"booster_chance"`
	BoosterMax            int      `toml:"booster_max"`
	TapBoostFactor        float64  `toml:"tap_boost_factor"`
	UpgradeCostMultiplier float64  `toml:"upgrade_cost_multiplier"`
	MaxTrackLevel         int      `toml:"max_track_level"`
	MultiplierFactor      float64  `toml:"multiplier_factor"`
	MaximizerEnergyBonus  int      `toml:"maximizer_energy_bonus"`
	RegenRate             int      `toml:"regen_rate"`
	ChargedRegenRate      int      `toml:"charged_regen_rate"`
	MiningYield           float64  `toml:"mining_yield"`
	RegenInterval         Duration `toml:"regen_interval"`
	AccrualInterval       Duration `toml:"accrual_interval"`
	MiningInterval        Duration `toml:"mining_interval"`
	CountdownInterval     Duration `toml:"countdown_interval"`
	TapBoostDuration      Duration `toml:"tap_boost_duration"`
	ClaimCooldown         Duration `toml:"claim_cooldown"`
}

type PersistenceConfig struct {
	Workers        int      `toml:"workers"`
	QueueSize      int      `toml:"queue_size"`
	MaxAttempts    int      `toml:"max_attempts"`
	RetryInterval  Duration `toml:"retry_interval"`
	WriteTimeout   Duration `toml:"write_timeout"`
	HydrateTimeout Duration `toml:"hydrate_timeout"`
}

type SessionsConfig struct {
	IdleTimeout        Duration `toml:"idle_timeout"`
	CheckpointInterval Duration `toml:"checkpoint_interval"`
	CleanupInterval    Duration `toml:"cleanup_interval"`
}

// Duration reads Go duration strings such as "50m" or "100ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func DefaultConfig() Config {
	rules := state.DefaultRules()
	return Config{
		Log: LogConfig{Level: slog.LevelInfo},
		Web: WebConfig{
			Address:      ":8080",
			AllowOrigins: "*",
			RateLimit:    20,
			RateBurst:    40,
			ReadTimeout:  Duration{10 * time.Second},
		},
		Store: StoreConfig{Backend: StorePostgres},
		DB: database.DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "tapminer",
			Database: "tapminer",
			PoolSize: 10,
		},
		Mongo: mongo.Config{
			URI:      "mongodb://localhost:27017",
			Database: "tapminer",
			Timeout:  5,
		},
		Cache: CacheConfig{Size: 50_000},
		Economy: EconomyConfig{
			InitialEnergy:         rules.InitialEnergy,
			MaxEnergy:             rules.MaxEnergy,
			IncomeRate:            rules.InitialIncomeRate,
			TapEnergyCost:         rules.TapEnergyCost,
			BoosterChance:         rules.BoosterChance,
			BoosterMax:            rules.BoosterMax,
			TapBoostFactor:        rules.TapBoostFactor,
			UpgradeCostMultiplier: rules.UpgradeCostMultiplier,
			MaxTrackLevel:         rules.MaxTrackLevel,
			MultiplierFactor:      rules.MultiplierFactor,
			MaximizerEnergyBonus:  rules.MaximizerEnergyBonus,
			RegenRate:             rules.RegenRate,
			ChargedRegenRate:      rules.ChargedRegenRate,
			MiningYield:           rules.MiningYield,
			RegenInterval:         Duration{rules.RegenInterval},
			AccrualInterval:       Duration{rules.AccrualInterval},
			MiningInterval:        Duration{rules.MiningInterval},
			CountdownInterval:     Duration{rules.CountdownInterval},
			TapBoostDuration:      Duration{rules.TapBoostDuration},
			ClaimCooldown:         Duration{rules.ClaimCooldown},
		},
		Persistence: PersistenceConfig{
			Workers:        4,
			QueueSize:      1024,
			MaxAttempts:    3,
			RetryInterval:  Duration{time.Second},
			WriteTimeout:   Duration{5 * time.Second},
			HydrateTimeout: Duration{3 * time.Second},
		},
		Sessions: SessionsConfig{
			IdleTimeout:        Duration{15 * time.Minute},
			CheckpointInterval: Duration{time.Minute},
			CleanupInterval:    Duration{30 * time.Second},
		},
		Spaces: archive.Config{Prefix: "snapshots"},
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Store.Backend != StorePostgres && c.Store.Backend != StoreMongo {
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", StorePostgres, StoreMongo, c.Store.Backend))
	}
	if c.Web.Address == "" {
		errs = append(errs, errors.New("web.address is required"))
	}

	e := c.Economy
	if e.InitialEnergy < 0 || e.MaxEnergy <= 0 || e.InitialEnergy > e.MaxEnergy {
		errs = append(errs, fmt.Errorf("economy energy bounds invalid: initial %d, max %d", e.InitialEnergy, e.MaxEnergy))
	}
	if e.TapEnergyCost <= 0 {
		errs = append(errs, errors.New("economy.tap_energy_cost must be positive"))
	}
	if e.BoosterChance < 0 || e.BoosterChance > 1 {
		errs = append(errs, errors.New("economy.booster_chance must be within [0, 1]"))
	}
	if e.BoosterMax <= 0 {
		errs = append(errs, errors.New("economy.booster_max must be positive"))
	}
	if e.MaxTrackLevel <= state.MinTrackLevel {
		errs = append(errs, fmt.Errorf("economy.max_track_level must exceed %d", state.MinTrackLevel))
	}
	for name, d := range map[string]Duration{
		"regen_interval":     e.RegenInterval,
		"accrual_interval":   e.AccrualInterval,
		"mining_interval":    e.MiningInterval,
		"countdown_interval": e.CountdownInterval,
		"tap_boost_duration": e.TapBoostDuration,
		"claim_cooldown":     e.ClaimCooldown,
	} {
		if d.Duration <= 0 {
			errs = append(errs, fmt.Errorf("economy.%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

func (c Config) Rules() state.Rules {
	e := c.Economy
	return state.Rules{
		InitialEnergy:         e.InitialEnergy,
		MaxEnergy:             e.MaxEnergy,
		InitialIncomeRate:     e.IncomeRate,
		TapEnergyCost:         e.TapEnergyCost,
		BoosterChance:         e.BoosterChance,
		BoosterMax:            e.BoosterMax,
		TapBoostFactor:        e.TapBoostFactor,
		UpgradeCostMultiplier: e.UpgradeCostMultiplier,
		MaxTrackLevel:         e.MaxTrackLevel,
		MultiplierFactor:      e.MultiplierFactor,
		MaximizerEnergyBonus:  e.MaximizerEnergyBonus,
		RegenRate:             e.RegenRate,
		ChargedRegenRate:      e.ChargedRegenRate,
		MiningYield:           e.MiningYield,
		RegenInterval:         e.RegenInterval.Duration,
		AccrualInterval:       e.AccrualInterval.Duration,
		MiningInterval:        e.MiningInterval.Duration,
		CountdownInterval:     e.CountdownInterval.Duration,
		TapBoostDuration:      e.TapBoostDuration.Duration,
		ClaimCooldown:         e.ClaimCooldown.Duration,
	}
}

func (c Config) OutboxConfig() persistence.OutboxConfig {
	p := c.Persistence
	return persistence.OutboxConfig{
		Workers:       p.Workers,
		QueueSize:     p.QueueSize,
		MaxAttempts:   p.MaxAttempts,
		RetryInterval: p.RetryInterval.Duration,
		WriteTimeout:  p.WriteTimeout.Duration,
	}
}

func (c Config) SessionConfig() session.Config {
	s := c.Sessions
	return session.Config{
		IdleTimeout:        s.IdleTimeout.Duration,
		CheckpointInterval: s.CheckpointInterval.Duration,
		CleanupInterval:    s.CleanupInterval.Duration,
	}
}
