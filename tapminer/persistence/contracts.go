//go:generate mockgen -destination=mock/store.go -package=mock github.com/storges/tapminer/tapminer/persistence ProfileStore,Store

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/storges/tapminer/tapminer/economy/state"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUnknownField    = errors.New("unknown profile field")
)

// Field names shared by every store and by the local cache keys.
const (
	FieldScore             = "score"
	FieldBalance           = "balance"
	FieldEnergy            = "energy"
	FieldMaxEnergy         = "max_energy"
	FieldIncomeRate        = "income_rate"
	FieldClaimableAmount   = "claimable_amount"
	FieldCooldownUntil     = "cooldown_until"
	FieldMultiplier        = "multiplier"
	FieldMiningRobotActive = "mining_robot_active"
	FieldTapBoostActive    = "tap_boost_active"
	FieldTapBoostPermanent = "tap_boost_permanent"
	FieldChargerActive     = "charger_active"
	FieldUpgrades          = "upgrades"
	FieldReferralCount     = "referral_count"
	FieldCompletedTasks    = "completed_tasks"
)

// Stat names of the global game counters.
const (
	StatTotalPlayers        = "total_players"
	StatActivePlayers       = "active_players"
	StatOverallRewardPoints = "overall_reward_points"
)

// Fields is a partial profile update keyed by field name. Values are
// float64, int, bool, time.Time, []string or Upgrades.
type Fields map[string]any

// Upgrades is the stored form of the five tracks, keyed by track name.
type Upgrades map[string]state.UpgradeTrack

// Profile is a player record as held by a remote store.
type Profile struct {
	PlayerID  string
	Economy   state.PlayerEconomy
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GameStats are the global counters kept next to the profiles.
type GameStats struct {
	TotalPlayers        int64   `json:"total_players"`
	ActivePlayers       int64   `json:"active_players"`
	OverallRewardPoints float64 `json:"overall_reward_points"`
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	PlayerID string  `json:"player_id"`
	Balance  float64 `json:"balance"`
	Tier     string  `json:"tier"`
}

// ProfileStore is the remote per-player document store.
type ProfileStore interface {
	Get(ctx context.Context, playerID string) (*Profile, error)
	// Set writes fields. With merge, fields absent from the map are left as they are.
	Set(ctx context.Context, playerID string, fields Fields, merge bool) error
	// Increment atomically adds delta to a numeric field.
	Increment(ctx context.Context, playerID, field string, delta float64) error
}

// ReferralStore records referrals on the referrer's profile.
type ReferralStore interface {
	AppendReferral(ctx context.Context, referrerID string, referral state.ReferralSummary) error
}

// StatsStore keeps the global game counters.
type StatsStore interface {
	IncrementStat(ctx context.Context, stat string, delta float64) error
	Stats(ctx context.Context) (*GameStats, error)
}

// LeaderboardStore ranks players by balance.
type LeaderboardStore interface {
	TopPlayers(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// Store is a backend providing every remote capability.
type Store interface {
	ProfileStore
	ReferralStore
	StatsStore
	LeaderboardStore
}

// LocalCache is the on-device key value mirror.
type LocalCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

func LocalKey(playerID, field string) string {
	return "player:" + playerID + ":" + field
}
