package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GameStatsID is the key of the single global stats row.
const GameStatsID = "main"

type GameStats struct {
	bun.BaseModel `bun:"table:game_stats,alias:gs"`

	ID                  string    `bun:"id,pk"`
	TotalPlayers        int64     `bun:"total_players,notnull,default:0"`
	ActivePlayers       int64     `bun:"active_players,notnull,default:0"`
	OverallRewardPoints float64   `bun:"overall_reward_points,notnull,default:0"`
	UpdatedAt           time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
