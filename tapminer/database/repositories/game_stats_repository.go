package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/storges/tapminer/tapminer/database/models"
	"github.com/storges/tapminer/tapminer/logger"
	"github.com/storges/tapminer/tapminer/persistence"
)

type GameStatsRepository interface {
	persistence.StatsStore
}

type gameStatsRepository struct {
	db *bun.DB
}

func NewGameStatsRepository(db *bun.DB) GameStatsRepository {
	return &gameStatsRepository{db: db}
}

// IncrementStat adds delta to one counter of the global row, creating the
// row on first use.
func (r *gameStatsRepository) IncrementStat(ctx context.Context, stat string, delta float64) error {
	row := &models.GameStats{ID: models.GameStatsID, UpdatedAt: time.Now()}
	switch stat {
	case persistence.StatTotalPlayers:
		row.TotalPlayers = int64(delta)
	case persistence.StatActivePlayers:
		row.ActivePlayers = int64(delta)
	case persistence.StatOverallRewardPoints:
		row.OverallRewardPoints = delta
	default:
		return fmt.Errorf("%w: %s", persistence.ErrUnknownField, stat)
	}

	start := time.Now()
	q := r.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("? = ?TableAlias.? + EXCLUDED.?", bun.Ident(stat), bun.Ident(stat), bun.Ident(stat)).
		Set("updated_at = EXCLUDED.updated_at")
	_, err := q.Exec(ctx)
	logger.LogQuery(q.String(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", stat, err)
	}
	return nil
}

func (r *gameStatsRepository) Stats(ctx context.Context) (*persistence.GameStats, error) {
	row := new(models.GameStats)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", models.GameStatsID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &persistence.GameStats{}, nil
		}
		return nil, fmt.Errorf("failed to get game stats: %w", err)
	}

	return &persistence.GameStats{
		TotalPlayers:        row.TotalPlayers,
		ActivePlayers:       row.ActivePlayers,
		OverallRewardPoints: row.OverallRewardPoints,
	}, nil
}
