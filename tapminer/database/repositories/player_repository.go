package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/uptrace/bun"

	"github.com/storges/tapminer/tapminer/database/models"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/persistence"
)

type PlayerRepository interface {
	persistence.ProfileStore
	persistence.ReferralStore
	persistence.LeaderboardStore
	GetPlayers(ctx context.Context, afterID string, limit int) ([]*models.Player, error)
	Upsert(ctx context.Context, players ...*models.Player) error
}

type playerRepository struct {
	db *bun.DB
}

func NewPlayerRepository(db *bun.DB) PlayerRepository {
	return &playerRepository{db: db}
}

// profileColumns are every column a full Set replaces.
var profileColumns = []string{
	persistence.FieldScore,
	persistence.FieldBalance,
	persistence.FieldEnergy,
	persistence.FieldMaxEnergy,
	persistence.FieldIncomeRate,
	persistence.FieldClaimableAmount,
	persistence.FieldCooldownUntil,
	persistence.FieldMultiplier,
	persistence.FieldMiningRobotActive,
	persistence.FieldTapBoostActive,
	persistence.FieldTapBoostPermanent,
	persistence.FieldChargerActive,
	persistence.FieldUpgrades,
	persistence.FieldReferralCount,
	persistence.FieldCompletedTasks,
}

func (r *playerRepository) Get(ctx context.Context, playerID string) (*persistence.Profile, error) {
	player := new(models.Player)
	err := r.db.NewSelect().
		Model(player).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrProfileNotFound
		}
		slog.Error("Database error when getting player",
			slog.String("type", "db"),
			slog.String("operation", "Get"),
			slog.String("player_id", playerID),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to get player %s: %w", playerID, err)
	}

	return &persistence.Profile{
		PlayerID:  player.PlayerID,
		Economy:   player.Economy(),
		CreatedAt: player.CreatedAt,
		UpdatedAt: player.UpdatedAt,
	}, nil
}

// Set upserts the player row. With merge only the provided columns of an
// existing row are touched, otherwise every profile column is replaced.
func (r *playerRepository) Set(ctx context.Context, playerID string, fields persistence.Fields, merge bool) error {
	pe := state.New(state.DefaultRules())
	if err := persistence.ApplyFields(&pe, fields); err != nil {
		return err
	}

	now := time.Now()
	player := models.PlayerFromEconomy(playerID, pe)
	player.CreatedAt = now
	player.UpdatedAt = now

	columns := profileColumns
	if merge {
		columns = make([]string, 0, len(fields))
		for k := range fields {
			columns = append(columns, k)
		}
		slices.Sort(columns)
	}

	q := r.db.NewInsert().
		Model(player).
		On("CONFLICT (player_id) DO UPDATE")
	for _, col := range columns {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	q = q.Set("updated_at = EXCLUDED.updated_at")

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set player %s: %w", playerID, err)
	}
	return nil
}

func (r *playerRepository) Increment(ctx context.Context, playerID, field string, delta float64) error {
	if !persistence.NumericFields[field] {
		return fmt.Errorf("%w: %s", persistence.ErrUnknownField, field)
	}

	res, err := r.db.NewUpdate().
		Model((*models.Player)(nil)).
		Set("? = ? + ?", bun.Ident(field), bun.Ident(field), delta).
		Set("updated_at = ?", time.Now()).
		Where("player_id = ?", playerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment %s of %s: %w", field, playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrProfileNotFound
	}
	return nil
}

func (r *playerRepository) AppendReferral(ctx context.Context, referrerID string, referral state.ReferralSummary) error {
	entry, err := json.Marshal([]state.ReferralSummary{referral})
	if err != nil {
		return fmt.Errorf("failed to encode referral: %w", err)
	}

	res, err := r.db.NewUpdate().
		Model((*models.Player)(nil)).
		Set("referrals = COALESCE(referrals, '[]'::jsonb) || ?::jsonb", string(entry)).
		Set("referral_count = referral_count + 1").
		Set("updated_at = ?", time.Now()).
		Where("player_id = ?", referrerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append referral to %s: %w", referrerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrProfileNotFound
	}
	return nil
}

func (r *playerRepository) TopPlayers(ctx context.Context, limit int) ([]persistence.LeaderboardEntry, error) {
	var players []*models.Player
	err := r.db.NewSelect().
		Model(&players).
		Column("player_id", "balance").
		OrderExpr("balance DESC, player_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}

	entries := make([]persistence.LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = persistence.LeaderboardEntry{
			PlayerID: p.PlayerID,
			Balance:  p.Balance,
			Tier:     state.CurrentLevelTier(p.Balance).Name,
		}
	}
	return entries, nil
}

// GetPlayers pages through all players ordered by id.
func (r *playerRepository) GetPlayers(ctx context.Context, afterID string, limit int) ([]*models.Player, error) {
	var players []*models.Player
	err := r.db.NewSelect().
		Model(&players).
		Where("player_id > ?", afterID).
		Order("player_id").
		Limit(limit).
		Scan(ctx)
	return players, err
}

// Upsert writes complete rows, keeping the original creation times.
func (r *playerRepository) Upsert(ctx context.Context, players ...*models.Player) error {
	if len(players) == 0 {
		return nil
	}
	now := time.Now()
	for _, p := range players {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	}

	q := r.db.NewInsert().
		Model(&players).
		On("CONFLICT (player_id) DO UPDATE")
	for _, col := range profileColumns {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	_, err := q.
		Set("referrals = EXCLUDED.referrals").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
