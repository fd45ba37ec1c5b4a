package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/storges/tapminer/tapminer/database/models"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/persistence"
)

const (
	defaultBatchSize = 1000
	verifyPageSize   = 5000
)

// Source streams every profile of the old store.
type Source interface {
	Each(ctx context.Context, fn func(p *persistence.Profile) error) error
}

// Destination receives player rows in batches.
type Destination interface {
	Upsert(ctx context.Context, players ...*models.Player) error
	GetPlayers(ctx context.Context, afterID string, limit int) ([]*models.Player, error)
}

type MigrationStats struct {
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Processed  int       `json:"processed"`
	Successful int       `json:"successful"`
	Skipped    int       `json:"skipped"`
	Batches    int       `json:"batches"`
}

// Migrator copies player profiles from MongoDB into PostgreSQL. Rows are
// upserted, so a migration can be rerun over a partially filled table.
type Migrator struct {
	source       Source
	dest         Destination
	rules        state.Rules
	batchSize    int
	sleepBetween time.Duration
	dryRun       bool
	stats        MigrationStats
}

func NewMigrator(source Source, dest Destination, rules state.Rules) *Migrator {
	return &Migrator{
		source:    source,
		dest:      dest,
		rules:     rules,
		batchSize: defaultBatchSize,
	}
}

// SetBatchSize overrides the default batch size for inserts (useful for poolers/timeouts)
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetSleepBetween sets an optional pause between batch inserts
func (m *Migrator) SetSleepBetween(d time.Duration) {
	if d > 0 {
		m.sleepBetween = d
	}
}

func (m *Migrator) SetDryRun(v bool) { m.dryRun = v }

func (m *Migrator) Stats() MigrationStats { return m.stats }

func (m *Migrator) MigratePlayers(ctx context.Context) error {
	logProgress("Starting player migration")
	m.stats = MigrationStats{StartTime: time.Now()}

	batch := make([]*models.Player, 0, m.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !m.dryRun {
			if err := m.dest.Upsert(ctx, batch...); err != nil {
				return fmt.Errorf("failed to write batch %d: %w", m.stats.Batches+1, err)
			}
		}
		m.stats.Batches++
		m.stats.Successful += len(batch)
		logProgress(fmt.Sprintf("Progress: migrated %d players", m.stats.Successful))
		batch = batch[:0]

		if m.sleepBetween > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.sleepBetween):
			}
		}
		return nil
	}

	err := m.source.Each(ctx, func(p *persistence.Profile) error {
		m.stats.Processed++
		if p.PlayerID == "" {
			m.stats.Skipped++
			return nil
		}

		pe := p.Economy
		pe.Normalize(m.rules, time.Now())

		player := models.PlayerFromEconomy(p.PlayerID, pe)
		player.CreatedAt = p.CreatedAt
		batch = append(batch, player)

		if len(batch) >= m.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migration aborted after %d players: %w", m.stats.Processed, err)
	}
	if err := flush(); err != nil {
		return err
	}

	m.stats.EndTime = time.Now()
	m.logFinalStats()
	return nil
}

// Verify counts the rows now in the destination.
func (m *Migrator) Verify(ctx context.Context) (int, error) {
	var (
		count int
		after string
	)
	for {
		players, err := m.dest.GetPlayers(ctx, after, verifyPageSize)
		if err != nil {
			return count, fmt.Errorf("failed to page players: %w", err)
		}
		count += len(players)
		if len(players) < verifyPageSize {
			return count, nil
		}
		after = players[len(players)-1].PlayerID
	}
}

func (m *Migrator) logFinalStats() {
	slog.Info("Migration statistics",
		slog.String("type", "db"),
		slog.Int("processed", m.stats.Processed),
		slog.Int("successful", m.stats.Successful),
		slog.Int("skipped", m.stats.Skipped),
		slog.Int("batches", m.stats.Batches),
		slog.Bool("dry_run", m.dryRun),
		slog.Duration("took", m.stats.EndTime.Sub(m.stats.StartTime)))
}

func logProgress(message string) {
	slog.Info(message, slog.String("type", "db"))
}
