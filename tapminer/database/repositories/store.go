package repositories

import (
	"github.com/uptrace/bun"

	"github.com/storges/tapminer/tapminer/persistence"
)

// Store is the PostgreSQL backend of the persistence bridge.
type Store struct {
	PlayerRepository
	GameStatsRepository
}

var _ persistence.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{
		PlayerRepository:    NewPlayerRepository(db),
		GameStatsRepository: NewGameStatsRepository(db),
	}
}
