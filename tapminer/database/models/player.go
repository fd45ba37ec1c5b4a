package models

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/storges/tapminer/tapminer/economy/state"
)

type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	PlayerID        string    `bun:"player_id,pk"`
	Score           float64   `bun:"score,notnull,default:0"`
	Balance         float64   `bun:"balance,notnull,default:0"`
	Energy          int       `bun:"energy,notnull,default:0"`
	MaxEnergy       int       `bun:"max_energy,notnull,default:0"`
	IncomeRate      float64   `bun:"income_rate,notnull,default:0"`
	ClaimableAmount float64   `bun:"claimable_amount,notnull,default:0"`
	CooldownUntil   time.Time `bun:"cooldown_until,nullzero"`
	Multiplier      float64   `bun:"multiplier,notnull,default:1"`

	// Effect flags
	MiningRobotActive bool `bun:"mining_robot_active,notnull,default:false"`
	TapBoostActive    bool `bun:"tap_boost_active,notnull,default:false"`
	TapBoostPermanent bool `bun:"tap_boost_permanent,notnull,default:false"`
	ChargerActive     bool `bun:"charger_active,notnull,default:false"`

	// Stored as JSONB
	Upgrades       map[string]state.UpgradeTrack `bun:"upgrades,type:jsonb"`
	Referrals      []state.ReferralSummary       `bun:"referrals,type:jsonb"`
	CompletedTasks []string                      `bun:"completed_tasks,type:jsonb"`

	ReferralCount int `bun:"referral_count,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Economy converts the row into a live record.
func (p *Player) Economy() state.PlayerEconomy {
	pe := state.PlayerEconomy{
		Score:             p.Score,
		Balance:           p.Balance,
		Energy:            p.Energy,
		MaxEnergy:         p.MaxEnergy,
		IncomeRate:        p.IncomeRate,
		ClaimableAmount:   p.ClaimableAmount,
		CooldownUntil:     p.CooldownUntil,
		Multiplier:        p.Multiplier,
		MiningRobotActive: p.MiningRobotActive,
		TapBoostActive:    p.TapBoostPermanent,
		TapBoostPermanent: p.TapBoostPermanent,
		ChargerActive:     p.ChargerActive,
		ReferralCount:     p.ReferralCount,
		Referrals:         p.Referrals,
		CompletedTasks:    p.CompletedTasks,
	}
	for i := range pe.Upgrades {
		pe.Upgrades[i] = state.UpgradeTrack{Level: state.MinTrackLevel}
	}
	for name, u := range p.Upgrades {
		if t, err := state.ParseTrack(name); err == nil && t.String() == name {
			pe.Upgrades[t] = u
		}
	}
	return pe
}

// PlayerFromEconomy builds a row holding pe.
func PlayerFromEconomy(playerID string, pe state.PlayerEconomy) *Player {
	p := &Player{
		PlayerID:          playerID,
		Score:             pe.Score,
		Balance:           pe.Balance,
		Energy:            pe.Energy,
		MaxEnergy:         pe.MaxEnergy,
		IncomeRate:        pe.IncomeRate,
		ClaimableAmount:   pe.ClaimableAmount,
		CooldownUntil:     pe.CooldownUntil,
		Multiplier:        pe.Multiplier,
		MiningRobotActive: pe.MiningRobotActive,
		TapBoostActive:    pe.TapBoostActive,
		TapBoostPermanent: pe.TapBoostPermanent,
		ChargerActive:     pe.ChargerActive,
		Upgrades:          make(map[string]state.UpgradeTrack, state.TrackCount),
		Referrals:         pe.Referrals,
		CompletedTasks:    pe.CompletedTasks,
		ReferralCount:     pe.ReferralCount,
	}
	for _, t := range state.AllTracks() {
		p.Upgrades[t.String()] = pe.Upgrades[t]
	}
	return p
}
