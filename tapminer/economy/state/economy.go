package state

import (
	"slices"
	"time"
)

// ReferralSummary describes a player brought in by this player.
type ReferralSummary struct {
	PlayerID string    `json:"player_id" bson:"player_id"`
	Name     string    `json:"name" bson:"name"`
	JoinedAt time.Time `json:"joined_at" bson:"joined_at"`
}

// PlayerEconomy is the complete economic state of one player.
type PlayerEconomy struct {
	Score           float64 `json:"score"`
	Balance         float64 `json:"balance"`
	Energy          int     `json:"energy"`
	MaxEnergy       int     `json:"max_energy"`
	IncomeRate      float64 `json:"income_rate"`
	ClaimableAmount float64 `json:"claimable_amount"`

	// CooldownUntil is the absolute claim deadline, zero when no cooldown runs.
	CooldownUntil time.Time     `json:"cooldown_until"`
	RemainingTime time.Duration `json:"remaining_time"`

	Multiplier        float64 `json:"multiplier"`
	MiningRobotActive bool    `json:"mining_robot_active"`
	TapBoostActive    bool    `json:"tap_boost_active"`
	TapBoostPermanent bool    `json:"tap_boost_permanent"`
	ChargerActive     bool    `json:"charger_active"`

	Upgrades [TrackCount]UpgradeTrack `json:"upgrades"`

	ReferralCount  int               `json:"referral_count"`
	Referrals      []ReferralSummary `json:"referrals"`
	CompletedTasks []string          `json:"completed_tasks"`
}

// New returns the record of a player seen for the first time.
func New(rules Rules) PlayerEconomy {
	pe := PlayerEconomy{
		Energy:     rules.InitialEnergy,
		MaxEnergy:  rules.MaxEnergy,
		IncomeRate: rules.InitialIncomeRate,
		Multiplier: 1,
	}
	for i := range pe.Upgrades {
		pe.Upgrades[i] = UpgradeTrack{Level: MinTrackLevel}
	}
	return pe
}

// Clone returns a deep copy that shares no slices with pe.
func (pe PlayerEconomy) Clone() PlayerEconomy {
	pe.Referrals = slices.Clone(pe.Referrals)
	pe.CompletedTasks = slices.Clone(pe.CompletedTasks)
	return pe
}

// AddEnergy adds n energy, never exceeding MaxEnergy. It reports whether energy changed.
func (pe *PlayerEconomy) AddEnergy(n int) bool {
	if n <= 0 || pe.Energy >= pe.MaxEnergy {
		return false
	}
	pe.Energy = min(pe.Energy+n, pe.MaxEnergy)
	return true
}

// SpendEnergy removes n energy, clamping at zero.
func (pe *PlayerEconomy) SpendEnergy(n int) {
	pe.Energy = max(pe.Energy-n, 0)
}

// Credit adds a reward to both the spendable score and the account balance.
func (pe *PlayerEconomy) Credit(amount float64) {
	pe.Score += amount
	pe.Balance += amount
}

// Debit removes amount from the score when it is affordable.
func (pe *PlayerEconomy) Debit(amount float64) bool {
	if amount < 0 || pe.Score < amount {
		return false
	}
	pe.Score -= amount
	return true
}

func (pe *PlayerEconomy) OnCooldown() bool {
	return !pe.CooldownUntil.IsZero()
}

func (pe *PlayerEconomy) StartCooldown(now time.Time, period time.Duration) {
	pe.CooldownUntil = now.Add(period)
	pe.RemainingTime = period
}

func (pe *PlayerEconomy) ClearCooldown() {
	pe.CooldownUntil = time.Time{}
	pe.RemainingTime = 0
}

// LevelUp raises a track by one level. It reports whether the track just
// reached maxLevel, which happens at most once per track.
func (pe *PlayerEconomy) LevelUp(t Track, maxLevel int) (maxed bool) {
	u := &pe.Upgrades[t]
	if u.Level >= maxLevel {
		return false
	}
	u.Level++
	if u.Level == maxLevel {
		u.Active = true
		return true
	}
	return false
}

func (pe *PlayerEconomy) TaskCompleted(id string) bool {
	return slices.Contains(pe.CompletedTasks, id)
}

func (pe *PlayerEconomy) CompleteTask(id string) {
	if !pe.TaskCompleted(id) {
		pe.CompletedTasks = append(pe.CompletedTasks, id)
	}
}

func (pe *PlayerEconomy) EnergyFraction() float64 {
	if pe.MaxEnergy <= 0 {
		return 0
	}
	return float64(pe.Energy) / float64(pe.MaxEnergy)
}

// Normalize repairs a record loaded from a store so that every range rule
// holds again: bounded energy, valid levels, no expired cooldown. A timed tap
// boost is dropped since its expiry died with the session that armed it.
func (pe *PlayerEconomy) Normalize(rules Rules, now time.Time) {
	if pe.MaxEnergy <= 0 {
		pe.MaxEnergy = rules.MaxEnergy
	}
	pe.Energy = min(max(pe.Energy, 0), pe.MaxEnergy)
	if pe.Multiplier <= 0 {
		pe.Multiplier = 1
	}
	pe.Score = max(pe.Score, 0)
	pe.Balance = max(pe.Balance, 0)
	pe.IncomeRate = max(pe.IncomeRate, 0)
	pe.ClaimableAmount = max(pe.ClaimableAmount, 0)
	pe.ReferralCount = max(pe.ReferralCount, 0)
	pe.TapBoostActive = pe.TapBoostPermanent
	for i := range pe.Upgrades {
		u := &pe.Upgrades[i]
		u.Level = min(max(u.Level, MinTrackLevel), rules.MaxTrackLevel)
	}
	if pe.OnCooldown() {
		if remaining := pe.CooldownUntil.Sub(now); remaining > 0 {
			pe.RemainingTime = remaining
		} else {
			pe.ClearCooldown()
		}
	} else {
		pe.RemainingTime = 0
	}
}
