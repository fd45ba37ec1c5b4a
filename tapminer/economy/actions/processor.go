package actions

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/economy/tasks"
)

// Rand is the randomness used for tap boosters. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// TapBooster starts a timed tap boost. The scheduler implements it.
type TapBooster interface {
	ActivateTapBoost() bool
}

// Processor validates player actions and applies them atomically.
// A rejected action returns false and leaves the state untouched.
type Processor struct {
	econ    *state.Economy
	rules   state.Rules
	clock   clock.Clock
	rng     Rand
	booster TapBooster
	seq     atomic.Uint64
}

type Option func(*Processor)

func WithRand(r Rand) Option {
	return func(p *Processor) { p.rng = r }
}

func WithTapBooster(b TapBooster) Option {
	return func(p *Processor) { p.booster = b }
}

func NewProcessor(econ *state.Economy, c clock.Clock, opts ...Option) *Processor {
	p := &Processor{
		econ:  econ,
		rules: econ.Rules(),
		clock: c,
		rng:   globalRand{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tap spends energy for points at screen position x, y.
func (p *Processor) Tap(x, y float64) bool {
	now := p.clock.Now()
	return p.econ.Update(state.CauseTap, func(pe *state.PlayerEconomy, c *state.Change) bool {
		if pe.Energy <= 0 {
			return false
		}

		points := float64(1 + p.rollBooster())
		if pe.TapBoostActive {
			points *= p.rules.TapBoostFactor
		}
		points *= pe.Multiplier

		pe.Score += points
		pe.SpendEnergy(p.rules.TapEnergyCost)

		c.Tap = &state.TapEvent{
			ID:     p.nextID(now),
			X:      x,
			Y:      y,
			Points: points,
			At:     now,
		}
		return true
	})
}

func (p *Processor) rollBooster() int {
	if p.rng.Float64() >= p.rules.BoosterChance {
		return 0
	}
	return 1 + p.rng.IntN(p.rules.BoosterMax)
}

// nextID builds a snowflake from the tap time and a per-session sequence in
// the increment bits, so taps within one millisecond stay distinct.
func (p *Processor) nextID(now time.Time) snowflake.ID {
	return snowflake.New(now) | snowflake.ID(p.seq.Add(1)&0xFFF)
}

// Claim moves the accrued income into score and balance and starts the
// claim cooldown.
func (p *Processor) Claim() bool {
	now := p.clock.Now()
	return p.econ.Update(state.CauseClaim, func(pe *state.PlayerEconomy, c *state.Change) bool {
		if pe.OnCooldown() {
			return false
		}

		amount := pe.ClaimableAmount
		pe.Credit(amount)
		pe.ClaimableAmount = 0
		pe.StartCooldown(now, p.rules.ClaimCooldown)

		c.Reward = amount
		return true
	})
}

// BuyUpgrade buys the next level of a track. Reaching the top level applies
// the track's permanent effect exactly once.
func (p *Processor) BuyUpgrade(t state.Track) bool {
	if !t.Valid() {
		return false
	}
	return p.econ.Update(state.CauseUpgrade, func(pe *state.PlayerEconomy, c *state.Change) bool {
		level := pe.Upgrades[t].Level
		if level >= p.rules.MaxTrackLevel {
			return false
		}
		if !pe.Debit(p.rules.UpgradeCost(level)) {
			return false
		}

		if pe.LevelUp(t, p.rules.MaxTrackLevel) {
			p.applyMaxEffect(pe, t)
			maxed := t
			c.Maxed = &maxed
		}
		return true
	})
}

func (p *Processor) applyMaxEffect(pe *state.PlayerEconomy, t state.Track) {
	switch t {
	case state.TrackMultiplier:
		pe.Multiplier *= p.rules.MultiplierFactor
	case state.TrackMiningRobot:
		pe.MiningRobotActive = true
	case state.TrackTapBoost:
		pe.TapBoostActive = true
		pe.TapBoostPermanent = true
	case state.TrackMaximizer:
		pe.MaxEnergy += p.rules.MaximizerEnergyBonus
	case state.TrackCharger:
		pe.ChargerActive = true
	}
}

// GrantTaskReward credits an externally validated reward. Non-positive
// amounts are rejected.
func (p *Processor) GrantTaskReward(amount float64) bool {
	if amount <= 0 {
		return false
	}
	return p.econ.Update(state.CauseTask, func(pe *state.PlayerEconomy, c *state.Change) bool {
		pe.Credit(amount)
		c.Reward = amount
		return true
	})
}

// ClaimTask completes a catalog task and credits its reward once.
func (p *Processor) ClaimTask(task tasks.Task) bool {
	ok := p.econ.Update(state.CauseTask, func(pe *state.PlayerEconomy, c *state.Change) bool {
		if pe.TaskCompleted(task.ID) || !task.Eligible(*pe) {
			return false
		}
		pe.CompleteTask(task.ID)
		pe.Credit(task.Reward)

		c.Reward = task.Reward
		c.Task = task.ID
		return true
	})

	if ok && task.ActivateBoost && p.booster != nil {
		p.booster.ActivateTapBoost()
	}
	return ok
}
