package scheduler

import (
	"sync"
	"time"

	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
)

// Scheduler drives the time-based effects of one player's economy. Every
// effect runs on its own cancellable timer chain and enters the state only
// through Economy.Update.
//
// Lock order is Economy, then Scheduler, then loop. Nothing here calls into
// the Economy while holding s.mu.
type Scheduler struct {
	econ  *state.Economy
	rules state.Rules
	clock clock.Clock

	mu        sync.Mutex
	started   bool
	stopped   bool
	regen     *loop
	accrual   *loop
	mining    *loop
	countdown *loop

	boostTimer clock.Timer
	boostGen   uint64

	unsubscribe func()
}

func New(econ *state.Economy, c clock.Clock) *Scheduler {
	return &Scheduler{
		econ:  econ,
		rules: econ.Rules(),
		clock: c,
	}
}

// Start arms regeneration and accrual, and mining or the countdown when the
// current state calls for them. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	unsubscribe := s.econ.Subscribe(func(c state.Change) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.syncLocked(c.State.PlayerEconomy)
	})

	armed := false
	s.econ.View(func(pe state.PlayerEconomy) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.started || s.stopped {
			return
		}
		s.started = true
		s.unsubscribe = unsubscribe
		s.regen = s.every(s.rules.RegenInterval, s.regenerate)
		s.accrual = s.every(s.rules.AccrualInterval, s.accrue)
		s.syncLocked(pe)
		armed = true
	})
	if !armed {
		unsubscribe()
	}
}

// Stop cancels every pending timer. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, l := range []*loop{s.regen, s.accrual, s.mining, s.countdown} {
		l.stop()
	}
	s.regen, s.accrual, s.mining, s.countdown = nil, nil, nil, nil
	if s.boostTimer != nil {
		s.boostTimer.Stop()
		s.boostTimer = nil
	}
	s.boostGen++
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// ActivateTapBoost turns the tap boost on and schedules its expiry.
// Re-activating cancels the pending expiry instead of stacking a second one.
// A permanent boost is left alone and never expires.
func (s *Scheduler) ActivateTapBoost() bool {
	return s.econ.Update(state.CauseTapBoost, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.stopped || pe.TapBoostPermanent {
			return false
		}
		if s.boostTimer != nil {
			s.boostTimer.Stop()
		}
		s.boostGen++
		gen := s.boostGen
		s.boostTimer = s.clock.AfterFunc(s.rules.TapBoostDuration, func() {
			s.expireTapBoost(gen)
		})

		pe.TapBoostActive = true
		return true
	})
}

func (s *Scheduler) expireTapBoost(gen uint64) {
	s.econ.Update(state.CauseTapBoost, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		s.mu.Lock()
		current := gen == s.boostGen
		if current {
			s.boostTimer = nil
		}
		s.mu.Unlock()

		if !current || pe.TapBoostPermanent || !pe.TapBoostActive {
			return false
		}
		pe.TapBoostActive = false
		return true
	})
}

func (s *Scheduler) regenerate() {
	s.econ.Update(state.CauseRegen, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		rate := s.rules.RegenRate
		if pe.ChargerActive {
			rate = s.rules.ChargedRegenRate
		}
		return pe.AddEnergy(rate)
	})
}

func (s *Scheduler) accrue() {
	s.econ.Update(state.CauseAccrual, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		if pe.IncomeRate <= 0 {
			return false
		}
		pe.ClaimableAmount += pe.IncomeRate
		return true
	})
}

func (s *Scheduler) mine() {
	s.econ.Update(state.CauseMining, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		if !pe.MiningRobotActive {
			return false
		}
		pe.Score += s.rules.MiningYield
		return true
	})
}

// countDown recomputes the remaining cooldown from the absolute deadline,
// so a delayed tick never drifts.
func (s *Scheduler) countDown() {
	now := s.clock.Now()
	s.econ.Update(state.CauseCooldown, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		if !pe.OnCooldown() {
			return false
		}
		remaining := max(pe.CooldownUntil.Sub(now), 0)
		if remaining == 0 {
			pe.ClearCooldown()
			return true
		}
		if remaining == pe.RemainingTime {
			return false
		}
		pe.RemainingTime = remaining
		return true
	})
}

// syncLocked arms or tears down the conditional loops so that exactly one
// timer chain exists per active effect. s.mu must be held.
func (s *Scheduler) syncLocked(pe state.PlayerEconomy) {
	if !s.started || s.stopped {
		return
	}

	switch {
	case pe.MiningRobotActive && s.mining == nil:
		s.mining = s.every(s.rules.MiningInterval, s.mine)
	case !pe.MiningRobotActive && s.mining != nil:
		s.mining.stop()
		s.mining = nil
	}

	switch {
	case pe.OnCooldown() && s.countdown == nil:
		s.countdown = s.every(s.rules.CountdownInterval, s.countDown)
	case !pe.OnCooldown() && s.countdown != nil:
		s.countdown.stop()
		s.countdown = nil
	}
}

// Running reports which effects currently have a timer chain, for tests and
// diagnostics.
func (s *Scheduler) Running() (regen, accrual, mining, countdown bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regen != nil, s.accrual != nil, s.mining != nil, s.countdown != nil
}

// loop is a self re-arming timer chain.
type loop struct {
	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func (s *Scheduler) every(interval time.Duration, fn func()) *loop {
	l := &loop{}
	var tick func()
	tick = func() {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		fn()

		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.stopped {
			l.timer = s.clock.AfterFunc(interval, tick)
		}
	}

	l.mu.Lock()
	l.timer = s.clock.AfterFunc(interval, tick)
	l.mu.Unlock()
	return l
}

func (l *loop) stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	if l.timer != nil {
		l.timer.Stop()
	}
}
