package scheduler

import (
	"testing"
	"time"

	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, pe state.PlayerEconomy) (*Scheduler, *state.Economy, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(epoch)
	econ := state.NewEconomy(state.DefaultRules(), pe)
	s := New(econ, c)
	s.Start()
	t.Cleanup(s.Stop)
	return s, econ, c
}

func TestRegeneration(t *testing.T) {
	tests := []struct {
		name    string
		energy  int
		charger bool
		advance time.Duration
		want    int
	}{
		{name: "One per tick", energy: 100, advance: time.Second, want: 110},
		{name: "Charger doubles", energy: 100, charger: true, advance: time.Second, want: 120},
		{name: "Clamps at max", energy: 6495, advance: time.Second, want: 6500},
		{name: "Full stays full", energy: 6500, advance: time.Second, want: 6500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := state.New(state.DefaultRules())
			pe.Energy = tt.energy
			pe.ChargerActive = tt.charger
			_, econ, c := newScheduler(t, pe)

			c.Advance(tt.advance)

			if got := econ.Snapshot().Energy; got != tt.want {
				t.Errorf("energy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccrual(t *testing.T) {
	_, econ, c := newScheduler(t, state.New(state.DefaultRules()))

	c.Advance(4 * time.Second)
	if got := econ.Snapshot().ClaimableAmount; got != 0 {
		t.Fatalf("claimable before first interval = %v, want 0", got)
	}
	c.Advance(11 * time.Second)
	if got := econ.Snapshot().ClaimableAmount; got != 150 {
		t.Errorf("claimable after 15s = %v, want 150", got)
	}
}

func TestMiningFollowsRobotFlag(t *testing.T) {
	s, econ, c := newScheduler(t, state.New(state.DefaultRules()))

	c.Advance(10 * time.Second)
	if got := econ.Snapshot().Score; got != 0 {
		t.Fatalf("score without robot = %v, want 0", got)
	}

	econ.Update(state.CauseUpgrade, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		pe.MiningRobotActive = true
		return true
	})
	// A second unrelated change must not arm a duplicate mining chain.
	econ.Update(state.CauseTap, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		pe.SpendEnergy(10)
		return true
	})
	if _, _, mining, _ := s.Running(); !mining {
		t.Fatal("mining loop not running after robot activation")
	}

	c.Advance(15 * time.Second)
	if got := econ.Snapshot().Score; got != 30 {
		t.Errorf("score after 15s of mining = %v, want 30", got)
	}
}

func TestCooldownCountdown(t *testing.T) {
	s, econ, c := newScheduler(t, state.New(state.DefaultRules()))

	econ.Update(state.CauseClaim, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		pe.StartCooldown(c.Now(), 5*time.Second)
		return true
	})

	c.Advance(2 * time.Second)
	snap := econ.Snapshot()
	if snap.RemainingTime != 3*time.Second {
		t.Errorf("remaining = %v, want 3s", snap.RemainingTime)
	}
	if snap.CanClaim {
		t.Error("claim allowed during cooldown")
	}

	c.Advance(3 * time.Second)
	snap = econ.Snapshot()
	if snap.OnCooldown() || snap.RemainingTime != 0 {
		t.Errorf("cooldown = %v remaining = %v, want cleared", snap.CooldownUntil, snap.RemainingTime)
	}
	if _, _, _, countdown := s.Running(); countdown {
		t.Error("countdown loop still running after cooldown cleared")
	}
}

func TestCountdownRunsForHydratedCooldown(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.CooldownUntil = epoch.Add(time.Minute)
	s, econ, c := newScheduler(t, pe)

	if _, _, _, countdown := s.Running(); !countdown {
		t.Fatal("countdown not armed for a cooldown present at start")
	}
	c.Advance(time.Minute)
	if snap := econ.Snapshot(); snap.OnCooldown() {
		t.Error("cooldown not cleared at deadline")
	}
}

func TestTapBoostExpiry(t *testing.T) {
	s, econ, c := newScheduler(t, state.New(state.DefaultRules()))

	s.ActivateTapBoost()
	c.Advance(20 * time.Second)
	s.ActivateTapBoost()
	c.Advance(20 * time.Second)

	if !econ.Snapshot().TapBoostActive {
		t.Fatal("re-activation did not cancel the first expiry")
	}

	c.Advance(10 * time.Second)
	if econ.Snapshot().TapBoostActive {
		t.Error("tap boost still active 30s after last activation")
	}
}

func TestPermanentTapBoostNeverExpires(t *testing.T) {
	s, econ, c := newScheduler(t, state.New(state.DefaultRules()))

	s.ActivateTapBoost()
	econ.Update(state.CauseUpgrade, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		pe.TapBoostActive = true
		pe.TapBoostPermanent = true
		return true
	})
	c.Advance(time.Minute)

	if !econ.Snapshot().TapBoostActive {
		t.Error("permanent tap boost expired")
	}
	if s.ActivateTapBoost() {
		t.Error("ActivateTapBoost() on a permanent boost reported a change")
	}
}

func TestStopCancelsEverything(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.Energy = 0
	pe.MiningRobotActive = true
	c := clock.NewManual(epoch)
	econ := state.NewEconomy(state.DefaultRules(), pe)
	s := New(econ, c)
	s.Start()
	s.ActivateTapBoost()

	s.Stop()
	s.Stop()
	c.Advance(time.Hour)

	snap := econ.Snapshot()
	if snap.Energy != 0 || snap.Score != 0 || snap.ClaimableAmount != 0 {
		t.Errorf("state changed after Stop: %+v", snap.PlayerEconomy)
	}
	if !snap.TapBoostActive {
		t.Error("tap boost expiry fired after Stop")
	}
	if c.Pending() != 0 {
		t.Errorf("pending timers after Stop = %d, want 0", c.Pending())
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.Energy = 0
	s, econ, c := newScheduler(t, pe)
	s.Start()

	c.Advance(time.Second)
	if got := econ.Snapshot().Energy; got != 10 {
		t.Errorf("energy = %v, want 10 (single regen chain)", got)
	}
}
