package actions

import (
	"testing"
	"time"

	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/economy/tasks"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// fixedRand returns f for Float64 and n for IntN.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return r.n }

type countingBooster struct{ calls int }

func (b *countingBooster) ActivateTapBoost() bool {
	b.calls++
	return true
}

func newProcessor(pe state.PlayerEconomy, opts ...Option) (*Processor, *state.Economy) {
	econ := state.NewEconomy(state.DefaultRules(), pe)
	return NewProcessor(econ, clock.NewManual(epoch), opts...), econ
}

func TestTap(t *testing.T) {
	noBooster := fixedRand{f: 0.5}
	maxBooster := fixedRand{f: 0.05, n: 9}

	tests := []struct {
		name       string
		energy     int
		boost      bool
		multiplier float64
		rng        Rand
		wantOK     bool
		wantScore  float64
		wantEnergy int
	}{
		{name: "Plain tap", energy: 100, multiplier: 1, rng: noBooster, wantOK: true, wantScore: 1, wantEnergy: 90},
		{name: "Booster", energy: 100, multiplier: 1, rng: maxBooster, wantOK: true, wantScore: 11, wantEnergy: 90},
		{name: "Tap boost doubles", energy: 100, multiplier: 1, boost: true, rng: noBooster, wantOK: true, wantScore: 2, wantEnergy: 90},
		{name: "All factors", energy: 100, multiplier: 2, boost: true, rng: maxBooster, wantOK: true, wantScore: 44, wantEnergy: 90},
		{name: "Energy clamps at zero", energy: 4, multiplier: 1, rng: noBooster, wantOK: true, wantScore: 1, wantEnergy: 0},
		{name: "No energy", energy: 0, multiplier: 1, rng: noBooster, wantOK: false, wantScore: 0, wantEnergy: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := state.New(state.DefaultRules())
			pe.Energy = tt.energy
			pe.TapBoostActive = tt.boost
			pe.Multiplier = tt.multiplier
			p, econ := newProcessor(pe, WithRand(tt.rng))

			var tap *state.TapEvent
			econ.Subscribe(func(c state.Change) { tap = c.Tap })

			if got := p.Tap(12, 34); got != tt.wantOK {
				t.Fatalf("Tap() = %v, want %v", got, tt.wantOK)
			}
			snap := econ.Snapshot()
			if snap.Score != tt.wantScore || snap.Energy != tt.wantEnergy {
				t.Errorf("Tap() score/energy = %v/%v, want %v/%v", snap.Score, snap.Energy, tt.wantScore, tt.wantEnergy)
			}
			if tt.wantOK {
				if tap == nil || tap.X != 12 || tap.Y != 34 || tap.Points != tt.wantScore {
					t.Errorf("Tap() event = %+v", tap)
				}
			} else if tap != nil {
				t.Error("rejected tap emitted an event")
			}
		})
	}
}

func TestTapEventIDsAreDistinct(t *testing.T) {
	p, econ := newProcessor(state.New(state.DefaultRules()), WithRand(fixedRand{f: 0.9}))

	seen := map[uint64]bool{}
	econ.Subscribe(func(c state.Change) {
		if c.Tap != nil {
			seen[uint64(c.Tap.ID)] = true
		}
	})
	for i := 0; i < 20; i++ {
		p.Tap(0, 0)
	}
	if len(seen) != 20 {
		t.Errorf("distinct tap ids = %d, want 20", len(seen))
	}
}

func TestClaim(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.ClaimableAmount = 250
	pe.Score = 10
	p, econ := newProcessor(pe)

	if !p.Claim() {
		t.Fatal("Claim() rejected without cooldown")
	}
	snap := econ.Snapshot()
	if snap.Score != 260 || snap.Balance != 250 || snap.ClaimableAmount != 0 {
		t.Errorf("Claim() score/balance/claimable = %v/%v/%v", snap.Score, snap.Balance, snap.ClaimableAmount)
	}
	if !snap.CooldownUntil.Equal(epoch.Add(50*time.Minute)) || snap.RemainingTime != 50*time.Minute {
		t.Errorf("Claim() cooldown = %v remaining = %v", snap.CooldownUntil, snap.RemainingTime)
	}

	if p.Claim() {
		t.Error("second Claim() accepted during cooldown")
	}
	if econ.Snapshot().Score != 260 {
		t.Error("rejected claim changed score")
	}
}

func TestBuyUpgrade(t *testing.T) {
	tests := []struct {
		name      string
		track     state.Track
		level     int
		score     float64
		wantOK    bool
		wantLevel int
		wantScore float64
		check     func(t *testing.T, s state.Snapshot)
	}{
		{name: "Affordable", track: state.TrackCharger, level: 3, score: 300, wantOK: true, wantLevel: 4, wantScore: 0},
		{name: "Too expensive", track: state.TrackCharger, level: 3, score: 299, wantOK: false, wantLevel: 3, wantScore: 299},
		{name: "Already maxed", track: state.TrackCharger, level: 10, score: 1e6, wantOK: false, wantLevel: 10, wantScore: 1e6},
		{
			name: "Multiplier maxes", track: state.TrackMultiplier, level: 9, score: 900, wantOK: true, wantLevel: 10,
			check: func(t *testing.T, s state.Snapshot) {
				if s.Multiplier != 2 {
					t.Errorf("multiplier = %v, want 2", s.Multiplier)
				}
			},
		},
		{
			name: "Multiplier maxes from 1000", track: state.TrackMultiplier, level: 9, score: 1000, wantOK: true, wantLevel: 10,
			wantScore: 100,
			check: func(t *testing.T, s state.Snapshot) {
				if s.Multiplier != 2 {
					t.Errorf("multiplier = %v, want doubled to 2", s.Multiplier)
				}
			},
		},
		{
			name: "Mining robot maxes", track: state.TrackMiningRobot, level: 9, score: 900, wantOK: true, wantLevel: 10,
			check: func(t *testing.T, s state.Snapshot) {
				if !s.MiningRobotActive {
					t.Error("mining robot not active")
				}
			},
		},
		{
			name: "Tap boost maxes", track: state.TrackTapBoost, level: 9, score: 900, wantOK: true, wantLevel: 10,
			check: func(t *testing.T, s state.Snapshot) {
				if !s.TapBoostActive || !s.TapBoostPermanent {
					t.Error("tap boost not permanently active")
				}
			},
		},
		{
			name: "Maximizer maxes", track: state.TrackMaximizer, level: 9, score: 900, wantOK: true, wantLevel: 10,
			check: func(t *testing.T, s state.Snapshot) {
				if s.MaxEnergy != 7500 {
					t.Errorf("max energy = %v, want 7500", s.MaxEnergy)
				}
			},
		},
		{
			name: "Charger maxes", track: state.TrackCharger, level: 9, score: 900, wantOK: true, wantLevel: 10,
			check: func(t *testing.T, s state.Snapshot) {
				if !s.ChargerActive {
					t.Error("charger not active")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := state.New(state.DefaultRules())
			pe.Upgrades[tt.track].Level = tt.level
			pe.Score = tt.score
			p, econ := newProcessor(pe)

			if got := p.BuyUpgrade(tt.track); got != tt.wantOK {
				t.Fatalf("BuyUpgrade() = %v, want %v", got, tt.wantOK)
			}
			snap := econ.Snapshot()
			if snap.Upgrades[tt.track].Level != tt.wantLevel || snap.Score != tt.wantScore {
				t.Errorf("BuyUpgrade() level/score = %v/%v, want %v/%v",
					snap.Upgrades[tt.track].Level, snap.Score, tt.wantLevel, tt.wantScore)
			}
			if tt.check != nil {
				tt.check(t, snap)
			}
		})
	}
}

func TestMaxEffectAppliesOnce(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.Upgrades[state.TrackMaximizer].Level = 9
	pe.Score = 10000
	p, econ := newProcessor(pe)

	var maxed []state.Track
	econ.Subscribe(func(c state.Change) {
		if c.Maxed != nil {
			maxed = append(maxed, *c.Maxed)
		}
	})

	p.BuyUpgrade(state.TrackMaximizer)
	p.BuyUpgrade(state.TrackMaximizer)

	if got := econ.Snapshot().MaxEnergy; got != 7500 {
		t.Errorf("max energy = %v, want 7500", got)
	}
	if len(maxed) != 1 || maxed[0] != state.TrackMaximizer {
		t.Errorf("maxed notifications = %v", maxed)
	}
}

func TestGrantTaskReward(t *testing.T) {
	p, econ := newProcessor(state.New(state.DefaultRules()))

	if !p.GrantTaskReward(120) {
		t.Fatal("GrantTaskReward(120) rejected")
	}
	if p.GrantTaskReward(0) {
		t.Error("GrantTaskReward(0) accepted")
	}
	snap := econ.Snapshot()
	if snap.Score != 120 || snap.Balance != 120 {
		t.Errorf("score/balance = %v/%v, want 120/120", snap.Score, snap.Balance)
	}
}

func TestClaimTask(t *testing.T) {
	booster := &countingBooster{}
	pe := state.New(state.DefaultRules())
	p, econ := newProcessor(pe, WithTapBooster(booster))

	boost, _ := tasks.Find("boost_storge")
	farm, _ := tasks.Find("farm_storge")

	if !p.ClaimTask(boost) {
		t.Fatal("ClaimTask(boost) rejected")
	}
	if p.ClaimTask(boost) {
		t.Error("ClaimTask(boost) accepted twice")
	}
	if booster.calls != 1 {
		t.Errorf("tap boost activations = %d, want 1", booster.calls)
	}
	if p.ClaimTask(farm) {
		t.Error("ClaimTask(farm) accepted below the balance target")
	}

	snap := econ.Snapshot()
	if snap.Balance != 200 || len(snap.CompletedTasks) != 1 {
		t.Errorf("balance = %v completed = %v", snap.Balance, snap.CompletedTasks)
	}
}

func TestInviteTaskAtThreshold(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.ReferralCount = 4
	p, econ := newProcessor(pe)

	invite, err := tasks.Find("invite_frens")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got := invite.Evaluate(econ.State()).Status; got != tasks.StatusLocked {
		t.Fatalf("status at 4 referrals = %v, want locked", got)
	}
	if p.ClaimTask(invite) {
		t.Fatal("ClaimTask() accepted below the referral target")
	}

	econ.Update(state.CauseReferral, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		pe.ReferralCount++
		return true
	})
	if got := invite.Evaluate(econ.State()).Status; got != tasks.StatusClaimable {
		t.Fatalf("status at 5 referrals = %v, want claimable", got)
	}

	if !p.ClaimTask(invite) {
		t.Fatal("ClaimTask() rejected at the referral target")
	}
	snap := econ.Snapshot()
	if snap.Score != 120 || snap.Balance != 120 {
		t.Errorf("score/balance = %v/%v, want 120/120", snap.Score, snap.Balance)
	}
	if got := invite.Evaluate(econ.State()).Status; got != tasks.StatusCompleted {
		t.Errorf("status after claim = %v, want completed", got)
	}
}
