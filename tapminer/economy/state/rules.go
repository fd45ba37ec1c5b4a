package state

import "time"

// Economy Constants
const (
	// Energy
	DefaultInitialEnergy = 5000 // Energy of a fresh player
	DefaultMaxEnergy     = 6500 // Energy cap of a fresh player
	TapEnergyCost        = 10   // Energy spent per tap
	MaximizerEnergyBonus = 1000 // Cap increase when maximizer reaches max level

	// Income
	DefaultIncomeRate = 50 // Points accrued per accrual interval
	MiningYield       = 10 // Points added per mining interval

	// Tap yield
	BoosterChance  = 0.1 // Probability of a random booster on a tap
	BoosterMax     = 10  // Booster is uniform in [1, BoosterMax]
	TapBoostFactor = 2   // Yield factor while tap boost is active

	// Upgrades
	UpgradeCostMultiplier = 100 // Cost of next level = level * UpgradeCostMultiplier
	MinTrackLevel         = 1
	MaxTrackLevel         = 10
	MultiplierFactor      = 2 // Multiplier factor applied when the multiplier track maxes out

	// Regeneration
	RegenRate        = 1 // Energy per regen tick
	ChargedRegenRate = 2 // Energy per regen tick with charger
)

// Timing Constants
const (
	RegenInterval     = 100 * time.Millisecond
	AccrualInterval   = 5 * time.Second
	MiningInterval    = 5 * time.Second
	CountdownInterval = time.Second
	TapBoostDuration  = 30 * time.Second
	ClaimCooldown     = 50 * time.Minute
)

// Rules carries every tunable of the economy. Zero values are not valid,
// start from DefaultRules and override what the configuration sets.
type Rules struct {
	InitialEnergy     int
	MaxEnergy         int
	InitialIncomeRate float64

	TapEnergyCost  int
	BoosterChance  float64
	BoosterMax     int
	TapBoostFactor float64

	UpgradeCostMultiplier float64
	MaxTrackLevel         int
	MultiplierFactor      float64
	MaximizerEnergyBonus  int

	RegenRate        int
	ChargedRegenRate int
	MiningYield      float64

	RegenInterval     time.Duration
	AccrualInterval   time.Duration
	MiningInterval    time.Duration
	CountdownInterval time.Duration
	TapBoostDuration  time.Duration
	ClaimCooldown     time.Duration
}

func DefaultRules() Rules {
	return Rules{
		InitialEnergy:         DefaultInitialEnergy,
		MaxEnergy:             DefaultMaxEnergy,
		InitialIncomeRate:     DefaultIncomeRate,
		TapEnergyCost:         TapEnergyCost,
		BoosterChance:         BoosterChance,
		BoosterMax:            BoosterMax,
		TapBoostFactor:        TapBoostFactor,
		UpgradeCostMultiplier: UpgradeCostMultiplier,
		MaxTrackLevel:         MaxTrackLevel,
		MultiplierFactor:      MultiplierFactor,
		MaximizerEnergyBonus:  MaximizerEnergyBonus,
		RegenRate:             RegenRate,
		ChargedRegenRate:      ChargedRegenRate,
		MiningYield:           MiningYield,
		RegenInterval:         RegenInterval,
		AccrualInterval:       AccrualInterval,
		MiningInterval:        MiningInterval,
		CountdownInterval:     CountdownInterval,
		TapBoostDuration:      TapBoostDuration,
		ClaimCooldown:         ClaimCooldown,
	}
}

// UpgradeCost returns the price of buying the level after current.
func (r Rules) UpgradeCost(current int) float64 {
	return float64(current) * r.UpgradeCostMultiplier
}
