package state

// UpgradeView is the presentation form of one track.
type UpgradeView struct {
	Track  string  `json:"track"`
	Level  int     `json:"level"`
	Active bool    `json:"active"`
	Maxed  bool    `json:"maxed"`
	Cost   float64 `json:"cost"`
	CanBuy bool    `json:"can_buy"`
}

// Snapshot is an immutable copy of a PlayerEconomy plus the values derived
// from it that a presentation layer renders.
type Snapshot struct {
	PlayerEconomy

	Tier             Tier          `json:"tier"`
	TierIndex        int           `json:"tier_index"`
	EnergyFraction   float64       `json:"energy_fraction"`
	CanClaim         bool          `json:"can_claim"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	UpgradeViews     []UpgradeView `json:"upgrade_views"`
}

func NewSnapshot(pe PlayerEconomy, rules Rules) Snapshot {
	pe = pe.Clone()
	idx := TierIndex(pe.Balance)
	s := Snapshot{
		PlayerEconomy:    pe,
		Tier:             Tiers[idx],
		TierIndex:        idx,
		EnergyFraction:   pe.EnergyFraction(),
		CanClaim:         !pe.OnCooldown(),
		RemainingSeconds: int64(pe.RemainingTime.Seconds()),
		UpgradeViews:     make([]UpgradeView, 0, TrackCount),
	}
	for _, t := range AllTracks() {
		u := pe.Upgrades[t]
		maxed := u.Level >= rules.MaxTrackLevel
		cost := rules.UpgradeCost(u.Level)
		s.UpgradeViews = append(s.UpgradeViews, UpgradeView{
			Track:  t.String(),
			Level:  u.Level,
			Active: u.Active,
			Maxed:  maxed,
			Cost:   cost,
			CanBuy: !maxed && pe.Score >= cost,
		})
	}
	return s
}

// CanBuy reports whether the next level of t is affordable and available.
func (s Snapshot) CanBuy(t Track) bool {
	if !t.Valid() {
		return false
	}
	return s.UpgradeViews[t].CanBuy
}
