package persistence

import (
	"fmt"
	"time"

	"github.com/storges/tapminer/tapminer/economy/state"
)

// NumericFields are the fields Increment accepts.
var NumericFields = map[string]bool{
	FieldScore:           true,
	FieldBalance:         true,
	FieldEnergy:          true,
	FieldClaimableAmount: true,
	FieldReferralCount:   true,
}

// SnapshotFields returns the fields describing pe. The balance is included
// only when withBalance is set, write-through moves it by increments instead.
// The referral count is never included, referrals only ever increment it.
func SnapshotFields(pe state.PlayerEconomy, withBalance bool) Fields {
	f := Fields{
		FieldScore:             pe.Score,
		FieldEnergy:            pe.Energy,
		FieldMaxEnergy:         pe.MaxEnergy,
		FieldIncomeRate:        pe.IncomeRate,
		FieldClaimableAmount:   pe.ClaimableAmount,
		FieldCooldownUntil:     pe.CooldownUntil,
		FieldMultiplier:        pe.Multiplier,
		FieldMiningRobotActive: pe.MiningRobotActive,
		FieldTapBoostActive:    pe.TapBoostActive,
		FieldTapBoostPermanent: pe.TapBoostPermanent,
		FieldChargerActive:     pe.ChargerActive,
		FieldUpgrades:          UpgradesOf(pe),
		FieldCompletedTasks:    append([]string{}, pe.CompletedTasks...),
	}
	if withBalance {
		f[FieldBalance] = pe.Balance
	}
	return f
}

// NewProfileFields are the fields written for a player seen for the first time.
func NewProfileFields(pe state.PlayerEconomy) Fields {
	f := SnapshotFields(pe, true)
	f[FieldReferralCount] = pe.ReferralCount
	return f
}

func UpgradesOf(pe state.PlayerEconomy) Upgrades {
	u := make(Upgrades, state.TrackCount)
	for _, t := range state.AllTracks() {
		u[t.String()] = pe.Upgrades[t]
	}
	return u
}

// ApplyUpgrades copies stored tracks into pe. Unknown names are ignored.
func ApplyUpgrades(pe *state.PlayerEconomy, u Upgrades) {
	for name, track := range u {
		if t, err := state.ParseTrack(name); err == nil && name == t.String() {
			pe.Upgrades[t] = track
		}
	}
}

// ApplyFields writes f onto pe. It is how stores holding a flat record turn
// a merge into a full record.
func ApplyFields(pe *state.PlayerEconomy, f Fields) error {
	for k, v := range f {
		var ok bool
		switch k {
		case FieldScore:
			pe.Score, ok = toFloat(v)
		case FieldBalance:
			pe.Balance, ok = toFloat(v)
		case FieldEnergy:
			var n float64
			n, ok = toFloat(v)
			pe.Energy = int(n)
		case FieldMaxEnergy:
			var n float64
			n, ok = toFloat(v)
			pe.MaxEnergy = int(n)
		case FieldIncomeRate:
			pe.IncomeRate, ok = toFloat(v)
		case FieldClaimableAmount:
			pe.ClaimableAmount, ok = toFloat(v)
		case FieldCooldownUntil:
			pe.CooldownUntil, ok = v.(time.Time)
		case FieldMultiplier:
			pe.Multiplier, ok = toFloat(v)
		case FieldMiningRobotActive:
			pe.MiningRobotActive, ok = v.(bool)
		case FieldTapBoostActive:
			pe.TapBoostActive, ok = v.(bool)
		case FieldTapBoostPermanent:
			pe.TapBoostPermanent, ok = v.(bool)
		case FieldChargerActive:
			pe.ChargerActive, ok = v.(bool)
		case FieldUpgrades:
			var u Upgrades
			if u, ok = v.(Upgrades); ok {
				ApplyUpgrades(pe, u)
			}
		case FieldReferralCount:
			var n float64
			n, ok = toFloat(v)
			pe.ReferralCount = int(n)
		case FieldCompletedTasks:
			pe.CompletedTasks, ok = v.([]string)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
		if !ok {
			return fmt.Errorf("field %s: unexpected value type %T", k, v)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
