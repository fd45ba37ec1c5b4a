package persistence

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/storges/tapminer/tapminer/economy/state"
)

const defaultLocalCacheSize = 100000

// LRUCache is an in-process LocalCache bounded by entry count.
type LRUCache struct {
	cache *lru.Cache
}

func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = defaultLocalCacheSize
	}
	cache, _ := lru.New(size)
	return &LRUCache{cache: cache}
}

func (c *LRUCache) Get(key string) (string, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c *LRUCache) Set(key, value string) {
	c.cache.Add(key, value)
}

func (c *LRUCache) Len() int {
	return c.cache.Len()
}

// localFields are the fields mirrored into the local cache.
var localFields = []string{
	FieldScore,
	FieldBalance,
	FieldEnergy,
	FieldMaxEnergy,
	FieldIncomeRate,
	FieldClaimableAmount,
	FieldCooldownUntil,
	FieldMultiplier,
	FieldMiningRobotActive,
	FieldTapBoostPermanent,
	FieldChargerActive,
	FieldUpgrades,
	FieldReferralCount,
	FieldCompletedTasks,
}

// encodeLocal renders the mirrored fields of pe as cache values.
func encodeLocal(pe state.PlayerEconomy) map[string]string {
	fmtFloat := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

	values := map[string]string{
		FieldScore:             fmtFloat(pe.Score),
		FieldBalance:           fmtFloat(pe.Balance),
		FieldEnergy:            strconv.Itoa(pe.Energy),
		FieldMaxEnergy:         strconv.Itoa(pe.MaxEnergy),
		FieldIncomeRate:        fmtFloat(pe.IncomeRate),
		FieldClaimableAmount:   fmtFloat(pe.ClaimableAmount),
		FieldMultiplier:        fmtFloat(pe.Multiplier),
		FieldMiningRobotActive: strconv.FormatBool(pe.MiningRobotActive),
		FieldTapBoostPermanent: strconv.FormatBool(pe.TapBoostPermanent),
		FieldChargerActive:     strconv.FormatBool(pe.ChargerActive),
		FieldReferralCount:     strconv.Itoa(pe.ReferralCount),
		FieldCompletedTasks:    strings.Join(pe.CompletedTasks, ","),
	}
	if pe.OnCooldown() {
		values[FieldCooldownUntil] = pe.CooldownUntil.UTC().Format(time.RFC3339Nano)
	} else {
		values[FieldCooldownUntil] = ""
	}
	if b, err := json.Marshal(UpgradesOf(pe)); err == nil {
		values[FieldUpgrades] = string(b)
	}
	return values
}

// decodeLocal rebuilds a record from cached values on top of the defaults.
// It reports false when nothing for the player is cached. Unparsable values
// keep their default.
func decodeLocal(cache LocalCache, playerID string, rules state.Rules) (state.PlayerEconomy, bool) {
	pe := state.New(rules)
	found := false

	for _, field := range localFields {
		raw, ok := cache.Get(LocalKey(playerID, field))
		if !ok {
			continue
		}
		found = true

		switch field {
		case FieldScore:
			parseFloatInto(raw, &pe.Score)
		case FieldBalance:
			parseFloatInto(raw, &pe.Balance)
		case FieldEnergy:
			parseIntInto(raw, &pe.Energy)
		case FieldMaxEnergy:
			parseIntInto(raw, &pe.MaxEnergy)
		case FieldIncomeRate:
			parseFloatInto(raw, &pe.IncomeRate)
		case FieldClaimableAmount:
			parseFloatInto(raw, &pe.ClaimableAmount)
		case FieldMultiplier:
			parseFloatInto(raw, &pe.Multiplier)
		case FieldMiningRobotActive:
			parseBoolInto(raw, &pe.MiningRobotActive)
		case FieldTapBoostPermanent:
			parseBoolInto(raw, &pe.TapBoostPermanent)
			pe.TapBoostActive = pe.TapBoostPermanent
		case FieldChargerActive:
			parseBoolInto(raw, &pe.ChargerActive)
		case FieldReferralCount:
			parseIntInto(raw, &pe.ReferralCount)
		case FieldCooldownUntil:
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				pe.CooldownUntil = t
			}
		case FieldCompletedTasks:
			if raw != "" {
				pe.CompletedTasks = strings.Split(raw, ",")
			}
		case FieldUpgrades:
			var u Upgrades
			if err := json.Unmarshal([]byte(raw), &u); err == nil {
				ApplyUpgrades(&pe, u)
			}
		}
	}
	return pe, found
}

func parseFloatInto(raw string, dst *float64) {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = f
	}
}

func parseIntInto(raw string, dst *int) {
	if n, err := strconv.Atoi(raw); err == nil {
		*dst = n
	}
}

func parseBoolInto(raw string, dst *bool) {
	if b, err := strconv.ParseBool(raw); err == nil {
		*dst = b
	}
}
