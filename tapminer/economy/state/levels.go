package state

// Tier is a named balance bracket. Max is exclusive, zero for the unbounded top tier.
type Tier struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max,omitempty"`
}

var Tiers = []Tier{
	{Name: "Hustler", Min: 0, Max: 1000},
	{Name: "Working Class", Min: 1000, Max: 5000},
	{Name: "Lower Middle Class", Min: 5000, Max: 10000},
	{Name: "Middle Class", Min: 10000, Max: 20000},
	{Name: "Upper Middle Class", Min: 20000, Max: 50000},
	{Name: "Comfortable", Min: 50000, Max: 100000},
	{Name: "Wealthy", Min: 100000, Max: 200000},
	{Name: "Affluent", Min: 200000, Max: 500000},
	{Name: "Rich", Min: 500000, Max: 1000000},
	{Name: "Ultra Rich", Min: 1000000, Max: 0},
}

// TierIndex returns the position in Tiers of the bracket holding balance.
func TierIndex(balance float64) int {
	for i := len(Tiers) - 1; i >= 0; i-- {
		if balance >= Tiers[i].Min {
			return i
		}
	}
	return 0
}

func CurrentLevelTier(balance float64) Tier {
	return Tiers[TierIndex(balance)]
}
