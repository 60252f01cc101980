package recycle

import "sort"

// Rates maps a recycling category to the points credited per item.
type Rates map[string]int

// DefaultRates apply when no rate table is configured.
var DefaultRates = Rates{
	"Computers":            50,
	"Phones":               30,
	"Tablets":              35,
	"TVs & Monitors":       40,
	"Appliances":           25,
	"Batteries":            10,
	"Cables & Accessories": 5,
	"Audio":                15,
	"Gaming":               30,
	CategoryOther:          5,
}

// PerItem returns the rate for category, falling back to the Other rate.
func (r Rates) PerItem(category string) int {
	if pts, ok := r[category]; ok {
		return pts
	}
	return r[CategoryOther]
}

type RateEntry struct {
	Category string `json:"category"`
	Points   int    `json:"points"`
}

// List returns the table sorted by points, highest first.
func (r Rates) List() []RateEntry {
	out := make([]RateEntry, 0, len(r))
	for cat, pts := range r {
		out = append(out, RateEntry{Category: cat, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points == out[j].Points {
			return out[i].Category < out[j].Category
		}
		return out[i].Points > out[j].Points
	})
	return out
}
