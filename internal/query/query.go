// Package query evaluates filter, sort, and aggregation requests against
// an immutable chain snapshot. Every operation borrows the snapshot for
// the duration of one call and returns fresh slices; the chain itself is
// never mutated.
package query

import (
	"sort"

	"github.com/michaelwaves/optionscope/pkg/models"
)

// Moneyness categories accepted by the filter.
type Moneyness string

const (
	MoneynessAll Moneyness = "all"
	MoneynessITM Moneyness = "itm"
	MoneynessATM Moneyness = "atm"
	MoneynessOTM Moneyness = "otm"
)

// atmBand is the fractional distance from the strike-range midpoint that
// still counts as at-the-money.
const atmBand = 0.02

// FilterSpec is the user-selected predicate set. Nil/zero optional
// fields are no-ops, not errors.
type FilterSpec struct {
	Expiration      string    `json:"expiration,omitempty"` // YYYY-MM-DD, exact match
	MinStrike       *float64  `json:"minStrike,omitempty"`
	MaxStrike       *float64  `json:"maxStrike,omitempty"`
	Moneyness       Moneyness `json:"moneyness,omitempty"`
	MinVolume       *int64    `json:"minVolume,omitempty"`
	RecommendedOnly bool      `json:"recommendedOnly,omitempty"`
}

// Filter applies the spec's predicates in a fixed conjunctive order:
// expiration, strike lower bound, strike upper bound, moneyness,
// minimum volume, recommended-only. The result preserves chain order.
//
// The ATM category compares strikes to the midpoint of the chain's
// strike range rather than to the live reference price. That is how the
// dashboard has always filtered; it is kept as-is even though an ATM
// definition anchored on the underlying price would be more correct.
func Filter(chain *models.Chain, side models.Side, spec FilterSpec) []models.Contract {
	contracts := chain.SideContracts(side)
	mid := chain.StrikeRange.Mid()

	out := make([]models.Contract, 0, len(contracts))
	for _, c := range contracts {
		if spec.Expiration != "" && c.ExpirationDate != spec.Expiration {
			continue
		}
		if spec.MinStrike != nil && c.Strike < *spec.MinStrike {
			continue
		}
		if spec.MaxStrike != nil && c.Strike > *spec.MaxStrike {
			continue
		}
		if !matchMoneyness(c, spec.Moneyness, mid) {
			continue
		}
		if spec.MinVolume != nil && c.Volume < *spec.MinVolume {
			continue
		}
		if spec.RecommendedOnly && !c.Recommended {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchMoneyness(c models.Contract, m Moneyness, mid float64) bool {
	switch m {
	case MoneynessITM:
		return c.InTheMoney
	case MoneynessOTM:
		return !c.InTheMoney
	case MoneynessATM:
		if mid <= 0 {
			return false
		}
		diff := c.Strike - mid
		if diff < 0 {
			diff = -diff
		}
		return diff <= mid*atmBand
	default:
		// "all", empty, and unknown categories are no-ops.
		return true
	}
}

// SortKey selects the contract field to sort by.
type SortKey string

const (
	SortByStrike     SortKey = "strike"
	SortByLastPrice  SortKey = "lastPrice"
	SortByVolume     SortKey = "volume"
	SortByOI         SortKey = "openInterest"
	SortByIV         SortKey = "impliedVolatility"
	SortByVolDiff    SortKey = "volatilityDiff"
	SortByDelta      SortKey = "delta"
	SortByExpiration SortKey = "expiration"
)

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort returns a stably sorted copy of the contracts. Equal keys keep
// their prior relative order; an unknown key compares everything equal,
// which leaves the input order untouched.
func Sort(contracts []models.Contract, key SortKey, dir Direction) []models.Contract {
	out := make([]models.Contract, len(contracts))
	copy(out, contracts)

	keyFn := sortKeyFunc(key)
	if keyFn == nil {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if dir == Descending {
			return keyFn(out[j]) < keyFn(out[i])
		}
		return keyFn(out[i]) < keyFn(out[j])
	})
	return out
}

func sortKeyFunc(key SortKey) func(models.Contract) float64 {
	switch key {
	case SortByStrike:
		return func(c models.Contract) float64 { return c.Strike }
	case SortByLastPrice:
		return func(c models.Contract) float64 { return c.LastPrice }
	case SortByVolume:
		return func(c models.Contract) float64 { return float64(c.Volume) }
	case SortByOI:
		return func(c models.Contract) float64 { return float64(c.OpenInterest) }
	case SortByIV:
		return func(c models.Contract) float64 { return c.ImpliedVolatility }
	case SortByVolDiff:
		return func(c models.Contract) float64 { return c.VolatilityDiff }
	case SortByDelta:
		return func(c models.Contract) float64 { return c.Delta }
	case SortByExpiration:
		return func(c models.Contract) float64 { return float64(expirationOrd(c.ExpirationDate)) }
	default:
		return nil
	}
}

// expirationOrd turns YYYY-MM-DD into a sortable integer; the lexical
// and chronological orders coincide for this format.
func expirationOrd(date string) int64 {
	var ord int64
	for _, r := range date {
		if r >= '0' && r <= '9' {
			ord = ord*10 + int64(r-'0')
		}
	}
	return ord
}

// VolumeBucket is one aggregation bucket.
type VolumeBucket struct {
	Bucket      string `json:"bucket"`
	TotalVolume int64  `json:"totalVolume"`
}

// strikeBucketCount is the fixed number of equal-width strike buckets.
const strikeBucketCount = 5
