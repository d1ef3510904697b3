package query

import (
	"fmt"

	"github.com/michaelwaves/optionscope/pkg/models"
)

// AggregateByExpiration sums traded volume per expiration date, one
// bucket per date in ladder order.
func AggregateByExpiration(chain *models.Chain, side models.Side) []VolumeBucket {
	totals := make(map[string]int64, len(chain.ExpirationDates))
	for _, c := range chain.SideContracts(side) {
		totals[c.ExpirationDate] += c.Volume
	}

	out := make([]VolumeBucket, 0, len(chain.ExpirationDates))
	for _, date := range chain.ExpirationDates {
		out = append(out, VolumeBucket{Bucket: date, TotalVolume: totals[date]})
	}
	return out
}

// AggregateByStrike sums traded volume across a fixed count of
// equal-width strike buckets spanning the chain's strike range.
func AggregateByStrike(chain *models.Chain, side models.Side) []VolumeBucket {
	lo, hi := chain.StrikeRange.Min, chain.StrikeRange.Max
	if hi <= lo {
		return nil
	}

	width := (hi - lo) / strikeBucketCount
	out := make([]VolumeBucket, strikeBucketCount)
	for i := range out {
		bLo := lo + width*float64(i)
		out[i].Bucket = fmt.Sprintf("%.2f-%.2f", bLo, bLo+width)
	}

	for _, c := range chain.SideContracts(side) {
		idx := int((c.Strike - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= strikeBucketCount {
			// The top-of-range strike belongs to the last bucket.
			idx = strikeBucketCount - 1
		}
		out[idx].TotalVolume += c.Volume
	}
	return out
}

// TopN returns the n highest-volume contracts of a side, descending,
// with ties keeping their original chain order. Fewer than n contracts
// come back when the side is smaller.
func TopN(chain *models.Chain, side models.Side, n int) []models.Contract {
	sorted := Sort(chain.SideContracts(side), SortByVolume, Descending)
	if n < len(sorted) && n >= 0 {
		sorted = sorted[:n]
	}
	return sorted
}
