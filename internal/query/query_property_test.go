package query

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/michaelwaves/optionscope/internal/chain"
	"github.com/michaelwaves/optionscope/pkg/models"
)

func propChain(symbol string, seed int64) *models.Chain {
	grid := chain.BuildGrid(symbol, 4, testNow)
	calls, puts := chain.NewSynthesizer(seed).Synthesize(grid, testNow)

	dates := make([]string, len(grid.Expirations))
	for i, d := range grid.Expirations {
		dates[i] = d.Format("2006-01-02")
	}
	return &models.Chain{
		Symbol:          symbol,
		ReferencePrice:  grid.ReferencePrice,
		ExpirationDates: dates,
		StrikeRange:     grid.StrikeRange(),
		Calls:           calls,
		Puts:            puts,
	}
}

func TestQueryProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	symbolGen := gen.RegexMatch(`[A-Z]{1,5}`)
	seedGen := gen.Int64Range(1, 1<<40)

	properties.Property("filtering never grows the result", prop.ForAll(
		func(symbol string, seed int64, minVol int64) bool {
			c := propChain(symbol, seed)
			filtered := Filter(c, models.Call, FilterSpec{MinVolume: &minVol, RecommendedOnly: true})
			return len(filtered) <= len(c.Calls)
		},
		symbolGen, seedGen, gen.Int64Range(0, 5000),
	))

	properties.Property("filtered contracts satisfy every predicate", prop.ForAll(
		func(symbol string, seed int64, minVol int64) bool {
			c := propChain(symbol, seed)
			for _, contract := range Filter(c, models.Put, FilterSpec{MinVolume: &minVol}) {
				if contract.Volume < minVol {
					return false
				}
			}
			return true
		},
		symbolGen, seedGen, gen.Int64Range(0, 5000),
	))

	properties.Property("sorting is a permutation of its input", prop.ForAll(
		func(symbol string, seed int64) bool {
			c := propChain(symbol, seed)
			sorted := Sort(c.Calls, SortByVolume, Descending)
			if len(sorted) != len(c.Calls) {
				return false
			}
			seen := make(map[string]int, len(c.Calls))
			for _, contract := range c.Calls {
				seen[contract.ContractSymbol]++
			}
			for _, contract := range sorted {
				seen[contract.ContractSymbol]--
			}
			for _, n := range seen {
				if n != 0 {
					return false
				}
			}
			return true
		},
		symbolGen, seedGen,
	))

	properties.Property("expiration buckets conserve side volume", prop.ForAll(
		func(symbol string, seed int64) bool {
			c := propChain(symbol, seed)
			var total int64
			for _, b := range AggregateByExpiration(c, models.Call) {
				total += b.TotalVolume
			}
			return total == sideVolume(c.Calls)
		},
		symbolGen, seedGen,
	))

	properties.Property("strike buckets conserve side volume", prop.ForAll(
		func(symbol string, seed int64) bool {
			c := propChain(symbol, seed)
			var total int64
			for _, b := range AggregateByStrike(c, models.Put) {
				total += b.TotalVolume
			}
			return total == sideVolume(c.Puts)
		},
		symbolGen, seedGen,
	))

	properties.TestingRun(t)
}
