// Package chain implements the synthetic option-chain engine: grid
// derivation, contract synthesis, valuation classification, and the
// snapshot repository with its TTL cache.
package chain

import (
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/michaelwaves/optionscope/pkg/models"
)

// DefaultWeeks is the number of weekly expirations in a generated ladder.
const DefaultWeeks = 4

// strikeSpan is the fraction of the reference price covered on each side
// of the money.
const strikeSpan = 0.30

// referencePrices is the static lookup table for well-known symbols.
// Anything not listed falls back to a synthesized price.
var referencePrices = map[string]float64{
	"AAPL":  178.25,
	"MSFT":  415.50,
	"GOOGL": 172.80,
	"AMZN":  185.40,
	"NVDA":  131.25,
	"META":  512.75,
	"TSLA":  248.60,
	"UNH":   505.30,
	"SPY":   556.20,
	"QQQ":   482.90,
	"AMD":   158.35,
	"NFLX":  645.10,
	"JPM":   208.45,
	"V":     275.60,
	"DIS":   96.85,
}

// Grid holds the derived strike/expiration ladder for one symbol.
type Grid struct {
	Symbol         string
	ReferencePrice float64
	Expirations    []time.Time // ascending, all on the weekly cycle weekday
	Strikes        []float64   // ascending
}

// StrikeRange returns the span covered by the grid's strike ladder.
func (g *Grid) StrikeRange() models.StrikeRange {
	if len(g.Strikes) == 0 {
		return models.StrikeRange{}
	}
	return models.StrikeRange{Min: g.Strikes[0], Max: g.Strikes[len(g.Strikes)-1]}
}

// BuildGrid derives the expiration ladder and strike ladder for a symbol.
// It always succeeds: unknown symbols receive a synthesized reference price
// rather than an error.
func BuildGrid(symbol string, weeks int, now time.Time) *Grid {
	return BuildGridAt(symbol, 0, weeks, now)
}

// BuildGridAt builds a grid around an externally supplied reference price
// (a live quote). A non-positive price falls back to the static table /
// synthesized path.
func BuildGridAt(symbol string, ref float64, weeks int, now time.Time) *Grid {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}

	if ref <= 0 {
		ref = ReferencePrice(symbol)
	}

	return &Grid{
		Symbol:         symbol,
		ReferencePrice: ref,
		Expirations:    weeklyExpirations(now, weeks),
		Strikes:        strikeLadder(ref),
	}
}

// ReferencePrice resolves the reference price for a symbol. Unknown
// symbols get a deterministic price in a wide plausible equity band so
// that repeated requests for the same symbol agree.
func ReferencePrice(symbol string) float64 {
	if p, ok := referencePrices[symbol]; ok {
		return p
	}

	h := fnv.New64a()
	h.Write([]byte(symbol))
	// Map the hash into [10, 510) and keep two decimals.
	raw := 10 + float64(h.Sum64()%50000)/100
	return math.Round(raw*100) / 100
}

// weeklyExpirations returns the next n dates on the standard weekly
// expiration cycle (Fridays), starting strictly after now.
func weeklyExpirations(now time.Time, n int) []time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// First Friday strictly after today.
	next := day.AddDate(0, 0, 1)
	for next.Weekday() != time.Friday {
		next = next.AddDate(0, 0, 1)
	}

	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, next.AddDate(0, 0, 7*i))
	}
	return out
}

// strikeStep picks the strike increment for a reference price. Smaller
// prices get finer spacing; the table is monotonic in price. Each band
// starts at 17x its step so the ±strikeSpan window always fits at least
// 10 rungs, and bands are narrow enough that it never fits more than ~20.
func strikeStep(ref float64) float64 {
	switch {
	case ref < 17:
		return 0.5
	case ref < 34:
		return 1
	case ref < 51:
		return 2
	case ref < 85:
		return 3
	case ref < 127.5:
		return 5
	case ref < 170:
		return 7.5
	case ref < 255:
		return 10
	case ref < 425:
		return 15
	case ref < 680:
		return 25
	case ref < 1020:
		return 40
	case ref < 1700:
		return 60
	default:
		return 100
	}
}

// strikeLadder produces an ascending ladder spanning ±strikeSpan of the
// reference price, aligned to the step and rounded to cents.
func strikeLadder(ref float64) []float64 {
	step := strikeStep(ref)

	lo := math.Ceil(ref * (1 - strikeSpan) / step) * step
	hi := ref * (1 + strikeSpan)

	var strikes []float64
	for s := lo; s <= hi+1e-9; s += step {
		strikes = append(strikes, math.Round(s*100)/100)
	}
	return strikes
}

// ContractSymbol builds the OCC-style identifier for a contract, e.g.
// AAPL240621C00180000.
func ContractSymbol(symbol string, expiry time.Time, side models.Side, strike float64) string {
	cp := "C"
	if side == models.Put {
		cp = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", symbol, expiry.Format("060102"), cp, int64(math.Round(strike*1000)))
}
