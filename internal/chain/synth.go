package chain

import (
	"math"
	"math/rand"
	"time"

	"github.com/michaelwaves/optionscope/pkg/models"
)

const (
	// baseRate is the annualized risk-free rate anchoring the term
	// structure (the dataset default).
	baseRate = 0.05

	// yearSeconds converts a duration to fractional years.
	yearSeconds = 365.25 * 24 * 3600

	// minTTE keeps time-to-expiration strictly positive.
	minTTE = 1e-6

	// nearMoneyThreshold marks contracts whose liquidity is scaled up.
	nearMoneyThreshold = 0.05

	invSqrt2Pi = 0.3989422804014327
)

// volOffset is one entry of the discrete predicted-minus-implied
// distribution. Weights are relative; the distribution is deliberately
// skewed rather than symmetric around zero.
type volOffset struct {
	diff   float64 // percentage points
	weight int
}

var volOffsets = []volOffset{
	{-7.5, 2},
	{-4.2, 5},
	{-2.8, 9},
	{-1.3, 14},
	{-0.4, 18},
	{0.6, 20},
	{1.4, 12},
	{2.7, 9},
	{3.6, 6},
	{5.2, 3},
	{8.0, 2},
}

var volOffsetTotal = func() int {
	total := 0
	for _, o := range volOffsets {
		total += o.weight
	}
	return total
}()

// Synthesizer generates self-consistent option contracts for a grid.
// All non-determinism flows through the single injected random source,
// so a fixed seed reproduces a chain exactly.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer creates a synthesizer. A zero seed draws one from the
// wall clock; tests pass a fixed seed.
func NewSynthesizer(seed int64) *Synthesizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

// Synthesize builds the call and put collections for the grid. Calls and
// puts share the same (expiration × strike) coverage; every contract's
// randomness is drawn independently.
func (s *Synthesizer) Synthesize(grid *Grid, now time.Time) (calls, puts []models.Contract) {
	n := len(grid.Expirations) * len(grid.Strikes)
	calls = make([]models.Contract, 0, n)
	puts = make([]models.Contract, 0, n)

	for i, expiry := range grid.Expirations {
		tte := expiry.Sub(now).Seconds() / yearSeconds
		if tte < minTTE {
			tte = minTTE
		}

		// Term structure: slight upward drift across the ladder plus
		// bounded noise.
		rate := baseRate + 0.0025*float64(i) + (s.rng.Float64()-0.5)*0.004

		for _, strike := range grid.Strikes {
			calls = append(calls, s.contract(grid, expiry, strike, models.Call, i, tte, rate))
			puts = append(puts, s.contract(grid, expiry, strike, models.Put, i, tte, rate))
		}
	}
	return calls, puts
}

func (s *Synthesizer) contract(grid *Grid, expiry time.Time, strike float64, side models.Side, rung int, tte, rate float64) models.Contract {
	ref := grid.ReferencePrice
	moneyness := math.Abs(1 - strike/ref)

	iv := s.impliedVol(moneyness, rung)
	predicted := iv + s.volOffset()
	sigma := iv / 100

	// Standardized distance from the money, in units of the
	// vol-scaled spread. Positive favors calls, negative favors puts.
	dist := (ref - strike) / (ref*sigma*math.Sqrt(tte) + 1e-9)
	pdf := invSqrt2Pi * math.Exp(-0.5*dist*dist)

	price := s.price(ref, strike, side, sigma, tte, rate, dist)
	bid, ask := s.quoteSpread(price)
	change := (s.rng.Float64()*2 - 1) * 0.08 * price
	prevPrice := price - change
	changePct := 0.0
	if prevPrice > 0.01 {
		changePct = change / prevPrice * 100
	}

	volume, oi := s.liquidity(moneyness)
	delta := s.delta(ref, strike, side, dist)

	itm := ref > strike
	if side == models.Put {
		itm = ref < strike
	}

	c := models.Contract{
		ContractSymbol:      ContractSymbol(grid.Symbol, expiry, side, strike),
		Strike:              strike,
		ExpirationDate:      expiry.Format("2006-01-02"),
		Side:                side,
		LastPrice:           price,
		Bid:                 bid,
		Ask:                 ask,
		Change:              math.Round(change*100) / 100,
		ChangePercent:       math.Round(changePct*100) / 100,
		Volume:              volume,
		OpenInterest:        oi,
		ImpliedVolatility:   math.Round(iv*100) / 100,
		PredictedVolatility: math.Round(predicted*100) / 100,
		TimeToExpiration:    tte,
		RiskFreeRate:        rate,
		InTheMoney:          itm,
		Delta:               delta,
		Gamma:               pdf / (ref*sigma*math.Sqrt(tte) + 1e-9),
		Theta:               -(ref * pdf * sigma) / (2 * math.Sqrt(tte)) / 365,
		Vega:                ref * math.Sqrt(tte) * pdf / 100,
		Rho:                 s.rho(strike, side, tte, rate, delta),
	}
	c.VolatilityDiff = math.Round((c.PredictedVolatility-c.ImpliedVolatility)*100) / 100

	ApplySignal(&c)
	return c
}

// impliedVol synthesizes an implied volatility in percent: the base level
// rises with distance from the money and with ladder position, perturbed
// multiplicatively.
func (s *Synthesizer) impliedVol(moneyness float64, rung int) float64 {
	base := 22 + 45*moneyness + 1.8*float64(rung)
	return base * (0.92 + 0.16*s.rng.Float64())
}

// volOffset draws from the discrete historical-difference distribution.
func (s *Synthesizer) volOffset() float64 {
	pick := s.rng.Intn(volOffsetTotal)
	for _, o := range volOffsets {
		pick -= o.weight
		if pick < 0 {
			return o.diff
		}
	}
	return volOffsets[len(volOffsets)-1].diff
}

// price is the Black-Scholes-flavored approximation: discounted intrinsic
// value for in-the-money contracts plus a time-value term proportional to
// vol·√tte·reference, damped away from the money.
func (s *Synthesizer) price(ref, strike float64, side models.Side, sigma, tte, rate, dist float64) float64 {
	discStrike := strike * math.Exp(-rate*tte)

	intrinsic := 0.0
	if side == models.Call {
		intrinsic = math.Max(ref-discStrike, 0)
	} else {
		intrinsic = math.Max(discStrike-ref, 0)
	}

	timeValue := 0.4 * ref * sigma * math.Sqrt(tte) * math.Exp(-0.5*dist*dist)
	price := intrinsic + timeValue*(0.85+0.3*s.rng.Float64())

	if price < 0 {
		price = 0
	}
	return math.Round(price*100) / 100
}

// quoteSpread places a symmetric 3–7% spread around the last price.
// Rounding goes outward so bid ≤ last ≤ ask survives it.
func (s *Synthesizer) quoteSpread(price float64) (bid, ask float64) {
	spread := price * (0.03 + 0.04*s.rng.Float64())
	bid = math.Floor((price-spread/2)*100) / 100
	ask = math.Ceil((price+spread/2)*100) / 100
	if bid < 0 {
		bid = 0
	}
	return bid, ask
}

// liquidity draws volume and open interest, concentrating both near the
// money. Volume stays a bounded fraction of open interest.
func (s *Synthesizer) liquidity(moneyness float64) (volume, oi int64) {
	oi = int64(50 + s.rng.Intn(4000))
	if moneyness < nearMoneyThreshold {
		oi *= int64(4 + s.rng.Intn(5))
	}
	volume = int64(float64(oi) * (0.05 + 0.8*s.rng.Float64()))
	return volume, oi
}

// delta maps the standardized distance through a logistic curve, adds
// bounded noise, and clamps to the side's ITM/OTM band: calls in
// (0.5, 0.99) ITM and (0.01, 0.5) OTM, puts mirrored negative.
func (s *Synthesizer) delta(ref, strike float64, side models.Side, dist float64) float64 {
	l := 1 / (1 + math.Exp(-1.2*dist))
	l += (s.rng.Float64() - 0.5) * 0.06

	if side == models.Call {
		if ref > strike {
			return clamp(l, 0.51, 0.98)
		}
		return clamp(l, 0.02, 0.49)
	}

	d := l - 1
	if ref < strike {
		return clamp(d, -0.98, -0.51)
	}
	return clamp(d, -0.49, -0.02)
}

// rho is signed by side and discounted by rate and time.
func (s *Synthesizer) rho(strike float64, side models.Side, tte, rate, delta float64) float64 {
	r := strike * tte * math.Exp(-rate*tte) * math.Abs(delta) / 100
	if side == models.Put {
		return -r
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
