package chain

import (
	"fmt"
	"math"

	"github.com/michaelwaves/optionscope/pkg/models"
)

// Action values attached to recommended contracts.
const (
	ActionBuy   = "BUY"
	ActionAvoid = "AVOID"
)

// signalThreshold is the volatility-difference magnitude (percentage
// points) beyond which a contract is flagged as mispriced.
const signalThreshold = 2.0

// Signal is the classifier output for one contract. It is a pure
// function of the predicted-minus-implied volatility difference.
type Signal struct {
	Recommended bool
	Action      string
	Reason      string
	Confidence  float64
}

// Classify maps a volatility difference (predicted − implied, in
// percentage points) to a valuation signal. Four magnitude bands carry
// distinct justifications; a zero difference carries none.
func Classify(diff float64) Signal {
	sig := Signal{Confidence: confidence(diff)}

	switch {
	case diff > signalThreshold:
		sig.Recommended = true
		sig.Action = ActionBuy
		sig.Reason = fmt.Sprintf("Undervalued: model predicts volatility %.1f points above the market-implied level", diff)
	case diff > 0:
		sig.Reason = fmt.Sprintf("Slightly undervalued: predicted volatility runs %.1f points above implied, inside the noise band", diff)
	case diff < -signalThreshold:
		sig.Recommended = true
		sig.Action = ActionAvoid
		sig.Reason = fmt.Sprintf("Overvalued: market-implied volatility exceeds the model's prediction by %.1f points", -diff)
	case diff < 0:
		sig.Reason = fmt.Sprintf("Slightly overvalued: implied volatility runs %.1f points above the prediction, inside the noise band", -diff)
	}

	return sig
}

// confidence scores conviction from the difference magnitude, using the
// same percentage-point bands the IV-prediction scorer graded against.
func confidence(diff float64) float64 {
	switch mag := math.Abs(diff); {
	case mag == 0:
		return 0
	case mag <= 1.0:
		return 0.3
	case mag <= 2.5:
		return 0.5
	case mag <= 5.0:
		return 0.7
	case mag <= 10.0:
		return 0.85
	default:
		return 0.95
	}
}

// ApplySignal annotates a contract with its classifier output.
func ApplySignal(c *models.Contract) {
	sig := Classify(c.VolatilityDiff)
	c.Recommended = sig.Recommended
	c.Action = sig.Action
	c.Reason = sig.Reason
	c.Confidence = sig.Confidence
}

// ExplainContract renders the human-readable justification lines shown
// by the detail-expansion view.
func ExplainContract(c models.Contract) []string {
	lines := make([]string, 0, 6)

	if c.Reason != "" {
		lines = append(lines, c.Reason)
	} else {
		lines = append(lines, "Fairly priced: predicted and implied volatility agree")
	}

	lines = append(lines, fmt.Sprintf("Implied volatility %.2f%% vs model prediction %.2f%% (difference %+.2f points, confidence %.0f%%)",
		c.ImpliedVolatility, c.PredictedVolatility, c.VolatilityDiff, c.Confidence*100))

	state := "out of the money"
	if c.InTheMoney {
		state = "in the money"
	}
	lines = append(lines, fmt.Sprintf("%s %s at strike %.2f expiring %s is %s",
		c.ContractSymbol, c.Side, c.Strike, c.ExpirationDate, state))

	lines = append(lines, fmt.Sprintf("Greeks: delta %+.3f, gamma %.4f, theta %.4f/day, vega %.4f, rho %+.4f",
		c.Delta, c.Gamma, c.Theta, c.Vega, c.Rho))

	lines = append(lines, fmt.Sprintf("Liquidity: volume %d against open interest %d, quoted %.2f/%.2f around last %.2f",
		c.Volume, c.OpenInterest, c.Bid, c.Ask, c.LastPrice))

	lines = append(lines, fmt.Sprintf("Carry: %.4f years to expiration at a %.2f%% risk-free rate",
		c.TimeToExpiration, c.RiskFreeRate*100))

	return lines
}
