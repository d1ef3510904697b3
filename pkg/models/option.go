package models

import "time"

// Side identifies an option side.
type Side string

const (
	Call Side = "call"
	Put  Side = "put"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool { return s == Call || s == Put }

// Contract represents one option instrument at a strike/expiration/side.
//
// Field names and units form the stable schema observed by the dashboard
// and follow the dataset column conventions (lastPrice, strike,
// expirationDate, impliedVolatility, ...). Volatilities are percentages
// (e.g. 32.5 means 32.5%), time to expiration is in fractional years.
type Contract struct {
	ContractSymbol      string  `json:"contractSymbol"`
	Strike              float64 `json:"strike"`
	ExpirationDate      string  `json:"expirationDate"` // YYYY-MM-DD
	Side                Side    `json:"side"`
	LastPrice           float64 `json:"lastPrice"`
	Bid                 float64 `json:"bid"`
	Ask                 float64 `json:"ask"`
	Change              float64 `json:"change"`
	ChangePercent       float64 `json:"changePercent"`
	Volume              int64   `json:"volume"`
	OpenInterest        int64   `json:"openInterest"`
	ImpliedVolatility   float64 `json:"impliedVolatility"`
	PredictedVolatility float64 `json:"predictedVolatility"`
	VolatilityDiff      float64 `json:"volatilityDiff"` // predicted - implied, percentage points
	TimeToExpiration    float64 `json:"timeToExpiration"`
	RiskFreeRate        float64 `json:"riskFreeRate"`
	InTheMoney          bool    `json:"inTheMoney"`

	// Greeks.
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`

	// Valuation signal.
	Recommended bool    `json:"recommended"`
	Action      string  `json:"action,omitempty"` // "BUY" or "AVOID" when recommended
	Reason      string  `json:"reason,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// StrikeRange is the inclusive strike span covered by a chain.
type StrikeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Mid returns the midpoint of the range.
func (r StrikeRange) Mid() float64 { return (r.Min + r.Max) / 2 }

// Chain is the full option chain snapshot for one symbol at one instant.
// A Chain is immutable after construction; a refresh produces a new
// snapshot rather than mutating the old one.
type Chain struct {
	Symbol          string      `json:"symbol"`
	ReferencePrice  float64     `json:"referencePrice"`
	ExpirationDates []string    `json:"expirationDates"` // ascending
	StrikeRange     StrikeRange `json:"strikeRange"`
	Calls           []Contract  `json:"calls"`
	Puts            []Contract  `json:"puts"`
	GeneratedAt     time.Time   `json:"generatedAt"`
}

// SideContracts returns the contract slice for the given side.
// Callers must treat the returned slice as read-only.
func (c *Chain) SideContracts(side Side) []Contract {
	if side == Put {
		return c.Puts
	}
	return c.Calls
}

// ChainSource says where a chain's reference price came from.
type ChainSource string

const (
	SourceLive        ChainSource = "live"
	SourceSynthesized ChainSource = "synthesized"
)

// ChainResult is the outcome of one chain request: the snapshot, which
// path produced it, and an optional non-fatal warning (e.g. the live
// collaborator failed and the engine fell back to synthesis).
type ChainResult struct {
	Chain   *Chain      `json:"chain"`
	Source  ChainSource `json:"source"`
	Warning string      `json:"warning,omitempty"`
}
