package chain

import (
	"strings"
	"testing"

	"github.com/michaelwaves/optionscope/pkg/models"
)

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		name        string
		diff        float64
		recommended bool
		action      string
		contains    string
	}{
		{"strongly undervalued", 3.4, true, ActionBuy, "Undervalued"},
		{"references magnitude", 3.4, true, ActionBuy, "3.4"},
		{"slightly undervalued", 1.0, false, "", "Slightly undervalued"},
		{"neutral", 0, false, "", ""},
		{"slightly overvalued", -1.5, false, "", "Slightly overvalued"},
		{"strongly overvalued", -3.0, true, ActionAvoid, "Overvalued"},
		{"boundary above", 2.0, false, "", "Slightly undervalued"},
		{"boundary below", -2.0, false, "", "Slightly overvalued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Classify(tt.diff)
			if sig.Recommended != tt.recommended {
				t.Errorf("Recommended: got %v, want %v", sig.Recommended, tt.recommended)
			}
			if sig.Action != tt.action {
				t.Errorf("Action: got %q, want %q", sig.Action, tt.action)
			}
			if tt.contains == "" {
				if tt.diff == 0 && sig.Reason != "" {
					t.Errorf("zero difference must carry no justification, got %q", sig.Reason)
				}
			} else if !strings.Contains(sig.Reason, tt.contains) {
				t.Errorf("Reason %q does not contain %q", sig.Reason, tt.contains)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		a, b := Classify(2.7), Classify(2.7)
		if a != b {
			t.Fatal("classification must be reproducible from the difference alone")
		}
	}
}

func TestConfidenceBands(t *testing.T) {
	tests := []struct {
		diff float64
		want float64
	}{
		{0, 0},
		{0.5, 0.3},
		{-1.0, 0.3},
		{2.2, 0.5},
		{-4.0, 0.7},
		{7.5, 0.85},
		{-12.0, 0.95},
	}

	for _, tt := range tests {
		if got := confidence(tt.diff); got != tt.want {
			t.Errorf("confidence(%v): got %v, want %v", tt.diff, got, tt.want)
		}
	}
}

func TestApplySignal(t *testing.T) {
	c := models.Contract{VolatilityDiff: 5.2}
	ApplySignal(&c)

	if !c.Recommended || c.Action != ActionBuy {
		t.Errorf("expected BUY recommendation, got %+v", c)
	}
	if c.Confidence != 0.85 {
		t.Errorf("confidence: got %v, want 0.85", c.Confidence)
	}
}

func TestExplainContract(t *testing.T) {
	c := models.Contract{
		ContractSymbol:      "AAPL260306C00180000",
		Strike:              180,
		ExpirationDate:      "2026-03-06",
		Side:                models.Call,
		LastPrice:           4.20,
		Bid:                 4.10,
		Ask:                 4.30,
		Volume:              1200,
		OpenInterest:        5400,
		ImpliedVolatility:   27.5,
		PredictedVolatility: 30.9,
		VolatilityDiff:      3.4,
		TimeToExpiration:    0.0192,
		RiskFreeRate:        0.051,
		Delta:               0.47,
	}
	ApplySignal(&c)

	lines := ExplainContract(c)
	if len(lines) < 5 {
		t.Fatalf("expected a full explanation, got %d lines", len(lines))
	}

	joined := strings.Join(lines, "\n")
	for _, want := range []string{"Undervalued", "3.4", "27.50", "30.90", "delta", "open interest 5400"} {
		if !strings.Contains(joined, want) {
			t.Errorf("explanation missing %q:\n%s", want, joined)
		}
	}
}

func TestExplainNeutralContract(t *testing.T) {
	lines := ExplainContract(models.Contract{Side: models.Put})
	if len(lines) == 0 || !strings.Contains(lines[0], "Fairly priced") {
		t.Errorf("neutral contract should lead with the fair-price line, got %v", lines)
	}
}
