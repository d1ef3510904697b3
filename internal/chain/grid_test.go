package chain

import (
	"testing"
	"time"

	"github.com/michaelwaves/optionscope/pkg/models"
)

var testNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC) // a Wednesday

func TestBuildGridExpirations(t *testing.T) {
	grid := BuildGrid("AAPL", 4, testNow)

	if len(grid.Expirations) != 4 {
		t.Fatalf("expected 4 expirations, got %d", len(grid.Expirations))
	}

	for i, exp := range grid.Expirations {
		if exp.Weekday() != time.Friday {
			t.Errorf("expiration %d: %s is a %s, want Friday", i, exp.Format("2006-01-02"), exp.Weekday())
		}
		if !exp.After(testNow) {
			t.Errorf("expiration %d: %s is not strictly after now", i, exp.Format("2006-01-02"))
		}
		if i > 0 && !grid.Expirations[i-1].Before(exp) {
			t.Errorf("expirations not ascending at %d", i)
		}
	}

	if got := grid.Expirations[0].Format("2006-01-02"); got != "2026-03-06" {
		t.Errorf("first expiration: got %s, want 2026-03-06", got)
	}
}

func TestBuildGridExpirationsFromFriday(t *testing.T) {
	friday := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	grid := BuildGrid("AAPL", 2, friday)

	// "Strictly after" means a request on expiration day skips to the
	// following week.
	if got := grid.Expirations[0].Format("2006-01-02"); got != "2026-03-13" {
		t.Errorf("first expiration from a Friday: got %s, want 2026-03-13", got)
	}
}

func TestBuildGridDefaults(t *testing.T) {
	grid := BuildGrid("AAPL", 0, testNow)
	if len(grid.Expirations) != DefaultWeeks {
		t.Errorf("zero weeks should fall back to %d, got %d", DefaultWeeks, len(grid.Expirations))
	}
}

func TestReferencePrice(t *testing.T) {
	if got := ReferencePrice("AAPL"); got != 178.25 {
		t.Errorf("known symbol: got %v, want 178.25", got)
	}

	// Unknown symbols synthesize deterministically inside a wide band.
	a := ReferencePrice("ZZXQJ")
	b := ReferencePrice("ZZXQJ")
	if a != b {
		t.Errorf("unknown symbol price not deterministic: %v vs %v", a, b)
	}
	if a < 10 || a >= 510 {
		t.Errorf("unknown symbol price %v outside plausible band", a)
	}

	if ReferencePrice("ZZXQJ") == ReferencePrice("QQJXZ") {
		t.Error("distinct unknown symbols should rarely collide; hash looks constant")
	}
}

func TestStrikeLadder(t *testing.T) {
	tests := []struct {
		symbol string
		ref    float64
	}{
		{"AAPL", 178.25},
		{"DIS", 96.85},
		{"META", 512.75},
		{"penny", 8.40},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			grid := BuildGridAt(tt.symbol, tt.ref, 4, testNow)

			if n := len(grid.Strikes); n < 10 || n > 15 {
				t.Errorf("strike count %d outside the expected 10-15 band", n)
			}

			step := strikeStep(tt.ref)
			for i, s := range grid.Strikes {
				if s < tt.ref*(1-strikeSpan)-step || s > tt.ref*(1+strikeSpan)+step {
					t.Errorf("strike %v outside ±30%% of %v", s, tt.ref)
				}
				if i > 0 && grid.Strikes[i-1] >= s {
					t.Errorf("strikes not strictly ascending at %d", i)
				}
			}

			sr := grid.StrikeRange()
			if sr.Min > sr.Max {
				t.Errorf("strike range inverted: %+v", sr)
			}
			if sr.Min > tt.ref || sr.Max < tt.ref {
				t.Errorf("reference price %v outside strike range %+v", tt.ref, sr)
			}
		})
	}
}

func TestStrikeLadderCountAtBandEdges(t *testing.T) {
	// Prices just above a step-table boundary sit at the sparse end of
	// their band; none may drop below 10 rungs.
	refs := []float64{17, 26, 34, 51, 52, 85, 105, 110, 127.5, 150, 170,
		255, 260, 300, 375, 425, 610, 680, 1020, 1700}

	for _, ref := range refs {
		grid := BuildGridAt("X", ref, 4, testNow)
		if n := len(grid.Strikes); n < 10 {
			t.Errorf("ref %.2f: only %d strikes, want at least 10", ref, n)
		}
	}
}

func TestStrikeLadderCountSweep(t *testing.T) {
	for ref := 10.0; ref <= 2000; ref *= 1.03 {
		grid := BuildGridAt("X", ref, 4, testNow)
		if n := len(grid.Strikes); n < 10 || n > 21 {
			t.Errorf("ref %.2f: %d strikes outside the 10-21 envelope", ref, n)
		}
	}
}

func TestStrikeStepMonotonic(t *testing.T) {
	prices := []float64{5, 15, 26, 40, 60, 100, 150, 200, 400, 600, 900, 1500, 2000}
	prev := 0.0
	for _, p := range prices {
		step := strikeStep(p)
		if step < prev {
			t.Errorf("strike step not monotonic: step(%v)=%v < %v", p, step, prev)
		}
		prev = step
	}
}

func TestContractSymbol(t *testing.T) {
	expiry := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)

	got := ContractSymbol("AAPL", expiry, models.Call, 180)
	if got != "AAPL260306C00180000" {
		t.Errorf("call symbol: got %s, want AAPL260306C00180000", got)
	}

	got = ContractSymbol("AAPL", expiry, models.Put, 182.5)
	if got != "AAPL260306P00182500" {
		t.Errorf("put symbol: got %s, want AAPL260306P00182500", got)
	}
}
