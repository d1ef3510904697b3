package query

import (
	"testing"
	"time"

	"github.com/michaelwaves/optionscope/internal/chain"
	"github.com/michaelwaves/optionscope/pkg/models"
)

var testNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func testChain(t *testing.T) *models.Chain {
	t.Helper()

	grid := chain.BuildGrid("AAPL", 4, testNow)
	calls, puts := chain.NewSynthesizer(42).Synthesize(grid, testNow)

	dates := make([]string, len(grid.Expirations))
	for i, d := range grid.Expirations {
		dates[i] = d.Format("2006-01-02")
	}

	return &models.Chain{
		Symbol:          "AAPL",
		ReferencePrice:  grid.ReferencePrice,
		ExpirationDates: dates,
		StrikeRange:     grid.StrikeRange(),
		Calls:           calls,
		Puts:            puts,
		GeneratedAt:     testNow,
	}
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestFilterEmptySpec(t *testing.T) {
	c := testChain(t)

	got := Filter(c, models.Call, FilterSpec{})
	if len(got) != len(c.Calls) {
		t.Fatalf("empty spec must pass everything: got %d, want %d", len(got), len(c.Calls))
	}
	for i := range got {
		if got[i].ContractSymbol != c.Calls[i].ContractSymbol {
			t.Fatal("empty spec must preserve chain order")
		}
	}
}

func TestFilterExpiration(t *testing.T) {
	c := testChain(t)
	date := c.ExpirationDates[1]

	got := Filter(c, models.Call, FilterSpec{Expiration: date})
	if len(got) == 0 {
		t.Fatal("expected contracts on a ladder date")
	}
	for _, contract := range got {
		if contract.ExpirationDate != date {
			t.Errorf("contract %s has expiration %s, want %s", contract.ContractSymbol, contract.ExpirationDate, date)
		}
	}

	if got := Filter(c, models.Call, FilterSpec{Expiration: "1999-01-01"}); len(got) != 0 {
		t.Errorf("off-ladder expiration must match nothing, got %d", len(got))
	}
}

func TestFilterStrikeBounds(t *testing.T) {
	c := testChain(t)
	mid := c.StrikeRange.Mid()

	got := Filter(c, models.Put, FilterSpec{MinStrike: f64(mid), MaxStrike: f64(c.StrikeRange.Max)})
	if len(got) == 0 || len(got) >= len(c.Puts) {
		t.Fatalf("bounds should narrow the side: got %d of %d", len(got), len(c.Puts))
	}
	for _, contract := range got {
		if contract.Strike < mid || contract.Strike > c.StrikeRange.Max {
			t.Errorf("strike %v outside [%v, %v]", contract.Strike, mid, c.StrikeRange.Max)
		}
	}
}

func TestFilterMoneynessATMUsesRangeMidpoint(t *testing.T) {
	c := testChain(t)
	mid := c.StrikeRange.Mid()

	got := Filter(c, models.Call, FilterSpec{Moneyness: MoneynessATM})
	for _, contract := range got {
		dist := contract.Strike - mid
		if dist < 0 {
			dist = -dist
		}
		if dist > mid*atmBand {
			t.Errorf("ATM contract %s strike %v is %.2f%% from the range midpoint %v",
				contract.ContractSymbol, contract.Strike, dist/mid*100, mid)
		}
	}
}

func TestFilterMoneynessITMOTMPartition(t *testing.T) {
	c := testChain(t)

	itm := Filter(c, models.Call, FilterSpec{Moneyness: MoneynessITM})
	otm := Filter(c, models.Call, FilterSpec{Moneyness: MoneynessOTM})

	if len(itm)+len(otm) != len(c.Calls) {
		t.Errorf("ITM (%d) and OTM (%d) must partition the side (%d)", len(itm), len(otm), len(c.Calls))
	}
	for _, contract := range itm {
		if !contract.InTheMoney {
			t.Errorf("%s in ITM bucket but not in the money", contract.ContractSymbol)
		}
	}
	for _, contract := range otm {
		if contract.InTheMoney {
			t.Errorf("%s in OTM bucket but in the money", contract.ContractSymbol)
		}
	}
}

func TestFilterMinVolumeAndRecommended(t *testing.T) {
	c := testChain(t)

	got := Filter(c, models.Call, FilterSpec{MinVolume: i64(500), RecommendedOnly: true})
	for _, contract := range got {
		if contract.Volume < 500 {
			t.Errorf("%s volume %d below the floor", contract.ContractSymbol, contract.Volume)
		}
		if !contract.Recommended {
			t.Errorf("%s not recommended", contract.ContractSymbol)
		}
	}

	all := Filter(c, models.Call, FilterSpec{})
	if len(got) >= len(all) {
		t.Error("combined predicates should narrow the result on a full chain")
	}
}

func TestFilterUnknownMoneynessIsNoOp(t *testing.T) {
	c := testChain(t)
	if got := Filter(c, models.Call, FilterSpec{Moneyness: "weird"}); len(got) != len(c.Calls) {
		t.Errorf("unknown moneyness must pass everything, got %d of %d", len(got), len(c.Calls))
	}
}

func TestSortByKeys(t *testing.T) {
	c := testChain(t)

	tests := []struct {
		key   SortKey
		value func(models.Contract) float64
	}{
		{SortByStrike, func(c models.Contract) float64 { return c.Strike }},
		{SortByLastPrice, func(c models.Contract) float64 { return c.LastPrice }},
		{SortByVolume, func(c models.Contract) float64 { return float64(c.Volume) }},
		{SortByOI, func(c models.Contract) float64 { return float64(c.OpenInterest) }},
		{SortByIV, func(c models.Contract) float64 { return c.ImpliedVolatility }},
		{SortByVolDiff, func(c models.Contract) float64 { return c.VolatilityDiff }},
		{SortByDelta, func(c models.Contract) float64 { return c.Delta }},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			asc := Sort(c.Calls, tt.key, Ascending)
			for i := 1; i < len(asc); i++ {
				if tt.value(asc[i-1]) > tt.value(asc[i]) {
					t.Fatalf("ascending order violated at %d", i)
				}
			}

			desc := Sort(c.Calls, tt.key, Descending)
			for i := 1; i < len(desc); i++ {
				if tt.value(desc[i-1]) < tt.value(desc[i]) {
					t.Fatalf("descending order violated at %d", i)
				}
			}
		})
	}
}

func TestSortByExpirationChronological(t *testing.T) {
	c := testChain(t)

	sorted := Sort(c.Calls, SortByExpiration, Ascending)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].ExpirationDate > sorted[i].ExpirationDate {
			t.Fatalf("expiration order violated: %s after %s", sorted[i-1].ExpirationDate, sorted[i].ExpirationDate)
		}
	}
}

func TestSortStableOnTies(t *testing.T) {
	contracts := []models.Contract{
		{ContractSymbol: "A", Volume: 100},
		{ContractSymbol: "B", Volume: 100},
		{ContractSymbol: "C", Volume: 100},
	}

	sorted := Sort(contracts, SortByVolume, Descending)
	for i, want := range []string{"A", "B", "C"} {
		if sorted[i].ContractSymbol != want {
			t.Fatalf("ties reordered: got %v", sorted)
		}
	}
}

func TestSortUnknownKeyPreservesOrder(t *testing.T) {
	c := testChain(t)

	sorted := Sort(c.Calls, "nonsense", Descending)
	if len(sorted) != len(c.Calls) {
		t.Fatal("length changed")
	}
	for i := range sorted {
		if sorted[i].ContractSymbol != c.Calls[i].ContractSymbol {
			t.Fatal("unknown key must leave the order untouched")
		}
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	c := testChain(t)
	first := c.Calls[0].ContractSymbol

	Sort(c.Calls, SortByVolume, Descending)
	if c.Calls[0].ContractSymbol != first {
		t.Fatal("sort mutated the snapshot")
	}
}
