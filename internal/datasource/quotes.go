package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/michaelwaves/optionscope/pkg/models"
)

const yahooChartBase = "https://query1.finance.yahoo.com/v8/finance/chart"

// QuoteAPI fetches near-real-time quotes from the Yahoo Finance v8 chart
// endpoint. Results are cached briefly so the dashboard's repeated chain
// requests do not hammer the upstream.
type QuoteAPI struct {
	baseURL string
	cache   *Cache
	limiter *RateLimiter
}

// NewQuoteAPI creates a quote source against the public endpoint.
func NewQuoteAPI() *QuoteAPI {
	return NewQuoteAPIWithBase(yahooChartBase)
}

// NewQuoteAPIWithBase creates a quote source against a custom base URL
// (tests point this at an httptest server).
func NewQuoteAPIWithBase(base string) *QuoteAPI {
	return &QuoteAPI{
		baseURL: base,
		cache:   NewCache(1 * time.Minute),
		limiter: NewRateLimiter(5, time.Second),
	}
}

// Name returns the data source name.
func (q *QuoteAPI) Name() string { return "Yahoo Finance" }

// --- chart API response types ---

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol              string  `json:"symbol"`
		LongName            string  `json:"longName"`
		Currency            string  `json:"currency"`
		RegularMarketPrice  float64 `json:"regularMarketPrice"`
		PreviousClose       float64 `json:"chartPreviousClose"`
		RegularMarketVolume int64   `json:"regularMarketVolume"`
	} `json:"meta"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GetQuote returns a quote for the symbol, from cache when fresh.
func (q *QuoteAPI) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	cacheKey := "quote:" + symbol
	if cached, ok := q.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := q.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s?interval=1d&range=1d", q.baseURL, url.PathEscape(symbol))
	body, err := doGet(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed chartResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}

	if parsed.Chart.Error != nil {
		if parsed.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("chart API error: %s", parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	meta := parsed.Chart.Result[0].Meta
	quote := &models.Quote{
		Symbol:        symbol,
		Name:          meta.LongName,
		Price:         meta.RegularMarketPrice,
		PreviousClose: meta.PreviousClose,
		Volume:        meta.RegularMarketVolume,
		Currency:      meta.Currency,
		FetchedAt:     time.Now(),
	}
	if meta.PreviousClose > 0 {
		quote.Change = meta.RegularMarketPrice - meta.PreviousClose
		quote.ChangePercent = quote.Change / meta.PreviousClose * 100
	}

	q.cache.Set(cacheKey, quote)
	return quote, nil
}
