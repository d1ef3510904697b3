package datasource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/michaelwaves/optionscope/pkg/models"
)

const stooqBase = "https://stooq.com/q"

// ScrapeQuote is the HTML-scrape fallback quote source, used when the
// JSON API is unreachable or rate limited. It parses the quote page of
// a public mirror site with goquery.
type ScrapeQuote struct {
	baseURL string
	cache   *Cache
	limiter *RateLimiter
}

// NewScrapeQuote creates the fallback scraper.
func NewScrapeQuote() *ScrapeQuote {
	return NewScrapeQuoteWithBase(stooqBase)
}

// NewScrapeQuoteWithBase creates a scraper against a custom base URL.
func NewScrapeQuoteWithBase(base string) *ScrapeQuote {
	return &ScrapeQuote{
		baseURL: base,
		cache:   NewCache(2 * time.Minute),
		limiter: NewRateLimiter(2, time.Second), // conservative: 2 req/s
	}
}

// Name returns the data source name.
func (s *ScrapeQuote) Name() string { return "Quote page scrape" }

// GetQuote scrapes the last traded price off the quote page.
func (s *ScrapeQuote) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	cacheKey := "scrape:" + symbol
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/?s=%s.us", s.baseURL, strings.ToLower(symbol))
	body, err := doGet(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse quote page: %w", err)
	}

	// The quote page renders the last price in a span with a
	// predictable id ("aq_<symbol>.us_c2" carries the close).
	var price float64
	doc.Find("span[id^=aq_]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		id, _ := sel.Attr("id")
		if !strings.HasSuffix(id, "_c2") {
			return true
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(sel.Text()), 64)
		if perr == nil && v > 0 {
			price = v
			return false
		}
		return true
	})

	if price <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	quote := &models.Quote{
		Symbol:    symbol,
		Price:     price,
		FetchedAt: time.Now(),
	}
	s.cache.Set(cacheKey, quote)
	return quote, nil
}

// Quotes chains the JSON API with the scrape fallback. A rate-limit
// signal from the primary is propagated as-is when the fallback also
// fails, so callers can distinguish it from transport errors.
type Quotes struct {
	primary  *QuoteAPI
	fallback *ScrapeQuote
}

// NewQuotes builds the default two-tier quote source.
func NewQuotes() *Quotes {
	return &Quotes{primary: NewQuoteAPI(), fallback: NewScrapeQuote()}
}

// NewQuotesWith builds a quote source from explicit tiers (tests).
func NewQuotesWith(primary *QuoteAPI, fallback *ScrapeQuote) *Quotes {
	return &Quotes{primary: primary, fallback: fallback}
}

// Name returns the data source name.
func (q *Quotes) Name() string { return "Live quotes" }

// GetQuote tries the JSON API first, then the scraper.
func (q *Quotes) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quote, primaryErr := q.primary.GetQuote(ctx, symbol)
	if primaryErr == nil {
		return quote, nil
	}

	if q.fallback != nil {
		if quote, err := q.fallback.GetQuote(ctx, symbol); err == nil {
			return quote, nil
		}
	}
	return nil, primaryErr
}
