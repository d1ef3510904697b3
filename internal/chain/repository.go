package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/michaelwaves/optionscope/internal/datasource"
	"github.com/michaelwaves/optionscope/pkg/models"
)

// DefaultTTL is how long a chain snapshot stays fresh.
const DefaultTTL = 5 * time.Minute

// DefaultLiveTimeout bounds one live-quote fetch.
const DefaultLiveTimeout = 10 * time.Second

// QuoteSource supplies the live reference price. The repository treats
// every failure as "fall back to synthesis".
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// RepositoryConfig wires a Repository. Zero values get sensible defaults;
// Clock and Seed exist so tests can pin time and randomness.
type RepositoryConfig struct {
	Weeks       int
	TTL         time.Duration
	Seed        int64
	Live        QuoteSource   // nil disables the live-data path
	LiveTimeout time.Duration // per-fetch bound on the live path
	Clock       func() time.Time
	Logger      zerolog.Logger
}

// Repository owns chain snapshots: it builds them on demand and serves
// cached ones inside the TTL window. Snapshots are immutable; a refresh
// replaces the entry for the symbol (last writer wins).
type Repository struct {
	weeks       int
	ttl         time.Duration
	synth       *Synthesizer
	live        QuoteSource
	liveTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	snapshots map[string]snapshot
}

type snapshot struct {
	result   models.ChainResult
	storedAt time.Time
}

// NewRepository creates a chain repository.
func NewRepository(cfg RepositoryConfig) *Repository {
	if cfg.Weeks <= 0 {
		cfg.Weeks = DefaultWeeks
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.LiveTimeout <= 0 {
		cfg.LiveTimeout = DefaultLiveTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Repository{
		weeks:       cfg.Weeks,
		ttl:         cfg.TTL,
		synth:       NewSynthesizer(cfg.Seed),
		live:        cfg.Live,
		liveTimeout: cfg.LiveTimeout,
		now:         cfg.Clock,
		log:         cfg.Logger,
		snapshots:   make(map[string]snapshot),
	}
}

// NormalizeSymbol canonicalizes user input before lookup.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetChain returns the chain snapshot for a symbol, reusing a cached one
// when it is younger than the TTL. Concurrent requests for the same
// symbol observe the same snapshot; synthesis is deduplicated.
func (r *Repository) GetChain(ctx context.Context, symbol string) (models.ChainResult, error) {
	key := NormalizeSymbol(symbol)

	if res, ok := r.cached(key); ok {
		return res, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// A concurrent caller may have stored a snapshot while this
		// one waited on the flight group.
		if res, ok := r.cached(key); ok {
			return res, nil
		}

		res := r.build(ctx, key)

		r.mu.Lock()
		r.snapshots[key] = snapshot{result: res, storedAt: r.now()}
		r.mu.Unlock()

		return res, nil
	})
	if err != nil {
		return models.ChainResult{}, err
	}
	return v.(models.ChainResult), nil
}

// Flush drops every cached snapshot.
func (r *Repository) Flush() {
	r.mu.Lock()
	r.snapshots = make(map[string]snapshot)
	r.mu.Unlock()
}

func (r *Repository) cached(key string) (models.ChainResult, bool) {
	r.mu.RLock()
	snap, ok := r.snapshots[key]
	r.mu.RUnlock()

	if !ok || r.now().Sub(snap.storedAt) >= r.ttl {
		return models.ChainResult{}, false
	}
	return snap.result, true
}

// build assembles a fresh snapshot: resolve the reference price (live or
// synthesized), derive the grid, synthesize both sides. It never fails;
// every live-path problem degrades to synthesis with a warning.
func (r *Repository) build(ctx context.Context, symbol string) models.ChainResult {
	now := r.now()

	ref := 0.0
	source := models.SourceSynthesized
	warning := ""

	if r.live != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, r.liveTimeout)
		quote, err := r.live.GetQuote(fetchCtx, symbol)
		cancel()
		switch {
		case err == nil && quote != nil && quote.Price > 0:
			ref = quote.Price
			source = models.SourceLive
		case errors.Is(err, datasource.ErrRateLimited):
			warning = "live data rate limited; serving a synthesized chain"
			r.log.Warn().Str("symbol", symbol).Msg("quote source rate limited, falling back to synthesis")
		case err == nil:
			warning = "live quote returned no usable price; serving a synthesized chain"
		default:
			warning = fmt.Sprintf("live quote unavailable (%v); serving a synthesized chain", err)
			r.log.Warn().Str("symbol", symbol).Err(err).Msg("quote fetch failed, falling back to synthesis")
		}
	}

	grid := BuildGridAt(symbol, ref, r.weeks, now)
	calls, puts := r.synth.Synthesize(grid, now)

	chain := &models.Chain{
		Symbol:          symbol,
		ReferencePrice:  grid.ReferencePrice,
		ExpirationDates: formatDates(grid.Expirations),
		StrikeRange:     grid.StrikeRange(),
		Calls:           calls,
		Puts:            puts,
		GeneratedAt:     now,
	}

	r.log.Debug().
		Str("symbol", symbol).
		Str("source", string(source)).
		Int("expirations", len(chain.ExpirationDates)).
		Int("contracts", len(calls)+len(puts)).
		Msg("chain snapshot built")

	return models.ChainResult{Chain: chain, Source: source, Warning: warning}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
