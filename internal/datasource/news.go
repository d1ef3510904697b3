package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/michaelwaves/optionscope/pkg/models"
)

// NewsFeed is one configured RSS source.
type NewsFeed struct {
	Name   string
	RSSURL string
}

// DefaultNewsFeeds lists the market-news feeds shown in the dashboard
// side panel.
var DefaultNewsFeeds = []NewsFeed{
	{Name: "Yahoo Finance", RSSURL: "https://finance.yahoo.com/news/rssindex"},
	{Name: "MarketWatch", RSSURL: "https://feeds.marketwatch.com/marketwatch/topstories/"},
	{Name: "CNBC Markets", RSSURL: "https://www.cnbc.com/id/20910258/device/rss/rss.html"},
}

// News fetches market headlines over RSS.
type News struct {
	feeds   []NewsFeed
	cache   *Cache
	limiter *RateLimiter
	parser  *gofeed.Parser
}

// NewNews creates a news source with the default feeds.
func NewNews() *News {
	return NewNewsWithFeeds(DefaultNewsFeeds)
}

// NewNewsWithFeeds creates a news source with custom feeds.
func NewNewsWithFeeds(feeds []NewsFeed) *News {
	return &News{
		feeds:   feeds,
		cache:   NewCache(10 * time.Minute),
		limiter: NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "Market news" }

// GetMarketNews returns recent headlines across all feeds, newest first.
func (n *News) GetMarketNews(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	if limit <= 0 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("news:market:%d", limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	var all []models.NewsArticle
	var lastErr error
	for _, feed := range n.feeds {
		articles, err := n.fetchFeed(ctx, feed)
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, articles...)
	}

	if len(all) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("all news feeds failed: %w", lastErr)
		}
		return nil, nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}

	n.cache.Set(cacheKey, all)
	return all, nil
}

// GetSymbolNews filters market news down to headlines mentioning the symbol.
func (n *News) GetSymbolNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	all, err := n.GetMarketNews(ctx, 100)
	if err != nil {
		return nil, err
	}

	needle := strings.ToUpper(symbol)
	var out []models.NewsArticle
	for _, a := range all {
		if strings.Contains(strings.ToUpper(a.Title), needle) ||
			strings.Contains(strings.ToUpper(a.Summary), needle) {
			out = append(out, a)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (n *News) fetchFeed(ctx context.Context, feed NewsFeed) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := n.parser.ParseURLWithContext(feed.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	articles := make([]models.NewsArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		published := time.Time{}
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		articles = append(articles, models.NewsArticle{
			Title:       item.Title,
			Summary:     item.Description,
			URL:         item.Link,
			Source:      feed.Name,
			PublishedAt: published,
		})
	}
	return articles, nil
}
