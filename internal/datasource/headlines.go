package datasource

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/pkg/models"
)

// DefaultFeeds maps news categories to their RSS feeds. Used when the model
// cannot produce headlines and as the source for feed-only deployments.
var DefaultFeeds = map[string][]string{
	"general": {
		"https://feeds.bbci.co.uk/news/rss.xml",
		"https://www.theguardian.com/world/rss",
	},
	"world": {
		"https://feeds.bbci.co.uk/news/world/rss.xml",
		"https://rss.nytimes.com/services/xml/rss/nyt/World.xml",
	},
	"business": {
		"https://feeds.bbci.co.uk/news/business/rss.xml",
		"https://www.theguardian.com/uk/business/rss",
	},
	"technology": {
		"https://feeds.bbci.co.uk/news/technology/rss.xml",
		"https://www.theguardian.com/uk/technology/rss",
	},
	"science": {
		"https://feeds.bbci.co.uk/news/science_and_environment/rss.xml",
		"https://www.theguardian.com/science/rss",
	},
	"health": {
		"https://feeds.bbci.co.uk/news/health/rss.xml",
	},
	"sports": {
		"https://feeds.bbci.co.uk/sport/rss.xml",
		"https://www.theguardian.com/uk/sport/rss",
	},
	"entertainment": {
		"https://feeds.bbci.co.uk/news/entertainment_and_arts/rss.xml",
	},
}

// categoryAliases folds common category spellings onto feed map keys.
var categoryAliases = map[string]string{
	"tech":          "technology",
	"sport":         "sports",
	"politics":      "world",
	"international": "world",
	"finance":       "business",
	"economy":       "business",
	"medicine":      "health",
}

// Headlines fetches category headlines from RSS feeds.
type Headlines struct {
	feeds       map[string][]string
	cache       *Cache
	limiter     *RateLimiter
	concurrency int
}

// HeadlinesOption customizes a Headlines source.
type HeadlinesOption func(*Headlines)

// WithFeeds replaces the category feed map.
func WithFeeds(feeds map[string][]string) HeadlinesOption {
	return func(h *Headlines) {
		if len(feeds) > 0 {
			h.feeds = feeds
		}
	}
}

// WithHeadlinesCacheTTL sets how long fetched headlines are cached.
func WithHeadlinesCacheTTL(ttl time.Duration) HeadlinesOption {
	return func(h *Headlines) {
		if ttl > 0 {
			h.cache = NewCache(ttl)
		}
	}
}

// WithConcurrentFetches bounds how many feeds are fetched at once.
func WithConcurrentFetches(n int) HeadlinesOption {
	return func(h *Headlines) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

// NewHeadlines creates a headline source with the default feed map.
func NewHeadlines(opts ...HeadlinesOption) *Headlines {
	h := &Headlines{
		feeds:       DefaultFeeds,
		cache:       NewCache(5 * time.Minute),
		limiter:     NewRateLimiter(2, time.Second), // conservative: 2 req/s
		concurrency: 5,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewHeadlinesFromConfig creates a headline source from the news section of
// the config. Configured feeds extend (and override per category) the defaults.
func NewHeadlinesFromConfig(cfg *config.Config) *Headlines {
	feeds := make(map[string][]string, len(DefaultFeeds)+len(cfg.News.Feeds))
	for cat, urls := range DefaultFeeds {
		feeds[cat] = urls
	}
	for cat, urls := range cfg.News.Feeds {
		feeds[normalizeCategory(cat)] = urls
	}
	return NewHeadlines(
		WithFeeds(feeds),
		WithHeadlinesCacheTTL(time.Duration(cfg.News.CacheTTL)*time.Second),
		WithConcurrentFetches(cfg.News.ConcurrentFetches),
	)
}

// Categories returns the configured category names, sorted.
func (h *Headlines) Categories() []string {
	cats := make([]string, 0, len(h.feeds))
	for cat := range h.feeds {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Fetch returns up to limit headlines for the category. Unknown categories
// fall back to the general feeds. Results are cached per category and limit.
func (h *Headlines) Fetch(ctx context.Context, category string, limit int) ([]models.NewsHeadline, error) {
	category = normalizeCategory(category)

	cacheKey := fmt.Sprintf("headlines:%s:%d", category, limit)
	if cached, ok := h.cache.Get(cacheKey); ok {
		return cached.([]models.NewsHeadline), nil
	}

	feedURLs := h.feedsFor(category)
	if len(feedURLs) == 0 {
		return nil, fmt.Errorf("%w: no feeds configured for category %q", ErrNoHeadlines, category)
	}

	var (
		mu  sync.Mutex
		all []models.NewsHeadline
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for _, feedURL := range feedURLs {
		g.Go(func() error {
			items, err := h.fetchFeed(gctx, feedURL)
			if err != nil {
				// Non-critical: skip failed feeds.
				log.Printf("datasource/headlines: %s: %v", feedURL, err)
				return nil
			}
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all = dedupeByURL(all)
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: category %q", ErrNoHeadlines, category)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	h.cache.Set(cacheKey, all)
	return all, nil
}

// feedsFor resolves a category to its feed URLs, falling back to general.
func (h *Headlines) feedsFor(category string) []string {
	if urls, ok := h.feeds[category]; ok {
		return urls
	}
	return h.feeds["general"]
}

// fetchFeed parses a single RSS feed into headlines.
func (h *Headlines) fetchFeed(ctx context.Context, feedURL string) ([]models.NewsHeadline, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Parser instances are not safe for concurrent use.
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = feedHost(feedURL)
	}

	headlines := make([]models.NewsHeadline, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanHTML(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		headlines = append(headlines, models.NewsHeadline{
			Title:  title,
			Source: source,
			URL:    item.Link,
		})
	}
	return headlines, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// normalizeCategory lowercases a category name and folds known aliases.
func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return "general"
	}
	if canonical, ok := categoryAliases[c]; ok {
		return canonical
	}
	return c
}

// dedupeByURL drops headlines whose URL was already seen, keeping order.
func dedupeByURL(headlines []models.NewsHeadline) []models.NewsHeadline {
	seen := make(map[string]bool, len(headlines))
	out := headlines[:0]
	for _, hl := range headlines {
		if seen[hl.URL] {
			continue
		}
		seen[hl.URL] = true
		out = append(out, hl)
	}
	return out
}

// feedHost extracts the host part of a feed URL for use as a source name.
func feedHost(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}
