package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/pkg/models"
)

// rawReadLimit caps how much of a page body is read before extraction.
const rawReadLimit = 8 << 20 // 8 MiB

// DefaultMaxArticleBytes bounds the extracted text handed to the analysis
// prompt. Anything past it is cut and the article is flagged as truncated.
const DefaultMaxArticleBytes = 128 * 1024

// Fetcher downloads a news page and extracts its readable text.
type Fetcher struct {
	client   *http.Client
	maxBytes int
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherClient sets a custom HTTP client.
func WithFetcherClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithMaxArticleBytes sets the extracted-text byte cap.
func WithMaxArticleBytes(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithFetchTimeout sets the per-request timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// NewFetcher creates an article fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: DefaultMaxArticleBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFetcherFromConfig creates a fetcher from the article section of the config.
func NewFetcherFromConfig(cfg *config.Config) *Fetcher {
	return NewFetcher(
		WithMaxArticleBytes(cfg.Article.MaxBytes),
		WithFetchTimeout(time.Duration(cfg.Article.TimeoutSec)*time.Second),
	)
}

// Fetch downloads rawURL and returns the extracted article. The text content
// is truncated at the configured byte cap on a rune boundary.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*models.Article, error) {
	u, err := ParseArticleURL(rawURL)
	if err != nil {
		return nil, err
	}

	body, _, err := doGet(ctx, f.client, u.String(), nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := readability.FromReader(io.LimitReader(body, rawReadLimit), u)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", u.Host, err)
	}

	text := strings.TrimSpace(doc.TextContent)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, u.Host)
	}
	text, truncated := truncateBytes(text, f.maxBytes)

	return &models.Article{
		URL:         u.String(),
		Title:       strings.TrimSpace(doc.Title),
		SiteName:    doc.SiteName,
		Byline:      doc.Byline,
		Excerpt:     strings.TrimSpace(doc.Excerpt),
		TextContent: text,
		Length:      utf8.RuneCountInString(text),
		Truncated:   truncated,
	}, nil
}

// ParseArticleURL validates that raw is an absolute http(s) URL.
func ParseArticleURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// truncateBytes cuts s to at most limit bytes without splitting a rune.
func truncateBytes(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
