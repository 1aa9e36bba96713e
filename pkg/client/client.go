// Package client is a Go client for the NewsLens action endpoint. It mirrors
// the browser front-end's behavior, including the mock-headline fallback:
// when live headline fetching fails or comes back empty, FetchNews returns a
// fixed placeholder list so callers never render an empty state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newslens/newslens/pkg/models"
)

// DefaultBaseURL is where a locally run server listens.
const DefaultBaseURL = "http://localhost:8080"

const (
	actionPath       = "/api/v1/news"
	healthPath       = "/health"
	maxResponseBytes = 8 << 20
)

// Action names on the POST endpoint.
const (
	actionAnalyze        = "analyze"
	actionTranslate      = "translate"
	actionTranslateTexts = "translateTexts"
	actionFetchNews      = "fetchNews"
)

// DefaultHeadlines is the static placeholder list substituted when live
// headline fetching fails.
var DefaultHeadlines = []models.NewsHeadline{
	{Title: "Global markets steady as investors await central bank guidance", Source: "NewsLens Wire", URL: "https://www.reuters.com/markets/"},
	{Title: "Breakthrough battery design promises faster charging for electric cars", Source: "NewsLens Wire", URL: "https://www.bbc.com/news/technology"},
	{Title: "Scientists map coral reef recovery after record ocean temperatures", Source: "NewsLens Wire", URL: "https://www.theguardian.com/environment"},
	{Title: "Lawmakers weigh new oversight framework for artificial intelligence", Source: "NewsLens Wire", URL: "https://www.bbc.com/news/world"},
	{Title: "Championship race tightens ahead of the season finale", Source: "NewsLens Wire", URL: "https://www.bbc.com/sport"},
	{Title: "Streaming services bet on live events to hold on to subscribers", Source: "NewsLens Wire", URL: "https://www.theguardian.com/culture"},
}

// MockHeadlines returns the fallback headline list as a fresh copy, so
// callers may modify it freely.
func MockHeadlines() []models.NewsHeadline {
	out := make([]models.NewsHeadline, len(DefaultHeadlines))
	copy(out, DefaultHeadlines)
	return out
}

// Client calls a NewsLens server.
type Client struct {
	baseURL      string
	http         *http.Client
	mockFallback bool
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a server. A trailing slash is tolerated.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithHeadlineFallback controls whether FetchNews substitutes the mock list
// on failure or empty results. On by default, matching the front-end.
func WithHeadlineFallback(enabled bool) Option {
	return func(c *Client) { c.mockFallback = enabled }
}

// New creates a Client for DefaultBaseURL unless overridden.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		http:         &http.Client{Timeout: 5 * time.Minute},
		mockFallback: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// actionRequest is the POST body; Action selects the operation.
type actionRequest struct {
	Action   string                 `json:"action"`
	URL      string                 `json:"url,omitempty"`
	Language string                 `json:"language,omitempty"`
	Result   *models.AnalysisResult `json:"result,omitempty"`
	Texts    []string               `json:"texts,omitempty"`
	Category string                 `json:"category,omitempty"`
}

// Analyze requests a bias analysis of the article at url.
func (c *Client) Analyze(ctx context.Context, url, language string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := c.do(ctx, actionRequest{Action: actionAnalyze, URL: url, Language: language}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Translate renders an analysis result in another language.
func (c *Client) Translate(ctx context.Context, result *models.AnalysisResult, language string) (*models.AnalysisResult, error) {
	var translated models.AnalysisResult
	if err := c.do(ctx, actionRequest{Action: actionTranslate, Result: result, Language: language}, &translated); err != nil {
		return nil, err
	}
	return &translated, nil
}

// TranslateTexts translates a batch of short strings. Every input text is a
// key in the returned map; entries the server dropped map to the original.
func (c *Client) TranslateTexts(ctx context.Context, texts []string, language string) (map[string]string, error) {
	out := make(map[string]string, len(texts))
	if err := c.do(ctx, actionRequest{Action: actionTranslateTexts, Texts: texts, Language: language}, &out); err != nil {
		return nil, err
	}
	for _, text := range texts {
		if strings.TrimSpace(out[text]) == "" {
			out[text] = text
		}
	}
	return out, nil
}

// FetchNews returns current headlines for a category. With the fallback
// enabled, a server failure or an empty answer yields MockHeadlines instead
// of an error.
func (c *Client) FetchNews(ctx context.Context, category, language string) ([]models.NewsHeadline, error) {
	var headlines []models.NewsHeadline
	err := c.do(ctx, actionRequest{Action: actionFetchNews, Category: category, Language: language}, &headlines)
	if err != nil {
		if c.mockFallback {
			return MockHeadlines(), nil
		}
		return nil, err
	}
	if len(headlines) == 0 && c.mockFallback {
		return MockHeadlines(), nil
	}
	return headlines, nil
}

// Health reports server status fields from GET /health.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("health: decode response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("health: %s", envelope.Error)
	}
	return envelope.Data, nil
}

// do posts one action and decodes the raw result into out. Non-200 answers
// carry a flat {"error": msg} body which becomes the returned error.
func (c *Client) do(ctx context.Context, req actionRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+actionPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", req.Action, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", req.Action, apiErr.Error)
		}
		return fmt.Errorf("%s: HTTP %d", req.Action, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.Action, err)
	}
	return nil
}
