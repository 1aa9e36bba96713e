// Package analyst implements the four NewsLens operations: analyze,
// translate, translateTexts, and fetchNews. Each operation builds a prompt,
// calls the configured provider chain, and normalizes the response into the
// shared models. Validation is strict: a response that fails it is an error,
// never a partial result.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/newslens/newslens/internal/analyst/prompts"
	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/internal/datasource"
	"github.com/newslens/newslens/internal/history"
	"github.com/newslens/newslens/internal/llm"
	"github.com/newslens/newslens/pkg/langs"
	"github.com/newslens/newslens/pkg/models"
)

// ── Sentinel errors ──

// ErrMissingInput is returned for requests missing a required field,
// before any external call is made.
var ErrMissingInput = fmt.Errorf("missing required input")

// ErrMalformedResponse is returned when a model response cannot be decoded
// into the expected shape.
var ErrMalformedResponse = fmt.Errorf("malformed model response")

// ErrBadClassification is returned for a tone classification outside
// {Positive, Negative, Neutral}.
var ErrBadClassification = fmt.Errorf("invalid tone classification")

// ── Lifecycle events ──

// Event names broadcast to WebSocket subscribers when operations complete.
const (
	EventAnalysisComplete = "analysis_complete"
	EventHeadlinesFetched = "headlines_fetched"
)

const (
	translateChunkSize   = 25
	translateConcurrency = 4
)

// ArticleFetcher downloads and extracts one article.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*models.Article, error)
}

// HeadlineSource returns category headlines without a model. It backs the
// fetchNews fallback path.
type HeadlineSource interface {
	Fetch(ctx context.Context, category string, limit int) ([]models.NewsHeadline, error)
}

// Notifier receives operation lifecycle events, typically a WebSocket hub.
type Notifier interface {
	Notify(event string, payload any)
}

// Analyst runs the four operations against an LLM provider, with article
// fetching, feed fallback, and URL-keyed history around it.
type Analyst struct {
	llm       llm.LLMProvider
	fetcher   ArticleFetcher
	headlines HeadlineSource
	history   history.Store
	notifier  Notifier

	model       string
	temperature float64
	maxTokens   int
	webSearch   bool
	newsLimit   int
}

// Option customizes an Analyst.
type Option func(*Analyst)

// WithFetcher sets the article fetcher.
func WithFetcher(f ArticleFetcher) Option {
	return func(a *Analyst) { a.fetcher = f }
}

// WithHeadlineSource sets the feed-backed headline fallback.
func WithHeadlineSource(h HeadlineSource) Option {
	return func(a *Analyst) { a.headlines = h }
}

// WithHistory sets the history store.
func WithHistory(s history.Store) Option {
	return func(a *Analyst) { a.history = s }
}

// WithNotifier sets the lifecycle event sink.
func WithNotifier(n Notifier) Option {
	return func(a *Analyst) { a.notifier = n }
}

// WithModel overrides the provider's default model for every call.
func WithModel(model string) Option {
	return func(a *Analyst) { a.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Analyst) { a.temperature = t }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) Option {
	return func(a *Analyst) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithWebSearch enables the provider's web-search tool during analysis.
func WithWebSearch(enabled bool) Option {
	return func(a *Analyst) { a.webSearch = enabled }
}

// WithNewsLimit sets how many headlines fetchNews returns.
func WithNewsLimit(n int) Option {
	return func(a *Analyst) {
		if n > 0 {
			a.newsLimit = n
		}
	}
}

// New creates an Analyst on top of the given provider. Defaults: a plain
// article fetcher, the default RSS feed map, and an in-memory history
// capped at 100 entries.
func New(provider llm.LLMProvider, opts ...Option) *Analyst {
	a := &Analyst{
		llm:         provider,
		fetcher:     datasource.NewFetcher(),
		headlines:   datasource.NewHeadlines(),
		history:     history.NewMemoryStore(0, 100),
		temperature: 0.2,
		maxTokens:   4096,
		newsLimit:   10,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig wires an Analyst from the loaded config, attaching the
// given history store. The per-provider model choice already happened when
// the router was built, so no model override is set here.
func NewFromConfig(cfg *config.Config, provider llm.LLMProvider, store history.Store, extra ...Option) *Analyst {
	opts := []Option{
		WithFetcher(datasource.NewFetcherFromConfig(cfg)),
		WithHeadlineSource(datasource.NewHeadlinesFromConfig(cfg)),
		WithHistory(store),
		WithTemperature(cfg.LLM.Temperature),
		WithMaxTokens(cfg.LLM.MaxTokens),
		WithWebSearch(cfg.LLM.WebSearch),
		WithNewsLimit(cfg.News.Limit),
	}
	return New(provider, append(opts, extra...)...)
}

// ── Operations ──

// Analyze fetches the article at url, runs the bias analysis in the target
// language, and stores the result in history. A URL already in history is
// answered from the store without calling the model.
func (a *Analyst) Analyze(ctx context.Context, url, language string) (*models.AnalysisResult, error) {
	parsed, err := datasource.ParseArticleURL(url)
	if err != nil {
		return nil, err
	}
	canonical := parsed.String()

	if item, err := a.history.Get(ctx, canonical); err == nil {
		log.Printf("analyst: history hit for %s", canonical)
		return &item.Result, nil
	} else if !errors.Is(err, history.ErrNotFound) {
		log.Printf("analyst: history lookup %s: %v", canonical, err)
	}

	article, err := a.fetcher.Fetch(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}

	language = langs.Normalize(language)
	resp, err := a.chat(ctx, prompts.AnalystSystemPrompt,
		prompts.Analyze(article, language), llm.AnalysisResultSchema(), a.webSearch)
	if err != nil {
		return nil, err
	}

	result, err := DecodeAnalysisResult(resp.Content)
	if err != nil {
		return nil, err
	}
	if result.Title == "" {
		result.Title = article.Title
	}

	item := &models.HistoryItem{
		URL:       canonical,
		Timestamp: time.Now().UTC(),
		Result:    *result,
	}
	if err := a.history.Put(ctx, item); err != nil {
		log.Printf("analyst: store history for %s: %v", canonical, err)
	}
	a.notify(EventAnalysisComplete, item)

	return result, nil
}

// Translate renders an existing analysis result in another language. Every
// key survives, and the tone classification keeps its pre-translation value
// whatever the model returned for it. Translations are not stored in history.
func (a *Analyst) Translate(ctx context.Context, result *models.AnalysisResult, language string) (*models.AnalysisResult, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: result", ErrMissingInput)
	}
	original, ok := models.ParseClassification(string(result.BiasAnalysis.Tone.Classification))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadClassification, result.BiasAnalysis.Tone.Classification)
	}

	language = langs.Normalize(language)
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	resp, err := a.chat(ctx, prompts.TranslatorSystemPrompt,
		prompts.TranslateResult(resultJSON, language), llm.AnalysisResultSchema(), false)
	if err != nil {
		return nil, err
	}

	translated, err := decodeAnalysisStructure(resp.Content)
	if err != nil {
		return nil, err
	}
	translated.BiasAnalysis.Tone.Classification = original
	return translated, nil
}

// TranslateTexts translates a batch of short texts, preserving order and
// count. A text the model dropped keeps its original value so the caller
// never loses an entry. Large batches run as concurrent chunks.
func (a *Analyst) TranslateTexts(ctx context.Context, texts []string, language string) ([]string, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts", ErrMissingInput)
	}
	language = langs.Normalize(language)

	out := make([]string, len(texts))
	copy(out, texts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(translateConcurrency)
	for start := 0; start < len(texts); start += translateChunkSize {
		end := min(start+translateChunkSize, len(texts))
		g.Go(func() error {
			chunk := texts[start:end]
			resp, err := a.chat(gctx, prompts.TranslatorSystemPrompt,
				prompts.TranslateTexts(chunk, language), llm.TranslationMapSchema(len(chunk)), false)
			if err != nil {
				return err
			}
			translations, err := DecodeTranslationMap(resp.Content)
			if err != nil {
				return err
			}
			// Chunks write disjoint ranges of out.
			for i := range chunk {
				if v, ok := translations[i]; ok && strings.TrimSpace(v) != "" {
					out[start+i] = v
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchNews returns current headlines for a category. The model is asked
// first; on failure or zero usable headlines the category's RSS feeds
// answer instead.
func (a *Analyst) FetchNews(ctx context.Context, category, language string) ([]models.NewsHeadline, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: category", ErrMissingInput)
	}
	language = langs.Normalize(language)

	headlines, err := a.headlinesFromModel(ctx, category, language)
	if err != nil {
		log.Printf("analyst: model headlines for %q: %v (falling back to feeds)", category, err)
	}
	if len(headlines) == 0 {
		headlines, err = a.headlines.Fetch(ctx, category, a.newsLimit)
		if err != nil {
			return nil, err
		}
	}
	if a.newsLimit > 0 && len(headlines) > a.newsLimit {
		headlines = headlines[:a.newsLimit]
	}

	a.notify(EventHeadlinesFetched, map[string]any{
		"category": category,
		"count":    len(headlines),
	})
	return headlines, nil
}

// headlinesFromModel asks the provider chain for current headlines. Web
// search is requested unconditionally; providers without the tool ignore
// the flag.
func (a *Analyst) headlinesFromModel(ctx context.Context, category, language string) ([]models.NewsHeadline, error) {
	resp, err := a.chat(ctx, prompts.HeadlinesSystemPrompt,
		prompts.Headlines(category, language, a.newsLimit), llm.HeadlinesSchema(), true)
	if err != nil {
		return nil, err
	}
	return DecodeHeadlines(resp.Content)
}

func (a *Analyst) chat(ctx context.Context, system, user string, schema *llm.JSONSchema, webSearch bool) (*llm.Response, error) {
	messages := []llm.Message{
		llm.SystemMessage(system),
		llm.UserMessage(user),
	}
	return a.llm.Chat(ctx, messages, &llm.ChatOptions{
		Model:          a.model,
		Temperature:    a.temperature,
		MaxTokens:      a.maxTokens,
		ResponseSchema: schema,
		WebSearch:      webSearch,
	})
}

func (a *Analyst) notify(event string, payload any) {
	if a.notifier != nil {
		a.notifier.Notify(event, payload)
	}
}
