package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/newslens/newslens/internal/config"
)

// Router routes LLM requests to the appropriate provider based on
// availability and fallback configuration. It satisfies LLMProvider so
// callers can treat the whole chain as a single provider.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]LLMProvider
	primary    string
	fallbacks  []string
	maxRetries int
	retryDelay time.Duration
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// NewRouter creates a new LLM router with the given primary provider.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]LLMProvider),
		primary:    primary,
		maxRetries: 2,
		retryDelay: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Primary returns the primary provider.
func (r *Router) Primary() (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[r.primary]
	if !ok {
		return nil, fmt.Errorf("%w: primary provider %q not registered", ErrNoProviders, r.primary)
	}
	return p, nil
}

// Chat routes a chat request through the provider chain with fallback.
// It tries the primary provider first, then falls back in order.
func (r *Router) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	chain := r.providerChain()
	if len(chain) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, providerName := range chain {
		provider, ok := r.GetProvider(providerName)
		if !ok {
			continue
		}

		resp, err := r.chatWithRetry(ctx, provider, messages, opts)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		log.Printf("llm/router: provider %s failed: %v, trying next", providerName, err)

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Don't fallback on certain errors
		if isNonRetryable(err) {
			return nil, err
		}
	}

	if lastErr == nil {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("llm/router: all providers failed, last error: %w", lastErr)
}

// HealthCheck pings all registered providers and returns their status.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]LLMProvider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, provider := range providers {
		wg.Add(1)
		go func(n string, p LLMProvider) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := p.Ping(pingCtx)
			mu.Lock()
			results[n] = err
			mu.Unlock()
		}(name, provider)
	}

	wg.Wait()
	return results
}

// Name returns the name of the primary provider (satisfies LLMProvider).
func (r *Router) Name() string {
	return "router/" + r.primary
}

// Models returns the union of models from all registered providers (satisfies LLMProvider).
func (r *Router) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []string
	seen := make(map[string]bool)
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}
	return all
}

// Ping checks the primary provider's health (satisfies LLMProvider).
func (r *Router) Ping(ctx context.Context) error {
	p, err := r.Primary()
	if err != nil {
		return err
	}
	return p.Ping(ctx)
}

// ProviderNames returns the names of all registered providers.
func (r *Router) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// ── Internal Helpers ──

func (r *Router) providerChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) chatWithRetry(ctx context.Context, provider LLMProvider,
	messages []Message, opts *ChatOptions) (*Response, error) {

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := provider.Chat(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Don't retry non-retryable errors
		if isNonRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func isNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Don't retry auth errors, invalid model, or context length issues
	return errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrContextLength)
}

// NewRouterFromConfig creates a fully configured Router from the application
// config. It instantiates a provider for every credential or URL present.
func NewRouterFromConfig(cfg *config.Config) (*Router, error) {
	router := NewRouter(cfg.LLM.Primary,
		WithMaxRetries(2),
		WithRetryDelay(time.Second),
	)

	var fallbacks []string
	registered := 0

	// Register OpenAI if key is available
	if cfg.LLM.OpenAIKey != "" {
		p, err := NewOpenAIProvider(cfg.LLM.OpenAIKey,
			WithOpenAIModel(defaultOpenAIModel(cfg.LLM.Model)),
		)
		if err == nil {
			router.RegisterProvider(p)
			registered++
			if cfg.LLM.Primary != ProviderOpenAI {
				fallbacks = append(fallbacks, ProviderOpenAI)
			}
		}
	}

	// Register Anthropic if key is available
	if cfg.LLM.AnthropicKey != "" {
		p, err := NewAnthropicProvider(cfg.LLM.AnthropicKey,
			WithAnthropicModel(defaultAnthropicModel(cfg.LLM.Model)),
		)
		if err == nil {
			router.RegisterProvider(p)
			registered++
			if cfg.LLM.Primary != ProviderAnthropic {
				fallbacks = append(fallbacks, ProviderAnthropic)
			}
		}
	}

	// Register Ollama (no key needed, just URL)
	if cfg.LLM.OllamaURL != "" {
		model := cfg.LLM.Model
		if cfg.LLM.Primary != ProviderOllama {
			model = "qwen2.5:7b" // default local model
		}
		p, err := NewOllamaProvider(cfg.LLM.OllamaURL,
			WithOllamaModel(model),
		)
		if err == nil {
			router.RegisterProvider(p)
			registered++
			if cfg.LLM.Primary != ProviderOllama {
				fallbacks = append(fallbacks, ProviderOllama)
			}
		}
	}

	// Register an OpenAI-compatible endpoint if one is configured
	if cfg.LLM.CompatBaseURL != "" {
		var opts []CompatOption
		if cfg.LLM.Primary == ProviderCompat && cfg.LLM.Model != "" {
			opts = append(opts, WithCompatModel(cfg.LLM.Model))
		}
		p, err := NewCompatProvider(cfg.LLM.CompatBaseURL, cfg.LLM.CompatKey, opts...)
		if err == nil {
			router.RegisterProvider(p)
			registered++
			if cfg.LLM.Primary != ProviderCompat {
				fallbacks = append(fallbacks, ProviderCompat)
			}
		}
	}

	if registered == 0 {
		return nil, ErrNoProviders
	}
	if _, ok := router.GetProvider(cfg.LLM.Primary); !ok {
		return nil, fmt.Errorf("%w: primary provider %q has no credential or URL configured",
			ErrNoProviders, cfg.LLM.Primary)
	}

	router.fallbacks = fallbacks
	return router, nil
}

func defaultOpenAIModel(model string) string {
	if strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") {
		return model
	}
	return "gpt-4o-mini"
}

func defaultAnthropicModel(model string) string {
	if strings.HasPrefix(model, "claude") {
		return model
	}
	return "claude-sonnet-4-5"
}
