package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// ollamaModels lists commonly used Ollama models.
var ollamaModels = []string{
	"qwen2.5:14b",
	"qwen2.5:7b",
	"llama3.3:70b",
	"llama3.1:8b",
	"mistral:7b",
	"deepseek-r1:14b",
	"gemma2:27b",
	"phi4:14b",
}

// OllamaProvider implements LLMProvider for local Ollama instances.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	client     *api.Client
}

// OllamaOption configures the Ollama provider.
type OllamaOption func(*OllamaProvider)

// WithOllamaModel sets the default model.
func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) { p.model = model }
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *OllamaProvider) { p.httpClient = client }
}

// NewOllamaProvider creates an Ollama provider.
// baseURL is the Ollama server URL (e.g., "http://localhost:11434").
func NewOllamaProvider(baseURL string, opts ...OllamaOption) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	p := &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   "qwen2.5:7b",
		// longer timeout for local models
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse base URL: %w", err)
	}
	p.client = api.NewClient(u, p.httpClient)
	return p, nil
}

func (p *OllamaProvider) Name() string     { return ProviderOllama }
func (p *OllamaProvider) Models() []string { return ollamaModels }

// Ping checks if the Ollama server is reachable.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	return nil
}

// Chat sends a chat request to Ollama. A response schema is passed through
// as the structured-output format; the web-search option is ignored since
// local models cannot browse.
func (p *OllamaProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: buildOllamaMessages(messages),
		Stream:   &stream,
	}
	if opts != nil {
		options := map[string]any{}
		if opts.Temperature > 0 {
			options["temperature"] = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			options["num_predict"] = opts.MaxTokens
		}
		if len(options) > 0 {
			req.Options = options
		}
		if opts.ResponseSchema != nil {
			req.Format = opts.ResponseSchema.AsJSON()
		}
	}

	var sb strings.Builder
	var usage Usage
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			usage = Usage{
				PromptTokens:     resp.Metrics.PromptEvalCount,
				CompletionTokens: resp.Metrics.EvalCount,
				TotalTokens:      resp.Metrics.PromptEvalCount + resp.Metrics.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, p.mapError(err)
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyResponse, model)
	}

	return &Response{
		Content:  content,
		Model:    model,
		Provider: ProviderOllama,
		Latency:  time.Since(start),
		Usage:    usage,
	}, nil
}

func buildOllamaMessages(messages []Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// mapError translates SDK errors into the package's sentinel errors.
func (p *OllamaProvider) mapError(err error) error {
	var statusErr api.StatusError
	if !errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch statusErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s (try `ollama pull`)", ErrInvalidModel, statusErr.ErrorMessage)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, statusErr.ErrorMessage)
	}
	return fmt.Errorf("ollama: API error (%d): %s", statusErr.StatusCode, statusErr.ErrorMessage)
}
