package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaicompat "github.com/sashabaranov/go-openai"
)

// CompatProvider implements LLMProvider for any OpenAI-compatible endpoint:
// LM Studio, llama.cpp, vLLM, OpenRouter, or Ollama's /v1 shim.
type CompatProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	client     *openaicompat.Client
}

// CompatOption configures the compat provider.
type CompatOption func(*CompatProvider)

// WithCompatModel sets the default model.
func WithCompatModel(model string) CompatOption {
	return func(p *CompatProvider) { p.model = model }
}

// WithCompatHTTPClient sets a custom HTTP client.
func WithCompatHTTPClient(client *http.Client) CompatOption {
	return func(p *CompatProvider) { p.httpClient = client }
}

// NewCompatProvider creates a provider for an OpenAI-compatible server at
// baseURL. Local servers usually accept any API key, so apiKey may be empty.
func NewCompatProvider(baseURL, apiKey string, opts ...CompatOption) (*CompatProvider, error) {
	if baseURL == "" {
		return nil, errors.New("compat: base URL is required")
	}
	p := &CompatProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := openaicompat.DefaultConfig(p.apiKey)
	cfg.BaseURL = p.baseURL
	if p.httpClient != nil {
		cfg.HTTPClient = p.httpClient
	}
	p.client = openaicompat.NewClientWithConfig(cfg)
	return p, nil
}

func (p *CompatProvider) Name() string     { return ProviderCompat }
func (p *CompatProvider) Models() []string { return []string{p.model} }

// Ping verifies the server is reachable by listing models.
func (p *CompatProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return p.mapError(err)
	}
	return nil
}

// Chat sends a chat completion request. A response schema is forwarded via
// the json_schema response format; servers that only support JSON mode
// still see the schema in the system prompt built by the caller.
func (p *CompatProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	req := openaicompat.ChatCompletionRequest{
		Model:    model,
		Messages: buildCompatMessages(messages),
	}
	if opts != nil {
		if opts.Temperature > 0 {
			req.Temperature = float32(opts.Temperature)
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
		if opts.ResponseSchema != nil {
			req.ResponseFormat = &openaicompat.ChatCompletionResponseFormat{
				Type: openaicompat.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openaicompat.ChatCompletionResponseFormatJSONSchema{
					Name:   "response",
					Schema: opts.ResponseSchema.AsJSON(),
					Strict: true,
				},
			}
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyResponse, model)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyResponse, model)
	}

	return &Response{
		Content:  content,
		Model:    resp.Model,
		Provider: ProviderCompat,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func buildCompatMessages(messages []Message) []openaicompat.ChatCompletionMessage {
	out := make([]openaicompat.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openaicompat.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openaicompat.ChatMessageRoleSystem
		case RoleAssistant:
			role = openaicompat.ChatMessageRoleAssistant
		}
		out[i] = openaicompat.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

// mapError translates client errors into the package's sentinel errors.
func (p *CompatProvider) mapError(err error) error {
	var apiErr *openaicompat.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrNoAPIKey, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimit, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrInvalidModel, apiErr.Message)
		}
		return fmt.Errorf("compat: API error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openaicompat.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("compat: HTTP %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", ErrProviderDown, err)
}
