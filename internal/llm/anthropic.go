package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicModels lists commonly available Anthropic models.
var anthropicModels = []string{
	string(anthropic.ModelClaudeSonnet4_5),
	string(anthropic.ModelClaudeHaiku4_5),
	string(anthropic.ModelClaudeOpus4_1_20250805),
	"claude-3-7-sonnet-latest",
	"claude-3-5-haiku-latest",
}

// AnthropicProvider implements LLMProvider on top of the official Anthropic
// SDK's Messages API.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	client     *anthropic.Client
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) { p.model = model }
}

// WithAnthropicBaseURL sets a custom base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(p *AnthropicProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) { p.httpClient = client }
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &AnthropicProvider{
		apiKey: apiKey,
		model:  string(anthropic.ModelClaudeSonnet4_5),
	}
	for _, opt := range opts {
		opt(p)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(p.httpClient))
	}
	client := anthropic.NewClient(reqOpts...)
	p.client = &client
	return p, nil
}

func (p *AnthropicProvider) Name() string     { return ProviderAnthropic }
func (p *AnthropicProvider) Models() []string { return anthropicModels }

// Ping verifies the API key. Anthropic has no lightweight ping endpoint, so
// it sends a minimal one-token message.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
		},
	})
	if err != nil {
		return p.mapError(err)
	}
	return nil
}

// Chat sends a messages request to Anthropic. The Messages API has no
// response-format parameter, so a response schema is enforced by appending
// it to the system prompt.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	maxTokens := 4096
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	system, rest := splitMessages(messages)
	if opts != nil && opts.ResponseSchema != nil {
		schema := opts.ResponseSchema.AsJSON()
		system = strings.TrimSpace(system +
			"\n\nRespond with a single JSON object matching this JSON Schema, and nothing else:\n" +
			string(schema))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  buildAnthropicMessages(rest),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if opts != nil {
		if opts.Temperature > 0 {
			params.Temperature = anthropic.Float(opts.Temperature)
		}
		if opts.WebSearch {
			params.Tools = []anthropic.ToolUnionParam{{
				OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
					MaxUses: anthropic.Int(5),
				},
			}}
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.mapError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyResponse, model)
	}

	return &Response{
		Content:  content,
		Model:    string(resp.Model),
		Provider: ProviderAnthropic,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// mapError translates SDK errors into the package's sentinel errors.
func (p *AnthropicProvider) mapError(err error) error {
	var apierr *anthropic.Error
	if !errors.As(err, &apierr) {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch apierr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrNoAPIKey, apierr.StatusCode)
	case http.StatusTooManyRequests, 529:
		return fmt.Errorf("%w: status %d", ErrRateLimit, apierr.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrInvalidModel, apierr.StatusCode)
	case http.StatusBadRequest:
		if strings.Contains(err.Error(), "prompt is too long") {
			return fmt.Errorf("%w: %v", ErrContextLength, err)
		}
	}
	return fmt.Errorf("anthropic: API error (%d): %v", apierr.StatusCode, err)
}
