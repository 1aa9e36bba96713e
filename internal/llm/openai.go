package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// openAIModels lists commonly available OpenAI models.
var openAIModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-5.1",
	"o3-mini",
}

// OpenAIProvider implements LLMProvider on top of the official OpenAI SDK's
// Responses API.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	client     *openai.Client
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (e.g., for Azure OpenAI or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.model = model }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.httpClient = client }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &OpenAIProvider{
		apiKey: apiKey,
		model:  "gpt-4o-mini",
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
	client := openai.NewClient(reqOpts...)
	p.client = &client
	return p, nil
}

func (p *OpenAIProvider) Name() string     { return ProviderOpenAI }
func (p *OpenAIProvider) Models() []string { return openAIModels }

// Ping verifies the API key by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return p.mapError(err)
	}
	return nil
}

// Chat sends the conversation to the Responses API and returns the final
// output text. When opts carries a response schema the model is forced to
// emit JSON matching it.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: buildOpenAIInput(messages),
		},
	}
	if opts != nil {
		if opts.Temperature > 0 {
			params.Temperature = openai.Float(opts.Temperature)
		}
		if opts.MaxTokens > 0 {
			params.MaxOutputTokens = openai.Int(int64(opts.MaxTokens))
		}
		if opts.ResponseSchema != nil {
			params.Text = responses.ResponseTextConfigParam{
				Format: responses.ResponseFormatTextConfigUnionParam{
					OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
						Name:   "response",
						Schema: opts.ResponseSchema.AsMap(),
						Strict: openai.Bool(true),
					},
				},
			}
		}
		if opts.WebSearch {
			params.Tools = []responses.ToolUnionParam{{
				OfWebSearch: &responses.WebSearchToolParam{
					Type: responses.WebSearchToolTypeWebSearch,
				},
			}}
		}
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, p.mapError(err)
	}

	content := strings.TrimSpace(resp.OutputText())
	if content == "" {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyResponse, model)
	}

	return &Response{
		Content:  content,
		Model:    string(resp.Model),
		Provider: ProviderOpenAI,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func buildOpenAIInput(messages []Message) responses.ResponseInputParam {
	input := make(responses.ResponseInputParam, 0, len(messages))
	for _, m := range messages {
		role := responses.EasyInputMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = responses.EasyInputMessageRoleSystem
		case RoleAssistant:
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}
	return input
}

// mapError translates SDK errors into the package's sentinel errors.
func (p *OpenAIProvider) mapError(err error) error {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch apierr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, apierr.Message)
	case http.StatusTooManyRequests, 529:
		return fmt.Errorf("%w: %s", ErrRateLimit, apierr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrInvalidModel, apierr.Message)
	case http.StatusBadRequest:
		if strings.Contains(apierr.Message, "context length") || strings.Contains(apierr.Message, "context_length") {
			return fmt.Errorf("%w: %s", ErrContextLength, apierr.Message)
		}
	}
	return fmt.Errorf("openai: API error (%d): %s", apierr.StatusCode, apierr.Message)
}
