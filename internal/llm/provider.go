// Package llm provides a unified interface over the LLM backends NewsLens
// can talk to (OpenAI, Anthropic, Ollama, OpenAI-compatible gateways) with
// model routing and fallback. Providers are thin adapters around the
// official SDKs; prompt content and response parsing live in the analyst
// package.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names for routing and configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderCompat    = "openai-compat"
)

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrContextLength = errors.New("llm: context length exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrInvalidModel  = errors.New("llm: invalid model")
	ErrEmptyResponse = errors.New("llm: model returned an empty response")
	ErrNoProviders   = errors.New("llm: no providers configured")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from the LLM.
type Response struct {
	Content  string        `json:"content"`
	Usage    Usage         `json:"usage"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions configures a single chat request.
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// ResponseSchema asks the provider to constrain output to this JSON
	// schema. Providers without native schema support ignore it; the
	// prompt always carries the contract as text regardless.
	ResponseSchema *JSONSchema `json:"response_schema,omitempty"`

	// WebSearch enables the provider's built-in web search tool, used for
	// headline fetching. Providers without such a tool ignore it.
	WebSearch bool `json:"web_search,omitempty"`
}

// LLMProvider is the interface that all LLM backends must implement.
type LLMProvider interface {
	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string

	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// Models returns the list of known models for this provider.
	Models() []string

	// Ping checks if the provider is reachable and the API key is valid.
	Ping(ctx context.Context) error
}

// ProviderConfig holds common configuration for creating an LLM provider.
type ProviderConfig struct {
	APIKey      string        `json:"api_key,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultProviderConfig returns sensible defaults for provider configuration.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   4096,
		Timeout:     120 * time.Second,
	}
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// splitMessages separates system prompts from the conversational turns.
// Several SDKs take the system prompt as a dedicated field rather than an
// in-band message.
func splitMessages(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}
