package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "sk-...abc"
}

// CheckAPIKeys returns the status of all credentials the server can use.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, "NEWSLENS_LLM_OPENAI_KEY", "OPENAI_API_KEY"),
		checkKey("Anthropic API Key", cfg.LLM.AnthropicKey, "NEWSLENS_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"),
		checkKey("Compat API Key", cfg.LLM.CompatKey, "NEWSLENS_LLM_COMPAT_KEY"),
		checkKey("Redis Password", cfg.History.Redis.Password, "NEWSLENS_HISTORY_REDIS_PASSWORD"),
	}
}

// checkKey checks if a key is set and where it came from. Any of the given
// environment variables counts as an env source.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, envVar := range envVars {
		if os.Getenv(envVar) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
