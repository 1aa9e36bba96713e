// Package config handles configuration loading for NewsLens.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	yaml "go.yaml.in/yaml/v3"
)

// Config represents the complete application configuration. JSON tags are
// the API representation; API keys and passwords never serialize.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"     json:"llm"`
	Article ArticleConfig `mapstructure:"article" yaml:"article" json:"article"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"    json:"news"`
	History HistoryConfig `mapstructure:"history" yaml:"history" json:"history"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"     json:"api"`
	Web     WebConfig     `mapstructure:"web"     yaml:"web"     json:"web"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary       string  `mapstructure:"primary"         yaml:"primary"         json:"primary"` // "openai", "anthropic", "ollama", "openai-compat"
	OpenAIKey     string  `mapstructure:"openai_key"      yaml:"openai_key"      json:"-"`
	AnthropicKey  string  `mapstructure:"anthropic_key"   yaml:"anthropic_key"   json:"-"`
	OllamaURL     string  `mapstructure:"ollama_url"      yaml:"ollama_url"      json:"ollama_url"`
	CompatBaseURL string  `mapstructure:"compat_base_url" yaml:"compat_base_url" json:"compat_base_url"`
	CompatKey     string  `mapstructure:"compat_key"      yaml:"compat_key"      json:"-"`
	Model         string  `mapstructure:"model"           yaml:"model"           json:"model"`
	Temperature   float64 `mapstructure:"temperature"     yaml:"temperature"     json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"      yaml:"max_tokens"      json:"max_tokens"`
	WebSearch     bool    `mapstructure:"web_search"      yaml:"web_search"      json:"web_search"`
}

// ArticleConfig holds article fetching and extraction settings.
type ArticleConfig struct {
	MaxBytes   int `mapstructure:"max_bytes"   yaml:"max_bytes"   json:"max_bytes"`   // cap on extracted text sent to the model
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"` // per-fetch HTTP timeout
}

// NewsConfig holds headline fetching settings.
type NewsConfig struct {
	CacheTTL          int                 `mapstructure:"cache_ttl"          yaml:"cache_ttl"          json:"cache_ttl"` // seconds
	Limit             int                 `mapstructure:"limit"              yaml:"limit"              json:"limit"`     // default headline count
	ConcurrentFetches int                 `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches" json:"concurrent_fetches"`
	Feeds             map[string][]string `mapstructure:"feeds"              yaml:"feeds,omitempty"     json:"feeds,omitempty"` // category → RSS feed URLs
}

// HistoryConfig holds analysis history storage settings.
type HistoryConfig struct {
	Backend    string      `mapstructure:"backend"     yaml:"backend"     json:"backend"` // "memory" or "redis"
	TTLSec     int         `mapstructure:"ttl_sec"     yaml:"ttl_sec"     json:"ttl_sec"` // 0 = keep forever
	MaxEntries int         `mapstructure:"max_entries" yaml:"max_entries" json:"max_entries"`
	Redis      RedisConfig `mapstructure:"redis"       yaml:"redis"       json:"redis"`
}

// RedisConfig holds Redis connection settings for the history store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     yaml:"addr"     json:"addr"`
	Password string `mapstructure:"password" yaml:"password" json:"-"`
	DB       int    `mapstructure:"db"       yaml:"db"       json:"db"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// WebConfig holds frontend configuration.
type WebConfig struct {
	URL string `mapstructure:"url" yaml:"url" json:"url"` // e.g., "http://localhost:3000"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.newslens/config.yaml (home directory)
//  3. /etc/newslens/config.yaml (system)
//
// Environment variables override config file values.
// Format: NEWSLENS_<SECTION>_<KEY>, e.g., NEWSLENS_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".newslens"))
	v.AddConfigPath("/etc/newslens")

	// Environment variable settings
	v.SetEnvPrefix("NEWSLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("NEWSLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// Validate checks that the configured primary provider has the credentials
// it needs. A missing credential is a startup error, not something to
// discover on the first request.
func (c *Config) Validate() error {
	switch c.LLM.Primary {
	case "openai":
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("llm.primary is %q but no OpenAI API key is set (NEWSLENS_LLM_OPENAI_KEY or OPENAI_API_KEY)", c.LLM.Primary)
		}
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			return fmt.Errorf("llm.primary is %q but no Anthropic API key is set (NEWSLENS_LLM_ANTHROPIC_KEY or ANTHROPIC_API_KEY)", c.LLM.Primary)
		}
	case "ollama":
		if c.LLM.OllamaURL == "" {
			return fmt.Errorf("llm.primary is %q but llm.ollama_url is empty", c.LLM.Primary)
		}
	case "openai-compat":
		if c.LLM.CompatBaseURL == "" {
			return fmt.Errorf("llm.primary is %q but llm.compat_base_url is empty", c.LLM.Primary)
		}
	default:
		return fmt.Errorf("unknown llm.primary %q (want openai, anthropic, ollama, or openai-compat)", c.LLM.Primary)
	}

	switch c.History.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown history.backend %q (want memory or redis)", c.History.Backend)
	}
	return nil
}

// ConfigFilePath returns the path where the config file lives, or where it
// should be created. An existing file in the search order wins; otherwise
// the per-user location is used.
func ConfigFilePath() string {
	candidates := []string{
		filepath.Join("config", "config.yaml"),
		filepath.Join(homeDir(), ".newslens", "config.yaml"),
		filepath.Join("/etc/newslens", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(homeDir(), ".newslens", "config.yaml")
}

// SaveToFile writes the configuration as YAML. Files are written 0600
// since they may carry API keys.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.web_search", false)

	// Article defaults
	v.SetDefault("article.max_bytes", 128*1024)
	v.SetDefault("article.timeout_sec", 30)

	// News defaults
	v.SetDefault("news.cache_ttl", 300) // 5 minutes
	v.SetDefault("news.limit", 10)
	v.SetDefault("news.concurrent_fetches", 5)

	// History defaults
	v.SetDefault("history.backend", "memory")
	v.SetDefault("history.ttl_sec", 0) // keep forever
	v.SetDefault("history.max_entries", 100)
	v.SetDefault("history.redis.addr", "localhost:6379")
	v.SetDefault("history.redis.db", 0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Web defaults
	v.SetDefault("web.url", "http://localhost:3000")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment
// variables. The vendor-standard names (OPENAI_API_KEY, ANTHROPIC_API_KEY)
// are honored as fallbacks so existing shells keep working.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("NEWSLENS_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("NEWSLENS_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("NEWSLENS_LLM_COMPAT_KEY"); key != "" {
		cfg.LLM.CompatKey = key
	}
	if pw := os.Getenv("NEWSLENS_HISTORY_REDIS_PASSWORD"); pw != "" {
		cfg.History.Redis.Password = pw
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
