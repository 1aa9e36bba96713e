package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearKeyEnv blanks every env var the config layer consults so tests see
// only what they set themselves.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		"NEWSLENS_LLM_OPENAI_KEY", "NEWSLENS_LLM_ANTHROPIC_KEY", "NEWSLENS_LLM_COMPAT_KEY",
		"NEWSLENS_HISTORY_REDIS_PASSWORD", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(e, "")
	}
}

// ── Defaults ──

func TestDefaults(t *testing.T) {
	clearKeyEnv(t)

	// An empty config file exercises pure defaults without depending on
	// whatever might live in the real search paths.
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("# empty\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.LLM.Primary != "openai" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "openai")
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "gpt-4o-mini")
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("LLM.Temperature: got %f, want 0.2", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("LLM.MaxTokens: got %d, want 4096", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.OllamaURL != "http://localhost:11434" {
		t.Errorf("LLM.OllamaURL: got %q", cfg.LLM.OllamaURL)
	}
	if cfg.Article.MaxBytes != 128*1024 {
		t.Errorf("Article.MaxBytes: got %d, want %d", cfg.Article.MaxBytes, 128*1024)
	}
	if cfg.Article.TimeoutSec != 30 {
		t.Errorf("Article.TimeoutSec: got %d, want 30", cfg.Article.TimeoutSec)
	}
	if cfg.News.CacheTTL != 300 {
		t.Errorf("News.CacheTTL: got %d, want 300", cfg.News.CacheTTL)
	}
	if cfg.News.Limit != 10 {
		t.Errorf("News.Limit: got %d, want 10", cfg.News.Limit)
	}
	if cfg.News.ConcurrentFetches != 5 {
		t.Errorf("News.ConcurrentFetches: got %d, want 5", cfg.News.ConcurrentFetches)
	}
	if cfg.History.Backend != "memory" {
		t.Errorf("History.Backend: got %q, want %q", cfg.History.Backend, "memory")
	}
	if cfg.History.MaxEntries != 100 {
		t.Errorf("History.MaxEntries: got %d, want 100", cfg.History.MaxEntries)
	}
	if cfg.History.Redis.Addr != "localhost:6379" {
		t.Errorf("History.Redis.Addr: got %q", cfg.History.Redis.Addr)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.Web.URL != "http://localhost:3000" {
		t.Errorf("Web.URL: got %q", cfg.Web.URL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
llm:
  primary: "anthropic"
  anthropic_key: "sk-ant-test-1234567890"
  model: "claude-haiku-4-5"
  temperature: 0.4
  max_tokens: 8192
  web_search: true
article:
  max_bytes: 65536
history:
  backend: "redis"
  redis:
    addr: "redis:6379"
    db: 2
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.Primary != "anthropic" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "anthropic")
	}
	if cfg.LLM.AnthropicKey != "sk-ant-test-1234567890" {
		t.Errorf("LLM.AnthropicKey: got %q", cfg.LLM.AnthropicKey)
	}
	if cfg.LLM.Model != "claude-haiku-4-5" {
		t.Errorf("LLM.Model: got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Errorf("LLM.Temperature: got %f, want 0.4", cfg.LLM.Temperature)
	}
	if !cfg.LLM.WebSearch {
		t.Error("LLM.WebSearch should be true")
	}
	if cfg.Article.MaxBytes != 65536 {
		t.Errorf("Article.MaxBytes: got %d, want 65536", cfg.Article.MaxBytes)
	}
	if cfg.History.Backend != "redis" {
		t.Errorf("History.Backend: got %q, want %q", cfg.History.Backend, "redis")
	}
	if cfg.History.Redis.Addr != "redis:6379" || cfg.History.Redis.DB != 2 {
		t.Errorf("History.Redis: got %+v", cfg.History.Redis)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
	// Untouched sections keep their defaults.
	if cfg.News.CacheTTL != 300 {
		t.Errorf("News.CacheTTL default lost: got %d", cfg.News.CacheTTL)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("NEWSLENS_LLM_OPENAI_KEY", "sk-test-openai-key-123456")
	t.Setenv("NEWSLENS_LLM_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("NEWSLENS_HISTORY_REDIS_PASSWORD", "hunter2secret")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.LLM.OpenAIKey != "sk-test-openai-key-123456" {
		t.Errorf("OpenAIKey: got %q", cfg.LLM.OpenAIKey)
	}
	if cfg.LLM.AnthropicKey != "sk-ant-test" {
		t.Errorf("AnthropicKey: got %q", cfg.LLM.AnthropicKey)
	}
	if cfg.History.Redis.Password != "hunter2secret" {
		t.Errorf("Redis.Password: got %q", cfg.History.Redis.Password)
	}
}

func TestOverrideFromEnvVendorFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-vendor-key-7890")

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.OpenAIKey != "sk-vendor-key-7890" {
		t.Errorf("vendor fallback: got %q", cfg.LLM.OpenAIKey)
	}

	// The prefixed variable wins over the vendor one.
	t.Setenv("NEWSLENS_LLM_OPENAI_KEY", "sk-prefixed-key-0001")
	cfg = &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.OpenAIKey != "sk-prefixed-key-0001" {
		t.Errorf("prefixed should win: got %q", cfg.LLM.OpenAIKey)
	}

	// A value from the config file is not clobbered by the vendor var.
	t.Setenv("NEWSLENS_LLM_OPENAI_KEY", "")
	cfg = &Config{}
	cfg.LLM.OpenAIKey = "from-config"
	overrideFromEnv(cfg)
	if cfg.LLM.OpenAIKey != "from-config" {
		t.Errorf("config value should survive vendor fallback: got %q", cfg.LLM.OpenAIKey)
	}
}

// ── Validate ──

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name: "openai with key",
			mutate: func(c *Config) {
				c.LLM.Primary = "openai"
				c.LLM.OpenAIKey = "sk-test"
			},
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.LLM.Primary = "openai"
			},
			wantErr: true,
		},
		{
			name: "anthropic without key",
			mutate: func(c *Config) {
				c.LLM.Primary = "anthropic"
			},
			wantErr: true,
		},
		{
			name: "ollama with url",
			mutate: func(c *Config) {
				c.LLM.Primary = "ollama"
				c.LLM.OllamaURL = "http://localhost:11434"
			},
		},
		{
			name: "compat without base url",
			mutate: func(c *Config) {
				c.LLM.Primary = "openai-compat"
			},
			wantErr: true,
		},
		{
			name: "unknown primary",
			mutate: func(c *Config) {
				c.LLM.Primary = "skynet"
			},
			wantErr: true,
		},
		{
			name: "unknown history backend",
			mutate: func(c *Config) {
				c.LLM.Primary = "openai"
				c.LLM.OpenAIKey = "sk-test"
				c.History.Backend = "etcd"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.History.Backend = "memory"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// ── SaveToFile ──

func TestSaveToFileRoundTrip(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{}
	cfg.LLM.Primary = "ollama"
	cfg.LLM.OllamaURL = "http://gpu-box:11434"
	cfg.LLM.Model = "llama3.1:8b"
	cfg.History.Backend = "memory"
	cfg.API.Port = 9999

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode: got %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if loaded.LLM.Primary != "ollama" || loaded.LLM.OllamaURL != "http://gpu-box:11434" {
		t.Errorf("LLM section lost: %+v", loaded.LLM)
	}
	if loaded.API.Port != 9999 {
		t.Errorf("API.Port: got %d, want 9999", loaded.API.Port)
	}
}

func TestConfigFilePathNonEmpty(t *testing.T) {
	if ConfigFilePath() == "" {
		t.Error("ConfigFilePath() should not return empty string")
	}
}

// ── maskKey ──

func TestMaskKeyShort(t *testing.T) {
	// Keys with 8 or fewer characters should be fully masked
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"a", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMaskKeyLong(t *testing.T) {
	// Keys with more than 8 characters show first 3 + ... + last 3
	tests := []struct {
		input string
		want  string
	}{
		{"123456789", "123...789"},
		{"sk-abcdef1234567890xyz", "sk-...xyz"},
		{"ABCDEFGHIJKLMNOP", "ABC...NOP"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{}
	statuses := CheckAPIKeys(cfg)

	if len(statuses) != 4 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 4", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet {
			t.Errorf("Key %q should not be set", s.Name)
		}
		if s.Source != KeySourceNone {
			t.Errorf("Key %q source: got %q, want %q", s.Name, s.Source, KeySourceNone)
		}
	}
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{}
	cfg.LLM.OpenAIKey = "sk-test-very-long-key-value"
	statuses := CheckAPIKeys(cfg)

	found := false
	for _, s := range statuses {
		if s.Name == "OpenAI API Key" {
			found = true
			if !s.IsSet {
				t.Error("OpenAI key should be set")
			}
			if s.Source != KeySourceConfig {
				t.Errorf("Source: got %q, want %q", s.Source, KeySourceConfig)
			}
			if s.Masked != "sk-...lue" {
				t.Errorf("Masked: got %q, want %q", s.Masked, "sk-...lue")
			}
		}
	}
	if !found {
		t.Error("OpenAI API Key status not found")
	}
}

func TestCheckAPIKeysFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env-key-for-testing")

	cfg := &Config{}
	cfg.LLM.OpenAIKey = "sk-env-key-for-testing"
	statuses := CheckAPIKeys(cfg)

	for _, s := range statuses {
		if s.Name == "OpenAI API Key" {
			if s.Source != KeySourceEnv {
				t.Errorf("Source: got %q, want %q", s.Source, KeySourceEnv)
			}
		}
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
