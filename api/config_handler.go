// Package api — configuration management endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/newslens/newslens/internal/config"
)

// configMu serialises writes to the config file.
var configMu sync.Mutex

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // path to the active config file
}

// handleGetConfig returns the current (running) configuration.
// Sensitive keys (API keys/passwords) are excluded via json:"-" tags.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
		},
	})
}

// handleUpdateConfig merges the provided partial configuration into the running
// config, persists it to disk, and returns the updated config. Credentials
// cannot be set this way; they come from the config file or environment only.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	// Merge non-zero values from incoming into running config.
	mergeConfig(s.cfg, &incoming)

	if err := s.cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration: "+err.Error())
		return
	}

	// Persist to disk.
	cfgPath := config.ConfigFilePath()
	if err := config.SaveToFile(s.cfg, cfgPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: cfgPath,
		},
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	keys := config.CheckAPIKeys(s.cfg)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    keys,
	})
}

// mergeConfig copies non-zero/non-empty values from src into dst.
func mergeConfig(dst, src *config.Config) {
	// LLM
	if src.LLM.Primary != "" {
		dst.LLM.Primary = src.LLM.Primary
	}
	if src.LLM.OllamaURL != "" {
		dst.LLM.OllamaURL = src.LLM.OllamaURL
	}
	if src.LLM.CompatBaseURL != "" {
		dst.LLM.CompatBaseURL = src.LLM.CompatBaseURL
	}
	if src.LLM.Model != "" {
		dst.LLM.Model = src.LLM.Model
	}
	if src.LLM.Temperature != 0 {
		dst.LLM.Temperature = src.LLM.Temperature
	}
	if src.LLM.MaxTokens != 0 {
		dst.LLM.MaxTokens = src.LLM.MaxTokens
	}
	// WebSearch is a bool — always apply from incoming
	dst.LLM.WebSearch = src.LLM.WebSearch

	// Article
	if src.Article.MaxBytes != 0 {
		dst.Article.MaxBytes = src.Article.MaxBytes
	}
	if src.Article.TimeoutSec != 0 {
		dst.Article.TimeoutSec = src.Article.TimeoutSec
	}

	// News
	if src.News.CacheTTL != 0 {
		dst.News.CacheTTL = src.News.CacheTTL
	}
	if src.News.Limit != 0 {
		dst.News.Limit = src.News.Limit
	}
	if src.News.ConcurrentFetches != 0 {
		dst.News.ConcurrentFetches = src.News.ConcurrentFetches
	}
	if len(src.News.Feeds) > 0 {
		dst.News.Feeds = src.News.Feeds
	}

	// History
	if src.History.Backend != "" {
		dst.History.Backend = src.History.Backend
	}
	if src.History.TTLSec != 0 {
		dst.History.TTLSec = src.History.TTLSec
	}
	if src.History.MaxEntries != 0 {
		dst.History.MaxEntries = src.History.MaxEntries
	}
	if src.History.Redis.Addr != "" {
		dst.History.Redis.Addr = src.History.Redis.Addr
	}
	if src.History.Redis.DB != 0 {
		dst.History.Redis.DB = src.History.Redis.DB
	}

	// API
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = src.API.CORSOrigins
	}

	// Web
	if src.Web.URL != "" {
		dst.Web.URL = src.Web.URL
	}

	// Logging
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}
