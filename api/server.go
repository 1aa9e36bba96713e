// Package api provides the HTTP server for NewsLens.
//
// The core surface is a single POST action endpoint dispatching on an
// `action` discriminator (analyze, translate, translateTexts, fetchNews),
// kept bare for front-end compatibility: 200 with the raw result, 405 for
// non-POST, 500 with {"error": msg} for any failure. Around it sit
// envelope-style endpoints for health, history, configuration, and a
// WebSocket stream of operation lifecycle events.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/newslens/newslens/internal/analyst"
	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/internal/history"
	"github.com/newslens/newslens/internal/llm"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/web"
)

// Action names accepted by the POST endpoint.
const (
	ActionAnalyze        = "analyze"
	ActionTranslate      = "translate"
	ActionTranslateTexts = "translateTexts"
	ActionFetchNews      = "fetchNews"
)

// actionTimeout bounds one action end to end, model call included.
const actionTimeout = 5 * time.Minute

// AnalystService is the operation surface the HTTP layer dispatches to.
// *analyst.Analyst implements it.
type AnalystService interface {
	Analyze(ctx context.Context, url, language string) (*models.AnalysisResult, error)
	Translate(ctx context.Context, result *models.AnalysisResult, language string) (*models.AnalysisResult, error)
	TranslateTexts(ctx context.Context, texts []string, language string) ([]string, error)
	FetchNews(ctx context.Context, category, language string) ([]models.NewsHeadline, error)
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	analyst AnalystService
	history history.Store
	llm     llm.LLMProvider
	wsHub   *WSHub
	serveUI bool // when true, serve the embedded web UI at /
}

// NewServer creates a configured API server with all routes and middleware.
// It fails when the configured primary provider has no credential.
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	router, err := llm.NewRouterFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}

	store, err := history.NewStoreFromConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("history setup failed: %w", err)
	}

	hub := NewWSHub()
	an := analyst.NewFromConfig(cfg, router, store, analyst.WithNotifier(hub))

	srv := &Server{
		cfg:     cfg,
		analyst: an,
		history: store,
		llm:     router,
		wsHub:   hub,
		serveUI: true,
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(actionTimeout))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// Action endpoint. Registered for every method so the handler itself
	// answers non-POST with the contract's 405 body instead of chi's bare
	// status.
	r.Handle("/news", http.HandlerFunc(s.handleAction))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Action endpoint (also available at /news)
		r.Handle("/news", http.HandlerFunc(s.handleAction))

		// History
		r.Get("/history", s.handleGetHistory)
		r.Delete("/history", s.handleDeleteHistory)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (SPA with fallback to index.html)
	if s.serveUI {
		s.mountSPA(r, web.DistFS())
	}

	return r
}

// mountSPA serves the embedded static export as a single-page app.
// Static assets are served directly with caching; all other paths fall
// back to index.html for client-side routing.
func (s *Server) mountSPA(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		f, err := distFS.Open(rPath)
		if err != nil {
			// File not found — serve index.html for SPA client-side routing
			serveIndexHTML(w, r, distFS)
			return
		}
		f.Close()

		if strings.HasPrefix(rPath, "_next/static/") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else if rPath == "index.html" || strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML reads and serves the embedded index.html for SPA fallback.
func serveIndexHTML(w http.ResponseWriter, r *http.Request, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope for the non-action endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ActionRequest is the body for the POST action endpoint. Action selects
// the operation; the remaining fields are per-action.
type ActionRequest struct {
	Action   string                 `json:"action"`
	URL      string                 `json:"url,omitempty"`
	Language string                 `json:"language,omitempty"`
	Result   *models.AnalysisResult `json:"result,omitempty"`
	Texts    []string               `json:"texts,omitempty"`
	Category string                 `json:"category,omitempty"`
}

// ============================================================
// Action endpoint
// ============================================================

// handleAction is the single POST entry point for the four operations.
// Status codes are fixed by the front-end contract: 200 with the raw
// result, 405 for non-POST, 500 with a flat {"error": msg} for everything
// else, validation failures included.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeActionError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeActionError(w, http.StatusInternalServerError, "invalid request body: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	var (
		result interface{}
		err    error
	)
	switch req.Action {
	case ActionAnalyze:
		result, err = s.analyst.Analyze(ctx, req.URL, req.Language)

	case ActionTranslate:
		result, err = s.analyst.Translate(ctx, req.Result, req.Language)

	case ActionTranslateTexts:
		var translated []string
		translated, err = s.analyst.TranslateTexts(ctx, req.Texts, req.Language)
		if err == nil {
			m := make(map[string]string, len(req.Texts))
			for i, text := range req.Texts {
				m[text] = translated[i]
			}
			result = m
		}

	case ActionFetchNews:
		result, err = s.analyst.FetchNews(ctx, req.Category, req.Language)

	default:
		err = fmt.Errorf("unknown action %q", req.Action)
	}
	if err != nil {
		writeActionError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status":     "ok",
		"version":    "dev",
		"ws_clients": s.wsHub.ClientCount(),
	}
	if s.llm != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		data["provider"] = s.llm.Name()
		data["provider_up"] = s.llm.Ping(ctx) == nil
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []models.HistoryItem{}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    items,
	})
}

// handleDeleteHistory removes one entry (?url=...) or, without a url
// parameter, every entry.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if u := r.URL.Query().Get("url"); u != "" {
		if err := s.history.Delete(r.Context(), u); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data:    map[string]string{"deleted": u},
		})
		return
	}

	if err := s.history.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]string{"deleted": "all"},
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeActionError writes the action endpoint's flat error shape.
func writeActionError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// Notify implements analyst.Notifier: operation lifecycle events go out as
// typed WebSocket messages.
func (h *WSHub) Notify(event string, payload any) {
	h.Broadcast(WSMessage{Type: event, Data: payload})
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
