package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/internal/history"
	"github.com/newslens/newslens/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

type fakeService struct {
	mu       sync.Mutex
	lastURL  string
	lastLang string

	result     *models.AnalysisResult
	translated []string
	headlines  []models.NewsHeadline
	err        error
}

func (f *fakeService) Analyze(ctx context.Context, url, language string) (*models.AnalysisResult, error) {
	f.mu.Lock()
	f.lastURL, f.lastLang = url, language
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeService) Translate(ctx context.Context, result *models.AnalysisResult, language string) (*models.AnalysisResult, error) {
	f.mu.Lock()
	f.lastLang = language
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeService) TranslateTexts(ctx context.Context, texts []string, language string) ([]string, error) {
	return f.translated, f.err
}

func (f *fakeService) FetchNews(ctx context.Context, category, language string) ([]models.NewsHeadline, error) {
	return f.headlines, f.err
}

func testResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Title:           "Council Approves Riverfront Housing Plan",
		Summary:         "The council approved the development.",
		DetailedSummary: "After a seven to two vote, the council cleared the way for the development.",
		SimpleSummary:   "The city said yes to new homes.",
		BiasAnalysis: models.BiasAnalysis{
			Tone: models.TonePoint{
				BiasPoint:      models.BiasPoint{Finding: "Favorable framing."},
				Classification: models.TonePositive,
			},
		},
	}
}

func testServer(t *testing.T, svc AnalystService) *Server {
	t.Helper()
	srv := &Server{
		cfg:     &config.Config{},
		analyst: svc,
		history: history.NewMemoryStore(0, 100),
		wsHub:   NewWSHub(),
	}
	go srv.wsHub.Run()
	srv.router = srv.buildRouter()
	return srv
}

// post runs a handler directly with a JSON body.
func post(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func get(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func decodeActionError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body["error"]
}

// ════════════════════════════════════════════════════════════════════
// Action endpoint
// ════════════════════════════════════════════════════════════════════

func TestActionRejectsNonPOST(t *testing.T) {
	srv := testServer(t, &fakeService{result: testResult()})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/news", nil)
		rec := httptest.NewRecorder()
		srv.handleAction(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", method, rec.Code)
		}
		if msg := decodeActionError(t, rec); msg == "" {
			t.Errorf("%s: expected a non-empty error message", method)
		}
	}
}

func TestActionUnknownAction(t *testing.T) {
	srv := testServer(t, &fakeService{})

	rec := post(t, srv.handleAction, "/news", map[string]any{"action": "frobnicate"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeActionError(t, rec); !strings.Contains(msg, "frobnicate") {
		t.Errorf("error = %q, want the unknown action named", msg)
	}
}

func TestActionInvalidBody(t *testing.T) {
	srv := testServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/news", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.handleAction(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeActionError(t, rec); msg == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestActionAnalyze(t *testing.T) {
	svc := &fakeService{result: testResult()}
	srv := testServer(t, svc)

	rec := post(t, srv.handleAction, "/news", map[string]any{
		"action":   "analyze",
		"url":      "https://example.com/story",
		"language": "Spanish",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Title != "Council Approves Riverfront Housing Plan" {
		t.Errorf("Title = %q", result.Title)
	}
	if svc.lastURL != "https://example.com/story" || svc.lastLang != "Spanish" {
		t.Errorf("service got url=%q lang=%q", svc.lastURL, svc.lastLang)
	}
}

func TestActionAnalyzeFailure(t *testing.T) {
	srv := testServer(t, &fakeService{err: fmt.Errorf("malformed model response")})

	rec := post(t, srv.handleAction, "/news", map[string]any{
		"action": "analyze",
		"url":    "https://example.com/story",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeActionError(t, rec); msg == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestActionTranslate(t *testing.T) {
	svc := &fakeService{result: testResult()}
	srv := testServer(t, svc)

	rec := post(t, srv.handleAction, "/news", map[string]any{
		"action":   "translate",
		"result":   testResult(),
		"language": "German",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.BiasAnalysis.Tone.Classification != models.TonePositive {
		t.Errorf("Classification = %q", result.BiasAnalysis.Tone.Classification)
	}
}

func TestActionTranslateTexts(t *testing.T) {
	svc := &fakeService{translated: []string{"ALFA", "BETA"}}
	srv := testServer(t, svc)

	rec := post(t, srv.handleAction, "/news", map[string]any{
		"action":   "translateTexts",
		"texts":    []string{"alpha", "beta"},
		"language": "Spanish",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got["alpha"] != "ALFA" || got["beta"] != "BETA" {
		t.Errorf("map = %v, want inputs keyed to translations", got)
	}
}

func TestActionFetchNews(t *testing.T) {
	svc := &fakeService{headlines: []models.NewsHeadline{
		{Title: "Markets rally", Source: "Example Wire", URL: "https://example.com/a"},
		{Title: "Battery breakthrough", Source: "Tech Daily", URL: "https://example.com/b"},
	}}
	srv := testServer(t, svc)

	rec := post(t, srv.handleAction, "/news", map[string]any{
		"action":   "fetchNews",
		"category": "business",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var got []models.NewsHeadline
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Markets rally" {
		t.Errorf("headlines = %+v", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// Route wiring
// ════════════════════════════════════════════════════════════════════

func TestRoutesMounted(t *testing.T) {
	svc := &fakeService{result: testResult(), headlines: []models.NewsHeadline{{Title: "A"}}}
	srv := testServer(t, svc)

	actionBody := `{"action": "analyze", "url": "https://example.com/story"}`
	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/news", actionBody, http.StatusOK},
		{http.MethodPost, "/api/v1/news", actionBody, http.StatusOK},
		{http.MethodGet, "/news", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/news", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/history", "", http.StatusOK},
		{http.MethodGet, "/api/v1/config", "", http.StatusOK},
		{http.MethodGet, "/api/v1/config/keys", "", http.StatusOK},
	}

	for _, tt := range tests {
		var rdr io.Reader
		if tt.body != "" {
			rdr = strings.NewReader(tt.body)
		}
		req := httptest.NewRequest(tt.method, tt.path, rdr)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d (body %s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t, &fakeService{})

	rec := get(t, srv.handleHealth, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Error("expected success envelope")
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T, want object", resp.Data)
	}
	if data["status"] != "ok" {
		t.Errorf("status field = %v", data["status"])
	}
}

// ════════════════════════════════════════════════════════════════════
// History endpoints
// ════════════════════════════════════════════════════════════════════

func seedHistory(t *testing.T, srv *Server, urls ...string) {
	t.Helper()
	base := time.Now().UTC()
	for i, u := range urls {
		item := &models.HistoryItem{
			URL:       u,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Result:    *testResult(),
		}
		if err := srv.history.Put(context.Background(), item); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
}

func TestGetHistory(t *testing.T) {
	srv := testServer(t, &fakeService{})
	seedHistory(t, srv, "https://example.com/a", "https://example.com/b")

	rec := get(t, srv.handleGetHistory, "/api/v1/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("data = %T, want array", resp.Data)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestGetHistoryLimit(t *testing.T) {
	srv := testServer(t, &fakeService{})
	seedHistory(t, srv, "https://example.com/a", "https://example.com/b", "https://example.com/c")

	rec := get(t, srv.handleGetHistory, "/api/v1/history?limit=1")
	resp := decodeEnvelope(t, rec)
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("data = %T, want array", resp.Data)
	}
	if len(items) != 1 {
		t.Errorf("len = %d, want 1", len(items))
	}
}

func TestGetHistoryInvalidLimit(t *testing.T) {
	srv := testServer(t, &fakeService{})

	rec := get(t, srv.handleGetHistory, "/api/v1/history?limit=plenty")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetHistoryEmpty(t *testing.T) {
	srv := testServer(t, &fakeService{})

	rec := get(t, srv.handleGetHistory, "/api/v1/history")
	resp := decodeEnvelope(t, rec)
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("data = %T, want an empty array, not null", resp.Data)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestDeleteHistoryOne(t *testing.T) {
	srv := testServer(t, &fakeService{})
	seedHistory(t, srv, "https://example.com/a", "https://example.com/b")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history?url=https%3A%2F%2Fexample.com%2Fa", nil)
	rec := httptest.NewRecorder()
	srv.handleDeleteHistory(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	items, err := srv.history.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://example.com/b" {
		t.Errorf("remaining = %+v, want only example.com/b", items)
	}
}

func TestDeleteHistoryAll(t *testing.T) {
	srv := testServer(t, &fakeService{})
	seedHistory(t, srv, "https://example.com/a", "https://example.com/b")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	srv.handleDeleteHistory(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	items, err := srv.history.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("remaining = %d entries, want 0", len(items))
	}
}

// ════════════════════════════════════════════════════════════════════
// Config endpoints
// ════════════════════════════════════════════════════════════════════

func TestGetConfigRedactsKeys(t *testing.T) {
	srv := testServer(t, &fakeService{})
	srv.cfg.LLM.OpenAIKey = "sk-secret-value-123"
	srv.cfg.History.Redis.Password = "hunter2"

	rec := get(t, srv.handleGetConfig, "/api/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "sk-secret-value-123") {
		t.Error("response leaks the OpenAI key")
	}
	if strings.Contains(body, "hunter2") {
		t.Error("response leaks the Redis password")
	}
}

func TestGetConfigKeys(t *testing.T) {
	srv := testServer(t, &fakeService{})

	rec := get(t, srv.handleGetConfigKeys, "/api/v1/config/keys")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); !resp.Success {
		t.Error("expected success envelope")
	}
}

func TestMergeConfig(t *testing.T) {
	dst := &config.Config{}
	dst.LLM.Primary = "openai"
	dst.LLM.Model = "gpt-4o-mini"
	dst.LLM.OpenAIKey = "sk-keep-me"
	dst.API.Port = 8080

	src := &config.Config{}
	src.LLM.Primary = "anthropic"
	src.News.Limit = 25
	src.Logging.Level = "debug"

	mergeConfig(dst, src)

	if dst.LLM.Primary != "anthropic" {
		t.Errorf("Primary = %q, want anthropic", dst.LLM.Primary)
	}
	if dst.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, empty incoming value must not clobber", dst.LLM.Model)
	}
	if dst.LLM.OpenAIKey != "sk-keep-me" {
		t.Errorf("OpenAIKey = %q, merge must never touch credentials", dst.LLM.OpenAIKey)
	}
	if dst.API.Port != 8080 {
		t.Errorf("Port = %d, want 8080", dst.API.Port)
	}
	if dst.News.Limit != 25 {
		t.Errorf("News.Limit = %d, want 25", dst.News.Limit)
	}
	if dst.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", dst.Logging.Level)
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket hub
// ════════════════════════════════════════════════════════════════════

func TestWSHubBroadcast(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(client)

	hub.Broadcast(WSMessage{Type: "analysis_complete", Data: map[string]string{"url": "https://example.com/a"}})

	select {
	case msg := <-client.send:
		if msg.Type != "analysis_complete" {
			t.Errorf("Type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}

	hub.Unregister(client)
	deadline := time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client not unregistered")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestWSHubNotify(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(client)

	hub.Notify("headlines_fetched", map[string]any{"category": "business", "count": 3})

	select {
	case msg := <-client.send:
		if msg.Type != "headlines_fetched" {
			t.Errorf("Type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
