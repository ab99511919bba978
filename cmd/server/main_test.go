package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/careercompass/internal/activity"
	"github.com/p-n-ai/careercompass/internal/platform/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:   config.StoreConfig{Backend: "memory"},
		Quiz:    config.QuizConfig{DurationSeconds: 600},
		Catalog: config.CatalogConfig{CacheTTL: 300},
		Chat:    config.ChatConfig{RateLimitPerMinute: 20, CompactThreshold: 40},
		Log:     config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	a, err := setup(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer a.close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if strings.TrimSpace(rec.Body.String()) != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSetup_ServesSeedCatalogAndQuiz(t *testing.T) {
	a, err := setup(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer a.close()

	for _, path := range []string{"/api/catalog/scholarships", "/api/catalog/streams", "/api/quiz/questions"} {
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d: %s", path, rec.Code, rec.Body.String())
		}
	}
	if a.quiz.Bank().Len() == 0 {
		t.Error("default quiz bank is empty")
	}
}

func TestSetup_NoProviderStillReplies(t *testing.T) {
	a, err := setup(context.Background(), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/chat/messages", strings.NewReader(`{"text":"hello"}`))
	a.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var msg struct {
		Error bool `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil || !msg.Error {
		t.Errorf("reply = %s, want an error-flagged message", rec.Body.String())
	}
}

func TestSetup_BadQuizBankPath(t *testing.T) {
	cfg := testConfig()
	cfg.Quiz.BankPath = t.TempDir()
	if _, err := setup(context.Background(), cfg); err == nil {
		t.Error("setup() should fail with an empty question bank directory")
	}
}

func TestQuizManager_EvictsIdleSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Quiz.SessionTTL = 60

	mgr, err := quizManager(cfg.Quiz, activity.Nop{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	mgr.Start("u1")
	mgr.TickAll(context.Background(), 61*time.Second)
	if n := mgr.Len(); n != 0 {
		t.Errorf("sessions after idle TTL = %d, want 0", n)
	}
}

func TestChatRouter(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   int
	}{
		{"none", func(*config.Config) {}, 0},
		{"openai", func(c *config.Config) { c.AI.OpenAI.APIKey = "sk-test" }, 1},
		{"all", func(c *config.Config) {
			c.AI.OpenAI.APIKey = "sk-test"
			c.AI.DeepSeek.APIKey = "ds-test"
			c.AI.Ollama = config.OllamaConfig{Enabled: true, URL: "http://localhost:11434"}
			c.AI.Endpoint.URL = "http://localhost:9000/chat"
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			router := chatRouter(cfg)
			if router.HasProvider() != (tt.want > 0) {
				t.Errorf("HasProvider() = %v", router.HasProvider())
			}
			if tt.want > 0 && cfg.HasAIProvider() != router.HasProvider() {
				t.Error("config and router disagree about providers")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg       config.LogConfig
		debugSeen bool
		json      bool
	}{
		{config.LogConfig{Level: "info", Format: "json"}, false, true},
		{config.LogConfig{Level: "debug", Format: "text"}, true, false},
		{config.LogConfig{Level: "WARN", Format: "json"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Level+"/"+tt.cfg.Format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(tt.cfg, &buf)
			logger.Debug("debug line")
			logger.Error("error line", "k", "v")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.debugSeen {
				t.Errorf("debug visibility wrong: %q", out)
			}
			if strings.HasPrefix(out, "{") != tt.json {
				t.Errorf("format wrong: %q", out)
			}
			if !logger.Enabled(context.Background(), slog.LevelError) {
				t.Error("error level must always be enabled")
			}
		})
	}
}
