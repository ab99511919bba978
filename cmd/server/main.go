package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/careercompass/internal/activity"
	"github.com/p-n-ai/careercompass/internal/ai"
	"github.com/p-n-ai/careercompass/internal/assistant"
	"github.com/p-n-ai/careercompass/internal/catalog"
	"github.com/p-n-ai/careercompass/internal/platform/cache"
	"github.com/p-n-ai/careercompass/internal/platform/clock"
	"github.com/p-n-ai/careercompass/internal/platform/config"
	"github.com/p-n-ai/careercompass/internal/platform/database"
	"github.com/p-n-ai/careercompass/internal/platform/kvstore"
	"github.com/p-n-ai/careercompass/internal/platform/metrics"
	"github.com/p-n-ai/careercompass/internal/quiz"
	"github.com/p-n-ai/careercompass/internal/server"
	"github.com/p-n-ai/careercompass/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app is the wired dependency graph.
type app struct {
	handler http.Handler
	quiz    *quiz.Manager
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	go a.quiz.Run(ctx, ticker.C, time.Second)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     a.handler,
		ReadTimeout: 10 * time.Second,
		// Chat replies stream for up to two minutes.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// setup connects backing services and wires every component.
func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	m := metrics.New()
	checks := map[string]server.Check{}
	var events activity.Logger = activity.Nop{}

	var rdb *cache.Cache
	if cfg.UsesCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		rdb = c
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c.HealthCheck
	}

	var store kvstore.Store
	switch cfg.Store.Backend {
	case "postgres":
		db, err := database.Open(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
			Migrate:  cfg.Database.Migrate,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db.HealthCheck

		pg, err := kvstore.NewPostgres(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		store = pg
		events = activity.NewPostgresLogger(db.Pool)
	case "redis":
		store = kvstore.NewRedis(rdb.Client)
	default:
		store = kvstore.NewMemory()
	}
	slog.Info("state store ready", "backend", cfg.Store.Backend)

	source, err := catalogSource(cfg.Catalog, rdb)
	if err != nil {
		a.close()
		return nil, err
	}

	quizMgr, err := quizManager(cfg.Quiz, events, m)
	if err != nil {
		a.close()
		return nil, err
	}
	a.quiz = quizMgr

	router := chatRouter(cfg)
	if router.HasProvider() {
		checks["ai"] = router.HealthCheck
	} else {
		slog.Warn("no chat provider configured; chat replies will be error messages")
	}

	clk := clock.System{}
	a.handler = server.New(server.Deps{
		Quiz:    quizMgr,
		Catalog: catalog.NewService(source, clk, m),
		Tracker: tracker.New(store,
			tracker.WithClock(clk),
			tracker.WithEvents(events),
			tracker.WithMetrics(m),
		),
		Assistant: assistant.New(assistant.Config{
			Provider:           router,
			Store:              store,
			Clock:              clk,
			Events:             events,
			Metrics:            m,
			RateLimitPerMinute: cfg.Chat.RateLimitPerMinute,
			CompactThreshold:   cfg.Chat.CompactThreshold,
			Model:              cfg.AI.Model,
		}),
		Metrics:        m,
		Checks:         checks,
		MapsConfigured: cfg.Maps.APIKey != "",
	})
	return a, nil
}

func catalogSource(cfg config.CatalogConfig, rdb *cache.Cache) (catalog.Source, error) {
	if cfg.APIURL == "" {
		s, err := catalog.NewStaticSource(cfg.StaticPath)
		if err != nil {
			return nil, fmt.Errorf("load static catalog: %w", err)
		}
		return s, nil
	}

	s, err := catalog.NewHTTPSource(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}
	if cfg.CacheTTL > 0 && rdb != nil {
		slog.Info("catalog cache enabled", "ttl_seconds", cfg.CacheTTL)
		return catalog.NewCachedSource(s, rdb.Client, time.Duration(cfg.CacheTTL)*time.Second), nil
	}
	return s, nil
}

func quizManager(cfg config.QuizConfig, events activity.Logger, m *metrics.Metrics) (*quiz.Manager, error) {
	var (
		bank *quiz.Bank
		err  error
	)
	if cfg.BankPath != "" {
		bank, err = quiz.LoadBank(cfg.BankPath)
	} else {
		bank, err = quiz.DefaultBank()
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz bank: %w", err)
	}

	var scorer quiz.Scorer = quiz.NewKeywordScorer()
	if cfg.ScoringURL != "" {
		remote, err := quiz.NewRemoteScorer(cfg.ScoringURL)
		if err != nil {
			return nil, fmt.Errorf("quiz scorer: %w", err)
		}
		scorer = &quiz.FallbackScorer{Primary: remote, Secondary: scorer}
	}

	policy := quiz.Policy{
		Duration:   time.Duration(cfg.DurationSeconds) * time.Second,
		AllowSkip:  cfg.AllowSkip,
		AutoSubmit: cfg.AutoSubmit,
	}
	slog.Info("quiz ready", "questions", bank.Len(), "duration", policy.Duration, "remote_scoring", cfg.ScoringURL != "")
	return quiz.NewManager(bank, policy, scorer,
		quiz.WithEvents(events),
		quiz.WithMetrics(m),
		quiz.WithIdleTTL(time.Duration(cfg.SessionTTL)*time.Second),
	), nil
}

// chatRouter registers every configured provider in fallback order.
func chatRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	if cfg.AI.Endpoint.URL != "" {
		router.Register("endpoint", ai.NewEndpointProvider(cfg.AI.Endpoint.URL))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey))
	}
	if cfg.AI.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.AI.DeepSeek.APIKey))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL))
	}
	return router
}
