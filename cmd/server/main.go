package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
	"github.com/p-n-ai/ntsa-buddy/internal/curriculum"
	"github.com/p-n-ai/ntsa-buddy/internal/platform/cache"
	"github.com/p-n-ai/ntsa-buddy/internal/platform/config"
	"github.com/p-n-ai/ntsa-buddy/internal/platform/database"
	"github.com/p-n-ai/ntsa-buddy/internal/platform/logging"
	"github.com/p-n-ai/ntsa-buddy/internal/quiz"
	"github.com/p-n-ai/ntsa-buddy/internal/server"
	"github.com/p-n-ai/ntsa-buddy/internal/study"
)

const sweepInterval = time.Minute

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	go app.sessions.RunSweeper(ctx, sweepInterval)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "ai_providers", app.router.Providers())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
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
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// app holds the wired dependencies of one server process.
type app struct {
	server   *server.Server
	router   *ai.Router
	sessions *quiz.Registry
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects optional backing services and wires the server. A
// database or cache that is configured but unreachable is logged and
// skipped; the API then runs on in-memory history and without caching.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	readiness := map[string]server.HealthChecker{}

	router, err := newAIRouter(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	a.router = router
	readiness["ai"] = router

	var attempts quiz.AttemptStore = quiz.NewMemoryAttemptStore()
	var events quiz.EventLogger = quiz.NopEventLogger{}
	if cfg.Database.URL != "" {
		db, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, attempt history kept in memory", "error", err)
		} else {
			a.closers = append(a.closers, db.Close)
			readiness["database"] = db

			store, err := quiz.NewPostgresAttemptStore(db.Pool)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("creating attempt store: %w", err)
			}
			attempts = store
			events = quiz.NewPostgresEventLogger(db.Pool)
		}
	}

	var content cache.ContentStore = cache.NopStore{}
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, generated content will not be cached", "error", err)
		} else {
			a.closers = append(a.closers, func() { c.Close() })
			readiness["cache"] = c
			content = cache.NewContentCache(c, "buddy:", cfg.Cache.TTL())
		}
	}

	loader, err := curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	var budget ai.BudgetChecker
	if cfg.AI.DailyTokenBudget > 0 {
		budget = ai.NewInMemoryBudget(int64(cfg.AI.DailyTokenBudget))
	}

	a.sessions = quiz.NewRegistry(cfg.Quiz.SessionTTL())
	a.server = server.New(server.Config{
		Study: study.NewService(study.Config{
			AIRouter:      router,
			Cache:         content,
			Budget:        budget,
			Curriculum:    loader,
			QuestionCount: cfg.Quiz.QuestionCount,
		}),
		Curriculum:     loader,
		Sessions:       a.sessions,
		Attempts:       attempts,
		Events:         events,
		AllowedOrigins: cfg.AllowedOrigins(),
		BodyLimit:      cfg.Server.BodyLimit,
		RateLimit:      cfg.Server.RateLimit,
		Readiness:      readiness,
	})
	return a, nil
}

// newAIRouter registers Gemini first and the OpenAI-compatible provider as
// fallback, each behind the retry decorator.
func newAIRouter(ctx context.Context, cfg config.AIConfig) (*ai.Router, error) {
	router := ai.NewRouter()
	retry := ai.DefaultRetryConfig(cfg.RetryAttempts)

	if cfg.Google.APIKey != "" {
		google, err := ai.NewGoogleProvider(ctx, cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model))
		if err != nil {
			return nil, fmt.Errorf("creating gemini provider: %w", err)
		}
		router.Register("google", ai.WithRetry(google, retry))
	}

	if cfg.OpenAI.APIKey != "" {
		openai := ai.NewOpenAIProvider(cfg.OpenAI.APIKey,
			ai.WithBaseURL(cfg.OpenAI.BaseURL),
			ai.WithModel(cfg.OpenAI.Model),
		)
		router.Register("openai", ai.WithRetry(openai, retry))
	}

	if !router.HasProvider() {
		return nil, errors.New("no AI provider configured")
	}
	return router, nil
}

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.New(ctx, cfg.URL, cfg.MaxConns, cfg.MinConns)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}
