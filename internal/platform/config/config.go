// Package config loads application configuration from environment variables.
// All variables use the BUDDY_ prefix. A few keys also accept the unprefixed
// names used by older deployments (PORT, FRONTEND_URL, GEMINI_API_KEY,
// API_KEY).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Frontend       FrontendConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	AI             AIConfig
	Quiz           QuizConfig
	Log            LogConfig
	CurriculumPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	Host      string
	BodyLimit int64 // bytes
	RateLimit int   // AI-backed requests per client per minute, 0 = unlimited
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FrontendConfig holds the browser origin allowed by CORS.
type FrontendConfig struct {
	URL string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL
// disables attempt history persistence.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// content cache.
type CacheConfig struct {
	URL        string
	TTLMinutes int
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	Google           GoogleConfig
	OpenAI           OpenAIConfig
	RetryAttempts    int
	DailyTokenBudget int
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds settings for an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// QuizConfig holds quiz generation and session settings.
type QuizConfig struct {
	QuestionCount     int
	SessionTTLMinutes int
}

// SessionTTL returns how long an idle quiz session is kept.
func (q QuizConfig) SessionTTL() time.Duration {
	return time.Duration(q.SessionTTLMinutes) * time.Minute
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with BUDDY_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:      envInt("BUDDY_SERVER_PORT", envInt("PORT", 8788)),
			Host:      envStr("BUDDY_SERVER_HOST", "0.0.0.0"),
			BodyLimit: int64(envInt("BUDDY_SERVER_BODY_LIMIT", 1<<20)),
			RateLimit: envInt("BUDDY_SERVER_RATE_LIMIT", 30),
		},
		Frontend: FrontendConfig{
			URL: envStr("BUDDY_FRONTEND_URL", envStr("FRONTEND_URL", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			URL:      envStr("BUDDY_DATABASE_URL", ""),
			MaxConns: envInt("BUDDY_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("BUDDY_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:        envStr("BUDDY_CACHE_URL", ""),
			TTLMinutes: envInt("BUDDY_CACHE_TTL_MINUTES", 360),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envFirst("BUDDY_AI_GOOGLE_API_KEY", "GEMINI_API_KEY", "API_KEY"),
				Model:  envStr("BUDDY_AI_GOOGLE_MODEL", "gemini-2.5-flash"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  envStr("BUDDY_AI_OPENAI_API_KEY", ""),
				BaseURL: envStr("BUDDY_AI_OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envStr("BUDDY_AI_OPENAI_MODEL", "gpt-4o-mini"),
			},
			RetryAttempts:    envInt("BUDDY_AI_RETRY_ATTEMPTS", 3),
			DailyTokenBudget: envInt("BUDDY_AI_DAILY_TOKEN_BUDGET", 0),
		},
		Quiz: QuizConfig{
			QuestionCount:     envInt("BUDDY_QUIZ_QUESTION_COUNT", 5),
			SessionTTLMinutes: envInt("BUDDY_QUIZ_SESSION_TTL_MINUTES", 60),
		},
		Log: LogConfig{
			Level:  envStr("BUDDY_LOG_LEVEL", "info"),
			Format: envStr("BUDDY_LOG_FORMAT", "json"),
		},
		CurriculumPath: envStr("BUDDY_CURRICULUM_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured (set BUDDY_AI_GOOGLE_API_KEY or GEMINI_API_KEY)")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("BUDDY_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("BUDDY_SERVER_BODY_LIMIT must be positive, got %d", c.Server.BodyLimit)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("BUDDY_SERVER_RATE_LIMIT must not be negative, got %d", c.Server.RateLimit)
	}

	if c.Quiz.QuestionCount <= 0 {
		return fmt.Errorf("BUDDY_QUIZ_QUESTION_COUNT must be positive, got %d", c.Quiz.QuestionCount)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" || c.AI.OpenAI.APIKey != ""
}

// AllowedOrigins returns the origins accepted by CORS: the frontend URL and
// the server's own localhost origin.
func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	if c.Frontend.URL != "" {
		origins = append(origins, strings.TrimRight(c.Frontend.URL, "/"))
	}
	return append(origins, fmt.Sprintf("http://localhost:%d", c.Server.Port))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFirst(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
