package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Global singleton for components that cannot take injection yet
var globalConfig *Config

// Config holds all environment backed configuration for the query engine.
type Config struct {
	// HTTP Server
	HTTPPort    int `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9091"`

	// PostgreSQL
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// LLM providers
	OpenRouterAPIKey     string `env:"OPENROUTER_API_KEY"`
	GroqAPIKey           string `env:"GROQ_API_KEY"`
	CerebrasAPIKey       string `env:"CEREBRAS_API_KEY"`
	CohereAPIKey         string `env:"COHERE_API_KEY"`
	PollinationsAPIKey   string `env:"POLLINATIONS_API_KEY"`
	OpenRouterModelsOnly string `env:"OPENROUTER_MODELS_ONLY"` // comma separated allowlist, free models only when empty
	DefaultModel         string `env:"DEFAULT_MODEL"`

	// Search providers
	BraveAPIKey   string `env:"BRAVE_API_KEY"`
	TavilyAPIKey  string `env:"TAVILY_API_KEY"`
	SearxngURL    string `env:"SEARXNG_URL"`
	SearchResults int    `env:"SEARCH_RESULTS" envDefault:"10"`

	// Timeouts
	MetadataTimeout   time.Duration `env:"METADATA_TIMEOUT" envDefault:"15s"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"120s"`

	// Model Sync
	ModelSyncIntervalMinutes int  `env:"MODEL_SYNC_INTERVAL_MINUTES" envDefault:"60"`
	ModelSyncEnabled         bool `env:"MODEL_SYNC_ENABLED" envDefault:"true"`
	LimitSyncIntervalMinutes int  `env:"LIMIT_SYNC_INTERVAL_MINUTES" envDefault:"30"`

	// HTTP client resilience
	RetryMaxAttempts   int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialDelay  time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"250ms"`
	RetryBackoffFactor float64       `env:"RETRY_BACKOFF_FACTOR" envDefault:"1.5"`
	CBEnabled          bool          `env:"CB_ENABLED" envDefault:"true"`
	CBFailureThreshold int           `env:"CB_FAILURE_THRESHOLD" envDefault:"10"`
	CBTimeout          time.Duration `env:"CB_TIMEOUT" envDefault:"45s"`

	// HTTP rate limiting (per client, not the provider gate)
	ClientRateLimitPerMinute float64 `env:"CLIENT_RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"query-engine"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"w9"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	// Best effort; environments without a .env file are fine.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SearchResults <= 0 {
		cfg.SearchResults = 10
	}
	if cfg.ModelSyncIntervalMinutes <= 0 {
		cfg.ModelSyncIntervalMinutes = 60
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.SearxngURL = strings.TrimSuffix(strings.TrimSpace(cfg.SearxngURL), "/")
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

// GetGlobal returns the global config instance for backwards compatibility.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
