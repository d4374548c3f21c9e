package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile  string // Path to SQLite database file (default: ./trace.db)
	PreviewSecret string // Required: HMAC secret for preview tokens

	// Matcher backends
	SearchURL        string        // Base URL of the exact-match search cluster
	SearchIndex      string        // Index holding document units (default: documents)
	VectorURL        string        // Base URL of the vector store
	VectorColl       string        // Collection holding document embeddings (default: documents)
	GeminiAPIKey     string        // Required unless semantic matching is disabled
	MatcherTimeout   time.Duration // Per-matcher call deadline (default: 10s)
	BM25NormK        float64       // BM25 score normalization constant (default: 8.0)
	ExactBoost       float64       // Hybrid-mode exact boost (default: 0.1)
	BoostAfterFilter bool          // Apply the exact boost after threshold filtering

	// Token lifetimes
	CodeTTL    time.Duration // Authorization code TTL (default: 5m)
	AccessTTL  time.Duration // Access token TTL (default: 2h)
	RefreshTTL time.Duration // Refresh token TTL (default: 168h)
	PreviewTTL time.Duration // Preview token TTL (default: 30m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:  getEnvOrDefault("TRACE_DATABASE_FILE", "trace.db"),
		PreviewSecret: os.Getenv("TRACE_PREVIEW_SECRET"),

		SearchURL:        getEnvOrDefault("TRACE_SEARCH_URL", "http://localhost:9200"),
		SearchIndex:      getEnvOrDefault("TRACE_SEARCH_INDEX", "documents"),
		VectorURL:        getEnvOrDefault("TRACE_VECTOR_URL", "http://localhost:6333"),
		VectorColl:       getEnvOrDefault("TRACE_VECTOR_COLLECTION", "documents"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		MatcherTimeout:   getEnvDurationOrDefault("TRACE_MATCHER_TIMEOUT", 10*time.Second),
		BM25NormK:        getEnvFloatOrDefault("TRACE_BM25_NORM_K", 8.0),
		ExactBoost:       getEnvFloatOrDefault("TRACE_EXACT_BOOST", 0.1),
		BoostAfterFilter: getEnvOrDefault("TRACE_BOOST_AFTER_FILTER", "false") == "true",

		CodeTTL:    getEnvDurationOrDefault("TRACE_CODE_TTL", 5*time.Minute),
		AccessTTL:  getEnvDurationOrDefault("TRACE_ACCESS_TTL", 2*time.Hour),
		RefreshTTL: getEnvDurationOrDefault("TRACE_REFRESH_TTL", 7*24*time.Hour),
		PreviewTTL: getEnvDurationOrDefault("TRACE_PREVIEW_TTL", 30*time.Minute),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values read as minutes for backwards compatibility
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
