package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	AssetStoreSupabase = "supabase"
	AssetStoreMinIO    = "minio"
)

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string

	// Asset store used to re-host product images for the synthesis service
	AssetStore     string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	// Planning service (Gemini)
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiModel      string

	// Synthesis service (fal.ai Seedream)
	FalEndpoint        string
	SynthesisImageSize string

	DefaultSceneCount int
	HTTPTimeout       time.Duration
	SessionTTL        time.Duration

	// Events
	NATSURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "products"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AssetStore:     strings.ToLower(getEnv("ASSET_STORE", AssetStoreSupabase)),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "products"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", true),
		MinIOPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion: getEnv("GEMINI_API_VERSION", "v1beta"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-3-pro-preview"),

		FalEndpoint:        getEnv("FAL_ENDPOINT", "https://fal.run/fal-ai/bytedance/seedream/v4.5/edit"),
		SynthesisImageSize: getEnv("SYNTHESIS_IMAGE_SIZE", "auto_2K"),

		DefaultSceneCount: getEnvInt("DEFAULT_SCENE_COUNT", 4),
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,

		NATSURL: getEnv("NATS_URL", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.DefaultSceneCount < 2 {
		cfg.DefaultSceneCount = 4
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.AssetStore {
	case AssetStoreSupabase:
	case AssetStoreMinIO:
		if c.MinIOEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when ASSET_STORE=minio")
		}
		if c.MinIOPublicURL == "" {
			return fmt.Errorf("MINIO_PUBLIC_URL is required when ASSET_STORE=minio")
		}
	default:
		return fmt.Errorf("unknown ASSET_STORE %q", c.AssetStore)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
