package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AIProvider             string
	GeminiAPIKey           string
	OpenAIAPIKey           string
	AIModel                string
	GradingMaxAttempts     int
	GradingRateLimit       int
	UploadMaxSizeMB        int
	StatsCacheTTL          time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EXAMARK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Examark API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "examark/uploads")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("grading.max_attempts", 3)
	v.SetDefault("grading.rate_limit", 10)
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("stats.cache_ttl", "5m")

	ttlString := v.GetString("stats.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		GeminiAPIKey:           v.GetString("gemini_api_key"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		AIModel:                v.GetString("ai.model"),
		GradingMaxAttempts:     v.GetInt("grading.max_attempts"),
		GradingRateLimit:       v.GetInt("grading.rate_limit"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		StatsCacheTTL:          ttl,
	}

	switch cfg.AIProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("gemini api key must be provided")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai api key must be provided")
		}
	default:
		return Config{}, fmt.Errorf("unsupported ai provider: %s", cfg.AIProvider)
	}

	if cfg.GradingMaxAttempts <= 0 {
		cfg.GradingMaxAttempts = 3
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	return cfg, nil
}
