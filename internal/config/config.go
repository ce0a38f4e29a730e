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
	EventsSubjectPrefix    string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	OpenAIAPIKey           string
	ChatModel              string
	EmbeddingModel         string
	ChatMaxTokens          int
	ChatbotCacheTTL        time.Duration
	ChatbotRateLimit       int
	ChatbotWarmQueries     []string
	ContentTreeCacheTTL    time.Duration
	VectorSearchLimit      int
	VectorSearchThreshold  float64
	PublishScheduleSpec    string
	MidtransServerKey      string
	MidtransProduction     bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject_prefix", "lms.events")
	v.SetDefault("cloudinary.folder", "lms/resources")
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("chatbot.cache_ttl", "1h")
	v.SetDefault("chatbot.rate_limit", 20)
	v.SetDefault("content.tree_cache_ttl", "45s")
	v.SetDefault("vector_search.limit", 5)
	v.SetDefault("vector_search.threshold", 0.75)
	v.SetDefault("publish.schedule", "@every 1m")
	v.SetDefault("midtrans.production", false)

	ttlString := v.GetString("chatbot.cache_ttl")
	if ttlString == "" {
		ttlString = "1h"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid chatbot cache ttl: %w", err)
	}

	treeTTL, err := time.ParseDuration(v.GetString("content.tree_cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid content tree cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventsSubjectPrefix:    v.GetString("events.subject_prefix"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		ChatModel:              v.GetString("openai.chat_model"),
		EmbeddingModel:         v.GetString("openai.embedding_model"),
		ChatMaxTokens:          v.GetInt("openai.max_tokens"),
		ChatbotCacheTTL:        ttl,
		ChatbotRateLimit:       v.GetInt("chatbot.rate_limit"),
		ChatbotWarmQueries:     splitList(v.GetString("chatbot.warm_queries")),
		ContentTreeCacheTTL:    treeTTL,
		VectorSearchLimit:      v.GetInt("vector_search.limit"),
		VectorSearchThreshold:  v.GetFloat64("vector_search.threshold"),
		PublishScheduleSpec:    strings.TrimSpace(v.GetString("publish.schedule")),
		MidtransServerKey:      v.GetString("midtrans.server_key"),
		MidtransProduction:     v.GetBool("midtrans.production"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.VectorSearchLimit <= 0 {
		cfg.VectorSearchLimit = 5
	}

	if cfg.VectorSearchThreshold <= 0 || cfg.VectorSearchThreshold > 1 {
		cfg.VectorSearchThreshold = 0.75
	}

	if cfg.PublishScheduleSpec == "" {
		cfg.PublishScheduleSpec = "@every 1m"
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
