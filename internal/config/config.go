// Package config reads every credential and knob the digester and API use
// from the environment, once, at process start.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Social feed session, lifted from a logged-in browser.
	FeedBaseURL           string        `env:"FEED_BASE_URL" envDefault:"https://x.com/i/api"`
	FeedAuthToken         string        `env:"FEED_AUTH_TOKEN"`
	FeedCSRFToken         string        `env:"FEED_CSRF_TOKEN"`
	FeedGuestID           string        `env:"FEED_GUEST_ID"`
	FeedPersonalizationID string        `env:"FEED_PERSONALIZATION_ID"`
	FeedBearerToken       string        `env:"FEED_BEARER_TOKEN"`
	FeedQueryID           string        `env:"FEED_QUERY_ID"`
	FeedMaxPosts          int           `env:"FEED_MAX_POSTS" envDefault:"200"`
	FeedPageDelay         time.Duration `env:"FEED_PAGE_DELAY" envDefault:"1s"`

	// News search. SerpApi is preferred when both keys are present.
	SerpAPIKey         string `env:"SERPAPI_KEY"`
	FinnhubAPIKey      string `env:"FINNHUB_API_KEY"`
	AlphaVantageAPIKey string `env:"ALPHA_VANTAGE_API_KEY"`

	// Completion service.
	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	PrimaryModel    string `env:"LLM_PRIMARY_MODEL" envDefault:"gpt-4.1"`
	EconomyModel    string `env:"LLM_ECONOMY_MODEL" envDefault:"gpt-3.5-turbo"`
	EconomyAt       int    `env:"LLM_ECONOMY_THRESHOLD" envDefault:"50"`

	// Result cache backend: s3, redis or memory.
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"s3"`
	S3Bucket     string `env:"S3_BUCKET"`
	S3Region     string `env:"S3_REGION" envDefault:"auto"`
	S3Endpoint   string `env:"S3_ENDPOINT"`
	S3AccessKey  string `env:"S3_ACCESS_KEY"`
	S3SecretKey  string `env:"S3_SECRET_KEY"`
	RedisURL     string `env:"REDIS_URL"`

	// RetryDelay spaces retried model and feed calls apart.
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"5s"`

	// Run archive and API server.
	DatabaseURL string `env:"DATABASE_URL"`
	Port        int    `env:"PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
