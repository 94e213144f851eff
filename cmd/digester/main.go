package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"buzzdigest/db"
	"buzzdigest/internal/cache"
	"buzzdigest/internal/config"
	"buzzdigest/internal/enrich"
	"buzzdigest/internal/extract"
	"buzzdigest/internal/model"
	"buzzdigest/internal/repository"
	"buzzdigest/internal/run"
	"buzzdigest/internal/store"
	"buzzdigest/pkg/feed"
	"buzzdigest/pkg/llm"
	"buzzdigest/pkg/news"
)

func main() {

	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	dateArg := flag.String("date", "", "target date (YYYY-MM-DD), defaults to today UTC")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	day, err := run.ResolveDate(*dateArg)
	if err != nil {
		log.Fatalf("error resolving target date: %v", err)
	}

	blobs, err := newStore(cfg)
	if err != nil {
		log.Fatalf("error opening cache store: %v", err)
	}
	resultCache := cache.New(blobs)

	llmClient, err := newLLMClient(cfg)
	if err != nil {
		log.Fatalf("error creating completion client: %v", err)
	}

	provider := newNewsProvider(cfg, day)
	if provider == nil {
		log.Fatalf("no news search API keys configured")
	}

	collector := feed.NewClient(feed.Options{
		BaseURL: cfg.FeedBaseURL,
		Credentials: feed.Credentials{
			AuthToken:         cfg.FeedAuthToken,
			CSRFToken:         cfg.FeedCSRFToken,
			GuestID:           cfg.FeedGuestID,
			PersonalizationID: cfg.FeedPersonalizationID,
			BearerToken:       cfg.FeedBearerToken,
			QueryID:           cfg.FeedQueryID,
		},
		MaxPosts:  cfg.FeedMaxPosts,
		PageDelay: cfg.FeedPageDelay,
	})

	extractor := extract.New(llmClient, extract.Options{
		Model: cfg.PrimaryModel,
		Delay: cfg.RetryDelay,
	})

	enricher := enrich.New(llmClient, provider, resultCache, enrich.Options{
		PrimaryModel:   cfg.PrimaryModel,
		EconomyModel:   cfg.EconomyModel,
		ModelThreshold: cfg.EconomyAt,
		Delay:          cfg.RetryDelay,
	})

	var recorder run.Recorder
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("error connecting to DB: %v", err)
		}
		defer database.Close()

		repo := repository.NewRunRepository(database)
		if err := repo.EnsureSchema(); err != nil {
			log.Fatalf("error preparing run archive: %v", err)
		}
		recorder = repo
	}

	runner := run.New(collector, extractor, enricher, resultCache, recorder, run.Options{
		RetryDelay: cfg.RetryDelay,
	})

	report, err := runner.Run(context.Background(), day)
	if err != nil {
		log.Fatalf("run failed for %s: %v", day, err)
	}

	slog.Info("run complete",
		"status", report.Status,
		"date", report.Date,
		"summary_key", report.SummaryKey,
		"entities", report.Entities)
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.CacheBackend {
	case "s3":
		return store.NewS3(store.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Key:      cfg.S3AccessKey,
			Secret:   cfg.S3SecretKey,
			Endpoint: cfg.S3Endpoint,
		})
	case "redis":
		return store.NewRedis(context.Background(), cfg.RedisURL)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want s3, redis or memory)", cfg.CacheBackend)
	}
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want openai or anthropic)", cfg.LLMProvider)
	}
}

func newNewsProvider(cfg *config.Config, day model.Date) news.Provider {
	if cfg.SerpAPIKey != "" {
		return news.NewSerpAPIClient(cfg.SerpAPIKey)
	}
	win := day.Window()
	if cfg.FinnhubAPIKey != "" {
		return news.NewFinnHubClient(cfg.FinnhubAPIKey, win.Start, win.End)
	}
	if cfg.AlphaVantageAPIKey != "" {
		return news.NewAlphaVantageClient(cfg.AlphaVantageAPIKey, win.Start, win.End)
	}
	return nil
}
