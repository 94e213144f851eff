package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"buzzdigest/db"
	"buzzdigest/internal/config"
	"buzzdigest/internal/handler"
	"buzzdigest/internal/repository"
	"buzzdigest/internal/store"
)

func main() {

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	blobs, err := newStore(cfg)
	if err != nil {
		log.Fatalf("error opening cache store: %v", err)
	}

	var runs handler.RunStore
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
		runs = repo
	}

	digestHandler := handler.NewDigestHandler(blobs, runs)

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}

	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/digests/latest", digestHandler.GetLatestDigest)
	r.GET("/digests/:date", digestHandler.GetDigest)
	r.GET("/runs", digestHandler.GetRuns)
	r.GET("/health", digestHandler.GetHealth)

	err = r.Run(fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		log.Fatalf("error starting server: %v", err)
	}
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
