package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeclash/similitude/internal/api"
	"github.com/codeclash/similitude/internal/cache"
	"github.com/codeclash/similitude/internal/config"
	"github.com/codeclash/similitude/internal/configs/env"
	mongoInfra "github.com/codeclash/similitude/internal/infra/mongo"
	redisInfra "github.com/codeclash/similitude/internal/infra/redis"
	"github.com/codeclash/similitude/internal/logger"
	"github.com/codeclash/similitude/internal/repository"
	"github.com/codeclash/similitude/internal/similarity"
	"github.com/codeclash/similitude/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting similitude server")

	engine, err := similarity.New(cfg.EngineConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to construct similarity engine")
	}
	log.Info().
		Int("kGramSize", cfg.KGramSize).
		Int("winnowWindow", cfg.WinnowWindow).
		Msg("Similarity engine initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Comparison archive (optional)
	var comparisonsRepo *repository.ComparisonsRepository
	if cfg.MongoURI != "" {
		mongoClient, err := mongoInfra.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create MongoDB client")
		}
		defer mongoClient.Close(ctx)

		mongoRepo := repository.NewMongoRepository(mongoClient)
		comparisonsRepo = repository.NewComparisonsRepository(mongoRepo)
		log.Info().Msg("Comparison archive enabled")
	} else {
		log.Info().Msg("MONGO_URI not set, comparison archive disabled")
	}

	// Report cache and submission stream (optional)
	var reportCache *cache.ReportCache
	var consumer *stream.Consumer
	if cfg.RedisAddr != "" {
		redisClient, err := redisInfra.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Redis client")
		}
		defer redisClient.Close()

		reportCache = cache.NewReportCache(redisClient, cfg.CacheTTL)

		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
		retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.DeadLetterKey)
		consumer = stream.NewConsumer(
			redisClient.Client,
			cfg.StreamKey,
			cfg.ConsumerGroup,
			consumerName,
			engine,
			comparisonsRepo,
			reportCache,
			retryHandler,
			cfg.StreamRetention,
		)
		log.Info().Str("consumer_name", consumerName).Msg("Stream consumer initialized")
	} else {
		log.Info().Msg("REDIS_ADDR not set, report cache and stream consumer disabled")
	}

	workerPool := similarity.NewWorkerPool(ctx)
	defer workerPool.Close()

	router := api.SetupRoutes(cfg, engine, workerPool, comparisonsRepo, reportCache)

	if consumer != nil {
		go func() {
			if err := consumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("Stream consumer error")
			}
		}()
		log.Info().Msg("Stream consumer started")
	}

	srv := api.StartServer(router, cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")
	cancel()

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	log.Info().Msg("Shutdown complete")
}
