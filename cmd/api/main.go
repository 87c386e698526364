package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smartrecipe/backend/config"
	"github.com/smartrecipe/backend/internal/api"
	"github.com/smartrecipe/backend/internal/database"
	"github.com/smartrecipe/backend/internal/logger"
	"github.com/smartrecipe/backend/internal/metrics"
	"github.com/smartrecipe/backend/internal/middleware"
	"github.com/smartrecipe/backend/internal/server"
	"github.com/smartrecipe/backend/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.Environment == config.Development,
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(cfg, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
	} else {
		log.Warn("redis not configured, drafts and rate limiting disabled")
	}

	blobs, err := config.NewS3Store(ctx, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	openai := service.NewOpenAIClient(service.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		Temperature: cfg.Temperature,
	})
	gateway := service.NewImageGateway(openai, blobs, service.GatewayConfig{
		Folder:           cfg.AssetFolder,
		SynthesisTimeout: cfg.SynthesisTimeout,
		StorageTimeout:   cfg.StorageTimeout,
	}, log, m)

	var (
		drafts  service.DraftCache
		limiter *middleware.RateLimiter
	)
	if rdb != nil {
		drafts = service.NewDraftStore(rdb)
		limiter = middleware.NewGenerationRateLimiter(rdb, cfg.GenerationRateLimit, cfg.GenerationRateWindow, log)
	}

	generator := service.NewRecipeGenerator(openai, cfg.GenerationTimeout, log)
	handler := api.NewHandler(api.Services{
		Pipeline: service.NewGenerationPipeline(generator, gateway, drafts, log, m),
		Recipes:  service.NewRecipeService(db, gateway, log),
		Library:  service.NewLibraryService(db, log),
		Reviews:  service.NewReviewService(db, log),
		Users:    service.NewUserService(db, log),
	}, log)

	srv := server.New(cfg, server.Dependencies{
		DB:        db,
		Redis:     rdb,
		Handler:   handler,
		Validator: service.NewJWTVerifier(cfg.JWTSecret),
		Limiter:   limiter,
		Metrics:   m,
	}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		assetCtx, cancel := context.WithTimeout(context.Background(), cfg.StorageTimeout)
		defer cancel()
		if err := gateway.Wait(assetCtx); err != nil {
			log.Warn("pending image deletions abandoned", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
