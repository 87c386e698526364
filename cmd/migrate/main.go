package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/smartrecipe/backend/config"
	"github.com/smartrecipe/backend/internal/database"
	"github.com/smartrecipe/backend/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer log.Sync()

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}
	log.Info("all migrations applied", zap.Int("models", len(database.Models())))
}
