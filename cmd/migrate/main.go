package main

import (
	"go.uber.org/zap"

	"github.com/forkful/forkful-backend/config"
	"github.com/forkful/forkful-backend/internal/database"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	logger.Info("migrations applied")
}
