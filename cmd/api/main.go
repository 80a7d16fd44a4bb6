package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/forkful/forkful-backend/config"
	"github.com/forkful/forkful-backend/internal/api"
	"github.com/forkful/forkful-backend/internal/database"
	"github.com/forkful/forkful-backend/internal/router"
	"github.com/forkful/forkful-backend/internal/server"
	"github.com/forkful/forkful-backend/internal/service"
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

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}

	images, err := service.NewS3ImageStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("init image store", zap.Error(err))
	}

	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL)
	userService := service.NewUserService(db, images, cfg.PageSize)
	recipeService := service.NewRecipeService(db, cfg.PageSize)
	shoppingListService := service.NewShoppingListService(db)
	catalogService := service.NewCatalogService(db, redisClient, logger)

	engine := router.Setup(
		logger,
		api.NewAuthHandler(authService),
		api.NewUserHandler(userService, authService, cfg.PageSize),
		api.NewRecipeHandler(recipeService, shoppingListService, images, authService, cfg.PageSize),
		api.NewCatalogHandler(catalogService),
	)

	srv := server.New(cfg.Addr(), engine, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
