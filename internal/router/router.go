package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forkful/forkful-backend/internal/api"
	"github.com/forkful/forkful-backend/internal/middleware"
)

// Setup wires the middleware chain and registers every handler under /api.
func Setup(
	logger *zap.Logger,
	authHandler *api.AuthHandler,
	userHandler *api.UserHandler,
	recipeHandler *api.RecipeHandler,
	catalogHandler *api.CatalogHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.CORS(),
	)

	group := router.Group("/api")
	authHandler.RegisterRoutes(group)
	userHandler.RegisterRoutes(group)
	recipeHandler.RegisterRoutes(group)
	catalogHandler.RegisterRoutes(group)

	return router
}
