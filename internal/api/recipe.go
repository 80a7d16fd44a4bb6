package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkful/forkful-backend/internal/middleware"
	"github.com/forkful/forkful-backend/internal/models"
	"github.com/forkful/forkful-backend/internal/service"
)

// RecipeHandler serves recipe CRUD, the filtered listing, favorite/cart
// toggles and the shopping-list export.
type RecipeHandler struct {
	recipes      *service.RecipeService
	shoppingList *service.ShoppingListService
	images       service.ImageStore
	auth         *service.AuthService
	pageSize     int
}

func NewRecipeHandler(recipes *service.RecipeService, shoppingList *service.ShoppingListService, images service.ImageStore, auth *service.AuthService, pageSize int) *RecipeHandler {
	return &RecipeHandler{
		recipes:      recipes,
		shoppingList: shoppingList,
		images:       images,
		auth:         auth,
		pageSize:     pageSize,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.OptionalAuth(h.auth), h.ListRecipes)
		recipes.GET("/:id", middleware.OptionalAuth(h.auth), h.GetRecipe)
		recipes.GET("/:id/get-link", h.GetLink)
		recipes.POST("", middleware.Auth(h.auth), h.CreateRecipe)
		recipes.PATCH("/:id", middleware.Auth(h.auth), h.UpdateRecipe)
		recipes.DELETE("/:id", middleware.Auth(h.auth), h.DeleteRecipe)
		recipes.POST("/:id/favorite", middleware.Auth(h.auth), h.Favorite)
		recipes.DELETE("/:id/favorite", middleware.Auth(h.auth), h.Unfavorite)
		recipes.POST("/:id/shopping_cart", middleware.Auth(h.auth), h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", middleware.Auth(h.auth), h.RemoveFromCart)
		recipes.GET("/download_shopping_cart", middleware.Auth(h.auth), h.DownloadShoppingCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, limit, err := parsePage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	// The envelope's next/previous links must use the limit the service
	// actually paged with.
	if limit < 1 {
		limit = h.pageSize
	}

	filter := service.RecipeFilter{
		Page:      page,
		Limit:     limit,
		TagSlugs:  c.QueryArray("tags"),
		Favorited: boolQuery(c, "is_favorited"),
		InCart:    boolQuery(c, "is_in_shopping_cart"),
	}
	if author := c.Query("author"); author != "" {
		authorID, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": "author must be a valid user id"})
			return
		}
		filter.Author = &authorID
	}

	var viewer *uuid.UUID
	if id, ok := middleware.Viewer(c); ok {
		viewer = &id
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), filter, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]recipeView, 0, len(recipes))
	for _, recipe := range recipes {
		views = append(views, buildRecipeView(recipe))
	}
	c.JSON(http.StatusOK, buildPage(c, total, page, limit, views))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "recipe not found"})
		return
	}
	var viewer *uuid.UUID
	if id, ok := middleware.Viewer(c); ok {
		viewer = &id
	}

	recipe, err := h.recipes.Get(c.Request.Context(), recipeID, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildRecipeView(*recipe))
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "recipe not found"})
		return
	}
	var viewer *uuid.UUID
	if _, err := h.recipes.Get(c.Request.Context(), recipeID, viewer); err != nil {
		respondError(c, err)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	c.JSON(http.StatusOK, gin.H{
		"short-link": fmt.Sprintf("%s://%s/recipes/%s", scheme, c.Request.Host, recipeID),
	})
}

func (h *RecipeHandler) buildInput(c *gin.Context, req recipeRequest) (service.RecipeInput, error) {
	input := service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
	}
	for _, ing := range req.Ingredients {
		input.Ingredients = append(input.Ingredients, service.IngredientAmount{
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		})
	}
	if req.Image != "" {
		data, contentType, err := decodeBase64Image(req.Image)
		if err != nil {
			return input, err
		}
		url, err := h.images.Upload(c.Request.Context(), imageKey("recipes", contentType),
			bytes.NewReader(data), contentType)
		if err != nil {
			return input, err
		}
		input.ImageURL = url
	}
	return input, nil
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	input, err := h.buildInput(c, req)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), viewer, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildRecipeView(service.RecipeWithFlags{Recipe: *recipe}))
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "recipe not found"})
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	input, err := h.buildInput(c, req)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), recipeID, viewer, input)
	if err != nil {
		respondError(c, err)
		return
	}

	flagged, err := h.recipes.Get(c.Request.Context(), recipe.ID, &viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildRecipeView(*flagged))
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "recipe not found"})
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), recipeID, viewer); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) Favorite(c *gin.Context) {
	h.addRelation(c, h.recipes.Favorite)
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	h.removeRelation(c, h.recipes.Unfavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.recipes.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.recipes.RemoveFromCart)
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)) {
	viewer, _ := middleware.Viewer(c)
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "recipe not found"})
		return
	}

	recipe, err := add(c.Request.Context(), viewer, recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildRecipeShortView(*recipe))
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	viewer, _ := middleware.Viewer(c)
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "recipe not found"})
		return
	}

	if err := remove(c.Request.Context(), viewer, recipeID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)

	items, err := h.shoppingList.BuildShoppingList(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}
