package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkful/forkful-backend/internal/apperr"
	"github.com/forkful/forkful-backend/internal/models"
	"github.com/forkful/forkful-backend/internal/service"
)

// Request DTOs.

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,max=150"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type recipeIngredientRequest struct {
	ID     uuid.UUID `json:"id" binding:"required"`
	Amount int       `json:"amount" binding:"required"`
}

type recipeRequest struct {
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	Image       string                    `json:"image"`
	CookingTime int                       `json:"cooking_time"`
	Tags        []uuid.UUID               `json:"tags"`
	Ingredients []recipeIngredientRequest `json:"ingredients"`
}

type setAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// Response views. One builder per view shape, selected by plain calls at the
// handler boundary.

type userView struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
	Avatar       string    `json:"avatar"`
}

func buildUserView(user models.User, isSubscribed bool) userView {
	return userView{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed,
		Avatar:       user.AvatarURL,
	}
}

type recipeIngredientView struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

type recipeView struct {
	ID               uuid.UUID              `json:"id"`
	Tags             []models.Tag           `json:"tags"`
	Author           userView               `json:"author"`
	Ingredients      []recipeIngredientView `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

func buildRecipeView(r service.RecipeWithFlags) recipeView {
	ingredients := make([]recipeIngredientView, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		ingredients = append(ingredients, recipeIngredientView{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		})
	}
	tags := r.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return recipeView{
		ID:               r.ID,
		Tags:             tags,
		Author:           buildUserView(r.Author, false),
		Ingredients:      ingredients,
		IsFavorited:      r.IsFavorited,
		IsInShoppingCart: r.IsInShoppingCart,
		Name:             r.Name,
		Image:            r.ImageURL,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

type recipeShortView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

func buildRecipeShortView(r models.Recipe) recipeShortView {
	return recipeShortView{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.ImageURL,
		CookingTime: r.CookingTime,
	}
}

type authorView struct {
	userView
	Recipes      []recipeShortView `json:"recipes"`
	RecipesCount int64             `json:"recipes_count"`
}

func buildAuthorView(a service.AuthorPreview) authorView {
	recipes := make([]recipeShortView, 0, len(a.Recipes))
	for _, r := range a.Recipes {
		recipes = append(recipes, buildRecipeShortView(r))
	}
	return authorView{
		userView:     buildUserView(a.User, a.IsSubscribed),
		Recipes:      recipes,
		RecipesCount: a.RecipesCount,
	}
}

// pageResponse is the envelope for paginated listings.
type pageResponse struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

func buildPage(c *gin.Context, count int64, page, limit int, results interface{}) pageResponse {
	resp := pageResponse{Count: count, Results: results}
	if limit < 1 {
		limit = 1
	}
	last := int((count + int64(limit) - 1) / int64(limit))
	if page < last {
		next := pageURL(c, page+1)
		resp.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		resp.Previous = &prev
	}
	return resp
}

func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// respondError maps the domain error taxonomy to HTTP statuses. Entity
// not-found is 404; an absent relation on delete is 400, the request was
// well-formed but its precondition failed.
func respondError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindRelationNotFound:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"errors": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"errors": err.Error()})
}

// parsePage reads page/limit query params; page defaults to 1 and must be a
// positive integer, the service enforces the lower bound.
func parsePage(c *gin.Context) (int, int, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperr.Validation("page must be an integer")
		}
		page = parsed
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, apperr.Validation("limit must be a positive integer")
		}
		limit = parsed
	}
	return page, limit, nil
}

// boolQuery reads a query flag, accepting both "1" and "true" style values.
// Absent or unparsable values are false.
func boolQuery(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// decodeBase64Image decodes a data-URI image payload into bytes and a
// content type.
func decodeBase64Image(payload string) ([]byte, string, error) {
	const marker = ";base64,"
	if !strings.HasPrefix(payload, "data:") {
		return nil, "", apperr.Validation("image must be a base64 data URI")
	}
	idx := strings.Index(payload, marker)
	if idx < 0 {
		return nil, "", apperr.Validation("image must be base64 encoded")
	}
	contentType := payload[len("data:"):idx]
	data, err := base64.StdEncoding.DecodeString(payload[idx+len(marker):])
	if err != nil {
		return nil, "", apperr.Validation("invalid base64 image data: %v", err)
	}
	if len(data) == 0 {
		return nil, "", apperr.Validation("image data is empty")
	}
	return data, contentType, nil
}

func imageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	default:
		return "bin"
	}
}

func imageKey(prefix string, contentType string) string {
	return fmt.Sprintf("%s/%s.%s", prefix, uuid.New(), imageExtension(contentType))
}
