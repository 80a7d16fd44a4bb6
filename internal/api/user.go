package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkful/forkful-backend/internal/middleware"
	"github.com/forkful/forkful-backend/internal/service"
)

// UserHandler serves profiles, avatars and subscriptions.
type UserHandler struct {
	users    *service.UserService
	auth     *service.AuthService
	pageSize int
}

func NewUserHandler(users *service.UserService, auth *service.AuthService, pageSize int) *UserHandler {
	return &UserHandler{users: users, auth: auth, pageSize: pageSize}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", middleware.OptionalAuth(h.auth), h.ListUsers)
		users.GET("/:id", middleware.OptionalAuth(h.auth), h.GetUser)
		users.GET("/me", middleware.Auth(h.auth), h.Me)
		users.PUT("/me/avatar", middleware.Auth(h.auth), h.SetAvatar)
		users.DELETE("/me/avatar", middleware.Auth(h.auth), h.DeleteAvatar)
		users.GET("/subscriptions", middleware.Auth(h.auth), h.Subscriptions)
		users.POST("/:id/subscribe", middleware.Auth(h.auth), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.Auth(h.auth), h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit, err := parsePage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if limit < 1 {
		limit = h.pageSize
	}

	var viewer *uuid.UUID
	if id, ok := middleware.Viewer(c); ok {
		viewer = &id
	}

	users, total, err := h.users.List(c.Request.Context(), page, limit, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, user := range users {
		views = append(views, buildUserView(user.User, user.IsSubscribed))
	}
	c.JSON(http.StatusOK, buildPage(c, total, page, limit, views))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "user not found"})
		return
	}
	var viewer *uuid.UUID
	if id, ok := middleware.Viewer(c); ok {
		viewer = &id
	}

	user, err := h.users.Get(c.Request.Context(), userID, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildUserView(user.User, user.IsSubscribed))
}

func (h *UserHandler) Me(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	user, err := h.users.Get(c.Request.Context(), viewer, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildUserView(user.User, false))
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)

	var req setAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	data, contentType, err := decodeBase64Image(req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.users.SetAvatar(c.Request.Context(), viewer, data, contentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	if err := h.users.DeleteAvatar(c.Request.Context(), viewer); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "user not found"})
		return
	}

	author, err := h.users.Subscribe(c.Request.Context(), viewer, authorID, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildAuthorView(*author))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "user not found"})
		return
	}

	if err := h.users.Unsubscribe(c.Request.Context(), viewer, authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	viewer, _ := middleware.Viewer(c)
	page, limit, err := parsePage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if limit < 1 {
		limit = h.pageSize
	}

	authors, total, err := h.users.Subscriptions(c.Request.Context(), viewer, page, limit, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]authorView, 0, len(authors))
	for _, author := range authors {
		views = append(views, buildAuthorView(author))
	}
	c.JSON(http.StatusOK, buildPage(c, total, page, limit, views))
}

// recipesLimit caps the embedded recipe previews; 0 means no cap.
func recipesLimit(c *gin.Context) int {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
