// Package api exposes the recipe services over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartrecipe/backend/internal/middleware"
	"github.com/smartrecipe/backend/internal/service"
	"github.com/smartrecipe/backend/internal/types"
)

// Handler serves the /api/v1 routes.
type Handler struct {
	pipeline *service.GenerationPipeline
	recipes  *service.RecipeService
	library  *service.LibraryService
	reviews  *service.ReviewService
	users    *service.UserService
	logger   *zap.Logger
}

// Services groups the dependencies of Handler.
type Services struct {
	Pipeline *service.GenerationPipeline
	Recipes  *service.RecipeService
	Library  *service.LibraryService
	Reviews  *service.ReviewService
	Users    *service.UserService
}

func NewHandler(s Services, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: s.Pipeline,
		recipes:  s.Recipes,
		library:  s.Library,
		reviews:  s.Reviews,
		users:    s.Users,
		logger:   logger,
	}
}

// RegisterRoutes mounts every endpoint on router. limiter may be nil when
// no Redis is configured.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, validator middleware.TokenValidator, limiter *middleware.RateLimiter) {
	auth := []gin.HandlerFunc{middleware.AuthMiddleware(validator), h.ensureUser}
	optional := middleware.OptionalAuth(validator)

	generate := append([]gin.HandlerFunc{}, auth...)
	if limiter != nil {
		generate = append(generate, limiter.RateLimitMiddleware())
	}
	router.POST("/generate-recipe", append(generate, h.GenerateRecipe)...)
	router.GET("/generate-recipe/drafts/:id", append(auth, h.GetDraft)...)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/search", h.SearchRecipes)
		recipes.GET("/user/:userId", h.ListUserRecipes)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.POST("", append(auth, h.CreateRecipe)...)
		recipes.PUT("/:id", append(auth, h.UpdateRecipe)...)
		recipes.DELETE("/:id", append(auth, h.DeleteRecipe)...)
		recipes.GET("/:id/reviews", h.ListReviews)
		recipes.POST("/:id/reviews", append(auth, h.CreateReview)...)
	}

	router.DELETE("/reviews/:id", append(auth, h.DeleteReview)...)

	me := router.Group("/users/me", auth...)
	{
		me.GET("", h.GetProfile)
		me.PUT("", h.UpdateProfile)
		me.GET("/saved", h.ListSaved)
		me.POST("/saved", h.SaveRecipe)
		me.DELETE("/saved/:id", h.UnsaveRecipe)
	}
}

// ensureUser provisions the caller's user record on first sight.
func (h *Handler) ensureUser(c *gin.Context) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "user not authenticated"})
		return
	}
	username, email := middleware.Identity(c)
	if _, err := h.users.EnsureUser(c.Request.Context(), id, username, email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Next()
}

// callerID is the authenticated user; routes using it run after AuthMiddleware.
func callerID(c *gin.Context) uuid.UUID {
	id, _ := middleware.UserID(c)
	return id
}

// pathID parses the uuid path parameter name, answering 400 when malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
