package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smartrecipe/backend/internal/types"
)

func (h *Handler) ListSaved(c *gin.Context) {
	recipes, err := h.library.ListSaved(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// SaveRecipe adds a recipe to the caller's library and returns the saved ids.
func (h *Handler) SaveRecipe(c *gin.Context) {
	var req types.SaveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "recipeId is required")
		return
	}
	recipeID, err := uuid.Parse(req.RecipeID)
	if err != nil {
		badRequest(c, "invalid recipeId")
		return
	}

	saved, err := h.library.Save(c.Request.Context(), callerID(c), recipeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedRecipes": saved})
}

func (h *Handler) UnsaveRecipe(c *gin.Context) {
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	saved, err := h.library.Unsave(c.Request.Context(), callerID(c), recipeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedRecipes": saved})
}
