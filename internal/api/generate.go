package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartrecipe/backend/internal/types"
)

// GenerateRecipe turns an ingredient list into a recipe draft with an image.
func (h *Handler) GenerateRecipe(c *gin.Context) {
	var req types.GenerateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ingredients must be a list of strings")
		return
	}

	result, err := h.pipeline.Generate(c.Request.Context(), callerID(c), req.Ingredients)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDraft returns a recipe generated earlier for the caller.
func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.pipeline.GetDraft(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}
