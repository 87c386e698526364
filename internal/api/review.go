package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartrecipe/backend/internal/types"
)

func (h *Handler) ListReviews(c *gin.Context) {
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListByRecipe(c.Request.Context(), recipeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) CreateReview(c *gin.Context) {
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid review body")
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), recipeID, callerID(c), req.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) DeleteReview(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), reviewID, callerID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
