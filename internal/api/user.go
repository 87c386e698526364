package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartrecipe/backend/internal/service"
)

func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var fields service.ProfileFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid profile body")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), callerID(c), fields)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
