package api

import (
	"net/http"
	"strings"

	"subscription-api/internal/response"
	"subscription-api/internal/services"

	"github.com/gin-gonic/gin"
)

// GetSubscriptionStatusResponse represents subscription status response
type GetSubscriptionStatusResponse struct {
	Success      bool                         `json:"success"`
	Subscription *services.SubscriptionStatus `json:"subscription"`
}

// GetStatus returns the user's current subscription status
// GET /api/subscriptions/status/:userId
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "userId is required")
		return
	}
	if !authorizeUser(c, userID) {
		return
	}

	status, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, "Subscription status", err)
		return
	}

	c.JSON(http.StatusOK, GetSubscriptionStatusResponse{
		Success:      true,
		Subscription: status,
	})
}
