package api

import (
	"net/http"

	"subscription-api/internal/response"

	"github.com/gin-gonic/gin"
)

// CancelSubscriptionRequest represents cancel subscription request
type CancelSubscriptionRequest struct {
	UserID UserID `json:"userId"`
}

// Cancel deactivates every subscription of the user
// POST /api/subscriptions/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}
	if req.UserID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "userId is required")
		return
	}
	userID := string(req.UserID)
	if !authorizeUser(c, userID) {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), userID); err != nil {
		writeServiceError(c, "Subscription cancel", err)
		return
	}

	response.JSON(c, http.StatusOK, response.Message("Subscription cancelled successfully"))
}
