package api

import (
	"net/http"

	"subscription-api/internal/response"
	"subscription-api/internal/services"

	"github.com/gin-gonic/gin"
)

// VerifyReceiptRequest represents verify receipt request
type VerifyReceiptRequest struct {
	UserID      UserID `json:"userId"`
	ReceiptData string `json:"receiptData"` // base64 App Store receipt
	IsSandbox   bool   `json:"isSandbox"`   // try the sandbox endpoint first
}

// VerifyReceiptResponse represents verify receipt response
type VerifyReceiptResponse struct {
	Success      bool                         `json:"success"`
	Subscription *services.SubscriptionStatus `json:"subscription"`
}

// VerifyReceipt validates a receipt and stores it as the user's subscription
// POST /api/subscriptions/verify-receipt
func (h *SubscriptionHandler) VerifyReceipt(c *gin.Context) {
	var req VerifyReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}
	if req.UserID == "" || req.ReceiptData == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "userId and receiptData are required")
		return
	}
	userID := string(req.UserID)
	if !authorizeUser(c, userID) {
		return
	}

	status, err := h.service.VerifyReceipt(c.Request.Context(), userID, req.ReceiptData, req.IsSandbox)
	if err != nil {
		writeServiceError(c, "Receipt verification", err)
		return
	}

	c.JSON(http.StatusOK, VerifyReceiptResponse{
		Success:      true,
		Subscription: status,
	})
}
