package api

import (
	"net/http"
	"strings"
	"time"

	"subscription-api/internal/models"
	"subscription-api/internal/response"

	"github.com/gin-gonic/gin"
)

// SubscriptionHistoryItem represents a subscription history item
type SubscriptionHistoryItem struct {
	ID                    uint      `json:"id"`
	UserID                string    `json:"user_id"`
	ProductID             string    `json:"product_id"`
	TransactionID         string    `json:"transaction_id"`
	OriginalTransactionID string    `json:"original_transaction_id"`
	PurchaseDate          time.Time `json:"purchase_date"`
	ExpiresDate           time.Time `json:"expires_date"`
	IsActive              bool      `json:"is_active"`
	IsTrialPeriod         bool      `json:"is_trial_period"`
	IsInIntroOfferPeriod  bool      `json:"is_in_intro_offer_period"`
	AutoRenewStatus       *bool     `json:"auto_renew_status"`
	Environment           string    `json:"environment"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// SubscriptionHistoryResponse represents subscription history response
type SubscriptionHistoryResponse struct {
	Success       bool                      `json:"success"`
	Subscriptions []SubscriptionHistoryItem `json:"subscriptions"`
}

// GetHistory returns every subscription row of the user, newest first
// GET /api/subscriptions/history/:userId
func (h *SubscriptionHandler) GetHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "userId is required")
		return
	}
	if !authorizeUser(c, userID) {
		return
	}

	subscriptions, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, "Subscription history", err)
		return
	}

	c.JSON(http.StatusOK, SubscriptionHistoryResponse{
		Success:       true,
		Subscriptions: toHistoryItems(subscriptions),
	})
}

func toHistoryItems(subscriptions []models.Subscription) []SubscriptionHistoryItem {
	items := make([]SubscriptionHistoryItem, len(subscriptions))
	for i, sub := range subscriptions {
		items[i] = SubscriptionHistoryItem{
			ID:                    sub.ID,
			UserID:                sub.UserID,
			ProductID:             sub.ProductID,
			TransactionID:         sub.TransactionID,
			OriginalTransactionID: sub.OriginalTransactionID,
			PurchaseDate:          sub.PurchaseDate,
			ExpiresDate:           sub.ExpiresDate,
			IsActive:              sub.IsActive,
			IsTrialPeriod:         sub.IsTrialPeriod,
			IsInIntroOfferPeriod:  sub.IsInIntroOfferPeriod,
			AutoRenewStatus:       sub.AutoRenewStatus,
			Environment:           sub.Environment,
			CreatedAt:             sub.CreatedAt,
			UpdatedAt:             sub.UpdatedAt,
		}
	}
	return items
}
