package api

import (
	"context"
	"errors"
	"net/http"

	"subscription-api/internal/middleware"
	"subscription-api/internal/models"
	"subscription-api/internal/response"
	"subscription-api/internal/services"
	"subscription-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SubscriptionManager is the reconciler used by the subscription handlers.
type SubscriptionManager interface {
	VerifyReceipt(ctx context.Context, userID, receiptData string, isSandbox bool) (*services.SubscriptionStatus, error)
	Status(ctx context.Context, userID string) (*services.SubscriptionStatus, error)
	Cancel(ctx context.Context, userID string) error
	History(ctx context.Context, userID string) ([]models.Subscription, error)
}

// SubscriptionHandler serves /api/subscriptions.
type SubscriptionHandler struct {
	service SubscriptionManager
}

func NewSubscriptionHandler(service SubscriptionManager) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, handler *SubscriptionHandler, jwtSecret string) {
	api := r.Group("/api")
	{
		subscriptions := api.Group("/subscriptions")
		subscriptions.Use(middleware.BearerAuthMiddleware(jwtSecret))
		{
			subscriptions.POST("/verify-receipt", handler.VerifyReceipt)
			subscriptions.GET("/status/:userId", handler.GetStatus)
			subscriptions.POST("/cancel", handler.Cancel)
			subscriptions.GET("/history/:userId", handler.GetHistory)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "subscription-api",
		})
	})
}

// authorizeUser rejects requests acting on another user's subscription.
func authorizeUser(c *gin.Context, userID string) bool {
	if middleware.AuthenticatedUserID(c) != userID {
		response.ErrorJSON(c, http.StatusForbidden, "Access denied")
		return false
	}
	return true
}

// writeServiceError maps reconciler errors to HTTP responses.
func writeServiceError(c *gin.Context, operation string, err error) {
	switch {
	case services.IsValidationError(err):
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrReconcileInProgress):
		response.ErrorJSON(c, http.StatusConflict, err.Error())
	default:
		logging.Errorf("%s failed: %v", operation, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
}
