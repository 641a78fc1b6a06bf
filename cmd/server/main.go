package main

import (
	"log"

	"subscription-api/internal/api"
	"subscription-api/internal/config"
	"subscription-api/internal/database"
	"subscription-api/internal/services"
	"subscription-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	if err := logging.InitLogging(cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()

	for _, name := range cfg.MissingSecrets() {
		logging.Warnf("%s is not set; requests depending on it will fail", name)
	}

	// Initialize database
	if err := database.InitDatabase(cfg); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	catalog := services.NewProductCatalog(cfg.MonthlyProductIDs, cfg.YearlyProductIDs)
	validator := services.NewReceiptValidator(services.ReceiptValidatorConfig{
		ProductionURL: cfg.AppStoreProductionURL,
		SandboxURL:    cfg.AppStoreSandboxURL,
		SharedSecret:  cfg.AppStoreSharedSecret,
		Timeout:       cfg.AppStoreTimeout,
	}, catalog)
	subscriptionService := services.NewSubscriptionService(
		validator,
		database.NewSubscriptionRepository(database.GetDB()),
		catalog,
		services.NewStatusCache(database.GetRedis(), cfg.StatusCacheTTL),
		services.NewUserLocker(database.GetRedis(), cfg.ReconcileLockTTL),
		services.NewWebhookNotifier(cfg.WebhookCallbackURL, cfg.WebhookSecret),
	)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.NewSubscriptionHandler(subscriptionService), cfg.JWTSecret)

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Errorf("Failed to start server: %v", err)
	}
}
