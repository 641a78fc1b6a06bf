package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAppStoreProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	DefaultAppStoreSandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"
)

type Config struct {
	// Server configuration
	Port     string
	Mode     string
	LogLevel string

	// Database configuration
	DatabaseURL string

	// Redis configuration (optional, enables status cache and reconcile lock)
	RedisURL string

	// App Store receipt validation
	AppStoreSharedSecret  string
	AppStoreProductionURL string
	AppStoreSandboxURL    string
	AppStoreTimeout       time.Duration
	MonthlyProductIDs     []string
	YearlyProductIDs      []string

	// Bearer token validation
	JWTSecret string

	StatusCacheTTL   time.Duration
	ReconcileLockTTL time.Duration

	// Webhook configuration (notifies a downstream backend about subscription changes)
	WebhookCallbackURL string
	WebhookSecret      string
}

var AppConfig *Config

func InitConfig() error {
	// .env is optional
	_ = godotenv.Load()

	AppConfig = Load()
	return AppConfig.Validate()
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Mode:                  getEnv("GIN_MODE", "debug"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		AppStoreSharedSecret:  getEnv("APPSTORE_SHARED_SECRET", ""),
		AppStoreProductionURL: getEnv("APPSTORE_PRODUCTION_URL", DefaultAppStoreProductionURL),
		AppStoreSandboxURL:    getEnv("APPSTORE_SANDBOX_URL", DefaultAppStoreSandboxURL),
		AppStoreTimeout:       getEnvDuration("APPSTORE_TIMEOUT", 10*time.Second),
		MonthlyProductIDs:     getEnvList("APPSTORE_MONTHLY_PRODUCT_IDS", []string{"premium_monthly"}),
		YearlyProductIDs:      getEnvList("APPSTORE_YEARLY_PRODUCT_IDS", []string{"premium_yearly"}),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		StatusCacheTTL:        getEnvDuration("STATUS_CACHE_TTL", 5*time.Minute),
		ReconcileLockTTL:      getEnvDuration("RECONCILE_LOCK_TTL", 30*time.Second),
		WebhookCallbackURL:    getEnv("WEBHOOK_CALLBACK_URL", ""),
		WebhookSecret:         getEnv("WEBHOOK_SECRET", ""),
	}
}

// IsRelease reports whether the server runs in gin release mode.
func (c *Config) IsRelease() bool {
	return c.Mode == "release"
}

// Validate rejects configurations that cannot verify receipts safely.
// Outside release mode the secrets are allowed to be empty; callers log
// MissingSecrets as warnings instead.
func (c *Config) Validate() error {
	var errs []error
	if c.AppStoreTimeout <= 0 {
		errs = append(errs, errors.New("APPSTORE_TIMEOUT must be positive"))
	}
	if c.ReconcileLockTTL <= 0 {
		errs = append(errs, errors.New("RECONCILE_LOCK_TTL must be positive"))
	}
	if len(c.MonthlyProductIDs) == 0 && len(c.YearlyProductIDs) == 0 {
		errs = append(errs, errors.New("at least one subscription product id must be configured"))
	}
	if c.IsRelease() {
		for _, name := range c.MissingSecrets() {
			errs = append(errs, errors.New(name+" is required in release mode"))
		}
	}
	return errors.Join(errs...)
}

// MissingSecrets lists the names of unset secret variables.
func (c *Config) MissingSecrets() []string {
	var missing []string
	if c.AppStoreSharedSecret == "" {
		missing = append(missing, "APPSTORE_SHARED_SECRET")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	return missing
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or plain seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs := getEnvInt(key, -1); secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
