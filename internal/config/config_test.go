package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APPSTORE_SHARED_SECRET", "")
	t.Setenv("APPSTORE_TIMEOUT", "")
	t.Setenv("APPSTORE_MONTHLY_PRODUCT_IDS", "")

	cfg := Load()
	assert.Equal(t, DefaultAppStoreProductionURL, cfg.AppStoreProductionURL)
	assert.Equal(t, DefaultAppStoreSandboxURL, cfg.AppStoreSandboxURL)
	assert.Equal(t, 10*time.Second, cfg.AppStoreTimeout)
	assert.Equal(t, []string{"premium_monthly"}, cfg.MonthlyProductIDs)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APPSTORE_TIMEOUT", "3")
	t.Setenv("STATUS_CACHE_TTL", "90s")
	t.Setenv("APPSTORE_YEARLY_PRODUCT_IDS", " com.app.yearly , com.app.annual,,")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.AppStoreTimeout)
	assert.Equal(t, 90*time.Second, cfg.StatusCacheTTL)
	assert.Equal(t, []string{"com.app.yearly", "com.app.annual"}, cfg.YearlyProductIDs)
}

func TestValidateSecrets(t *testing.T) {
	cfg := Load()
	cfg.AppStoreSharedSecret = ""
	cfg.JWTSecret = ""

	cfg.Mode = "debug"
	require.NoError(t, cfg.Validate())
	assert.ElementsMatch(t, []string{"APPSTORE_SHARED_SECRET", "JWT_SECRET"}, cfg.MissingSecrets())

	cfg.Mode = "release"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APPSTORE_SHARED_SECRET is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")

	cfg.AppStoreSharedSecret = "shh"
	cfg.JWTSecret = "jwt"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresProducts(t *testing.T) {
	cfg := Load()
	cfg.MonthlyProductIDs = nil
	cfg.YearlyProductIDs = nil
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresPositiveDurations(t *testing.T) {
	cfg := Load()
	cfg.Mode = "debug"
	require.NoError(t, cfg.Validate())

	cfg.ReconcileLockTTL = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECONCILE_LOCK_TTL must be positive")

	cfg.ReconcileLockTTL = 30 * time.Second
	cfg.AppStoreTimeout = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "APPSTORE_TIMEOUT must be positive")
}
