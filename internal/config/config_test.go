package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	assert.Empty(t, cfg.AuthSecret, "AUTH_SECRET must stay empty when unset")
	assert.Empty(t, cfg.ManagerPIN, "MANAGER_PIN must stay empty when unset")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("STORE_TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL())
	assert.Equal(t, "Asia/Baghdad", cfg.StoreTimezone)
	assert.Equal(t, 3, cfg.LowStockThreshold)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Baghdad", loc.String())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("PHONE_COUNTRY_CODE", "+971")
	t.Setenv("LOW_STOCK_THRESHOLD", "5")
	t.Setenv("STORE_TIMEZONE", "Asia/Dubai")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "971", cfg.PhoneCountryCode)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, "Asia/Dubai", cfg.StoreTimezone)
}

func TestLocationRejectsUnknownZone(t *testing.T) {
	cfg := Config{StoreTimezone: "Mars/Olympus"}
	_, err := cfg.Location()
	assert.Error(t, err)
}
