package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30, cfg.Slots.DefaultCapacity)
	assert.Equal(t, 62, cfg.Slots.MaxMaterializeDays)
	assert.True(t, cfg.Slots.AutoMaterialize)
	assert.Equal(t, 14, cfg.Slots.HorizonDays)
	assert.False(t, cfg.Calendar.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Calendar.CacheTTL)
	assert.False(t, cfg.JWT.SingleSession)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SLOT_DEFAULT_CAPACITY", "12")
	t.Setenv("SLOT_MAX_MATERIALIZE_DAYS", "-1")
	t.Setenv("SLOT_AUTO_MATERIALIZE", "false")
	t.Setenv("SLOT_HORIZON_DAYS", "0")
	t.Setenv("CALENDAR_CACHE_ENABLED", "true")
	t.Setenv("CALENDAR_CACHE_TTL", "not-a-duration")
	t.Setenv("JWT_SINGLE_SESSION", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://gym.example.com, ,http://localhost:5173")
	t.Setenv("APP_TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Slots.DefaultCapacity)
	assert.Equal(t, 62, cfg.Slots.MaxMaterializeDays)
	assert.False(t, cfg.Slots.AutoMaterialize)
	assert.Zero(t, cfg.Slots.HorizonDays)
	assert.True(t, cfg.Calendar.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Calendar.CacheTTL)
	assert.True(t, cfg.JWT.SingleSession)
	assert.Equal(t, []string{"https://gym.example.com", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Config{Timezone: "Mars/Olympus"}).Location())
	assert.Equal(t, time.UTC, (*Config)(nil).Location())
}
