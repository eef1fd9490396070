package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 7*24*time.Hour, cfg.RequestRetention)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12*time.Hour, cfg.ReminderTokenTTL)
	assert.Equal(t, 14, cfg.SlotSearchDays)
	assert.Equal(t, 30, cfg.DefaultDurationMin)
	assert.False(t, cfg.AutoConfirm)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TOKEN_TTL", "6h")
	t.Setenv("SLOT_SEARCH_DAYS", "7")
	t.Setenv("WORKFLOW_AUTO_CONFIRM", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 6*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 7, cfg.SlotSearchDays)
	assert.True(t, cfg.AutoConfirm)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("SLOT_SEARCH_DAYS", "not-a-number")
	t.Setenv("TOKEN_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.SlotSearchDays)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}
