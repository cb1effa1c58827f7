package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("DASHBOARD_CACHE_TTL", "")
	t.Setenv("PUBLIC_BASE_URL", "https://po.example/")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, "https://po.example", cfg.PublicBaseURL)
}

func TestLoad_DurationForms(t *testing.T) {
	t.Setenv("DASHBOARD_CACHE_TTL", "90")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, 90*time.Second, cfg.DashboardCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.IsProduction())
}
