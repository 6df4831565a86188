package appconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFlagToEnvironment(t *testing.T) {
	assert.Equal(t, Production, EnvFlagToEnvironment("production"))
	assert.Equal(t, Test, EnvFlagToEnvironment("test"))
	assert.Equal(t, Development, EnvFlagToEnvironment("development"))
	assert.Equal(t, Development, EnvFlagToEnvironment("bogus"))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Contains(t, cfg.TripUpdatesURL, "tripupdates")
	assert.Contains(t, cfg.VehiclePositionsURL, "vehicleupdates")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRACKER_ENV", "production")
	t.Setenv("TRACKER_PORT", "8080")
	t.Setenv("TRACKER_VERBOSE", "true")
	t.Setenv("TRACKER_REFRESH_INTERVAL_SECONDS", "60")
	t.Setenv("TRACKER_RATE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Production, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 5, cfg.RateLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("TRACKER_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}
