package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
bulb:
  address: "AA:BB:CC:DD:EE:FF"
  scan_timeout: 5s
  write_rps: 10
log:
  level: debug
  colors: true
effects:
  sunrise_duration: 20m
  step_interval: 5s
astro:
  lat: 52.37
  lon: 4.90
  timezone: Europe/Amsterdam
history:
  retention_days: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Bulb.Address)
	assert.Equal(t, 5*time.Second, cfg.Bulb.ScanTimeout.Duration())
	assert.Equal(t, 10.0, cfg.Bulb.WriteRPS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Colors)
	assert.Equal(t, 20*time.Minute, cfg.Effects.SunriseDuration.Duration())
	assert.Equal(t, 5*time.Second, cfg.Effects.StepInterval.Duration())
	assert.True(t, cfg.Astro.Configured())
	assert.Equal(t, "Europe/Amsterdam", cfg.Astro.Timezone)
	assert.Equal(t, 7, cfg.History.RetentionDays)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Bulb.ScanTimeout.Duration())
	assert.Equal(t, 20.0, cfg.Bulb.WriteRPS)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.Effects.SunriseDuration.Duration())
	assert.Equal(t, 500*time.Millisecond, cfg.Effects.FlashInterval.Duration())
	assert.Equal(t, 30, cfg.History.RetentionDays)
	assert.Equal(t, "run_now", cfg.Program.Misfire)
	assert.False(t, cfg.Astro.Configured())
}

func TestAddressFromEnv(t *testing.T) {
	t.Setenv(AddressEnvVar, "11:22:33:44:55:66")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "11:22:33:44:55:66", cfg.Bulb.Address)
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("TEST_BULB_ADDR", "77:88:99:AA:BB:CC")

	path := writeConfig(t, `
bulb:
  address: "${TEST_BULB_ADDR}"
log:
  level: "${TEST_LOG_LEVEL:warn}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "77:88:99:AA:BB:CC", cfg.Bulb.Address)
	assert.Equal(t, "warn", cfg.Log.Level, "unset var falls back to default")
}

func TestInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
bulb:
  scan_timeout: "ten seconds"
`)
	_, err := Load(path)
	require.Error(t, err)
}
