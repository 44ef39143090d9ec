package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Server.TimeoutSec)
	assert.Equal(t, 20, cfg.Display.PageSize)
	assert.Equal(t, 3, cfg.Poll.IntervalSec)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Server.BaseURL = "https://devlake.example.com/api/"
	cfg.Server.TokenRef = "keyring:api-key"
	cfg.Display.PageSize = 50

	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://devlake.example.com/api", got.Server.BaseURL)
	assert.Equal(t, "keyring:api-key", got.Server.TokenRef)
	assert.Equal(t, 50, got.Display.PageSize)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LAKECONSOLE_SERVER_BASE_URL", "http://lake:4000")
	t.Setenv("LAKECONSOLE_POLL_INTERVAL_SEC", "0")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://lake:4000", cfg.Server.BaseURL)
	assert.Equal(t, 3, cfg.Poll.IntervalSec, "non-positive intervals fall back to the default")
}
