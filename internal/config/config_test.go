package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[telemetry]
port = 9420

[nav]
pixels_per_tile = 4.25
variance = "aggressive"

[profile]
mode = "combat"
target_ids = [3029, 3030]
food_ids = [385]
bank_tile = [3253, 3420, 0]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9420, cfg.Telemetry.Port)
	assert.Equal(t, 4.25, cfg.Nav.PixelsPerTile)
	assert.Equal(t, "aggressive", cfg.Nav.Variance)
	assert.Equal(t, []int{3029, 3030}, cfg.Profile.TargetIDs)

	// Untouched fields keep defaults.
	assert.Equal(t, 2*time.Second, cfg.Telemetry.Timeout)
	assert.Equal(t, 50, cfg.Collision.CacheSize)
	assert.Equal(t, 100, cfg.Nav.PathCacheSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad variance", "[nav]\nvariance = \"wild\"\n"},
		{"bad mode", "[profile]\nmode = \"fishing?\"\n"},
		{"bad port", "[telemetry]\nport = 99999\n"},
		{"bad bank tile", "[profile]\nbank_tile = [1, 2]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does/not/exist.toml")
	assert.Error(t, err)
}
