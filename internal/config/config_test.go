package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatlink.yml")
	data := []byte(`
broker:
  url: wss://chat.example.com/ws
user:
  id: 42
  name: jiwoo
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/ws", cfg.Broker.URL)
	assert.Equal(t, int64(42), cfg.User.ID)
	assert.Equal(t, "jiwoo", cfg.User.Name)
	// untouched sections keep their defaults
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatlink.yml")
	require.NoError(t, os.WriteFile(path, []byte("broker: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
