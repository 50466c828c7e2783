package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dlnacp.yaml")
	yamlContent := `
bufferSize: 2048
subscribeInterval: 900
allowLocalhost: true
deviceTypeFilter: "urn:schemas-upnp-org:device:MediaRenderer:1"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.BufferSize)
	assert.Equal(t, 900, cfg.SubscribeInterval)
	assert.True(t, cfg.AllowLocalhost)
	assert.Equal(t, "urn:schemas-upnp-org:device:MediaRenderer:1", cfg.DeviceTypeFilter)
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.BufferSize)
	assert.Equal(t, 1800, cfg.SubscribeInterval)
	assert.Equal(t, ":0", cfg.ListenAddr)
	assert.Equal(t, 5*time.Millisecond, cfg.NoConnectDelay())
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/dlnacp.yaml")
	assert.Error(t, err)
}
