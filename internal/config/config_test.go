package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
flush_interval: 250ms
log:
  level: debug
redis:
  enabled: true
websocket:
  write_timeout: "2s"
  read_limit: "1024"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 250*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "domsync:scene", cfg.Redis.Topic)
	assert.Equal(t, 2*time.Second, cfg.Websocket.WriteTimeout)
	assert.Equal(t, int64(1024), cfg.Websocket.ReadLimit)
	assert.Equal(t, 25*time.Second, cfg.Websocket.PingInterval)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domsync.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"echo_suppression": true, "log": {"format": "json"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.EchoSuppression)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := map[string]string{
		"unknown key":      "lissen: :80\n",
		"bad duration":     "flush_interval: soon\n",
		"zero interval":    "flush_interval: 0s\n",
		"bad level":        "log:\n  level: loud\n",
		"bad format":       "log:\n  format: xml\n",
		"redis incomplete": "redis:\n  enabled: true\n  topic: \"\"\n",
		"malformed":        "listen: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			assert.Error(t, Parse([]byte(body), ".yaml", &cfg))
		})
	}
}
