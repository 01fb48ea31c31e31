package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/purelabio/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_defaults(t *testing.T) {
	conf, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), conf)
	assert.Equal(t, echo.DefaultAssetId, conf.AssetId)
	assert.NoError(t, conf.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeTempFile(t, "echo.yaml", `
node_url: wss://node.example.com/ws
caller_id: 1.2.123
log_level: debug
development: true
reconnect_interval: 250ms
`)

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		NodeUrl:           "wss://node.example.com/ws",
		CallerId:          "1.2.123",
		AssetId:           "1.3.0",
		LogLevel:          "debug",
		Development:       true,
		ReconnectInterval: 250 * time.Millisecond,
	}, conf)

	logger, err := conf.Logger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))
}

func TestLoadConfig_errors(t *testing.T) {
	for _, test := range []struct {
		name    string
		content string
		msg     string
	}{
		{"unknown field", "node_uri: ws://localhost", "failed to decode config"},
		{"malformed yaml", "node_url: [", "failed to decode config"},
		{"empty node url", `node_url: ""`, `"node_url" is required`},
		{"contract caller", "caller_id: 1.16.5", `"caller_id" must be an account id`},
		{"malformed caller", "caller_id: qwe", `"caller_id" must be an account id`},
		{"malformed asset", `asset_id: "1.3"`, `malformed "asset_id"`},
		{"zero interval", "reconnect_interval: 0s", `"reconnect_interval" must be positive`},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadConfig(writeTempFile(t, "echo.yaml", test.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.msg)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestConfig_Logger_malformedLevel(t *testing.T) {
	conf := DefaultConfig()
	conf.LogLevel = "loud"

	_, err := conf.Logger()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `malformed "log_level"`)
}
