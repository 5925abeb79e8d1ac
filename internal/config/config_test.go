package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headerDiffCodec/internal/headerdiff"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
	assert.NoError(t, conf.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
codec:
  max_table_size: 512
  context: response
  registry:
    response: [status, x-custom]
server:
  port: 9090
  session_ttl: 5m
logger:
  level: debug
`)
	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 512, conf.Codec.MaxTableSize)
	assert.Equal(t, 9090, conf.Server.Port)
	assert.Equal(t, 1024, conf.Server.MaxSessions, "unset fields keep their defaults")
	assert.Equal(t, 5*time.Minute, conf.Server.SessionTTL)
	assert.Equal(t, "debug", conf.Logger.Level)

	cfg, err := conf.HeaderDiff("", nil)
	require.NoError(t, err)
	assert.Equal(t, headerdiff.ResponseContext, cfg.Context)
	assert.Equal(t, 512, cfg.MaxTableSize)
	assert.Equal(t, []string{"status", "x-custom"}, cfg.Registry)

	cfg, err = conf.HeaderDiff("request", nil)
	require.NoError(t, err)
	assert.Equal(t, headerdiff.RequestContext, cfg.Context)
	assert.Nil(t, cfg.Registry, "request keeps the default registry")

	_, err = conf.HeaderDiff("trailer", nil)
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"table size": "codec: {max_table_size: 0}",
		"huge table": "codec: {max_table_size: 4294967296}",
		"context":    "codec: {context: push}",
		"port":       "server: {port: 70000}",
		"ttl":        "server: {session_ttl: -1s}",
		"level":      "logger: {level: chatty}",
		"duplicate":  "codec: {registry: {request: [host, host]}}",
		"empty name": "codec: {registry: {response: ['']}}",
		"yaml":       "codec: [",
	}
	for name, content := range tests {
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err, name)
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
