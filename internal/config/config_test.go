package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  format: json
server:
  addr: 127.0.0.1:9090
db:
  connection: mongodb://localhost:27017
  database: codetracker
cache:
  addr: localhost:6379
  ttl_hours: 6
auth:
  jwt_secret: shhh
  access_ttl_min: 15
tracker:
  api_base_url: https://tracker.example.com
  state_path: /tmp/tracker.json
  topic_rules:
    - slug: math
      keywords: [number, modulo]
refresh:
  enabled: true
  interval_min: 10
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "codetracker", cfg.DB.Database)
	assert.Equal(t, 6, cfg.Cache.TTLHours)
	assert.Equal(t, "shhh", cfg.Auth.JWTSecret)
	assert.Equal(t, 15, cfg.Auth.AccessTTLMin)
	assert.Equal(t, "https://tracker.example.com", cfg.Tracker.APIBaseURL)
	require.Len(t, cfg.Tracker.TopicRules, 1)
	assert.Equal(t, "math", cfg.Tracker.TopicRules[0].Slug)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 10, cfg.Refresh.IntervalMin)
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `auth: {jwt_secret: shhh}`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "problems", cfg.DB.Collections.Problems)
	assert.Equal(t, "users", cfg.DB.Collections.Users)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, "codetracker", cfg.Auth.Issuer)
	assert.Equal(t, 30, cfg.Auth.AccessTTLMin)
	assert.Equal(t, "http://localhost:8080", cfg.Tracker.APIBaseURL)
	assert.NotEmpty(t, cfg.Tracker.Fetch.UserAgent)
	assert.Equal(t, 50, cfg.Refresh.BatchSize)
	assert.False(t, cfg.Refresh.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "logger: [not: a: map"))
	assert.Error(t, err)
}
