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
	path := filepath.Join(t.TempDir(), "playbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Headless)
	assert.Equal(t, TargetDemo, cfg.Target)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
target: chrome
url: http://localhost:8080/workspace
headless: false
timeout: 30s
poll: 250ms
results_db: runs.db
selectors:
  editor_text: "#code"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TargetChrome, cfg.Target)
	assert.Equal(t, "http://localhost:8080/workspace", cfg.URL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll)
	assert.Equal(t, "runs.db", cfg.ResultsDB)
	assert.Equal(t, "#code", cfg.Selectors.EditorText)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "targett: demo\n"))
	assert.ErrorContains(t, err, "field targett not found")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvTarget, TargetChrome)
	t.Setenv(EnvURL, "http://ide.test")
	t.Setenv(EnvResultsDB, "/tmp/history.db")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(writeConfig(t, "target: demo\nlog_level: error\n"))
	require.NoError(t, err)
	assert.Equal(t, TargetChrome, cfg.Target)
	assert.Equal(t, "http://ide.test", cfg.URL)
	assert.Equal(t, "/tmp/history.db", cfg.ResultsDB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown target", mutate: func(c *Config) { c.Target = "firefox" }, wantErr: `unknown target "firefox"`},
		{name: "chrome without url", mutate: func(c *Config) { c.Target = TargetChrome }, wantErr: "needs a url"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "poll above timeout", mutate: func(c *Config) { c.Poll = time.Minute }, wantErr: "poll must be positive"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
