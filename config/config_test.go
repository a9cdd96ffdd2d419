package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, NotifyModeInline, cfg.Notify.Mode)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: \"9090\"\nnotify:\n  mode: outbox\n  workers: 2\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("NOVEL_NOTIFY_WORKERS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, NotifyModeOutbox, cfg.Notify.Mode)
	assert.Equal(t, 7, cfg.Notify.Workers)
}

func TestLoadRejectsMalformedLocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: [unclosed\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_PATH", "")

	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsMissingExplicitPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Notify:   NotifyConfig{Mode: "carrier-pigeon"},
		JWT:      JWTConfig{Secret: "s"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Notify.Mode = NotifyModeAsync
	assert.NoError(t, cfg.Validate())
}
