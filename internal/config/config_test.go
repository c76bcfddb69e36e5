package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, runtime.NumCPU(), cfg.Pool.MaxWorkers)
	assert.Equal(t, time.Duration(0), cfg.Run.Timeout)
	assert.Equal(t, "/bin/sh", cfg.Run.Shell)
	assert.Equal(t, 5*time.Second, cfg.Progress.Interval)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "taskflow.yaml", `
pool:
  max_workers: 3
run:
  timeout: 90s
progress:
  interval: 250ms
logging:
  format: json
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pool.MaxWorkers)
	assert.Equal(t, 90*time.Second, cfg.Run.Timeout)
	assert.Equal(t, "/bin/sh", cfg.Run.Shell, "unset keys keep their defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Progress.Interval)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	path := writeFile(t, "taskflow.yaml", "pool:\n  max_workers: 3\n")
	t.Setenv("TASKFLOW_POOL_MAX_WORKERS", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Pool.MaxWorkers)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var tfErr *taskerrors.TaskflowError
	require.ErrorAs(t, err, &tfErr)
	assert.Equal(t, taskerrors.ErrorCategoryConfiguration, tfErr.Category)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero workers", func(c *Config) { c.Pool.MaxWorkers = 0 }, false},
		{"negative timeout", func(c *Config) { c.Run.Timeout = -time.Second }, false},
		{"empty shell", func(c *Config) { c.Run.Shell = "" }, false},
		{"negative interval", func(c *Config) { c.Progress.Interval = -time.Second }, false},
		{"disabled progress", func(c *Config) { c.Progress.Interval = 0 }, true},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "taskflow.yaml", "logging:\n  format: xml\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "taskflow"), ConfigDir())
}
