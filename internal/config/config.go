package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
)

// Config represents the complete taskflow configuration
type Config struct {
	Pool     PoolConfig     `mapstructure:"pool"`
	Run      RunConfig      `mapstructure:"run"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PoolConfig controls the worker pool
type PoolConfig struct {
	// MaxWorkers bounds how many task bodies run at the same time
	MaxWorkers int `mapstructure:"max_workers"`
}

// RunConfig controls plan execution
type RunConfig struct {
	// Timeout cancels the whole plan when exceeded (0 disables it)
	Timeout time.Duration `mapstructure:"timeout"`
	// Shell is the interpreter used for run steps
	Shell string `mapstructure:"shell"`
}

// ProgressConfig controls periodic progress reports
type ProgressConfig struct {
	// Interval between progress reports (0 disables them)
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
	// Level is "info", "debug" or "quiet"
	Level string `mapstructure:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			MaxWorkers: runtime.NumCPU(),
		},
		Run: RunConfig{
			Shell: "/bin/sh",
		},
		Progress: ProgressConfig{
			Interval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// setDefaults registers default values with v
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("pool.max_workers", defaults.Pool.MaxWorkers)
	v.SetDefault("run.timeout", defaults.Run.Timeout)
	v.SetDefault("run.shell", defaults.Run.Shell)
	v.SetDefault("progress.interval", defaults.Progress.Interval)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskflow"
	}
	return filepath.Join(home, ".config", "taskflow")
}

// Load reads configuration from path (or the default search locations when path is
// empty) and TASKFLOW_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, taskerrors.NewConfigLoadError(path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, taskerrors.NewConfigLoadError(v.ConfigFileUsed(), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	var problems []string

	if c.Pool.MaxWorkers < 1 {
		problems = append(problems, fmt.Sprintf("pool.max_workers must be at least 1, got %d", c.Pool.MaxWorkers))
	}
	if c.Run.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("run.timeout must not be negative, got %s", c.Run.Timeout))
	}
	if c.Run.Shell == "" {
		problems = append(problems, "run.shell must not be empty")
	}
	if c.Progress.Interval < 0 {
		problems = append(problems, fmt.Sprintf("progress.interval must not be negative, got %s", c.Progress.Interval))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "info", "debug", "quiet":
	default:
		problems = append(problems, fmt.Sprintf("logging.level must be info, debug or quiet, got %q", c.Logging.Level))
	}

	if len(problems) > 0 {
		return taskerrors.NewConfigValidationError(problems)
	}
	return nil
}
