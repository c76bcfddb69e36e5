package cmd

import (
	"time"

	"github.com/spf13/cobra"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
)

// runSettings are the effective settings for one run, config values overridden by flags
type runSettings struct {
	Workers   int
	Timeout   time.Duration
	Shell     string
	Interval  time.Duration
	ShowTable bool
}

func createRunSettings(cmd *cobra.Command) (*runSettings, error) {
	s := &runSettings{
		Workers:  cfg.Pool.MaxWorkers,
		Timeout:  cfg.Run.Timeout,
		Shell:    cfg.Run.Shell,
		Interval: cfg.Progress.Interval,
	}

	if cmd.Flags().Changed("workers") {
		s.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("timeout") {
		s.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	s.ShowTable, _ = cmd.Flags().GetBool("table")

	var problems []string
	if s.Workers < 1 {
		problems = append(problems, "--workers must be at least 1")
	}
	if s.Timeout < 0 {
		problems = append(problems, "--timeout must not be negative")
	}
	if len(problems) > 0 {
		return nil, taskerrors.NewConfigValidationError(problems)
	}
	return s, nil
}
