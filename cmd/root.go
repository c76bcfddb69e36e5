package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/taskflow/internal/config"
	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/logger"
)

var (
	configPath string
	debug      bool
	verbose    bool
	jsonLogs   bool
	quiet      bool
	version    = "v0.1.0"

	// cfg is loaded before any subcommand runs
	cfg = config.Default()

	rootCmd = &cobra.Command{
		Use:   "taskflow",
		Short: "Run plans of dependent shell steps as concurrent groups and ordered sequences",
		Long: `taskflow runs YAML plans made of shell commands and timed waits, arranged into
groups (run concurrently) and sequences (run in order). Steps in a group can wait for
siblings with 'after'. A bounded worker pool limits how many steps run at once, and
cancelling a group or sequence reaches every step inside it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

// Exit codes returned by the taskflow binary
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUserError = 2
)

// Execute runs the root command, prints any error in CLI format and returns the
// process exit code
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	logger.Op.WithFields(map[string]interface{}{
		"code":     taskerrors.GetErrorCode(err),
		"severity": taskerrors.GetErrorSeverity(err),
	}).Debug("Command failed")
	fmt.Fprint(os.Stderr, taskerrors.FormatForCLI(err))
	return ExitCode(err)
}

// ExitCode maps an error to the process exit code. Mistakes in plans, config or
// arguments exit with ExitUserError, failed or interrupted runs with ExitFailure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case taskerrors.IsUserError(err):
		return ExitUserError
	default:
		return ExitFailure
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: ./taskflow.yaml or $XDG_CONFIG_HOME/taskflow/taskflow.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(graphCmd)
}

// setup loads the configuration and configures logging; flags win over config values
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	logger.Setup(
		debug || verbose || cfg.Logging.Level == "debug",
		jsonLogs || cfg.Logging.Format == "json",
		quiet || cfg.Logging.Level == "quiet",
	)
	logger.Op.WithFields(map[string]interface{}{
		"max_workers": cfg.Pool.MaxWorkers,
		"timeout":     cfg.Run.Timeout,
		"config":      configPath,
	}).Debug("Configuration loaded")
	return nil
}
