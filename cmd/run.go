package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	taskerrors "github.com/maxkimambo/taskflow/internal/errors"
	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/plan"
	"github.com/maxkimambo/taskflow/internal/progress"
	"github.com/maxkimambo/taskflow/internal/queue"
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Run a plan",
	Long: `Runs every step of a plan on a bounded worker pool and prints a summary.

Interrupting (Ctrl-C) or hitting the timeout cancels the plan: running commands are
killed, steps that have not started are skipped, and the command exits non-zero.
The command also exits non-zero when any step without allow_failure failed.

Example:
taskflow run release.yaml
taskflow run release.yaml --workers 4 --timeout 10m --table
`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	runCmd.Flags().Int("workers", 0, "Maximum steps running at once (default: pool.max_workers)")
	runCmd.Flags().Duration("timeout", 0, "Cancel the plan after this long (default: run.timeout, 0 = none)")
	runCmd.Flags().Bool("table", false, "Print a per-step results table (always printed with --verbose)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	settings, err := createRunSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	pool := queue.NewPool(&queue.Config{MaxWorkers: settings.Workers})
	defer pool.Close()

	exec, err := plan.Build(ctx, p, pool, plan.Options{Shell: settings.Shell})
	if err != nil {
		return err
	}

	logger.User.Startingf("Running plan '%s' (%d steps, %d workers)", p.Name, p.Count(), settings.Workers)

	reporter := progress.NewReporter(settings.Interval)
	watchCtx, stopWatch := context.WithCancel(context.Background())
	go reporter.Watch(watchCtx, func(elapsed time.Duration) progress.Info {
		return progress.Snapshot(exec, pool, elapsed)
	})

	runErr := exec.Run(ctx)
	stopWatch()

	out := cmd.OutOrStdout()
	if settings.ShowTable || logger.GetLogger().IsDebug() {
		fmt.Fprint(out, progress.ResultsTable(exec.Results))
	}
	fmt.Fprintln(out, progress.RunSummary(exec, reporter.Elapsed()))

	if runErr != nil {
		return taskerrors.NewTaskflowError(taskerrors.ErrorCategoryExecution, taskerrors.CodeRunFailed,
			fmt.Sprintf("Plan '%s' could not be scheduled", p.Name), "Plan execution").
			WithOriginalError(runErr)
	}

	if failed := exec.Results.Failed(); len(failed) > 0 {
		paths := make([]string, len(failed))
		for i, res := range failed {
			paths[i] = res.Path
		}
		return taskerrors.NewRunFailedError(p.Name, paths)
	}

	if exec.Root.IsCancelled() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return taskerrors.NewRunTimeoutError(p.Name, settings.Timeout)
		}
		return taskerrors.NewRunCancelledError(p.Name)
	}

	logger.Op.WithFields(map[string]interface{}{
		"plan":     p.Name,
		"finished": pool.Stats().Finished,
	}).Debug("Run complete")
	return nil
}
