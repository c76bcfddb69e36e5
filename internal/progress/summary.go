package progress

import (
	"fmt"
	"time"

	"github.com/maxkimambo/taskflow/internal/plan"
)

// RunSummary renders the final box for a finished execution
func RunSummary(exec *plan.Execution, elapsed time.Duration) string {
	s := exec.Results.Summary()
	failed := exec.Results.Failed()

	var box *Box
	switch {
	case len(failed) > 0:
		box = NewBox(ErrorMessage, fmt.Sprintf("Plan '%s' failed", exec.Plan.Name))
	case exec.Root.IsCancelled():
		box = NewBox(WarningMessage, fmt.Sprintf("Plan '%s' was cancelled", exec.Plan.Name))
	case s.Failed > 0:
		box = NewBox(WarningMessage, fmt.Sprintf("Plan '%s' completed with allowed failures", exec.Plan.Name))
	default:
		box = NewBox(SuccessMessage, fmt.Sprintf("Plan '%s' completed", exec.Plan.Name))
	}

	box.AddLine(fmt.Sprintf("Steps: %d succeeded, %d failed, %d cancelled, %d skipped (%d total)",
		s.Succeeded, s.Failed, s.Cancelled, s.Skipped, s.Total))
	box.AddLine(fmt.Sprintf("Duration: %s", FormatDuration(elapsed)))

	for _, res := range failed {
		box.AddBullet(fmt.Sprintf("%s: %v", res.Path, res.Err))
	}

	return box.Render()
}

// ResultsTable renders one row per step with its status and duration
func ResultsTable(results *plan.Results) string {
	table := NewTableFormatter([]string{"STEP", "KIND", "STATUS", "DURATION"})

	for _, res := range results.All() {
		status := string(res.Status)
		if res.Status == plan.StatusFailed && res.AllowFailure {
			status += " (allowed)"
		}

		duration := "-"
		if d := res.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}

		table.AddRow(res.Path, string(res.Kind), status, duration)
	}

	return table.String()
}
