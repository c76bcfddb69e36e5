package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/plan"
	"github.com/maxkimambo/taskflow/internal/queue"
)

// maxRunningShown caps how many running step names a report lists
const maxRunningShown = 5

// watchPollDivisor sets how many times per interval Watch checks for a due report
const watchPollDivisor = 4

// Info is a snapshot of a running plan
type Info struct {
	PlanName   string
	Steps      plan.Summary
	Running    []string
	Pool       queue.Stats
	MaxWorkers int
	Elapsed    time.Duration
}

// Snapshot collects the current progress of a plan execution
func Snapshot(exec *plan.Execution, pool *queue.Pool, elapsed time.Duration) Info {
	return Info{
		PlanName:   exec.Plan.Name,
		Steps:      exec.Results.Summary(),
		Running:    exec.Results.Running(),
		Pool:       pool.Stats(),
		MaxWorkers: pool.MaxWorkers(),
		Elapsed:    elapsed,
	}
}

// Reporter handles periodic progress reporting
type Reporter struct {
	startTime      time.Time
	lastReportTime time.Time
	reportInterval time.Duration
}

// NewReporter creates a new progress reporter
func NewReporter(interval time.Duration) *Reporter {
	now := time.Now()
	return &Reporter{
		startTime:      now,
		lastReportTime: now,
		reportInterval: interval,
	}
}

// Elapsed returns the time since the reporter was created
func (r *Reporter) Elapsed() time.Duration {
	return time.Since(r.startTime)
}

// ShouldReport returns true if it's time to report progress
func (r *Reporter) ShouldReport() bool {
	return r.reportInterval > 0 && time.Since(r.lastReportTime) >= r.reportInterval
}

// Report generates a formatted progress report
func (r *Reporter) Report(info Info) string {
	r.lastReportTime = time.Now()

	var sb strings.Builder

	done := info.Steps.Done()
	percentage := 0.0
	if info.Steps.Total > 0 {
		percentage = float64(done) / float64(info.Steps.Total) * 100
	}

	sb.WriteString(fmt.Sprintf("Progress: %d/%d steps done (%.1f%%)", done, info.Steps.Total, percentage))
	sb.WriteString(fmt.Sprintf(" | Elapsed: %s", FormatDuration(info.Elapsed)))
	if eta := CalculateETA(done, info.Steps.Total, info.Elapsed); eta > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(eta)))
	}

	if len(info.Running) > 0 {
		shown := info.Running
		more := ""
		if len(shown) > maxRunningShown {
			more = fmt.Sprintf(" and %d more", len(shown)-maxRunningShown)
			shown = shown[:maxRunningShown]
		}
		sb.WriteString(fmt.Sprintf("\n   Running: %s%s", strings.Join(shown, ", "), more))
	}

	if info.Steps.Failed > 0 || info.Steps.Cancelled > 0 || info.Steps.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("\n   Failed: %d, Cancelled: %d, Skipped: %d",
			info.Steps.Failed, info.Steps.Cancelled, info.Steps.Skipped))
	}

	if info.MaxWorkers > 0 {
		sb.WriteString(fmt.Sprintf("\n   Workers: %d/%d busy, %d operations finished",
			info.Pool.Active, info.MaxWorkers, info.Pool.Finished))
	}

	return sb.String()
}

// Watch logs a report whenever one is due until ctx is done
func (r *Reporter) Watch(ctx context.Context, snapshot func(elapsed time.Duration) Info) {
	if r.reportInterval <= 0 {
		return
	}

	// poll faster than the interval so ticker jitter never skips a report
	poll := r.reportInterval / watchPollDivisor
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.ShouldReport() {
				logger.User.Progressf("%s", r.Report(snapshot(r.Elapsed())))
			}
		}
	}
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerStep := elapsed / time.Duration(completed)
	remaining := total - completed
	return averageTimePerStep * time.Duration(remaining)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
