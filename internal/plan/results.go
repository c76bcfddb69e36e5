package plan

import (
	"strings"
	"sync"
	"time"
)

// Status is the outcome of a leaf step
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusCancelled means the step was stopped while running
	StatusCancelled Status = "cancelled"
	// StatusSkipped means the step was cancelled before its body ran
	StatusSkipped Status = "skipped"
)

// IsTerminal reports whether the status is final
func (s Status) IsTerminal() bool {
	return s != StatusPending && s != StatusRunning
}

// StepResult records what happened to one run or sleep step
type StepResult struct {
	Path         string
	Kind         Kind
	Status       Status
	AllowFailure bool
	Err          error
	Output       string
	StartTime    time.Time
	EndTime      time.Time
}

// Duration returns how long the step ran
func (r StepResult) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Summary counts step results by status
type Summary struct {
	Total     int
	Pending   int
	Running   int
	Succeeded int
	Failed    int
	Cancelled int
	Skipped   int
}

// Done returns the number of steps in a terminal status
func (s Summary) Done() int {
	return s.Succeeded + s.Failed + s.Cancelled + s.Skipped
}

// Results is the thread-safe record of every leaf step of an execution
type Results struct {
	mu    sync.RWMutex
	order []string
	steps map[string]*StepResult
}

// NewResults creates an empty result set
func NewResults() *Results {
	return &Results{
		steps: make(map[string]*StepResult),
	}
}

func (r *Results) register(path string, kind Kind, allowFailure bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = append(r.order, path)
	r.steps[path] = &StepResult{
		Path:         path,
		Kind:         kind,
		Status:       StatusPending,
		AllowFailure: allowFailure,
	}
}

func (r *Results) markRunning(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.steps[path]; ok {
		res.Status = StatusRunning
		res.StartTime = time.Now()
	}
}

func (r *Results) complete(path string, status Status, output string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.steps[path]; ok {
		res.Status = status
		res.Output = output
		res.Err = err
		res.EndTime = time.Now()
	}
}

// settle marks a step that never ran as skipped and returns its final result
func (r *Results) settle(path string) (StepResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.steps[path]
	if !ok {
		return StepResult{}, false
	}
	if !res.Status.IsTerminal() {
		res.Status = StatusSkipped
		res.EndTime = time.Now()
	}
	return *res, true
}

// Get returns a copy of the result for path
func (r *Results) Get(path string) (StepResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.steps[path]
	if !ok {
		return StepResult{}, false
	}
	return *res, true
}

// All returns copies of every result in plan order
func (r *Results) All() []StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]StepResult, 0, len(r.order))
	for _, path := range r.order {
		all = append(all, *r.steps[path])
	}
	return all
}

// Summary counts results by status
func (r *Results) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{Total: len(r.order)}
	for _, res := range r.steps {
		switch res.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Failed returns the failed steps that do not allow failure, in plan order
func (r *Results) Failed() []StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []StepResult
	for _, path := range r.order {
		if res := r.steps[path]; res.Status == StatusFailed && !res.AllowFailure {
			failed = append(failed, *res)
		}
	}
	return failed
}

// Running returns the paths of steps currently running, in plan order
func (r *Results) Running() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var running []string
	for _, path := range r.order {
		if r.steps[path].Status == StatusRunning {
			running = append(running, path)
		}
	}
	return running
}

// failedUnder reports whether a step at or below prefix failed without allow_failure
func (r *Results) failedUnder(prefix string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for path, res := range r.steps {
		if res.Status != StatusFailed || res.AllowFailure {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
