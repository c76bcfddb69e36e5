package operation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maxkimambo/taskflow/internal/logger"
)

// Task is the basic Operation. Its body runs on a worker once all dependencies have
// finished and must call Finish when the work is done. Completion runs right before the
// task is set as finished, so dependents never see a finished but incomplete task.
type Task struct {
	id   string
	name string

	// self is the outermost operation embedding this task; it is what completion receives
	self Operation

	mu         sync.Mutex
	state      State
	cancelled  bool
	finishing  bool
	body       Body
	completion Completion
	deps       []Operation
	observers  []func()
	done       chan struct{}
	startTime  time.Time
	endTime    time.Time
}

// NewTask creates a new task in the Ready state. body may be nil, in which case the task
// finishes as soon as it is started.
func NewTask(name string, body Body) *Task {
	t := &Task{
		id:   uuid.NewString(),
		name: name,
		body: body,
		done: make(chan struct{}),
	}
	if t.name == "" {
		t.name = "task-" + t.id[:8]
	}
	t.self = t
	return t
}

// ID returns the unique identifier for this task
func (t *Task) ID() string {
	return t.id
}

// Name returns the human-readable label of this task
func (t *Task) Name() string {
	return t.name
}

// SetCompletion sets the callback that runs exactly once before the task finishes
func (t *Task) SetCompletion(completion Completion) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completion = completion
}

// State returns the current lifecycle state
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) IsReady() bool {
	return t.State() == StateReady
}

func (t *Task) IsExecuting() bool {
	return t.State() == StateExecuting
}

func (t *Task) IsFinished() bool {
	return t.State() == StateFinished
}

func (t *Task) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done returns a channel that is closed once the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Duration returns how long the task took from Start to Finish, or zero if it has not finished
func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateFinished {
		return 0
	}
	return t.endTime.Sub(t.startTime)
}

// AddDependency makes t wait for dep. Adding the same dependency twice is a no-op.
func (t *Task) AddDependency(dep Operation) {
	if dep == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.deps {
		if existing.ID() == dep.ID() {
			return
		}
	}
	t.deps = append(t.deps, dep)
}

// Dependencies returns a copy of the dependency set
func (t *Task) Dependencies() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	deps := make([]Operation, len(t.deps))
	copy(deps, t.deps)
	return deps
}

// NotifyFinished registers fn to run after the task has finished
func (t *Task) NotifyFinished(fn func()) {
	t.mu.Lock()
	if t.state == StateFinished {
		t.mu.Unlock()
		fn()
		return
	}
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Cancel marks the task cancelled. A task that has not started will skip its body;
// a running body keeps running and must still call Finish.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.state == StateFinished || t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	state := t.state
	t.mu.Unlock()

	t.logEntry().WithField("state", state.String()).Debug("Task cancelled")
}

// Start runs the body, or finishes immediately when the task is cancelled or has no body.
// Starting a task that is not ready panics.
func (t *Task) Start() {
	t.start(false)
}

func (t *Task) start(runWhenCancelled bool) {
	t.mu.Lock()
	if t.state != StateReady || t.finishing {
		state := t.state
		t.mu.Unlock()
		panic(fmt.Errorf("%w: %s is %s", ErrNotReady, t.name, state))
	}

	t.startTime = time.Now()
	body := t.body
	if body == nil || (t.cancelled && !runWhenCancelled) {
		t.finishing = true
		cancelled := t.cancelled
		t.mu.Unlock()

		if cancelled {
			t.logEntry().Debug("Skipping body of cancelled task")
		}
		t.complete()
		return
	}

	t.state = StateExecuting
	t.mu.Unlock()

	t.logEntry().Debug("Task started")
	body(t)
}

// Finish runs the completion and marks the task finished. It must be called exactly once,
// after Start; any other call panics.
func (t *Task) Finish() {
	t.mu.Lock()
	if t.finishing || t.state == StateFinished {
		t.mu.Unlock()
		panic(fmt.Errorf("%w: %s", ErrAlreadyFinished, t.name))
	}
	if t.state == StateReady {
		t.mu.Unlock()
		panic(fmt.Errorf("%w: %s", ErrNotStarted, t.name))
	}
	t.finishing = true
	t.mu.Unlock()

	t.complete()
}

// complete runs the completion, then publishes the finished state. Only one caller can
// get here per task: both paths set finishing under the lock first.
func (t *Task) complete() {
	t.mu.Lock()
	completion := t.completion
	self := t.self
	t.completion = nil
	t.body = nil
	t.mu.Unlock()

	if completion != nil {
		completion(self)
	}

	t.mu.Lock()
	t.state = StateFinished
	t.endTime = time.Now()
	observers := t.observers
	t.observers = nil
	cancelled := t.cancelled
	close(t.done)
	t.mu.Unlock()

	t.logEntry().WithField("cancelled", cancelled).Debug("Task finished")

	for _, fn := range observers {
		fn()
	}
}

func (t *Task) logEntry() *logrus.Entry {
	return logger.Op.WithFields(map[string]interface{}{
		"task": t.name,
		"id":   t.id,
	})
}
