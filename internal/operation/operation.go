package operation

import "errors"

// Sentinel errors used as panic values for contract violations.
var (
	ErrNotReady        = errors.New("operation is not ready")
	ErrNotStarted      = errors.New("operation has not been started")
	ErrAlreadyFinished = errors.New("operation already finished")
	ErrUnschedulable   = errors.New("group children cannot be scheduled")
)

// Operation is a schedulable unit of work with a Ready -> Executing -> Finished lifecycle.
type Operation interface {
	// ID returns the unique identifier for this operation
	ID() string

	// Name returns a human-readable label
	Name() string

	// Start is invoked by a queue once every dependency has finished
	Start()

	// Cancel marks the operation cancelled. It never forces the operation to finish.
	Cancel()

	State() State
	IsReady() bool
	IsExecuting() bool
	IsFinished() bool
	IsCancelled() bool

	// AddDependency makes the operation wait for dep to finish before starting.
	// Dependencies must be added before the operation is enqueued.
	AddDependency(dep Operation)

	// Dependencies returns the operations this one waits for
	Dependencies() []Operation

	// NotifyFinished registers fn to run once after the operation has finished.
	// If the operation already finished, fn runs immediately.
	NotifyFinished(fn func())

	// Done returns a channel closed when the operation has finished
	Done() <-chan struct{}
}

// Queue schedules operations onto workers, honouring dependency edges.
type Queue interface {
	// Enqueue registers operations and their dependency edges. When hold is true the
	// queue enters held mode and nothing runs until ReleaseHold is called.
	Enqueue(hold bool, ops ...Operation) error

	// ReleaseHold makes held operations eligible for scheduling
	ReleaseHold()

	// CancelAll cancels every operation not yet dispatched and leaves held mode
	CancelAll()
}

// QueueFactory creates a fresh queue. Groups use one to get a private queue.
type QueueFactory func() Queue

// Body is the work of a task. If a body is set it must eventually call Finish on the
// task it receives, from any goroutine.
type Body func(t *Task)

// Completion runs exactly once, right before an operation is set as finished,
// regardless of cancellation.
type Completion func(op Operation)
