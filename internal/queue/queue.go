package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/operation"
)

// Errors returned by Enqueue. Enqueue wraps them with the offending operation.
var (
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrCycle              = errors.New("dependency cycle")
)

// Queue registers operations and dispatches each one to its pool once every dependency
// has finished. All methods are safe for concurrent use.
type Queue struct {
	name string
	pool *Pool

	mu      sync.Mutex
	held    bool
	entries map[string]*entry // operation ID -> entry, removed once finished
	idle    chan struct{}     // closed when entries drains to zero
}

type entry struct {
	op   operation.Operation
	deps []operation.Operation

	// remaining counts unfinished dependencies plus one registration guard
	remaining  int
	dispatched bool
}

var _ operation.Queue = (*Queue)(nil)

// Name returns the queue name used in logs
func (q *Queue) Name() string {
	return q.name
}

// Enqueue registers ops. With hold set the queue enters held mode and nothing is
// dispatched until ReleaseHold or CancelAll. Validation happens before anything is
// registered, so a failed Enqueue leaves the queue unchanged.
func (q *Queue) Enqueue(hold bool, ops ...operation.Operation) error {
	if err := validateBatch(ops); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"queue": q.name,
		}).Warnf("Rejected operations: %v", err)
		return err
	}

	q.mu.Lock()
	for _, op := range ops {
		if _, exists := q.entries[op.ID()]; exists {
			q.mu.Unlock()
			return fmt.Errorf("%w: %s is already registered on %s", ErrDuplicateOperation, op.Name(), q.name)
		}
	}

	if hold {
		q.held = true
	}
	if len(q.entries) == 0 && len(ops) > 0 {
		q.idle = make(chan struct{})
	}

	batch := make([]*entry, 0, len(ops))
	for _, op := range ops {
		deps := op.Dependencies()
		e := &entry{
			op:        op,
			deps:      deps,
			remaining: len(deps) + 1,
		}
		q.entries[op.ID()] = e
		batch = append(batch, e)
	}
	q.mu.Unlock()

	// Observers may fire synchronously for dependencies that already finished, so they
	// are registered without holding the queue lock.
	for _, e := range batch {
		e := e
		for _, dep := range e.deps {
			dep.NotifyFinished(func() {
				q.release(e)
			})
		}
		e.op.NotifyFinished(func() {
			q.finished(e)
		})
		q.release(e)
	}

	return nil
}

// ReleaseHold leaves held mode and dispatches every operation that is ready
func (q *Queue) ReleaseHold() {
	q.mu.Lock()
	if !q.held {
		q.mu.Unlock()
		return
	}
	q.held = false

	var ready []operation.Operation
	for _, e := range q.entries {
		if q.claimLocked(e) {
			ready = append(ready, e.op)
		}
	}
	q.mu.Unlock()

	for _, op := range ready {
		q.pool.dispatch(q.name, op)
	}
}

// CancelAll cancels every registered operation that has not been dispatched yet and
// leaves held mode. Cancelled operations still wait for their dependencies, then finish
// without running their bodies.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	var pending []operation.Operation
	for _, e := range q.entries {
		if !e.dispatched {
			pending = append(pending, e.op)
		}
	}
	q.mu.Unlock()

	if len(pending) > 0 {
		logger.Op.WithFields(map[string]interface{}{
			"queue":   q.name,
			"pending": len(pending),
		}).Debug("Cancelling pending operations")
	}

	for _, op := range pending {
		op.Cancel()
	}
	q.ReleaseHold()
}

// Wait blocks until every registered operation has finished or ctx is done
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	if idle == nil {
		return nil
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of registered operations that have not finished
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Held reports whether the queue is in held mode
func (q *Queue) Held() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.held
}

func (q *Queue) release(e *entry) {
	q.mu.Lock()
	e.remaining--
	ready := q.claimLocked(e)
	q.mu.Unlock()

	if ready {
		q.pool.dispatch(q.name, e.op)
	}
}

// claimLocked marks e dispatched if it may run now
func (q *Queue) claimLocked(e *entry) bool {
	if q.held || e.dispatched || e.remaining > 0 {
		return false
	}
	e.dispatched = true
	return true
}

func (q *Queue) finished(e *entry) {
	q.mu.Lock()
	delete(q.entries, e.op.ID())
	if len(q.entries) == 0 && q.idle != nil {
		close(q.idle)
		q.idle = nil
	}
	q.mu.Unlock()

	q.pool.recordFinished(e.op.IsCancelled())
}
