package queue

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/operation"
)

// Config contains configuration for a worker pool
type Config struct {
	// MaxWorkers is the maximum number of operations started concurrently
	MaxWorkers int
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers: runtime.NumCPU(),
	}
}

// Stats is a snapshot of pool activity
type Stats struct {
	// Dispatched counts operations handed to the pool
	Dispatched int64
	// Active counts operations whose Start call is currently running on a worker
	Active int64
	// Finished counts operations that reached the finished state
	Finished int64
	// Cancelled counts finished operations that were cancelled
	Cancelled int64
}

// Pool bounds how many operations run Start at the same time. Queues created from the
// same pool share its workers but keep independent hold state.
type Pool struct {
	config *Config
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	queueSeq   atomic.Int64
	dispatched atomic.Int64
	active     atomic.Int64
	finished   atomic.Int64
	cancelled  atomic.Int64
}

// NewPool creates a new worker pool
func NewPool(config *Config) *Pool {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxWorkers)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// MaxWorkers returns the concurrency bound of the pool
func (p *Pool) MaxWorkers() int {
	return p.config.MaxWorkers
}

// NewQueue creates a queue whose operations run on this pool
func (p *Pool) NewQueue(name string) *Queue {
	seq := p.queueSeq.Add(1)
	return &Queue{
		name:    fmt.Sprintf("%s#%d", name, seq),
		pool:    p,
		entries: make(map[string]*entry),
	}
}

// Factory returns a QueueFactory producing queues on this pool, for use by groups
func (p *Pool) Factory(name string) operation.QueueFactory {
	return func() operation.Queue {
		return p.NewQueue(name)
	}
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Stats {
	return Stats{
		Dispatched: p.dispatched.Load(),
		Active:     p.active.Load(),
		Finished:   p.finished.Load(),
		Cancelled:  p.cancelled.Load(),
	}
}

// Close stops the pool from running any further bodies. Operations dispatched after Close
// are cancelled and started anyway so that they still finish.
func (p *Pool) Close() {
	p.cancel()
}

// dispatch starts op on a worker. It never blocks, so it is safe to call from finish
// callbacks that run on a worker themselves.
func (p *Pool) dispatch(queueName string, op operation.Operation) {
	p.dispatched.Add(1)

	logger.Op.WithFields(map[string]interface{}{
		"task":  op.Name(),
		"queue": queueName,
	}).Debug("Dispatching operation")

	go func() {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.drain(op)
			return
		}
		if p.ctx.Err() != nil {
			p.sem.Release(1)
			p.drain(op)
			return
		}

		p.active.Add(1)
		defer func() {
			p.active.Add(-1)
			p.sem.Release(1)
		}()

		op.Start()
	}()
}

func (p *Pool) drain(op operation.Operation) {
	op.Cancel()
	op.Start()
}

func (p *Pool) recordFinished(cancelled bool) {
	p.finished.Add(1)
	if cancelled {
		p.cancelled.Add(1)
	}
}
