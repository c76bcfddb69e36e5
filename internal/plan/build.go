package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/maxkimambo/taskflow/internal/logger"
	"github.com/maxkimambo/taskflow/internal/operation"
	"github.com/maxkimambo/taskflow/internal/queue"
)

var (
	// cancelPollInterval is how often a running step checks whether it was cancelled
	cancelPollInterval = 20 * time.Millisecond
	// outputWaitDelay bounds how long a killed command's output pipes stay open
	outputWaitDelay = 500 * time.Millisecond
)

// Options controls how steps execute
type Options struct {
	// Shell runs each run step as `Shell -c command`
	Shell string
}

// Execution is a plan built into an operation graph
type Execution struct {
	Plan    *Plan
	Root    *operation.Group
	Results *Results

	pool *queue.Pool
}

// node is an operation whose completion can be set, which every task, group and sequence is
type node interface {
	operation.Operation
	SetCompletion(operation.Completion)
}

type builder struct {
	ctx     context.Context
	plan    *Plan
	pool    *queue.Pool
	shell   string
	results *Results
}

// Build validates p and turns it into a tree of tasks, groups and sequences whose queues run
// on pool. Commands started by run steps are killed when ctx ends.
func Build(ctx context.Context, p *Plan, pool *queue.Pool, opts Options) (*Execution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	shell := opts.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	b := &builder{
		ctx:     ctx,
		plan:    p,
		pool:    pool,
		shell:   shell,
		results: NewResults(),
	}

	root := operation.NewGroup(p.Name, pool.Factory(p.Name), b.siblings(p.Name, p.Steps, KindGroup)...)
	root.SetCompletion(func(op operation.Operation) {
		summary := b.results.Summary()
		logger.Op.WithFields(map[string]interface{}{
			"plan":      p.Name,
			"cancelled": op.IsCancelled(),
			"succeeded": summary.Succeeded,
			"failed":    summary.Failed,
			"skipped":   summary.Skipped,
		}).Debug("Plan finished")
	})

	return &Execution{
		Plan:    p,
		Root:    root,
		Results: b.results,
		pool:    pool,
	}, nil
}

// Run submits the root group to a queue on the pool and waits until it finished. When ctx
// ends first the root is cancelled and Run still waits for it to wind down.
func (e *Execution) Run(ctx context.Context) error {
	q := e.pool.NewQueue(e.Plan.Name)
	if err := q.Enqueue(false, e.Root); err != nil {
		return fmt.Errorf("submitting plan %s: %w", e.Plan.Name, err)
	}

	if err := q.Wait(ctx); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"plan":   e.Plan.Name,
			"reason": err,
		}).Warn("Cancelling plan")
		e.Root.Cancel()
		<-e.Root.Done()
	}

	return nil
}

// siblings builds the children of one group or sequence and wires ordering between them
func (b *builder) siblings(parent string, steps []*Step, kind Kind) []operation.Operation {
	nodes := make([]node, len(steps))
	byName := make(map[string]node, len(steps))
	for i, s := range steps {
		nodes[i] = b.step(stepPath(parent, s.Name), s)
		byName[s.Name] = nodes[i]
	}

	dependents := make(map[string][]operation.Operation)
	if kind == KindSequence {
		for i := 1; i < len(steps); i++ {
			prev := steps[i-1].Name
			dependents[prev] = append(dependents[prev], nodes[i])
		}
	} else {
		for i, s := range steps {
			for _, dep := range s.After {
				nodes[i].AddDependency(byName[dep])
				dependents[dep] = append(dependents[dep], nodes[i])
			}
		}
	}

	ops := make([]operation.Operation, len(nodes))
	for i, s := range steps {
		nodes[i].SetCompletion(b.onFinished(stepPath(parent, s.Name), s.Kind(), dependents[s.Name]))
		ops[i] = nodes[i]
	}
	return ops
}

func (b *builder) step(path string, s *Step) node {
	switch s.Kind() {
	case KindRun:
		b.results.register(path, KindRun, s.AllowFailure)
		return operation.NewTask(path, b.runBody(path, s.Run))
	case KindSleep:
		b.results.register(path, KindSleep, false)
		return operation.NewTask(path, b.sleepBody(path, time.Duration(*s.Sleep)))
	case KindGroup:
		return operation.NewGroup(path, b.pool.Factory(path), b.siblings(path, s.Group, KindGroup)...)
	default:
		return operation.NewSequence(path, b.pool.Factory(path), b.siblings(path, s.Sequence, KindSequence)...)
	}
}

// onFinished settles the step's result and cancels its dependents when it did not succeed
func (b *builder) onFinished(path string, kind Kind, dependents []operation.Operation) operation.Completion {
	return func(op operation.Operation) {
		var blocked bool
		switch kind {
		case KindRun, KindSleep:
			res, _ := b.results.settle(path)
			blocked = res.Status == StatusCancelled || res.Status == StatusSkipped ||
				(res.Status == StatusFailed && !res.AllowFailure)
		default:
			blocked = op.IsCancelled() || b.results.failedUnder(path)
		}

		if !blocked || len(dependents) == 0 {
			return
		}

		names := make([]string, len(dependents))
		for i, dep := range dependents {
			names[i] = dep.Name()
			dep.Cancel()
		}
		logger.Op.WithFields(map[string]interface{}{
			"step":    path,
			"skipped": strings.Join(names, ","),
		}).Debug("Cancelling dependent steps")
	}
}

func (b *builder) runBody(path, command string) operation.Body {
	return func(t *operation.Task) {
		defer t.Finish()

		b.results.markRunning(path)
		logger.User.Startingf("%s", path)

		ctx, stop := b.stepContext(t)
		defer stop()

		cmd := exec.CommandContext(ctx, b.shell, "-c", command)
		cmd.Env = append(os.Environ(),
			"TASKFLOW_PLAN="+b.plan.Name,
			"TASKFLOW_STEP="+path,
		)
		cmd.WaitDelay = outputWaitDelay
		out, err := cmd.CombinedOutput()
		output := strings.TrimSpace(string(out))

		if output != "" {
			logger.Op.WithFields(map[string]interface{}{
				"step": path,
			}).Debugf("Output:\n%s", output)
		}

		switch {
		case err == nil:
			b.results.complete(path, StatusSucceeded, output, nil)
			if res, ok := b.results.Get(path); ok {
				logger.User.Successf("%s (%s)", path, res.Duration().Round(time.Millisecond))
			}
		case t.IsCancelled() || b.ctx.Err() != nil:
			b.results.complete(path, StatusCancelled, output, err)
			logger.User.Cancelledf("%s cancelled", path)
		default:
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				err = fmt.Errorf("exit status %d", exitErr.ExitCode())
			}
			b.results.complete(path, StatusFailed, output, err)
			if b.allowsFailure(path) {
				logger.User.Warnf("%s failed (allowed): %v", path, err)
			} else {
				logger.User.Errorf("%s failed: %v", path, err)
			}
		}
	}
}

func (b *builder) sleepBody(path string, d time.Duration) operation.Body {
	return func(t *operation.Task) {
		defer t.Finish()

		b.results.markRunning(path)

		ctx, stop := b.stepContext(t)
		defer stop()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			b.results.complete(path, StatusSucceeded, "", nil)
		case <-ctx.Done():
			b.results.complete(path, StatusCancelled, "", nil)
			logger.User.Cancelledf("%s cancelled", path)
		}
	}
}

// stepContext returns a context that ends when the run ends or t is cancelled
func (b *builder) stepContext(t *operation.Task) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b.ctx)

	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if t.IsCancelled() {
					cancel()
					return
				}
			}
		}
	}()

	return ctx, cancel
}

func (b *builder) allowsFailure(path string) bool {
	res, ok := b.results.Get(path)
	return ok && res.AllowFailure
}
