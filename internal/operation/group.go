package operation

import (
	"fmt"

	"github.com/maxkimambo/taskflow/internal/logger"
)

// Group runs its children concurrently on a private queue and finishes when every child
// has either finished or been cancelled.
//
// A synthetic join task that depends on all children is scheduled alongside them; the
// join's completion finishes the group, so the group's own completion runs through the
// same path as any other task's.
type Group struct {
	*Task

	children []Operation
	queue    Queue
	join     *Task
}

// NewGroup creates a group over children. newQueue is called once to create the queue the
// children are scheduled on.
func NewGroup(name string, newQueue QueueFactory, children ...Operation) *Group {
	g := &Group{
		Task:     NewTask(name, nil),
		children: append([]Operation(nil), children...),
		queue:    newQueue(),
	}
	if name == "" {
		g.Task.name = "group-" + g.Task.id[:8]
	}
	g.Task.self = g
	g.Task.body = g.execute

	g.join = NewTask(g.Task.name+"/join", nil)
	for _, child := range g.children {
		g.join.AddDependency(child)
	}
	g.join.SetCompletion(func(Operation) {
		g.Task.Finish()
	})

	return g
}

// Children returns the group's direct children
func (g *Group) Children() []Operation {
	return append([]Operation(nil), g.children...)
}

// Start schedules the children. Unlike a plain task, a cancelled group still schedules its
// (cancelled) children so that each of them reaches Finished before the group does.
func (g *Group) Start() {
	g.Task.start(true)
}

// Cancel cancels the group and every direct child, and forces the private queue out of
// held mode so cancelled children can finish without waiting for the hold to be released.
func (g *Group) Cancel() {
	g.Task.Cancel()
	for _, child := range g.children {
		child.Cancel()
	}
	g.queue.CancelAll()
}

func (g *Group) execute(*Task) {
	ops := make([]Operation, 0, len(g.children)+1)
	ops = append(ops, g.children...)
	ops = append(ops, g.join)

	// a rejected batch means the children were built wrong and could never finish
	if err := g.queue.Enqueue(true, ops...); err != nil {
		panic(fmt.Errorf("%w: %s: %w", ErrUnschedulable, g.Task.name, err))
	}

	logger.Op.WithFields(map[string]interface{}{
		"group":    g.Task.name,
		"children": len(g.children),
	}).Debug("Group scheduled")

	g.queue.ReleaseHold()
}
