package queue

import (
	"fmt"

	"github.com/maxkimambo/taskflow/internal/operation"
)

// validateBatch checks a batch of operations before anything is registered
func validateBatch(ops []operation.Operation) error {
	seen := make(map[string]bool, len(ops))
	for i, op := range ops {
		if op == nil {
			return fmt.Errorf("%w: operation at index %d is nil", ErrInvalidOperation, i)
		}
		if !op.IsReady() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidOperation, op.Name(), op.State())
		}
		if seen[op.ID()] {
			return fmt.Errorf("%w: %s appears twice in batch", ErrDuplicateOperation, op.Name())
		}
		seen[op.ID()] = true
	}

	if path := findCycle(ops); path != nil {
		return fmt.Errorf("%w: %v", ErrCycle, path)
	}
	return nil
}

// findCycle runs a DFS over dependency edges reachable from ops and returns the names
// along the first cycle found, or nil.
func findCycle(ops []operation.Operation) []string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var stack []string
	var visit func(op operation.Operation) []string
	visit = func(op operation.Operation) []string {
		id := op.ID()
		visited[id] = true
		recStack[id] = true
		stack = append(stack, op.Name())

		for _, dep := range op.Dependencies() {
			// Finished operations cannot take part in a wait cycle
			if dep.IsFinished() {
				continue
			}
			if !visited[dep.ID()] {
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			} else if recStack[dep.ID()] {
				return append(append([]string(nil), stack...), dep.Name())
			}
		}

		recStack[id] = false
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, op := range ops {
		if !visited[op.ID()] {
			if cycle := visit(op); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
