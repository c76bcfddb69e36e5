package operation

// Sequence runs its children one at a time in input order. Each child waits for the
// preceding one to finish; cancelling a child does not cancel the ones after it.
type Sequence struct {
	*Group
}

// NewSequence chains the children and builds a group over them
func NewSequence(name string, newQueue QueueFactory, children ...Operation) *Sequence {
	for i := 1; i < len(children); i++ {
		children[i].AddDependency(children[i-1])
	}

	g := NewGroup(name, newQueue, children...)
	if name == "" {
		g.Task.name = "sequence-" + g.Task.id[:8]
		g.join.name = g.Task.name + "/join"
	}

	s := &Sequence{Group: g}
	s.Task.self = s
	return s
}
