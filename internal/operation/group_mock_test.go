package operation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockQueue records how a group drives its private queue
type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(hold bool, ops ...Operation) error {
	args := m.Called(hold, ops)
	return args.Error(0)
}

func (m *mockQueue) ReleaseHold() {
	m.Called()
}

func (m *mockQueue) CancelAll() {
	m.Called()
}

func factoryFor(q Queue) QueueFactory {
	return func() Queue { return q }
}

func TestGroupEnqueuesChildrenAndJoinInHeldMode(t *testing.T) {
	q := &mockQueue{}
	a := NewTask("a", nil)
	b := NewTask("b", nil)
	group := NewGroup("group", factoryFor(q), a, b)

	var enqueued []Operation
	enqueue := q.On("Enqueue", true, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		enqueued = args.Get(1).([]Operation)
	})
	release := q.On("ReleaseHold").Return()
	mock.InOrder(enqueue, release)

	completions := 0
	group.SetCompletion(func(op Operation) {
		completions++
		assert.Same(t, group, op)
	})

	group.Start()

	q.AssertExpectations(t)
	require.Len(t, enqueued, 3)
	assert.Same(t, a, enqueued[0])
	assert.Same(t, b, enqueued[1])
	join := enqueued[2]
	assert.Len(t, join.Dependencies(), 2)
	assert.True(t, group.IsExecuting())

	// Act as the scheduler: children first, then the join
	a.Start()
	b.Start()
	assert.False(t, group.IsFinished(), "group must wait for the join")

	join.Start()
	assert.True(t, group.IsFinished())
	assert.Equal(t, 1, completions)
}

func TestGroupEnqueueFailurePanics(t *testing.T) {
	q := &mockQueue{}
	child := NewTask("child", nil)
	group := NewGroup("broken", factoryFor(q), child)

	cycle := errors.New("dependency cycle")
	q.On("Enqueue", true, mock.Anything).Return(cycle)

	completions := 0
	group.SetCompletion(func(Operation) { completions++ })

	err := recoverError(group.Start)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnschedulable)
	assert.ErrorIs(t, err, cycle)
	assert.Contains(t, err.Error(), "broken")

	q.AssertNotCalled(t, "ReleaseHold")
	assert.False(t, group.IsFinished(), "a group must not finish while its children cannot")
	assert.Zero(t, completions)
}

func TestGroupCancelForwardsToChildrenAndQueue(t *testing.T) {
	q := &mockQueue{}
	a := NewTask("a", nil)
	b := NewTask("b", nil)
	group := NewGroup("group", factoryFor(q), a, b)

	q.On("CancelAll").Return().Once()

	group.Cancel()

	q.AssertExpectations(t)
	assert.True(t, group.IsCancelled())
	assert.True(t, a.IsCancelled())
	assert.True(t, b.IsCancelled())
	assert.False(t, group.IsFinished(), "cancel never forces a transition to finished")
}

func TestCancelledGroupStillSchedulesChildren(t *testing.T) {
	q := &mockQueue{}
	child := NewTask("child", func(*Task) {
		t.Error("cancelled child body must not run")
	})
	group := NewGroup("group", factoryFor(q), child)

	q.On("CancelAll").Return()
	var enqueued []Operation
	q.On("Enqueue", true, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		enqueued = args.Get(1).([]Operation)
	})
	q.On("ReleaseHold").Return()

	group.Cancel()
	group.Start()

	require.Len(t, enqueued, 2)
	assert.False(t, group.IsFinished(), "group waits for its cancelled children")

	enqueued[0].Start()
	enqueued[1].Start()

	assert.True(t, child.IsFinished())
	assert.True(t, group.IsFinished())
	assert.True(t, group.IsCancelled())
}

func TestGroupNames(t *testing.T) {
	q := &mockQueue{}

	named := NewGroup("deploy", factoryFor(q))
	assert.Equal(t, "deploy", named.Name())
	assert.Equal(t, "deploy/join", named.join.Name())

	unnamed := NewGroup("", factoryFor(q))
	assert.Contains(t, unnamed.Name(), "group-")

	seq := NewSequence("", factoryFor(q))
	assert.Contains(t, seq.Name(), "sequence-")
	assert.Equal(t, seq.Name()+"/join", seq.join.Name())
}

func TestGroupChildrenIsCopy(t *testing.T) {
	a := NewTask("a", nil)
	group := NewGroup("group", factoryFor(&mockQueue{}), a)

	children := group.Children()
	children[0] = NewTask("other", nil)

	assert.Same(t, a, group.Children()[0])
}

func TestSequenceChainsDependencies(t *testing.T) {
	a := NewTask("a", nil)
	b := NewTask("b", nil)
	c := NewTask("c", nil)

	seq := NewSequence("seq", factoryFor(&mockQueue{}), a, b, c)

	assert.Empty(t, a.Dependencies())
	require.Len(t, b.Dependencies(), 1)
	assert.Equal(t, a.ID(), b.Dependencies()[0].ID())
	require.Len(t, c.Dependencies(), 1)
	assert.Equal(t, b.ID(), c.Dependencies()[0].ID())

	// The join still depends on every child, not just the last
	assert.Len(t, seq.join.Dependencies(), 3)
}

func TestSequenceCompletionReceivesSequence(t *testing.T) {
	q := &mockQueue{}
	seq := NewSequence("seq", factoryFor(q))

	var enqueued []Operation
	q.On("Enqueue", true, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		enqueued = args.Get(1).([]Operation)
	})
	q.On("ReleaseHold").Return()

	var got Operation
	seq.SetCompletion(func(op Operation) { got = op })

	seq.Start()
	require.Len(t, enqueued, 1)
	enqueued[0].Start()

	assert.Same(t, seq, got)
	assert.True(t, seq.IsFinished())
}
