package operation_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/taskflow/internal/operation"
)

type span struct {
	start, end time.Time
}

func TestSequenceRunsInOrder(t *testing.T) {
	pool := newPool(8)

	var mu sync.Mutex
	spans := make([]span, 3)
	children := make([]operation.Operation, 3)
	for i := range children {
		i := i
		children[i] = operation.NewTask("", func(t *operation.Task) {
			mu.Lock()
			spans[i].start = time.Now()
			mu.Unlock()

			time.AfterFunc(10*time.Millisecond, func() {
				mu.Lock()
				spans[i].end = time.Now()
				mu.Unlock()
				t.Finish()
			})
		})
	}

	seq := operation.NewSequence("seq", pool.Factory("seq"), children...)
	run(t, pool, seq)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(spans); i++ {
		assert.False(t, spans[i].start.Before(spans[i-1].end),
			"child %d started before child %d finished", i, i-1)
	}
}

func TestSequenceObservesPredecessors(t *testing.T) {
	pool := newPool(8)

	var mu sync.Mutex
	var done1, done2, done3 bool

	op1 := blockTask("op1", func(*operation.Task) {
		mu.Lock()
		defer mu.Unlock()
		assert.False(t, done1 || done2 || done3)
		done1 = true
	})
	op2 := blockTask("op2", func(*operation.Task) {
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, done1)
		assert.False(t, done2 || done3)
		done2 = true
	})
	op3 := blockTask("op3", func(*operation.Task) {
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, done1 && done2)
		assert.False(t, done3)
		done3 = true
	})

	seq := operation.NewSequence("seq", pool.Factory("seq"), op1, op2, op3)
	var ok atomic.Bool
	seq.SetCompletion(func(operation.Operation) {
		mu.Lock()
		defer mu.Unlock()
		ok.Store(done1 && done2 && done3)
	})

	run(t, pool, seq)
	assert.True(t, ok.Load(), "all sequence operations not done")
}

func TestSequenceChildCancellingLaterSibling(t *testing.T) {
	pool := newPool(8)

	var ran1, ran2, ran3, ran4 atomic.Bool
	var op3 *operation.Task

	op1 := blockTask("op1", func(task *operation.Task) {
		assert.False(t, task.IsCancelled())
		ran1.Store(true)
	})
	op2 := blockTask("op2", func(*operation.Task) {
		ran2.Store(true)
		op3.Cancel()
	})
	op3 = blockTask("op3", func(*operation.Task) { ran3.Store(true) })
	op4 := blockTask("op4", func(*operation.Task) { ran4.Store(true) })

	seq := operation.NewSequence("seq", pool.Factory("seq"), op1, op2, op3, op4)
	run(t, pool, seq)

	assert.True(t, ran1.Load())
	assert.True(t, ran2.Load())
	assert.False(t, ran3.Load(), "cancelled child must skip its body")
	assert.True(t, ran4.Load(), "a cancelled sibling does not cancel later children")
	assert.True(t, op3.IsCancelled())
	assert.False(t, op4.IsCancelled())
	assert.False(t, seq.IsCancelled())
}

func TestSequenceCancelAll(t *testing.T) {
	pool := newPool(8)

	var seq *operation.Sequence
	var ran2, ran3 atomic.Bool
	op1 := blockTask("op1", func(*operation.Task) { seq.Cancel() })
	op2 := blockTask("op2", func(*operation.Task) { ran2.Store(true) })
	op3 := blockTask("op3", func(*operation.Task) { ran3.Store(true) })

	seq = operation.NewSequence("seq", pool.Factory("seq"), op1, op2, op3)

	var ok atomic.Bool
	var completions atomic.Int32
	seq.SetCompletion(func(op operation.Operation) {
		completions.Add(1)
		ok.Store(op.IsCancelled() && op1.IsCancelled() && op2.IsCancelled() && op3.IsCancelled())
	})

	run(t, pool, seq)

	assert.True(t, ok.Load(), "should have been cancelled")
	assert.Equal(t, int32(1), completions.Load())
	assert.False(t, ran2.Load())
	assert.False(t, ran3.Load())
}

func TestSequenceWithGroup(t *testing.T) {
	pool := newPool(8)

	var done1, done2, done3 atomic.Bool
	op1 := blockTask("op1", func(*operation.Task) {
		assert.False(t, done2.Load() || done3.Load())
		done1.Store(true)
	})
	op2 := blockTask("op2", func(*operation.Task) {
		assert.True(t, done1.Load())
		done2.Store(true)
	})
	op3 := blockTask("op3", func(*operation.Task) {
		assert.True(t, done1.Load())
		done3.Store(true)
	})

	group := operation.NewGroup("group", pool.Factory("group"), op2, op3)
	seq := operation.NewSequence("seq", pool.Factory("seq"), op1, group)

	var groupOK, seqOK atomic.Bool
	group.SetCompletion(func(operation.Operation) {
		groupOK.Store(done2.Load() && done3.Load())
	})
	seq.SetCompletion(func(operation.Operation) {
		seqOK.Store(done1.Load() && done2.Load() && done3.Load())
	})

	run(t, pool, seq)

	assert.True(t, groupOK.Load())
	assert.True(t, seqOK.Load(), "all sequence operations not done")
}

func TestSequenceOfSingleChild(t *testing.T) {
	pool := newPool(2)

	ran := atomic.Bool{}
	only := blockTask("only", func(*operation.Task) { ran.Store(true) })
	seq := operation.NewSequence("single", pool.Factory("single"), only)

	run(t, pool, seq)

	require.True(t, ran.Load())
	assert.Empty(t, only.Dependencies())
}
