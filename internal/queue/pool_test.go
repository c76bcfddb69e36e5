package queue

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/taskflow/internal/operation"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), config.MaxWorkers)
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected int
	}{
		{"nil config", nil, runtime.NumCPU()},
		{"zero workers", &Config{MaxWorkers: 0}, 1},
		{"negative workers", &Config{MaxWorkers: -3}, 1},
		{"explicit", &Config{MaxWorkers: 7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(tt.config)
			assert.Equal(t, tt.expected, pool.MaxWorkers())
		})
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(&Config{MaxWorkers: 2})
	q := pool.NewQueue("bounded")

	var current, peak atomic.Int32
	ops := make([]operation.Operation, 6)
	for i := range ops {
		ops[i] = syncTask("", func() {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(15 * time.Millisecond)
			current.Add(-1)
		})
	}

	require.NoError(t, q.Enqueue(false, ops...))
	waitQueue(t, q)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(0), pool.Stats().Active)
}

func TestPoolStats(t *testing.T) {
	pool := NewPool(&Config{MaxWorkers: 4})
	q := pool.NewQueue("stats")

	cancelled := syncTask("cancelled", nil)
	cancelled.Cancel()

	require.NoError(t, q.Enqueue(false, syncTask("a", nil), syncTask("b", nil), cancelled))
	waitQueue(t, q)

	// The finished observer runs right after Done is closed
	require.Eventually(t, func() bool { return pool.Stats().Finished == 3 }, testTimeout, time.Millisecond)
	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.Dispatched)
	assert.Equal(t, int64(1), stats.Cancelled)
}

func TestClosedPoolDrainsWithoutRunningBodies(t *testing.T) {
	pool := NewPool(&Config{MaxWorkers: 2})
	pool.Close()

	q := pool.NewQueue("closed")
	var bodies atomic.Int32
	a := syncTask("a", func() { bodies.Add(1) })
	b := syncTask("b", func() { bodies.Add(1) })
	b.AddDependency(a)

	require.NoError(t, q.Enqueue(false, a, b))
	waitQueue(t, q)

	assert.Equal(t, int32(0), bodies.Load())
	assert.True(t, a.IsCancelled())
	assert.True(t, b.IsCancelled())
}
