package plan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/taskflow/internal/queue"
)

func execute(t *testing.T, ctx context.Context, data string, workers int) *Execution {
	t.Helper()

	p, err := Parse([]byte(data), "test.yaml")
	require.NoError(t, err)

	pool := queue.NewPool(&queue.Config{MaxWorkers: workers})
	t.Cleanup(pool.Close)

	exec, err := Build(ctx, p, pool, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- exec.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("plan did not finish")
	}

	assert.True(t, exec.Root.IsFinished())
	return exec
}

func status(t *testing.T, exec *Execution, path string) Status {
	t.Helper()
	res, ok := exec.Results.Get(path)
	require.True(t, ok, "no result for %s", path)
	return res.Status
}

func TestBuildRejectsInvalidPlan(t *testing.T) {
	p := &Plan{Name: "empty"}
	_, err := Build(context.Background(), p, queue.NewPool(nil), Options{})
	assert.Error(t, err)
}

func TestRunStepCapturesOutput(t *testing.T) {
	exec := execute(t, context.Background(), `
name: hello
steps:
  - name: greet
    run: echo hello
`, 2)

	res, ok := exec.Results.Get("hello/greet")
	require.True(t, ok)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, "hello", res.Output)
	assert.NoError(t, res.Err)
	assert.False(t, res.EndTime.Before(res.StartTime))
}

func TestRunStepEnvironment(t *testing.T) {
	exec := execute(t, context.Background(), `
name: envplan
steps:
  - name: check
    run: test "$TASKFLOW_PLAN/$TASKFLOW_STEP" = "envplan/envplan/check"
`, 1)

	assert.Equal(t, StatusSucceeded, status(t, exec, "envplan/check"))
}

func TestFailedStepSkipsRestOfSequence(t *testing.T) {
	exec := execute(t, context.Background(), `
name: p
steps:
  - name: s
    sequence:
      - name: a
        run: exit 3
      - name: b
        run: echo b
      - name: c
        run: echo c
`, 2)

	res, _ := exec.Results.Get("p/s/a")
	assert.Equal(t, StatusFailed, res.Status)
	assert.EqualError(t, res.Err, "exit status 3")
	assert.Equal(t, StatusSkipped, status(t, exec, "p/s/b"))
	assert.Equal(t, StatusSkipped, status(t, exec, "p/s/c"))

	failed := exec.Results.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "p/s/a", failed[0].Path)
}

func TestAllowFailureKeepsGoing(t *testing.T) {
	exec := execute(t, context.Background(), `
name: p
steps:
  - name: s
    sequence:
      - name: flaky
        run: exit 1
        allow_failure: true
      - name: next
        run: echo ok
`, 2)

	assert.Equal(t, StatusFailed, status(t, exec, "p/s/flaky"))
	assert.Equal(t, StatusSucceeded, status(t, exec, "p/s/next"))
	assert.Empty(t, exec.Results.Failed())
}

func TestAfterOrdersSiblings(t *testing.T) {
	exec := execute(t, context.Background(), `
name: p
steps:
  - name: second
    sleep: 1ms
    after: [first]
  - name: first
    sleep: 50ms
`, 4)

	first, _ := exec.Results.Get("p/first")
	second, _ := exec.Results.Get("p/second")
	assert.Equal(t, StatusSucceeded, first.Status)
	assert.Equal(t, StatusSucceeded, second.Status)
	assert.False(t, second.StartTime.Before(first.EndTime), "second started before first ended")
}

func TestFailedGroupSkipsDependents(t *testing.T) {
	exec := execute(t, context.Background(), `
name: p
steps:
  - name: checks
    group:
      - name: ok
        run: "true"
      - name: broken
        run: "false"
  - name: deploy
    after: [checks]
    run: echo deploying
  - name: unrelated
    run: echo still runs
`, 4)

	assert.Equal(t, StatusSucceeded, status(t, exec, "p/checks/ok"))
	assert.Equal(t, StatusFailed, status(t, exec, "p/checks/broken"))
	assert.Equal(t, StatusSkipped, status(t, exec, "p/deploy"))
	assert.Equal(t, StatusSucceeded, status(t, exec, "p/unrelated"))

	summary := exec.Results.Summary()
	assert.Equal(t, Summary{Total: 4, Succeeded: 2, Failed: 1, Skipped: 1}, summary)
}

func TestWorkersBoundRunningSteps(t *testing.T) {
	exec := execute(t, context.Background(), `
name: p
steps:
  - name: a
    sleep: 40ms
  - name: b
    sleep: 40ms
`, 1)

	a, _ := exec.Results.Get("p/a")
	b, _ := exec.Results.Get("p/b")
	overlap := a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
	assert.False(t, overlap, "steps overlapped with a single worker")
}

func TestCancelledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	exec := execute(t, ctx, `
name: p
steps:
  - name: s
    sequence:
      - name: long
        run: sleep 30
      - name: after-long
        run: echo never
  - name: nap
    sleep: 30s
`, 4)

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, exec.Root.IsCancelled())
	assert.Equal(t, StatusCancelled, status(t, exec, "p/s/long"))
	assert.Equal(t, StatusSkipped, status(t, exec, "p/s/after-long"))
	assert.Equal(t, StatusCancelled, status(t, exec, "p/nap"))
}

func TestCancellingStepStopsIt(t *testing.T) {
	p, err := Parse([]byte(`
name: p
steps:
  - name: nap
    sleep: 30s
`), "p.yaml")
	require.NoError(t, err)

	pool := queue.NewPool(nil)
	defer pool.Close()

	exec, err := Build(context.Background(), p, pool, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- exec.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return status(t, exec, "p/nap") == StatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	exec.Root.Cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled plan did not finish")
	}
	assert.Equal(t, StatusCancelled, status(t, exec, "p/nap"))
}
