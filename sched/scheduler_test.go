package sched_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devblok/torero/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedTask runs until its gate is opened.
type gatedTask struct {
	name    string
	gate    chan struct{}
	opened  int32
	done    int32
	holdOff int32 // when set IsReady stays false after Run

	checks    int
	finalized int
	early     bool
}

func newGatedTask(name string) *gatedTask {
	return &gatedTask{name: name, gate: make(chan struct{})}
}

func (g *gatedTask) Run(ctx context.Context) {
	<-g.gate
	atomic.StoreInt32(&g.done, 1)
}

func (g *gatedTask) IsReady() bool {
	g.checks++
	return atomic.LoadInt32(&g.done) == 1 && atomic.LoadInt32(&g.holdOff) == 0
}

func (g *gatedTask) Finalize() {
	if atomic.LoadInt32(&g.done) == 0 {
		g.early = true
	}
	g.finalized++
}

func (g *gatedTask) open() {
	if atomic.CompareAndSwapInt32(&g.opened, 0, 1) {
		close(g.gate)
	}
}

func names(tasks []sched.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.(*gatedTask).name
	}
	return out
}

func newTasks(n int) []*gatedTask {
	tasks := make([]*gatedTask, n)
	for i := range tasks {
		tasks[i] = newGatedTask(string(rune('A' + i)))
	}
	return tasks
}

// setup creates a scheduler whose tasks are all released before it is closed.
func setup(t *testing.T, workers int, tasks []*gatedTask) *sched.Scheduler {
	s := sched.New(sched.Options{Workers: workers})
	t.Cleanup(func() {
		for _, task := range tasks {
			task.open()
		}
		s.Close()
	})
	return s
}

func pollUntil(t *testing.T, s *sched.Scheduler, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.Poll()
		if cond() {
			return
		}
		select {
		case <-s.Wake():
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			t.Fatal("condition not reached before deadline")
		}
	}
}

func TestSubmitWithinCapacity(t *testing.T) {
	tasks := newTasks(3)
	s := setup(t, 4, tasks)

	for _, task := range tasks {
		require.NoError(t, s.Submit(task))
	}

	assert.Equal(t, []string{"A", "B", "C"}, names(s.Active()))
	assert.Empty(t, s.Waiting())
	assert.False(t, s.Finished())
}

func TestSubmitBeyondCapacity(t *testing.T) {
	tasks := newTasks(7)
	s := setup(t, 3, tasks)

	for _, task := range tasks {
		require.NoError(t, s.Submit(task))
	}

	assert.Equal(t, []string{"A", "B", "C"}, names(s.Active()))
	assert.Equal(t, []string{"D", "E", "F", "G"}, names(s.Waiting()))
}

func TestPromotionScenario(t *testing.T) {
	tasks := newTasks(4)
	s := setup(t, 2, tasks)
	t1, t2, t3, t4 := tasks[0], tasks[1], tasks[2], tasks[3]

	for _, task := range tasks {
		require.NoError(t, s.Submit(task))
	}
	require.Equal(t, []string{"A", "B"}, names(s.Active()))
	require.Equal(t, []string{"C", "D"}, names(s.Waiting()))

	// Nothing finished yet, polling is a no-op.
	assert.Equal(t, 0, s.Poll())

	t1.open()
	<-s.Wake()
	assert.Equal(t, 1, s.Poll())

	assert.Equal(t, 1, t1.finalized)
	assert.Equal(t, []string{"C", "B"}, names(s.Active()))
	assert.Equal(t, []string{"D"}, names(s.Waiting()))

	t2.open()
	t3.open()
	t4.open()
	pollUntil(t, s, s.Finished)

	for _, task := range tasks {
		assert.Equal(t, 1, task.finalized, task.name)
		assert.False(t, task.early, task.name)
	}
	assert.Empty(t, s.Active())
	assert.Empty(t, s.Waiting())
}

func TestFinishedOnlyWhenEmpty(t *testing.T) {
	tasks := newTasks(2)
	s := setup(t, 1, tasks)
	assert.True(t, s.Finished())

	require.NoError(t, s.Submit(tasks[0]))
	require.NoError(t, s.Submit(tasks[1]))
	assert.False(t, s.Finished())

	tasks[0].open()
	pollUntil(t, s, func() bool { return tasks[0].finalized == 1 })
	// the second task has been promoted, work is still outstanding
	assert.False(t, s.Finished())
	assert.Len(t, s.Active(), 1)

	tasks[1].open()
	pollUntil(t, s, s.Finished)
}

func TestFinalizeOnlyAfterReady(t *testing.T) {
	tasks := newTasks(1)
	task := tasks[0]
	atomic.StoreInt32(&task.holdOff, 1)
	s := setup(t, 1, tasks)

	require.NoError(t, s.Submit(task))
	task.open()
	<-s.Wake()

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, s.Poll())
	}
	assert.Equal(t, 0, task.finalized)
	assert.Greater(t, task.checks, 0)
	assert.False(t, s.Finished())

	atomic.StoreInt32(&task.holdOff, 0)
	assert.Equal(t, 1, s.Poll())
	assert.True(t, s.Finished())

	for i := 0; i < 5; i++ {
		s.Poll()
	}
	assert.Equal(t, 1, task.finalized)
}

func TestReadyNotCheckedBeforeRunReturns(t *testing.T) {
	tasks := newTasks(1)
	s := setup(t, 1, tasks)

	require.NoError(t, s.Submit(tasks[0]))
	for i := 0; i < 3; i++ {
		s.Poll()
	}
	assert.Equal(t, 0, tasks[0].checks)
}

func TestFIFOUnderChurn(t *testing.T) {
	tasks := newTasks(8)
	s := setup(t, 2, tasks)
	for _, task := range tasks {
		require.NoError(t, s.Submit(task))
	}

	var order []string
	for len(order) < len(tasks) {
		active := s.Active()
		require.LessOrEqual(t, len(active), s.Capacity())
		first := active[0].(*gatedTask)
		first.open()
		pollUntil(t, s, func() bool { return first.finalized == 1 })
		order = append(order, first.name)

		if len(order) < len(tasks) {
			// the freed slot is taken by the oldest waiting task
			for _, w := range s.Waiting() {
				assert.NotEqual(t, first.name, w.(*gatedTask).name)
			}
		}
	}
	assert.True(t, s.Finished())
}

func TestGoClosures(t *testing.T) {
	s := sched.New(sched.Options{Workers: 2})
	defer s.Close()

	var (
		ran       int32
		finalized int
	)
	require.NoError(t, s.Go(
		func(ctx context.Context) { atomic.AddInt32(&ran, 1) },
		func() bool { return atomic.LoadInt32(&ran) == 1 },
		func() { finalized++ },
	))
	require.NoError(t, s.Go(func(ctx context.Context) {}, nil, nil))

	pollUntil(t, s, s.Finished)
	assert.Equal(t, 1, finalized)
}

func TestPanickingRunStillCompletes(t *testing.T) {
	s := sched.New(sched.Options{Workers: 1})
	defer s.Close()

	var finalized bool
	require.NoError(t, s.Submit(sched.TaskFuncs{
		RunFunc:      func(ctx context.Context) { panic("broken loader") },
		FinalizeFunc: func() { finalized = true },
	}))

	pollUntil(t, s, s.Finished)
	assert.True(t, finalized)
}

func TestNotifyHook(t *testing.T) {
	var notified int32
	s := sched.New(sched.Options{
		Workers: 2,
		Notify:  func() { atomic.AddInt32(&notified, 1) },
	})
	defer s.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Go(func(ctx context.Context) {}, nil, nil))
	}
	pollUntil(t, s, s.Finished)
	assert.Equal(t, int32(3), atomic.LoadInt32(&notified))
}

func TestCloseJoinsAndRejects(t *testing.T) {
	tasks := newTasks(3)
	s := sched.New(sched.Options{Workers: 1})
	for _, task := range tasks {
		require.NoError(t, s.Submit(task))
	}

	closed := make(chan struct{})
	go func() {
		tasks[0].open()
		s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not join the worker pool")
	}

	assert.ErrorIs(t, s.Submit(newGatedTask("late")), sched.ErrClosed)
	assert.True(t, s.Finished())
	assert.Equal(t, 0, tasks[0].finalized)
	s.Close()
}

func TestSubmitNil(t *testing.T) {
	s := sched.New(sched.Options{Workers: 1})
	defer s.Close()
	assert.ErrorIs(t, s.Submit(nil), sched.ErrNilTask)
}

func TestDetectCapacity(t *testing.T) {
	s := sched.New(sched.Options{})
	defer s.Close()
	assert.Equal(t, sched.DetectCapacity(), s.Capacity())
	assert.GreaterOrEqual(t, s.Capacity(), 1)
}
