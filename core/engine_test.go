package core_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devblok/torero/core"
	"github.com/devblok/torero/gpu/gputest"
	"github.com/devblok/torero/model"
	"github.com/devblok/torero/pointcloud"
	"github.com/devblok/torero/resource"
	"github.com/devblok/torero/sched"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangle = `v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1
`

func engineConfig(workers int) core.Configuration {
	cfg := core.DefaultConfiguration()
	cfg.Scheduler.Workers = workers
	cfg.Time.EventPollDelay = 7
	return cfg
}

func assets(t *testing.T) resource.Source {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"car", "tree", "sign"} {
		p := filepath.Join(dir, name, model.OBJFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, ioutil.WriteFile(p, []byte(triangle), 0644))
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "frame.bin"), make([]byte, 32), 0644))
	return resource.NewDir(dir)
}

// run drives the engine the way the event loop does until nothing loads.
func run(t *testing.T, e *core.Engine) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for e.Loading() {
		timeout, wait := e.EventTimeout()
		require.True(t, wait)
		select {
		case <-e.Scheduler().Wake():
		case <-time.After(timeout):
		case <-deadline:
			t.Fatal("resources did not load")
		}
		e.Update()
	}
}

func TestEngine(t *testing.T) {
	src := assets(t)
	dev := gputest.NewDevice()
	log, hook := logtest.NewNullLogger()

	var notified int32
	e := core.NewEngine(engineConfig(2), dev, log, func() { atomic.AddInt32(&notified, 1) })
	defer e.Close()

	timeout, wait := e.EventTimeout()
	assert.False(t, wait, "an idle engine blocks for events")
	assert.Zero(t, timeout)

	require.NoError(t, e.Load(model.NewLoader("car", src, dev, log)))
	require.NoError(t, e.Load(model.NewLoader("tree", src, dev, log)))
	require.NoError(t, e.Load(model.NewLoader("missing", src, dev, log)))
	require.NoError(t, e.Load(pointcloud.NewLoader("frame.bin", src, dev, log)))
	require.NoError(t, e.Load(model.NewLoader("sign", src, dev, log)))

	timeout, wait = e.EventTimeout()
	assert.True(t, wait)
	assert.Equal(t, 7*time.Millisecond, timeout)
	assert.Len(t, e.Scheduler().Active(), 2)
	assert.Len(t, e.Scheduler().Waiting(), 3)

	run(t, e)

	assert.Equal(t, 0, e.Update(), "update is a no-op once loaded")
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&notified) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, 4, dev.Count("CreateBuffer"))

	e.Paint()
	assert.Equal(t, 4, dev.Count("Draw"), "the failed model draws nothing")

	var errors int
	for _, entry := range hook.AllEntries() {
		if entry.Level.String() == "error" {
			errors++
		}
	}
	assert.Equal(t, 1, errors)
}

func TestEngineCloseReleases(t *testing.T) {
	src := assets(t)
	dev := gputest.NewDevice()
	e := core.NewEngine(engineConfig(1), dev, nil, nil)

	require.NoError(t, e.Load(model.NewLoader("car", src, dev, nil)))
	run(t, e)
	assert.Equal(t, 1, dev.Live())

	e.Close()
	assert.Equal(t, 0, dev.Live())
	assert.Equal(t, sched.ErrClosed, e.Load(model.NewLoader("tree", src, dev, nil)))
}

func TestEngineReload(t *testing.T) {
	src := assets(t)
	dev := gputest.NewDevice()
	e := core.NewEngine(engineConfig(1), dev, nil, nil)
	defer e.Close()

	require.NoError(t, e.Load(model.NewLoader("car", src, dev, nil)))
	require.NoError(t, e.Load(model.NewLoader("tree", src, dev, nil)))
	run(t, e)
	assert.Equal(t, 2, dev.Live())

	require.NoError(t, e.Reload(model.NewLoader("car", src, dev, nil)))
	assert.True(t, e.Loading())
	run(t, e)

	assert.Equal(t, 3, dev.Count("CreateBuffer"))
	assert.Equal(t, 2, dev.Live(), "the replaced model is released")

	e.Paint()
	assert.Equal(t, 2, dev.Count("Draw"))

	require.NoError(t, e.Reload(model.NewLoader("sign", src, dev, nil)))
	run(t, e)
	assert.Equal(t, 3, dev.Live(), "an unknown name is loaded as new")
}

func TestEngineLoadsArbitraryTasks(t *testing.T) {
	e := core.NewEngine(engineConfig(1), gputest.NewDevice(), nil, nil)
	defer e.Close()

	var finalized bool
	task := &namedTask{TaskFuncs: sched.TaskFuncs{
		RunFunc:      func(context.Context) {},
		FinalizeFunc: func() { finalized = true },
	}}
	require.NoError(t, e.Load(task))
	run(t, e)
	assert.True(t, finalized)
}

type namedTask struct {
	sched.TaskFuncs
}

func (namedTask) Name() string { return "task" }
func (namedTask) Draw()        {}
func (namedTask) Release()     {}
