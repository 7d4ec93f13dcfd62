package sched

import "context"

// Task is a unit of asynchronous work split between a background
// goroutine and the foreground goroutine that owns the GPU context.
type Task interface {

	// Run is executed exactly once on a worker goroutine. It must not
	// touch the GPU and must publish its results before returning.
	Run(ctx context.Context)

	// IsReady reports whether Run has produced usable output.
	// It is called from the foreground goroutine only and must not block.
	IsReady() bool

	// Finalize is executed exactly once on the foreground goroutine,
	// after IsReady first returned true.
	Finalize()
}

// TaskFuncs adapts three closures to the Task interface.
// A nil ReadyFunc means the task is ready as soon as RunFunc returned.
type TaskFuncs struct {
	RunFunc      func(ctx context.Context)
	ReadyFunc    func() bool
	FinalizeFunc func()
}

// Run implements interface
func (t TaskFuncs) Run(ctx context.Context) {
	if t.RunFunc != nil {
		t.RunFunc(ctx)
	}
}

// IsReady implements interface
func (t TaskFuncs) IsReady() bool {
	if t.ReadyFunc == nil {
		return true
	}
	return t.ReadyFunc()
}

// Finalize implements interface
func (t TaskFuncs) Finalize() {
	if t.FinalizeFunc != nil {
		t.FinalizeFunc()
	}
}
