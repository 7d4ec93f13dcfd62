package resource

import (
	"context"
	"fmt"
	"io/ioutil"
	"sync/atomic"

	"github.com/devblok/torero/gpu"
	"github.com/sirupsen/logrus"
)

// Loader drives a Body through the load/finalize protocol and
// implements sched.Task.
//
// The error of a failed load is written before the state is published,
// so a foreground goroutine that observed Failed through IsReady also
// observes the error. Run never blocks IsReady: the only value shared
// across goroutines is the atomic state.
type Loader[B Body] struct {
	name string
	body B
	src  Source
	dev  gpu.Device
	log  logrus.FieldLogger

	state int32
	err   error

	// foreground only
	finalizeDone bool
	released     bool
}

// NewLoader creates a loader for body reading from src and uploading to dev.
// A nil logger discards messages.
func NewLoader[B Body](name string, body B, src Source, dev gpu.Device, log logrus.FieldLogger) *Loader[B] {
	if log == nil {
		discard := logrus.New()
		discard.Out = ioutil.Discard
		log = discard
	}
	return &Loader[B]{
		name: name,
		body: body,
		src:  src,
		dev:  dev,
		log:  log.WithField("resource", name),
	}
}

// Name returns the name the loader was created with.
func (l *Loader[B]) Name() string {
	return l.name
}

// Body returns the loaded asset. Its contents may only be read
// after IsReady returned true.
func (l *Loader[B]) Body() B {
	return l.body
}

// State returns the current lifecycle stage.
func (l *Loader[B]) State() State {
	return State(atomic.LoadInt32(&l.state))
}

// Err returns the reason of a failed load, nil otherwise.
func (l *Loader[B]) Err() error {
	if l.State() != Failed {
		return nil
	}
	return l.err
}

// Run performs the CPU phase. Only the first call does any work.
func (l *Loader[B]) Run(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&l.state, int32(NotStarted), int32(Loading)) {
		return
	}

	err := l.load(ctx)
	if err != nil {
		l.err = err
		atomic.StoreInt32(&l.state, int32(Failed))
		return
	}
	atomic.StoreInt32(&l.state, int32(Ready))
}

func (l *Loader[B]) load(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrMalformed, l.name, r)
		}
	}()
	return l.body.Load(ctx, l.src)
}

// IsReady reports whether Run has finished, successfully or not.
func (l *Loader[B]) IsReady() bool {
	switch l.State() {
	case Ready, Failed, Finalized, Released:
		return true
	}
	return false
}

// Finalize performs the GPU phase. A failed load is reported once
// and leaves the device untouched.
func (l *Loader[B]) Finalize() {
	if l.finalizeDone || !l.IsReady() {
		return
	}
	l.finalizeDone = true

	switch l.State() {
	case Failed:
		l.log.WithError(l.err).Error("resource failed to load")
		return
	case Ready:
	default:
		return
	}

	if l.released {
		l.body.Release()
		atomic.StoreInt32(&l.state, int32(Released))
		return
	}

	if err := l.body.Upload(l.dev); err != nil {
		l.body.Release()
		l.err = fmt.Errorf("%w: %s: %v", ErrUpload, l.name, err)
		atomic.StoreInt32(&l.state, int32(Failed))
		l.log.WithError(l.err).Error("resource failed to upload")
		return
	}

	atomic.StoreInt32(&l.state, int32(Finalized))
	l.log.Debug("resource finalized")
}

// IsFinalized reports whether the asset lives on the GPU and can be drawn.
func (l *Loader[B]) IsFinalized() bool {
	return l.State() == Finalized
}

// Draw draws the asset, it does nothing until the loader is finalized.
func (l *Loader[B]) Draw() {
	if l.IsFinalized() {
		l.body.Draw(l.dev)
	}
}

// Release frees the asset. A loader whose Run is still executing
// is only marked; its Finalize then discards the loaded data.
func (l *Loader[B]) Release() {
	if l.released {
		return
	}
	l.released = true

	if l.State() == Finalized {
		l.body.Release()
		atomic.StoreInt32(&l.state, int32(Released))
	}
}
