// Package sched dispatches resource loading work onto a bounded pool of
// background goroutines and hands completed work back to the single
// foreground goroutine that owns the rendering context.
//
// A Scheduler is driven by the foreground loop: Submit and Poll must only
// be called from the goroutine that owns the GPU context. Only the bodies
// of Task.Run execute elsewhere.
package sched

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/sirupsen/logrus"
)

// package errors
var (
	ErrClosed  = errors.New("scheduler is closed")
	ErrNilTask = errors.New("task is nil")
)

// Options configure a Scheduler.
type Options struct {
	// Workers caps the number of tasks running at once.
	// Zero means DetectCapacity().
	Workers int

	// Logger receives dispatch diagnostics, nil discards them.
	Logger logrus.FieldLogger

	// Notify, if set, is called from a worker goroutine every time a
	// task's Run returns. It must be safe for concurrent use; it is
	// meant to wake an event loop blocked on its own event queue.
	Notify func()
}

type entry struct {
	task Task
	seq  uint64

	// returned is set by Poll once the completion token arrived,
	// it is only touched by the foreground goroutine.
	returned bool
}

// Scheduler holds an active set bounded by its capacity and a FIFO
// of waiting tasks. Its collections belong to the foreground goroutine
// and carry no synchronisation of their own.
type Scheduler struct {
	capacity int
	log      logrus.FieldLogger
	notify   func()

	active  []*entry
	waiting *linkedlistqueue.Queue
	seq     uint64
	closed  bool

	jobs      chan *entry
	completed chan *entry
	wake      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler and starts its worker pool.
func New(opts Options) *Scheduler {
	capacity := opts.Workers
	if capacity <= 0 {
		capacity = DetectCapacity()
	}

	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.Out = ioutil.Discard
		log = discard
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		capacity:  capacity,
		log:       log.WithField("component", "scheduler"),
		notify:    opts.Notify,
		active:    make([]*entry, 0, capacity),
		waiting:   linkedlistqueue.New(),
		jobs:      make(chan *entry, capacity),
		completed: make(chan *entry, capacity),
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < capacity; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.log.WithField("workers", capacity).Debug("scheduler started")
	return s
}

// Go submits a task made of three closures.
func (s *Scheduler) Go(run func(context.Context), ready func() bool, finalize func()) error {
	return s.Submit(TaskFuncs{
		RunFunc:      run,
		ReadyFunc:    ready,
		FinalizeFunc: finalize,
	})
}

// Submit starts t immediately if an active slot is free,
// otherwise appends it to the waiting queue.
func (s *Scheduler) Submit(t Task) error {
	if t == nil {
		return ErrNilTask
	}
	if s.closed {
		return ErrClosed
	}

	s.seq++
	e := &entry{task: t, seq: s.seq}

	if len(s.active) < s.capacity {
		s.active = append(s.active, e)
		s.dispatch(e)
		return nil
	}

	s.waiting.Enqueue(e)
	s.log.WithFields(logrus.Fields{
		"task":    e.seq,
		"waiting": s.waiting.Size(),
	}).Debug("task queued")
	return nil
}

// Poll advances the scheduler by one tick and returns the number of
// finalized tasks. Every active task whose Run has returned is checked;
// ready ones are finalized on the calling goroutine and their slot goes
// to the longest waiting task, or is vacated when nothing waits.
func (s *Scheduler) Poll() int {
	s.drain()

	var (
		finalized int
		vacated   []int
	)
	for i, e := range s.active {
		if !e.returned || !e.task.IsReady() {
			continue
		}

		e.task.Finalize()
		finalized++

		if next, ok := s.waiting.Dequeue(); ok {
			s.active[i] = next.(*entry)
			s.dispatch(s.active[i])
		} else {
			vacated = append(vacated, i)
		}
	}

	// Erase from the highest index down so earlier indices stay valid.
	for i := len(vacated) - 1; i >= 0; i-- {
		idx := vacated[i]
		copy(s.active[idx:], s.active[idx+1:])
		s.active[len(s.active)-1] = nil
		s.active = s.active[:len(s.active)-1]
	}

	return finalized
}

// Finished reports whether no work is outstanding.
func (s *Scheduler) Finished() bool {
	return len(s.active) == 0 && s.waiting.Empty()
}

// Capacity returns the maximum number of active tasks.
func (s *Scheduler) Capacity() int {
	return s.capacity
}

// Active returns the active tasks in slot order.
func (s *Scheduler) Active() []Task {
	tasks := make([]Task, len(s.active))
	for i, e := range s.active {
		tasks[i] = e.task
	}
	return tasks
}

// Waiting returns the waiting tasks, longest waiting first.
func (s *Scheduler) Waiting() []Task {
	values := s.waiting.Values()
	tasks := make([]Task, len(values))
	for i, v := range values {
		tasks[i] = v.(*entry).task
	}
	return tasks
}

// Wake returns a channel that receives after a task's Run returned.
// Signals coalesce, one receive may stand for several completions.
func (s *Scheduler) Wake() <-chan struct{} {
	return s.wake
}

// Close stops accepting work, drops waiting tasks and waits for the
// worker pool to finish the tasks already handed to it. Tasks that
// were active are never finalized.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true

	dropped := s.waiting.Size()
	s.waiting.Clear()
	s.active = nil

	s.cancel()
	close(s.jobs)
	s.wg.Wait()

	s.log.WithField("dropped", dropped).Debug("scheduler closed")
}

func (s *Scheduler) dispatch(e *entry) {
	s.log.WithFields(logrus.Fields{
		"task":   e.seq,
		"active": len(s.active),
	}).Debug("task dispatched")
	s.jobs <- e
}

// drain collects completion tokens without blocking.
func (s *Scheduler) drain() {
	for {
		select {
		case e := <-s.completed:
			e.returned = true
		default:
			return
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for e := range s.jobs {
		s.run(id, e)

		// Never blocks: the buffer holds one token per active slot.
		s.completed <- e

		select {
		case s.wake <- struct{}{}:
		default:
		}
		if s.notify != nil {
			s.notify()
		}
	}
}

func (s *Scheduler) run(id int, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"task":   e.seq,
				"worker": id,
			}).Error(fmt.Sprintf("task panicked: %v", r))
		}
	}()
	e.task.Run(s.ctx)
}
