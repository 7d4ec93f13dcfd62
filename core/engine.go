package core

import (
	"time"

	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/sched"
	"github.com/sirupsen/logrus"
)

// Resource is a scheduled loader that can be drawn once finalized,
// resource.Loader implements it for every body.
type Resource interface {
	sched.Task

	// Name identifies the resource in logs.
	Name() string

	// Draw draws the resource, doing nothing until it is finalized.
	Draw()

	// Release frees the resource.
	Release()
}

// Engine ties the loading scheduler to the foreground loop. All of its
// methods must be called from the goroutine owning the device.
type Engine struct {
	device    gpu.Device
	scheduler *sched.Scheduler
	time      Time
	log       logrus.FieldLogger

	resources []Resource
}

// NewEngine creates an engine drawing to device. notify is called from
// worker goroutines whenever a resource finished loading, it may be nil.
func NewEngine(cfg Configuration, device gpu.Device, log logrus.FieldLogger, notify func()) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		device: device,
		scheduler: sched.New(sched.Options{
			Workers: cfg.Scheduler.Workers,
			Logger:  log,
			Notify:  notify,
		}),
		time: NewTime(cfg.Time),
		log:  log,
	}
}

// Device returns the device resources are uploaded to.
func (e *Engine) Device() gpu.Device {
	return e.device
}

// Time returns the time services.
func (e *Engine) Time() *Time {
	return &e.time
}

// Scheduler returns the loading scheduler.
func (e *Engine) Scheduler() *sched.Scheduler {
	return e.scheduler
}

// Load schedules r and registers it for painting.
func (e *Engine) Load(r Resource) error {
	if err := e.scheduler.Submit(r); err != nil {
		return err
	}
	e.resources = append(e.resources, r)
	e.log.WithField("resource", r.Name()).Debug("resource scheduled")
	return nil
}

// Reload replaces the registered resource of the same name with r,
// releasing the old one, and schedules r in its place so the paint
// order is kept. A name not registered yet is loaded as new.
func (e *Engine) Reload(r Resource) error {
	for i, old := range e.resources {
		if old.Name() != r.Name() {
			continue
		}
		if err := e.scheduler.Submit(r); err != nil {
			return err
		}
		old.Release()
		e.resources[i] = r
		e.log.WithField("resource", r.Name()).Info("resource reloading")
		return nil
	}
	return e.Load(r)
}

// Update finalizes the resources that finished loading and returns
// how many were finalized.
func (e *Engine) Update() int {
	if e.scheduler.Finished() {
		return 0
	}
	n := e.scheduler.Poll()
	if e.scheduler.Finished() {
		e.log.WithField("resources", len(e.resources)).Info("all resources loaded")
	}
	return n
}

// Loading reports whether any resource is still being loaded.
func (e *Engine) Loading() bool {
	return !e.scheduler.Finished()
}

// Paint draws every finalized resource in the order they were loaded.
func (e *Engine) Paint() {
	for _, r := range e.resources {
		r.Draw()
	}
}

// EventTimeout tells the event loop how long it may wait for events.
// While resources load it returns the poll delay and true, otherwise
// false meaning the loop may block until the next event.
func (e *Engine) EventTimeout() (time.Duration, bool) {
	if e.scheduler.Finished() {
		return 0, false
	}
	return e.time.EventPollDelay(), true
}

// Close waits for the workers and releases every resource.
func (e *Engine) Close() {
	e.scheduler.Close()
	for _, r := range e.resources {
		r.Release()
	}
	e.resources = nil
	e.time.Stop()
}
