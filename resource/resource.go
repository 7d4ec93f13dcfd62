// Package resource implements the two-phase protocol every heavyweight
// asset follows: a CPU phase on a worker goroutine that reads and decodes
// files, and a GPU phase on the goroutine owning the rendering context
// that uploads the result.
//
// A concrete asset only provides a Body. The Loader wrapping it is the
// sched.Task handed to the scheduler and is what the rest of the engine
// keeps to draw the asset once it is finalized.
package resource

import (
	"context"
	"errors"

	"github.com/devblok/torero/gpu"
)

// package errors
var (
	ErrNotFound  = errors.New("resource file not found")
	ErrMalformed = errors.New("resource file is malformed")
	ErrUpload    = errors.New("resource upload failed")
)

// State is the lifecycle stage of a Loader.
type State int32

// Loader states
const (
	NotStarted State = iota
	Loading
	Ready
	Failed
	Finalized
	Released
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Finalized:
		return "finalized"
	case Released:
		return "released"
	}
	return "unknown"
}

// Body holds the data of one asset and knows how to produce it.
type Body interface {

	// Load reads and decodes the asset into CPU buffers.
	// It runs on a worker goroutine and must never touch the GPU.
	Load(ctx context.Context, src Source) error

	// Upload creates the GPU objects from the CPU buffers and may drop
	// the CPU copy. It runs on the goroutine owning the device.
	Upload(dev gpu.Device) error

	// Draw issues the draw calls of an uploaded asset.
	Draw(dev gpu.Device)

	// Release frees GPU objects and CPU buffers, whatever was created.
	Release()
}
