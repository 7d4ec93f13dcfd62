// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"errors"
	"sync"

	"github.com/devblok/torero/gpu"
)

// ErrInjected is returned by a Device told to fail.
var ErrInjected = errors.New("injected device failure")

// Call is one recorded device call.
type Call struct {
	Op       string
	Count    int
	Slot     gpu.TextureSlot
	Textures int
}

// Device records every call made on it. Although a real device is
// single-threaded, the recorder is safe to inspect from any goroutine.
type Device struct {
	mutex sync.Mutex
	calls []Call

	failBuffers  bool
	failTextures bool
	live         int
}

// NewDevice creates an empty recorder.
func NewDevice() *Device {
	return &Device{}
}

// FailBuffers makes every following CreateBuffer fail.
func (d *Device) FailBuffers() {
	d.mutex.Lock()
	d.failBuffers = true
	d.mutex.Unlock()
}

// FailTextures makes every following CreateTexture fail.
func (d *Device) FailTextures() {
	d.mutex.Lock()
	d.failTextures = true
	d.mutex.Unlock()
}

// CreateBuffer implements interface
func (d *Device) CreateBuffer(layout gpu.Layout, data []byte, count int) (gpu.Buffer, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.calls = append(d.calls, Call{Op: "CreateBuffer", Count: count})
	if d.failBuffers {
		return nil, ErrInjected
	}
	if count == 0 {
		return nil, gpu.ErrEmptyBuffer
	}
	d.live++
	return &buffer{device: d, layout: layout, count: count, size: len(data)}, nil
}

// CreateTexture implements interface
func (d *Device) CreateTexture(slot gpu.TextureSlot, img *gpu.Image) (gpu.Texture, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.calls = append(d.calls, Call{Op: "CreateTexture", Slot: slot})
	if d.failTextures {
		return nil, ErrInjected
	}
	if img.Empty() {
		return nil, gpu.ErrEmptyTexture
	}
	d.live++
	return &texture{device: d, slot: slot, width: img.Width, height: img.Height}, nil
}

// Draw implements interface
func (d *Device) Draw(p gpu.Primitive, b gpu.Buffer, textures ...gpu.Texture) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.calls = append(d.calls, Call{Op: "Draw", Count: b.Len(), Textures: len(textures)})
}

// Calls returns a copy of every recorded call.
func (d *Device) Calls() []Call {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]Call(nil), d.calls...)
}

// Count returns how many calls of op were made, every call when op is empty.
func (d *Device) Count(op string) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if op == "" {
		return len(d.calls)
	}
	var n int
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Live returns the number of created objects not yet released.
func (d *Device) Live() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.live
}

func (d *Device) release() {
	d.mutex.Lock()
	d.live--
	d.mutex.Unlock()
}

type buffer struct {
	device   *Device
	layout   gpu.Layout
	count    int
	size     int
	released bool
}

func (b *buffer) Len() int           { return b.count }
func (b *buffer) Layout() gpu.Layout { return b.layout }

func (b *buffer) Release() {
	if !b.released {
		b.released = true
		b.device.release()
	}
}

type texture struct {
	device        *Device
	slot          gpu.TextureSlot
	width, height int
	released      bool
}

func (t *texture) Slot() gpu.TextureSlot { return t.slot }
func (t *texture) Size() (int, int)      { return t.width, t.height }

func (t *texture) Release() {
	if !t.released {
		t.released = true
		t.device.release()
	}
}
