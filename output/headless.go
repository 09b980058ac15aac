// Package output provides engine.Device implementations: the system audio
// device via oto and an in-memory device for offline rendering and tests.
package output

import (
	"context"
	"errors"
	"sync"

	"github.com/cwbudde/tonekeys/engine"
)

// ErrNotOpen is returned by Pull before Open.
var ErrNotOpen = errors.New("device not open")

// Headless is a pull-driven device. Nothing renders unless Pull is called.
type Headless struct {
	mu         sync.Mutex
	src        engine.Source
	sampleRate int
	frames     int64
}

func NewHeadless() *Headless { return &Headless{} }

func (h *Headless) Open(_ context.Context, sampleRate int, src engine.Source) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.src = src
	h.sampleRate = sampleRate
	return nil
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.src = nil
	return nil
}

// SampleRate is the rate given to Open.
func (h *Headless) SampleRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sampleRate
}

// Frames is the total number of frames pulled.
func (h *Headless) Frames() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// Pull renders frames stereo frames and returns them interleaved.
func (h *Headless) Pull(frames int) ([]float32, error) {
	dst := make([]float32, 2*frames)
	if err := h.PullInto(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// PullInto renders len(dst)/2 frames into dst.
func (h *Headless) PullInto(dst []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.src == nil {
		return ErrNotOpen
	}
	h.src.Render(dst)
	h.frames += int64(len(dst) / 2)
	return nil
}

// Failing is a device whose Open always returns Err.
type Failing struct {
	Err error
}

func (f Failing) Open(context.Context, int, engine.Source) error {
	if f.Err == nil {
		return errors.New("output device failure")
	}
	return f.Err
}

func (Failing) Close() error { return nil }
