package engine

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/cwbudde/tonekeys/dsp"
)

// Source is what a Device pulls audio from: interleaved stereo float32,
// either as samples (Render) or as little-endian bytes (Read).
type Source interface {
	Read(p []byte) (int, error)
	Render(dst []float32)
}

// Mixer sums the live voices into an interleaved stereo stream.
//
// The voice list is an immutable slice swapped atomically by the Voices
// manager, so Render takes no locks. Render and Read must be called from a
// single goroutine at a time (the device callback).
type Mixer struct {
	voices atomic.Pointer[[]*Voice]
	gain   float32
	frames atomic.Int64

	scratch []float32
}

// NewMixer creates a mixer with the given master gain.
func NewMixer(masterGain float32) *Mixer {
	m := &Mixer{gain: masterGain}
	empty := []*Voice{}
	m.voices.Store(&empty)
	return m
}

func (m *Mixer) setVoices(vs []*Voice) {
	m.voices.Store(&vs)
}

// Live returns the voices currently published to the render path.
func (m *Mixer) Live() []*Voice {
	return *m.voices.Load()
}

// FramesRendered counts frames produced since creation.
func (m *Mixer) FramesRendered() int64 {
	return m.frames.Load()
}

// Render fills dst (len = 2*frames) with the mix. Output is hard-limited
// to [-1, 1].
func (m *Mixer) Render(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	frames := len(dst) / 2
	for _, v := range *m.voices.Load() {
		v.mixInto(dst, frames)
	}
	for i := range dst {
		dst[i] = dsp.Limit(dsp.FlushDenormals(dst[i] * m.gain))
	}
	m.frames.Add(int64(frames))
}

// Read implements io.Reader as float32 little-endian stereo frames.
func (m *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / 8
	samples := frames * 2
	if cap(m.scratch) < samples {
		m.scratch = make([]float32, samples)
	}
	buf := m.scratch[:samples]
	m.Render(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return samples * 4, nil
}
