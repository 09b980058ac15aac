package engine

import (
	"sync/atomic"

	"github.com/cwbudde/tonekeys/dsp"
	"github.com/cwbudde/tonekeys/tone"
)

// FadeFloor is the gain a released voice ramps down to before it is stopped.
const FadeFloor = 0.001

// VoiceState is the per-note playback state.
type VoiceState int

const (
	Idle VoiceState = iota
	Sounding
	Releasing
)

func (s VoiceState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sounding:
		return "sounding"
	case Releasing:
		return "releasing"
	default:
		return "unknown"
	}
}

// Voice plays one tone buffer for one note.
//
// Fields split by owner: state and timer belong to the Voices manager and
// are guarded by its lock; ramp, fading and gain are touched only by the
// render goroutine; the atomics carry requests and status between them.
type Voice struct {
	note        tone.NoteID
	buf         *tone.Buffer
	fadeSamples int

	pos      atomic.Int64
	release  atomic.Bool
	stopped  atomic.Bool
	finished atomic.Bool

	state VoiceState
	timer Timer

	ramp   dsp.ExpRamp
	fading bool
	gain   float32
}

func newVoice(note tone.NoteID, buf *tone.Buffer, fadeSamples int) *Voice {
	return &Voice{
		note:        note,
		buf:         buf,
		fadeSamples: fadeSamples,
		gain:        1,
	}
}

// Note is the key this voice plays.
func (v *Voice) Note() tone.NoteID { return v.note }

// Buffer is the tone being played.
func (v *Voice) Buffer() *tone.Buffer { return v.buf }

// Position is the number of frames rendered so far.
func (v *Voice) Position() int { return int(v.pos.Load()) }

// Stopped reports whether the voice was hard-stopped.
func (v *Voice) Stopped() bool { return v.stopped.Load() }

// Finished reports whether the buffer played to its end.
func (v *Voice) Finished() bool { return v.finished.Load() }

// Stop silences the voice at the next render block. Stopping a voice that
// already finished or was already stopped returns ErrAlreadyStopped.
func (v *Voice) Stop() error {
	if v.finished.Load() {
		v.stopped.Store(true)
		return ErrAlreadyStopped
	}
	if !v.stopped.CompareAndSwap(false, true) {
		return ErrAlreadyStopped
	}
	return nil
}

func (v *Voice) requestRelease() {
	v.release.Store(true)
}

// mixInto adds frames of this voice into the interleaved stereo dst.
// Render goroutine only.
func (v *Voice) mixInto(dst []float32, frames int) {
	if v.stopped.Load() || v.finished.Load() {
		return
	}
	if !v.fading && v.release.Load() {
		v.fading = true
		v.ramp = dsp.NewExpRamp(v.gain, FadeFloor, v.fadeSamples)
	}

	left := v.buf.Left()
	right := v.buf.Right()
	pos := int(v.pos.Load())
	for i := 0; i < frames; i++ {
		if pos >= len(left) {
			v.finished.Store(true)
			break
		}
		g := v.gain
		if v.fading {
			g = v.ramp.Next()
		}
		dst[i*2] += left[pos] * g
		dst[i*2+1] += right[pos] * g
		pos++
	}
	if v.fading {
		v.gain = v.ramp.Gain()
	}
	v.pos.Store(int64(pos))
}
