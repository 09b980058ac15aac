package dsp

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// ExpRamp is an exponential gain ramp stepped once per sample (no heap
// allocations in Next). It reaches its target after the given number of
// steps and holds it afterwards.
type ExpRamp struct {
	gain   float32
	target float32
	ratio  float32
	left   int
}

// NewExpRamp ramps from -> to over steps samples. Both levels must be
// positive; a non-positive level is clamped to a tiny floor since an
// exponential curve cannot reach zero.
func NewExpRamp(from, to float32, steps int) ExpRamp {
	const floor = 1e-6
	if from < floor {
		from = floor
	}
	if to < floor {
		to = floor
	}
	if steps < 1 {
		return ExpRamp{gain: to, target: to, ratio: 1}
	}
	lnRatio := float32(math.Log(float64(to/from))) / float32(steps)
	return ExpRamp{
		gain:   from,
		target: to,
		ratio:  approx.FastExp(lnRatio),
		left:   steps,
	}
}

// Next returns the gain for the current sample and advances the ramp.
func (r *ExpRamp) Next() float32 {
	g := r.gain
	if r.left > 0 {
		r.left--
		if r.left == 0 {
			r.gain = r.target
		} else {
			r.gain *= r.ratio
		}
	}
	return g
}

// Gain is the value Next will return without advancing.
func (r *ExpRamp) Gain() float32 { return r.gain }

// Done reports whether the target level has been reached.
func (r *ExpRamp) Done() bool { return r.left == 0 }

// FlushDenormals converts denormal numbers to zero to avoid performance issues.
func FlushDenormals(x float32) float32 {
	const minNormal32 = 1.1754944e-38
	if x > -minNormal32 && x < minNormal32 {
		return 0
	}
	return float32(dspcore.FlushDenormals(float64(x)))
}

// Limit hard-clips x into [-1, 1].
func Limit(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// DurationToSamples converts seconds to a whole number of samples, at least 1
// for any positive duration.
func DurationToSamples(seconds float64, sampleRate int) int {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	n := int(math.Round(seconds * float64(sampleRate)))
	if n < 1 {
		n = 1
	}
	return n
}
