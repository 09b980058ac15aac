package tone

import (
	"fmt"
	"math"
)

// Envelope timings in seconds. They are absolute, not scaled with duration.
const (
	AttackTime   = 0.01
	DecayTime    = 0.1
	SustainLevel = 0.7
	ReleaseTime  = 1.5

	// ToneDuration is the fixed length of every engine buffer.
	ToneDuration = 2.5

	// stereoSpread is the maximum per-channel attenuation of the static pan.
	stereoSpread = 0.2
)

// Envelope returns the ADSR amplitude at time t for a tone of the given
// duration. Phases are tested in attack, decay, sustain, release order.
func Envelope(t, duration float64) float64 {
	switch {
	case t < AttackTime:
		return t / AttackTime
	case t < AttackTime+DecayTime:
		return 1 - (1-SustainLevel)*((t-AttackTime)/DecayTime)
	case t < duration-ReleaseTime:
		return SustainLevel
	default:
		return SustainLevel * (1 - (t-(duration-ReleaseTime))/ReleaseTime)
	}
}

// recipe computes the raw, un-enveloped sample for angular phase wt
// (2*pi*f*t) at time t.
type recipe func(wt, t float64) float64

func pianoRecipe(wt, t float64) float64 {
	s := math.Sin(wt)
	s += 0.5 * math.Sin(2*wt) * math.Exp(-2*t)
	s += 0.25 * math.Sin(3*wt) * math.Exp(-3*t)
	return s * math.Exp(-2*t)
}

func organRecipe(wt, _ float64) float64 {
	s := math.Sin(wt)
	s += 0.5 * math.Sin(2*wt)
	s += 0.33 * math.Sin(3*wt)
	s += 0.25 * math.Sin(4*wt)
	return s
}

func synthRecipe(wt, t float64) float64 {
	var s float64
	for k := 1; k <= 10; k++ {
		s += math.Sin(float64(k)*wt) / float64(k)
	}
	return s * (1 - math.Exp(-3*t))
}

func musicBoxRecipe(wt, t float64) float64 {
	s := math.Sin(wt)
	s += 0.1 * math.Sin(2.01*wt)
	return s * math.Exp(-5*t)
}

func fallbackRecipe(wt, t float64) float64 {
	return math.Sin(wt) * math.Exp(-2*t)
}

func recipeFor(t Timbre) recipe {
	switch t {
	case Piano:
		return pianoRecipe
	case Organ:
		return organRecipe
	case Synth:
		return synthRecipe
	case MusicBox:
		return musicBoxRecipe
	default:
		return fallbackRecipe
	}
}

// StereoGains returns the static left/right gains for a fundamental.
func StereoGains(freq float64) (left, right float64) {
	off := math.Sin(freq / 100)
	left = 1 - math.Max(0, off)*stereoSpread
	right = 1 - math.Max(0, -off)*stereoSpread
	return left, right
}

// Synthesize renders a two-channel tone buffer. It is a pure function of
// its arguments and safe to call from many goroutines.
func Synthesize(freq float64, timbre Timbre, sampleRate int, duration float64) (*Buffer, error) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return nil, fmt.Errorf("%w: frequency %v", ErrInvalidParams, freq)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidParams, sampleRate)
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration %v", ErrInvalidParams, duration)
	}

	frames := int(float64(sampleRate) * duration)
	left := make([]float32, frames)
	right := make([]float32, frames)

	gen := recipeFor(timbre)
	gl, gr := StereoGains(freq)
	sr := float64(sampleRate)
	w := 2 * math.Pi * freq
	for i := 0; i < frames; i++ {
		t := float64(i) / sr
		x := gen(w*t, t) * Envelope(t, duration)
		left[i] = float32(x * gl)
		right[i] = float32(x * gr)
	}

	return &Buffer{
		left:       left,
		right:      right,
		sampleRate: sampleRate,
		freq:       freq,
		timbre:     timbre,
	}, nil
}

// SynthesizeNote renders the fixed-length engine buffer for a keyboard note.
func SynthesizeNote(n NoteID, timbre Timbre, sampleRate int) (*Buffer, error) {
	if !n.Supported() {
		return nil, fmt.Errorf("%w: %s outside keyboard", ErrInvalidNote, n)
	}
	b, err := Synthesize(Frequency(n), timbre, sampleRate, ToneDuration)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", n, err)
	}
	b.note = n
	b.hasNote = true
	return b, nil
}
