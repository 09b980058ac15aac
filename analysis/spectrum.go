// Package analysis measures rendered tones: harmonic content, band energy,
// level and decay.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	minWindow = 256
	maxWindow = 1 << 16
)

// ErrTooShort is returned when a signal has fewer samples than one analysis
// window.
var ErrTooShort = errors.New("signal too short for analysis")

// spectrum is a Hann-windowed magnitude spectrum, scaled so a full-scale
// sine at a bin center reads ~1.
type spectrum struct {
	mag   []float64
	binHz float64
}

func windowSize(n int) int {
	w := minWindow
	for w*2 <= n && w*2 <= maxWindow {
		w *= 2
	}
	return w
}

func analyze(samples []float32, sampleRate int) (*spectrum, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: sample rate %d", sampleRate)
	}
	if len(samples) < minWindow {
		return nil, fmt.Errorf("%w: %d samples", ErrTooShort, len(samples))
	}
	n := windowSize(len(samples))
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	buf := make([]float64, n)
	var wsum float64
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		buf[i] = float64(samples[i]) * w
		wsum += w
	}
	spec := make([]complex128, n/2+1)
	plan.Forward(spec, buf)

	mag := make([]float64, len(spec))
	for k, c := range spec {
		mag[k] = 2 * cmplx.Abs(c) / wsum
	}
	return &spectrum{mag: mag, binHz: float64(sampleRate) / float64(n)}, nil
}

// peakNear is the largest magnitude within ±tol Hz of hz.
func (s *spectrum) peakNear(hz, tol float64) float64 {
	lo := int(math.Floor((hz - tol) / s.binHz))
	hi := int(math.Ceil((hz + tol) / s.binHz))
	if lo < 1 {
		lo = 1
	}
	if hi > len(s.mag)-1 {
		hi = len(s.mag) - 1
	}
	var best float64
	for k := lo; k <= hi; k++ {
		if s.mag[k] > best {
			best = s.mag[k]
		}
	}
	return best
}

// HarmonicEnergy returns the spectral peak amplitude near each of the first
// harmonics multiples of f0. Harmonics above Nyquist read 0. The analysis
// window is the largest power of two that fits, taken from the start of
// samples.
func HarmonicEnergy(samples []float32, sampleRate int, f0 float64, harmonics int) ([]float64, error) {
	if !(f0 > 0) || harmonics < 1 {
		return nil, fmt.Errorf("analysis: f0=%v harmonics=%d", f0, harmonics)
	}
	s, err := analyze(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	nyquist := float64(sampleRate) / 2
	tol := math.Max(0.03*f0, 2*s.binHz)
	out := make([]float64, harmonics)
	for h := 1; h <= harmonics; h++ {
		hz := float64(h) * f0
		if hz >= nyquist {
			continue
		}
		out[h-1] = s.peakNear(hz, tol)
	}
	return out, nil
}

// BandEnergy is the sum of squared spectral amplitudes between lo and hi Hz.
func BandEnergy(samples []float32, sampleRate int, lo, hi float64) (float64, error) {
	if lo < 0 || hi <= lo {
		return 0, fmt.Errorf("analysis: band [%v, %v]", lo, hi)
	}
	s, err := analyze(samples, sampleRate)
	if err != nil {
		return 0, err
	}
	var sum float64
	for k := 1; k < len(s.mag); k++ {
		hz := float64(k) * s.binHz
		if hz < lo || hz > hi {
			continue
		}
		sum += s.mag[k] * s.mag[k]
	}
	return sum, nil
}
