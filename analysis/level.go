package analysis

import "math"

// RMS of samples; 0 for an empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak absolute sample value.
func Peak(samples []float32) float64 {
	var p float64
	for _, v := range samples {
		if a := math.Abs(float64(v)); a > p {
			p = a
		}
	}
	return p
}

// Envelope is the RMS level of consecutive frame-sized blocks, advanced by
// hop samples.
func Envelope(samples []float32, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(samples) < frame {
		return nil
	}
	n := 1 + (len(samples)-frame)/hop
	out := make([]float64, n)
	for i := range out {
		start := i * hop
		out[i] = RMS(samples[start : start+frame])
	}
	return out
}

// LinToDB converts an amplitude to decibels, floored at -240 dB.
func LinToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}

// DecayRate fits a line to the level in dB after the envelope peak and
// returns its slope in dB per second (negative for a decaying tone). The fit
// stops 60 dB below the peak. It returns NaN when too little of the tail is
// available.
func DecayRate(samples []float32, sampleRate int) float64 {
	const frame, hop = 256, 128
	if sampleRate <= 0 {
		return math.NaN()
	}
	env := Envelope(samples, frame, hop)
	if len(env) < 8 {
		return math.NaN()
	}
	hopSec := float64(hop) / float64(sampleRate)

	peak := math.Inf(-1)
	peakIdx := 0
	for i, v := range env {
		if db := LinToDB(v); db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	end := len(env)
	for i := start; i < len(env); i++ {
		if LinToDB(env[i]) < peak-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := LinToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}
