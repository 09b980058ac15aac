// Package wavio reads and writes stereo WAV files and converts sample rates
// for offline renders.
package wavio

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// WriteStereo writes interleaved stereo float32 samples as 16-bit PCM.
// Parent directories are created as needed.
func WriteStereo(path string, interleaved []float32, sampleRate int) error {
	if len(interleaved)%2 != 0 {
		return fmt.Errorf("odd sample count %d for stereo data", len(interleaved))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           interleaved,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// ReadStereo decodes a WAV file into interleaved stereo float32 in [-1, 1].
// Mono files are duplicated into both channels.
func ReadStereo(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		l := buf.Data[i*ch]
		r := l
		if ch > 1 {
			r = buf.Data[i*ch+1]
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return out, buf.Format.SampleRate, nil
}

// Deinterleave splits stereo samples into float64 channels.
func Deinterleave(st []float32) (left, right []float64) {
	n := len(st) / 2
	left = make([]float64, n)
	right = make([]float64, n)
	for i := 0; i < n; i++ {
		left[i] = float64(st[i*2])
		right[i] = float64(st[i*2+1])
	}
	return left, right
}

// ResampleIfNeeded converts one channel between rates.
func ResampleIfNeeded(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// ResampleStereo converts interleaved stereo between rates, each channel
// through its own resampler.
func ResampleStereo(st []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate == toRate {
		return st, nil
	}
	l, r := Deinterleave(st)
	rl, err := ResampleIfNeeded(l, fromRate, toRate)
	if err != nil {
		return nil, fmt.Errorf("resample left: %w", err)
	}
	rr, err := ResampleIfNeeded(r, fromRate, toRate)
	if err != nil {
		return nil, fmt.Errorf("resample right: %w", err)
	}
	n := len(rl)
	if len(rr) < n {
		n = len(rr)
	}
	out := make([]float32, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = float32(rl[i])
		out[i*2+1] = float32(rr[i])
	}
	return out, nil
}
