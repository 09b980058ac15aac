package tone

import (
	"errors"
	"math"
	"testing"
)

const testRate = 8000

func dftBinMagnitude(samples []float32, k int) float64 {
	n := len(samples)
	var re, im float64
	for i, s := range samples {
		phase := -2 * math.Pi * float64(k) * float64(i) / float64(n)
		re += float64(s) * math.Cos(phase)
		im += float64(s) * math.Sin(phase)
	}
	return math.Hypot(re, im) / float64(n)
}

// magnitudeAt evaluates the DFT at the bin nearest hz.
func magnitudeAt(samples []float32, sampleRate int, hz float64) float64 {
	k := int(math.Round(hz * float64(len(samples)) / float64(sampleRate)))
	return dftBinMagnitude(samples, k)
}

func TestEnvelopePhases(t *testing.T) {
	const d = ToneDuration
	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.005, 0.5},
		{0.01, 1},
		{0.06, 0.85},
		{0.11, 0.7},
		{0.5, 0.7},
		{1.0, 0.7},
		{1.75, 0.35},
	}
	for _, tt := range tests {
		got := Envelope(tt.t, d)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("Envelope(%v): got=%v want=%v", tt.t, got, tt.want)
		}
	}
	if end := Envelope(d-1e-6, d); end > 1e-5 || end < 0 {
		t.Fatalf("envelope should reach ~0 at end, got %v", end)
	}
}

func TestSynthesizeIsBitIdentical(t *testing.T) {
	for _, tb := range append(Timbres(), Timbre(42)) {
		t.Run(tb.String(), func(t *testing.T) {
			a, err := Synthesize(329.63, tb, testRate, 0.5)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			b, err := Synthesize(329.63, tb, testRate, 0.5)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			if !a.Equal(b) {
				t.Fatalf("buffers differ between identical calls")
			}
		})
	}
}

func TestSynthesizeLengthAndTags(t *testing.T) {
	b, err := SynthesizeNote(MustParseNote("A4"), Organ, testRate)
	if err != nil {
		t.Fatalf("SynthesizeNote: %v", err)
	}
	if want := int(testRate * ToneDuration); b.Frames() != want || len(b.Right()) != want {
		t.Fatalf("frames: got=%d want=%d", b.Frames(), want)
	}
	if b.Timbre() != Organ || b.Frequency() != 440 || b.SampleRate() != testRate {
		t.Fatalf("unexpected tags: timbre=%v f=%v sr=%d", b.Timbre(), b.Frequency(), b.SampleRate())
	}
	if n, ok := b.Note(); !ok || n != MustParseNote("A4") {
		t.Fatalf("note tag: got=%v ok=%v", n, ok)
	}
	if math.Abs(b.Duration()-ToneDuration) > 1e-9 {
		t.Fatalf("duration: got=%v", b.Duration())
	}
}

func TestSynthesizeRejectsBadParams(t *testing.T) {
	cases := []struct {
		f  float64
		sr int
		d  float64
	}{
		{0, testRate, 1},
		{-1, testRate, 1},
		{math.NaN(), testRate, 1},
		{440, 0, 1},
		{440, testRate, 0},
		{440, testRate, math.Inf(1)},
	}
	for i, c := range cases {
		if _, err := Synthesize(c.f, Piano, c.sr, c.d); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("case %d: expected ErrInvalidParams, got %v", i, err)
		}
	}
	if _, err := SynthesizeNote(MustParseNote("D6"), Piano, testRate); !errors.Is(err, ErrInvalidNote) {
		t.Fatalf("expected ErrInvalidNote for D6, got %v", err)
	}
}

func TestStereoSpread(t *testing.T) {
	for _, k := range Keyboard() {
		f := Frequency(k)
		b, err := Synthesize(f, Organ, testRate, 0.3)
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		off := math.Sin(f / 100)
		gl, gr := StereoGains(f)
		if off > 0 && (gr != 1 || math.Abs(gl-(1-0.2*off)) > 1e-12) {
			t.Fatalf("%s: positive offset gains wrong: l=%v r=%v", k, gl, gr)
		}
		if off < 0 && (gl != 1 || math.Abs(gr-(1+0.2*off)) > 1e-12) {
			t.Fatalf("%s: negative offset gains wrong: l=%v r=%v", k, gl, gr)
		}
		i := testRate / 10
		want := b.Left()[i] / float32(gl) * float32(gr)
		if math.Abs(float64(want-b.Right()[i])) > 1e-5 {
			t.Fatalf("%s: right channel not a scaled left: got=%v want=%v", k, b.Right()[i], want)
		}
	}
}

func TestOrganHasFourHarmonics(t *testing.T) {
	f := Frequency(MustParseNote("C4"))
	b, err := Synthesize(f, Organ, testRate, ToneDuration)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// Sustain segment only, an integer number of samples around 0.2 s..0.9 s.
	seg := b.Mono()[testRate/5 : testRate/5+testRate*7/10]
	fund := magnitudeAt(seg, testRate, f)
	for k, weight := range []float64{1, 0.5, 0.33, 0.25} {
		got := magnitudeAt(seg, testRate, f*float64(k+1))
		if got < fund*weight*0.5 {
			t.Fatalf("harmonic %d too weak: got=%.5f fundamental=%.5f", k+1, got, fund)
		}
	}
	if fifth := magnitudeAt(seg, testRate, f*5); fifth > fund*0.05 {
		t.Fatalf("unexpected 5th harmonic energy %.5f", fifth)
	}
}

func TestTimbreDecayShapes(t *testing.T) {
	f := 440.0
	rms := func(x []float32) float64 {
		var s float64
		for _, v := range x {
			s += float64(v) * float64(v)
		}
		return math.Sqrt(s / float64(len(x)))
	}
	window := func(b *Buffer, from float64) float64 {
		i := int(from * testRate)
		return rms(b.Left()[i : i+testRate/10])
	}
	for _, tc := range []struct {
		tb       Timbre
		minRatio float64
		maxRatio float64
	}{
		{Organ, 0.9, 1.1},
		{Piano, 0.0, 0.5},
		{MusicBox, 0.0, 0.2},
		{Synth, 1.0, 10},
	} {
		t.Run(tc.tb.String(), func(t *testing.T) {
			b, err := Synthesize(f, tc.tb, testRate, ToneDuration)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			early := window(b, 0.15)
			late := window(b, 0.6)
			ratio := late / early
			if ratio < tc.minRatio || ratio > tc.maxRatio {
				t.Fatalf("late/early RMS ratio %.3f outside [%.2f, %.2f]", ratio, tc.minRatio, tc.maxRatio)
			}
		})
	}
}

func TestUnknownTimbreFallsBackToDecayedSine(t *testing.T) {
	b, err := Synthesize(440, Timbre(99), testRate, 1)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	gl, _ := StereoGains(440)
	for _, i := range []int{17, 400, 3000} {
		tt := float64(i) / testRate
		want := math.Sin(2*math.Pi*440*tt) * math.Exp(-2*tt) * Envelope(tt, 1) * gl
		if math.Abs(float64(b.Left()[i])-want) > 1e-6 {
			t.Fatalf("sample %d: got=%v want=%v", i, b.Left()[i], want)
		}
	}
}

func BenchmarkSynthesizePiano(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Synthesize(261.63, Piano, 48000, ToneDuration)
	}
}

func BenchmarkSynthesizeSynth(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Synthesize(261.63, Synth, 48000, ToneDuration)
	}
}
