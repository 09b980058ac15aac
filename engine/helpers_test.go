package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/tonekeys/tone"
)

// shortSynth renders 50 ms tones so warm runs stay fast.
func shortSynth(n tone.NoteID, t tone.Timbre, sr int) (*tone.Buffer, error) {
	return tone.Synthesize(n.Frequency(), t, sr, 0.05)
}

func constBuffer(t *testing.T, frames int, v float32) *tone.Buffer {
	t.Helper()
	l := make([]float32, frames)
	r := make([]float32, frames)
	for i := range l {
		l[i] = v
		r[i] = v
	}
	b, err := tone.NewBuffer(l, r, 1000)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	return b
}

func drain(ch <-chan Progress) []Progress {
	var out []Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}

type fakeDevice struct {
	mu         sync.Mutex
	openErr    error
	runErr     error
	opens      int
	closes     int
	sampleRate int
	src        Source
}

func (d *fakeDevice) Open(_ context.Context, sampleRate int, src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opens++
	d.sampleRate = sampleRate
	d.src = src
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDevice) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

func (d *fakeDevice) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runErr = err
}

var errNoDevice = errors.New("no output device")

func waitTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
