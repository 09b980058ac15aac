package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cwbudde/tonekeys/tone"
)

func TestWarmProgressIsMonotonicAndEndsAt100(t *testing.T) {
	c := NewCache(8000, tone.Piano, WithSynth(shortSynth), WithWorkers(4))
	got := drain(c.Warm(context.Background(), tone.Organ))

	if len(got) != tone.NumKeys {
		t.Fatalf("progress updates: got=%d want=%d", len(got), tone.NumKeys)
	}
	last := -1
	for i, p := range got {
		if p.Percent < last {
			t.Fatalf("progress went backwards at %d: %d after %d", i, p.Percent, last)
		}
		if p.Done != i+1 {
			t.Fatalf("done at %d: got=%d want=%d", i, p.Done, i+1)
		}
		last = p.Percent
	}
	if last != 100 {
		t.Fatalf("final percent: got=%d want=100", last)
	}
	st := c.State()
	if st.Warming || st.Percent() != 100 || st.Timbre != tone.Organ {
		t.Fatalf("state after warm: %+v", st)
	}
	if c.Len() != tone.NumKeys {
		t.Fatalf("cached buffers: got=%d want=%d", c.Len(), tone.NumKeys)
	}
	for _, n := range tone.Keyboard() {
		b, ok := c.Get(n)
		if !ok {
			t.Fatalf("%s missing after warm", n)
		}
		if b.Timbre() != tone.Organ {
			t.Fatalf("%s timbre: got=%v want=organ", n, b.Timbre())
		}
	}
}

func TestWarmPartialFailureStillCompletes(t *testing.T) {
	bad := tone.MustParseNote("C#4")
	synth := func(n tone.NoteID, tb tone.Timbre, sr int) (*tone.Buffer, error) {
		if n == bad {
			return nil, errors.New("boom")
		}
		return shortSynth(n, tb, sr)
	}
	c := NewCache(8000, tone.Piano, WithSynth(synth))
	got := drain(c.Warm(context.Background(), tone.Piano))

	final := got[len(got)-1]
	if final.Percent != 100 || final.Failed != 1 {
		t.Fatalf("final progress: %+v", final)
	}
	if _, ok := c.Get(bad); ok {
		t.Fatalf("%s should be absent", bad)
	}
	if c.Len() != tone.NumKeys-1 {
		t.Fatalf("cached buffers: got=%d want=%d", c.Len(), tone.NumKeys-1)
	}
}

func TestLoadRecoversNoteThatFailedDuringWarm(t *testing.T) {
	bad := tone.MustParseNote("F#5")
	var failures atomic.Int32
	synth := func(n tone.NoteID, tb tone.Timbre, sr int) (*tone.Buffer, error) {
		if n == bad && failures.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return shortSynth(n, tb, sr)
	}
	c := NewCache(8000, tone.Synth, WithSynth(synth), WithWorkers(3))
	drain(c.Warm(context.Background(), tone.Synth))
	if _, ok := c.Get(bad); ok {
		t.Fatalf("%s should be absent after failed warm", bad)
	}

	b, err := c.Load(bad)
	if err != nil {
		t.Fatalf("Load after failed warm: %v", err)
	}
	if b.Timbre() != tone.Synth {
		t.Fatalf("timbre: got=%v", b.Timbre())
	}
	if got, ok := c.Get(bad); !ok || got != b {
		t.Fatalf("on-demand buffer not stored")
	}
	if c.Len() != tone.NumKeys {
		t.Fatalf("cached buffers: got=%d want=%d", c.Len(), tone.NumKeys)
	}
}

func TestWarmSupersededRunReportsNothing(t *testing.T) {
	gate := make(chan struct{})
	synth := func(n tone.NoteID, tb tone.Timbre, sr int) (*tone.Buffer, error) {
		if tb == tone.Piano {
			<-gate
		}
		return shortSynth(n, tb, sr)
	}
	c := NewCache(8000, tone.Piano, WithSynth(synth), WithWorkers(2))

	first := c.Warm(context.Background(), tone.Piano)
	second := c.Warm(context.Background(), tone.Synth)

	got := drain(second)
	if got[len(got)-1].Percent != 100 {
		t.Fatalf("second run final percent: got=%d", got[len(got)-1].Percent)
	}
	close(gate)
	if stale := drain(first); len(stale) != 0 {
		t.Fatalf("superseded run emitted %d updates", len(stale))
	}

	if c.Timbre() != tone.Synth {
		t.Fatalf("timbre: got=%v want=synth", c.Timbre())
	}
	for _, n := range tone.Keyboard() {
		b, ok := c.Get(n)
		if !ok || b.Timbre() != tone.Synth {
			t.Fatalf("%s: ok=%v", n, ok)
		}
	}
	if st := c.State(); st.Warming || st.Percent() != 100 {
		t.Fatalf("state: %+v", st)
	}
}

func TestWarmCanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCache(8000, tone.Piano, WithSynth(shortSynth))
	if got := drain(c.Warm(ctx, tone.Piano)); len(got) != 0 {
		t.Fatalf("canceled run emitted %d updates", len(got))
	}
	if c.State().Warming {
		t.Fatalf("still warming after cancel")
	}
}

func TestLoadSynthesizesOnMiss(t *testing.T) {
	calls := 0
	synth := func(n tone.NoteID, tb tone.Timbre, sr int) (*tone.Buffer, error) {
		calls++
		return shortSynth(n, tb, sr)
	}
	c := NewCache(8000, tone.MusicBox, WithSynth(synth))
	n := tone.MustParseNote("E5")

	a, err := c.Load(n)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := c.Load(n)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a != b || calls != 1 {
		t.Fatalf("second Load should hit the cache: same=%v calls=%d", a == b, calls)
	}
	if a.Timbre() != tone.MusicBox {
		t.Fatalf("timbre: got=%v", a.Timbre())
	}
	if _, err := c.Load(tone.Note(0, 7)); !errors.Is(err, ErrUnsupportedNote) {
		t.Fatalf("unsupported note: got=%v", err)
	}
}

func TestInvalidateDropsBuffers(t *testing.T) {
	c := NewCache(8000, tone.Piano, WithSynth(shortSynth))
	drain(c.Warm(context.Background(), tone.Piano))
	c.Invalidate(tone.Organ)
	if c.Len() != 0 || c.Timbre() != tone.Organ {
		t.Fatalf("after invalidate: len=%d timbre=%v", c.Len(), c.Timbre())
	}
}

func BenchmarkWarmFullKeyboard(b *testing.B) {
	c := NewCache(22050, tone.Piano)
	for i := 0; i < b.N; i++ {
		drain(c.Warm(context.Background(), tone.Piano))
	}
}
