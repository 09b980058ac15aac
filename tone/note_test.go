package tone

import (
	"errors"
	"math"
	"testing"
)

func TestFrequencyA4IsExact(t *testing.T) {
	if got := Frequency(MustParseNote("A4")); got != 440.0 {
		t.Fatalf("A4 frequency: got=%v want=440", got)
	}
}

func TestFrequencyReferencePitches(t *testing.T) {
	tests := []struct {
		note string
		want float64
	}{
		{"C4", 261.6256},
		{"E4", 329.6276},
		{"A5", 880.0},
		{"C5", 523.2511},
		{"C6", 1046.5023},
		{"A#4", 466.1638},
	}
	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			got := Frequency(MustParseNote(tt.note))
			if math.Abs(got-tt.want) > 1e-3 {
				t.Fatalf("got=%.4f want=%.4f", got, tt.want)
			}
		})
	}
}

func TestFrequencyMonotonicOverKeyboard(t *testing.T) {
	keys := Keyboard()
	if len(keys) != NumKeys {
		t.Fatalf("keyboard size: got=%d want=%d", len(keys), NumKeys)
	}
	prev := 0.0
	for i, k := range keys {
		f := Frequency(k)
		if f <= prev {
			t.Fatalf("frequency not increasing at %d (%s): %v <= %v", i, k, f, prev)
		}
		prev = f
		if k.Index() != i {
			t.Fatalf("index mismatch for %s: got=%d want=%d", k, k.Index(), i)
		}
	}
	if keys[0] != MustParseNote("C4") || keys[len(keys)-1] != MustParseNote("C6") {
		t.Fatalf("unexpected range %s..%s", keys[0], keys[len(keys)-1])
	}
}

func TestFrequencyPanicsOutsideKeyboard(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for C#6")
		}
	}()
	Frequency(MustParseNote("C#6"))
}

func TestParseNote(t *testing.T) {
	good := map[string]NoteID{
		"C4":  {Pitch: 0, Octave: 4},
		"c#4": {Pitch: 1, Octave: 4},
		"B5":  {Pitch: 11, Octave: 5},
		" G5": {Pitch: 7, Octave: 5},
	}
	for in, want := range good {
		got, err := ParseNote(in)
		if err != nil {
			t.Fatalf("ParseNote(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseNote(%q): got=%+v want=%+v", in, got, want)
		}
	}
	for _, in := range []string{"", "H4", "C", "C#x", "#4"} {
		if _, err := ParseNote(in); !errors.Is(err, ErrInvalidNote) {
			t.Fatalf("ParseNote(%q): expected ErrInvalidNote, got %v", in, err)
		}
	}
}

func TestNoteStringRoundTrip(t *testing.T) {
	for _, k := range Keyboard() {
		back, err := ParseNote(k.String())
		if err != nil || back != k {
			t.Fatalf("round trip %s: got=%v err=%v", k, back, err)
		}
	}
}

func TestBlackKeys(t *testing.T) {
	black := 0
	for _, k := range Keyboard() {
		if k.IsBlack() {
			black++
		}
	}
	if black != 10 {
		t.Fatalf("black key count: got=%d want=10", black)
	}
}

func TestParseTimbre(t *testing.T) {
	for _, tb := range Timbres() {
		got, err := ParseTimbre(tb.String())
		if err != nil || got != tb {
			t.Fatalf("ParseTimbre(%q): got=%v err=%v", tb.String(), got, err)
		}
	}
	if got, err := ParseTimbre("MusicBox"); err != nil || got != MusicBox {
		t.Fatalf("expected musicbox alias, got=%v err=%v", got, err)
	}
	if _, err := ParseTimbre("harp"); !errors.Is(err, ErrUnknownTimbre) {
		t.Fatalf("expected ErrUnknownTimbre, got %v", err)
	}
}
