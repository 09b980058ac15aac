package tone

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pitch class names, sharps only.
var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	// A4Freq is the equal-temperament reference pitch.
	A4Freq = 440.0

	// LowOctave is the octave of the lowest keyboard key.
	LowOctave = 4
	// Octaves is the number of full octaves on the keyboard; one extra C
	// closes the range.
	Octaves = 2
	// NumKeys is the number of supported notes.
	NumKeys = Octaves*12 + 1

	a4Semitone = 4*12 + 9
)

// NoteID identifies a key by pitch class (0 = C .. 11 = B) and octave.
type NoteID struct {
	Pitch  int
	Octave int
}

// Note builds a NoteID from a pitch class and octave.
func Note(pitch, octave int) NoteID {
	return NoteID{Pitch: pitch, Octave: octave}
}

// ParseNote parses names like "C4", "F#5" or "a#4".
func ParseNote(s string) (NoteID, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return NoteID{}, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}
	split := 1
	if len(s) > 2 && s[1] == '#' {
		split = 2
	}
	name := strings.ToUpper(s[:split])
	pitch := -1
	for i, n := range pitchNames {
		if n == name {
			pitch = i
			break
		}
	}
	if pitch < 0 {
		return NoteID{}, fmt.Errorf("%w: unknown pitch %q", ErrInvalidNote, s)
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return NoteID{}, fmt.Errorf("%w: bad octave in %q", ErrInvalidNote, s)
	}
	return NoteID{Pitch: pitch, Octave: octave}, nil
}

// MustParseNote is ParseNote for literals; it panics on malformed input.
func MustParseNote(s string) NoteID {
	n, err := ParseNote(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n NoteID) String() string {
	if n.Pitch < 0 || n.Pitch > 11 {
		return fmt.Sprintf("?%d", n.Octave)
	}
	return pitchNames[n.Pitch] + strconv.Itoa(n.Octave)
}

// Semitone is the absolute semitone number (octave*12 + pitch).
func (n NoteID) Semitone() int {
	return n.Octave*12 + n.Pitch
}

// IsBlack reports whether the key is a sharp.
func (n NoteID) IsBlack() bool {
	switch n.Pitch {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// Supported reports whether the note lies on the keyboard.
func (n NoteID) Supported() bool {
	if n.Pitch < 0 || n.Pitch > 11 {
		return false
	}
	idx := n.Semitone() - LowOctave*12
	return idx >= 0 && idx < NumKeys
}

// Index is the key position on the keyboard, 0 for the lowest C.
// It panics for unsupported notes.
func (n NoteID) Index() int {
	if !n.Supported() {
		panic(fmt.Sprintf("tone: note %s outside keyboard", n))
	}
	return n.Semitone() - LowOctave*12
}

// Frequency is shorthand for Frequency(n).
func (n NoteID) Frequency() float64 {
	return Frequency(n)
}

// Frequency maps a supported note to its equal-temperament fundamental.
// An unsupported note is a caller bug and panics.
func Frequency(n NoteID) float64 {
	if !n.Supported() {
		panic(fmt.Sprintf("tone: frequency of unsupported note %s", n))
	}
	semis := n.Semitone() - a4Semitone
	if semis == 0 {
		return A4Freq
	}
	return A4Freq * math.Pow(2, float64(semis)/12.0)
}

var keyboard = func() []NoteID {
	keys := make([]NoteID, 0, NumKeys)
	for i := 0; i < NumKeys; i++ {
		s := LowOctave*12 + i
		keys = append(keys, NoteID{Pitch: s % 12, Octave: s / 12})
	}
	return keys
}()

// Keyboard returns every supported note, low to high.
func Keyboard() []NoteID {
	out := make([]NoteID, len(keyboard))
	copy(out, keyboard)
	return out
}

// KeyAt returns the note at keyboard index i.
func KeyAt(i int) NoteID {
	return keyboard[i]
}
