package tone

import (
	"fmt"
	"strings"
)

// Timbre selects the harmonic recipe used by Synthesize.
type Timbre int

const (
	Piano Timbre = iota
	Organ
	Synth
	MusicBox

	numTimbres
)

var timbreIDs = [numTimbres]string{"piano", "organ", "synth", "music-box"}

// Timbres lists every known timbre in display order.
func Timbres() []Timbre {
	return []Timbre{Piano, Organ, Synth, MusicBox}
}

// Valid reports whether t is one of the known timbres.
func (t Timbre) Valid() bool {
	return t >= 0 && t < numTimbres
}

func (t Timbre) String() string {
	if !t.Valid() {
		return fmt.Sprintf("timbre(%d)", int(t))
	}
	return timbreIDs[t]
}

// ParseTimbre accepts the ids "piano", "organ", "synth" and "music-box"
// (case-insensitive, "musicbox" also accepted).
func ParseTimbre(s string) (Timbre, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "musicbox" {
		v = "music-box"
	}
	for i, id := range timbreIDs {
		if id == v {
			return Timbre(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTimbre, s)
}

// MarshalText encodes the timbre id.
func (t Timbre) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTimbre, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a timbre id.
func (t *Timbre) UnmarshalText(b []byte) error {
	v, err := ParseTimbre(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
