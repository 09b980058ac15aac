package main

import "github.com/cwbudde/tonekeys/tone"

// Home-row piano layout: the lower octave on a..j with sharps on the row
// above, the upper octave continuing from k, and b for the closing C6.
var keyRows = []struct {
	keys   string
	octave int
}{
	{"awsedftgyhuj", 4},
	{"kolp;']\\zxcv", 5},
	{"b", 6},
}

var keyNotes = buildKeymap()

func buildKeymap() map[byte]tone.NoteID {
	m := make(map[byte]tone.NoteID, tone.NumKeys)
	for _, row := range keyRows {
		for i := 0; i < len(row.keys); i++ {
			m[row.keys[i]] = tone.Note(i, row.octave)
		}
	}
	return m
}

// noteForKey maps a typed byte to a keyboard note.
func noteForKey(b byte) (tone.NoteID, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	n, ok := keyNotes[b]
	return n, ok
}

// timbreForKey maps '1'..'4' to the instruments in listing order.
func timbreForKey(b byte) (tone.Timbre, bool) {
	all := tone.Timbres()
	i := int(b) - '1'
	if i < 0 || i >= len(all) {
		return 0, false
	}
	return all[i], true
}

// keyFor is the reverse lookup used by the on-screen legend.
func keyFor(n tone.NoteID) byte {
	for k, v := range keyNotes {
		if v == n {
			return k
		}
	}
	return '?'
}
