// Package tone maps keyboard notes to equal-temperament frequencies and
// renders fixed-length stereo tones with one of a closed set of additive
// harmonic recipes (piano, organ, synth, music box) under an ADSR envelope.
//
// Everything here is pure: Synthesize may be called concurrently for
// different notes.
package tone
