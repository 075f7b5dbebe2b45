package pipeline

import (
	"github.com/violinlab/pitchcore/algorithms/pitch"
)

// Semitone offsets of the natural pitch steps within an octave.
var stepSemitones = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// Target names the note the performer is expected to play, as pitch step
// plus accidental plus octave (e.g. {Step: "G", Alter: 0, Octave: 3} for
// the open G string).
type Target struct {
	Step   string `json:"step"`   // "A" through "G"
	Alter  int    `json:"alter"`  // -1 flat, 0 natural, +1 sharp
	Octave int    `json:"octave"` // Scientific pitch octave
}

// MIDI resolves the target to a MIDI note number. Returns false for an
// unknown step or a result outside the MIDI range.
func (t Target) MIDI() (int, bool) {
	semis, ok := stepSemitones[t.Step]
	if !ok {
		return 0, false
	}
	midi := (t.Octave+1)*12 + semis + t.Alter
	if midi < 0 || midi > 127 {
		return 0, false
	}
	return midi, true
}

// Frequency returns the target's equal-tempered frequency, or 0 for an
// unresolvable target.
func (t Target) Frequency() float64 {
	midi, ok := t.MIDI()
	if !ok {
		return 0
	}
	return pitch.MIDIToFrequency(midi)
}

// TargetSelector returns the target note for the caller's current
// position, or false when there is none (e.g. between exercises). Queried
// on every frame, so selection can change under a running pipeline.
type TargetSelector func() (Target, bool)
