package pitch

import (
	"fmt"
	"math"
)

// Pitch class names in chromatic order (0=C, 1=C#, ..., 11=B)
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	referenceFrequency = 440.0 // A4
	referenceMIDI      = 69
)

// Note is a measured frequency mapped onto the nearest equal-tempered note.
type Note struct {
	Name      string  `json:"name"`      // Pitch class name, e.g. "A#"
	Octave    int     `json:"octave"`    // Scientific pitch octave (A4 = octave 4)
	MIDI      int     `json:"midi"`      // MIDI note number (0-127)
	Frequency float64 `json:"frequency"` // Equal-tempered frequency of the note itself (Hz)
	Cents     float64 `json:"cents"`     // Signed deviation of the measurement, roughly [-50, 50]
}

// String returns the conventional note label, e.g. "G3" or "C#5".
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// NoteFromFrequency maps a measured frequency to the nearest equal-tempered
// note relative to A4=440Hz. Returns false for non-positive or non-finite
// frequencies and for frequencies outside the MIDI range.
func NoteFromFrequency(freq float64) (Note, bool) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return Note{}, false
	}

	semitones := 12.0 * math.Log2(freq/referenceFrequency)
	rounded := math.Round(semitones)

	midi := referenceMIDI + int(rounded)
	if midi < 0 || midi > 127 {
		return Note{}, false
	}

	return Note{
		Name:      noteNames[midi%12],
		Octave:    midi/12 - 1,
		MIDI:      midi,
		Frequency: MIDIToFrequency(midi),
		Cents:     100.0 * (semitones - rounded),
	}, true
}

// MIDIToFrequency returns the equal-tempered frequency of a MIDI note number.
func MIDIToFrequency(midi int) float64 {
	return referenceFrequency * math.Pow(2.0, float64(midi-referenceMIDI)/12.0)
}
