package pitch

import (
	"math"
	"testing"
)

func TestNoteFromFrequency(t *testing.T) {
	tests := []struct {
		freq       float64
		wantName   string
		wantOctave int
		wantMIDI   int
		wantCents  float64
		centsTol   float64
	}{
		{440.0, "A", 4, 69, 0, 1e-9},
		{261.626, "C", 4, 60, 0, 0.01},
		{196.0, "G", 3, 55, 0, 0.01},
		{442.0, "A", 4, 69, 7.85, 0.05},
		{659.255, "E", 5, 76, 0, 0.01},
	}

	for _, tc := range tests {
		note, ok := NoteFromFrequency(tc.freq)
		if !ok {
			t.Errorf("freq %v: not mapped", tc.freq)
			continue
		}
		if note.Name != tc.wantName || note.Octave != tc.wantOctave || note.MIDI != tc.wantMIDI {
			t.Errorf("freq %v: got %s%d (midi %d), want %s%d (midi %d)",
				tc.freq, note.Name, note.Octave, note.MIDI, tc.wantName, tc.wantOctave, tc.wantMIDI)
		}
		if math.Abs(note.Cents-tc.wantCents) > tc.centsTol {
			t.Errorf("freq %v: cents %v, want %v +/- %v", tc.freq, note.Cents, tc.wantCents, tc.centsTol)
		}
	}
}

func TestNoteFromFrequency_Invalid(t *testing.T) {
	for _, freq := range []float64{0, -440, math.NaN(), math.Inf(1), 1e9} {
		if _, ok := NoteFromFrequency(freq); ok {
			t.Errorf("freq %v: mapped, want rejection", freq)
		}
	}
}

func TestNoteString(t *testing.T) {
	note, ok := NoteFromFrequency(466.164) // A#4 / Bb4
	if !ok {
		t.Fatal("466.164 not mapped")
	}
	if got := note.String(); got != "A#4" {
		t.Errorf("String: got %q, want \"A#4\"", got)
	}
}

func TestMIDIToFrequency(t *testing.T) {
	if got := MIDIToFrequency(69); math.Abs(got-440) > 1e-9 {
		t.Errorf("MIDI 69: got %v, want 440", got)
	}
	if got := MIDIToFrequency(57); math.Abs(got-220) > 1e-9 {
		t.Errorf("MIDI 57: got %v, want 220", got)
	}
}
