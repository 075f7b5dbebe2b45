package segment

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions classifies segmenter configuration errors.
var ErrInvalidOptions = errors.New("invalid segmenter options")

// Options configures the note segmenter. All durations are in
// milliseconds of frame-timestamp time, never wall clock.
type Options struct {
	MinRMS        float64 `json:"min_rms"`         // RMS above this counts as signal
	MaxRMSSilence float64 `json:"max_rms_silence"` // RMS below this counts as true silence; must be < MinRMS
	MinConfidence float64 `json:"min_confidence"`  // Pitch readings at or below this are ignored

	OnsetDebounceMs         float64 `json:"onset_debounce_ms"`          // Continuous signal required before ONSET
	NoisyGapResetMs         float64 `json:"noisy_gap_reset_ms"`         // Signal gap that clears onset progress
	NoteChangeDebounceMs    float64 `json:"note_change_debounce_ms"`    // Sustained new pitch required before NOTE_CHANGE
	PitchDropoutToleranceMs float64 `json:"pitch_dropout_tolerance_ms"` // Confidence-only loss tolerated before the offset timer starts
	OffsetDebounceMs        float64 `json:"offset_debounce_ms"`         // Continuous offset condition required before OFFSET

	MaxGapFrames  int `json:"max_gap_frames"`  // Gap buffer cap, oldest dropped first
	MaxNoteFrames int `json:"max_note_frames"` // Note buffer cap, appending stops at the cap
}

// DefaultOptions returns segmenter defaults tuned for bowed strings at a
// ~60Hz analysis cadence.
func DefaultOptions() Options {
	return Options{
		MinRMS:                  0.015,
		MaxRMSSilence:           0.008,
		MinConfidence:           0.8,
		OnsetDebounceMs:         50.0,
		NoisyGapResetMs:         50.0,
		NoteChangeDebounceMs:    60.0,
		PitchDropoutToleranceMs: 100.0,
		OffsetDebounceMs:        150.0,
		MaxGapFrames:            100,
		MaxNoteFrames:           2000,
	}
}

// Validate checks the option invariants. A segmenter is never constructed
// from options that fail validation.
func (o Options) Validate() error {
	if o.MaxRMSSilence >= o.MinRMS {
		return fmt.Errorf("%w: max rms silence (%v) must be below min rms (%v)",
			ErrInvalidOptions, o.MaxRMSSilence, o.MinRMS)
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence %v must be in [0, 1]", ErrInvalidOptions, o.MinConfidence)
	}
	durations := []struct {
		name  string
		value float64
	}{
		{"onset debounce", o.OnsetDebounceMs},
		{"noisy gap reset", o.NoisyGapResetMs},
		{"note change debounce", o.NoteChangeDebounceMs},
		{"pitch dropout tolerance", o.PitchDropoutToleranceMs},
		{"offset debounce", o.OffsetDebounceMs},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%w: %s duration %v must be >= 0", ErrInvalidOptions, d.name, d.value)
		}
	}
	if o.MaxGapFrames <= 0 {
		return fmt.Errorf("%w: max gap frames %d must be > 0", ErrInvalidOptions, o.MaxGapFrames)
	}
	if o.MaxNoteFrames <= 0 {
		return fmt.Errorf("%w: max note frames %d must be > 0", ErrInvalidOptions, o.MaxNoteFrames)
	}
	return nil
}
