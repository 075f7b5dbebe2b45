package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/violinlab/pitchcore/algorithms/pitch"
)

// ErrInvalidStabilityOptions classifies stability window configuration errors.
var ErrInvalidStabilityOptions = errors.New("invalid stability options")

const noTime = -1.0

// StabilityOptions configures target-note matching.
type StabilityOptions struct {
	ToleranceCents     float64 `json:"tolerance_cents"`      // Enter threshold on abs(cents)
	ExitToleranceCents float64 `json:"exit_tolerance_cents"` // Exit threshold; >= ToleranceCents
	RequiredHoldMs     float64 `json:"required_hold_ms"`     // Continuous match before NOTE_MATCHED
}

// DefaultStabilityOptions returns matching defaults: 25 cents to enter a
// match, 35 to leave it, half a second of hold.
func DefaultStabilityOptions() StabilityOptions {
	return StabilityOptions{
		ToleranceCents:     25.0,
		ExitToleranceCents: 35.0,
		RequiredHoldMs:     500.0,
	}
}

// Validate checks the option invariants.
func (o StabilityOptions) Validate() error {
	if o.ToleranceCents <= 0 {
		return fmt.Errorf("%w: tolerance %v must be > 0", ErrInvalidStabilityOptions, o.ToleranceCents)
	}
	if o.ExitToleranceCents < o.ToleranceCents {
		return fmt.Errorf("%w: exit tolerance %v must be >= enter tolerance %v",
			ErrInvalidStabilityOptions, o.ExitToleranceCents, o.ToleranceCents)
	}
	if o.RequiredHoldMs < 0 {
		return fmt.Errorf("%w: required hold %v must be >= 0", ErrInvalidStabilityOptions, o.RequiredHoldMs)
	}
	return nil
}

// Reading is one gated pitch observation fed to the stability window.
type Reading struct {
	Note        pitch.Note
	Confidence  float64
	TimestampMs float64
}

// IsMatch reports whether a detected note matches the target: exact MIDI
// number equality (octave matters) and absolute cents deviation strictly
// inside the tolerance.
func IsMatch(target Target, detected pitch.Note, toleranceCents float64) bool {
	midi, ok := target.MIDI()
	if !ok {
		return false
	}
	return detected.MIDI == midi && math.Abs(detected.Cents) < toleranceCents
}

// StabilityWindow answers "has the performer sustained the target note, in
// tune, for long enough". Separate from the segmenter: it is keyed off the
// caller-supplied target, not the segmenter's own note identity. Hold time
// is measured on reading timestamps, so irregular polling intervals do not
// skew it. Hysteresis uses the enter tolerance to begin a match and the
// wider exit tolerance to end one, preventing toggling at the boundary.
type StabilityWindow struct {
	opts     StabilityOptions
	selector TargetSelector

	holdSince  float64
	inMatch    bool
	emitted    bool
	targetMIDI int // last resolved target, -1 when none
}

// NewStabilityWindow creates a stability window with a validated
// configuration.
func NewStabilityWindow(opts StabilityOptions, selector TargetSelector) (*StabilityWindow, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if selector == nil {
		return nil, fmt.Errorf("%w: target selector is required", ErrInvalidStabilityOptions)
	}
	w := &StabilityWindow{opts: opts, selector: selector}
	w.Reset()
	return w, nil
}

// Reset clears the hold timer and match latch.
func (w *StabilityWindow) Reset() {
	w.holdSince = noTime
	w.inMatch = false
	w.emitted = false
	w.targetMIDI = -1
}

// Process consumes one reading. gated is false when the reading was
// filtered out by the RMS/confidence gates. Returns the events produced
// for this reading, in order.
func (w *StabilityWindow) Process(r Reading, gated bool) []Event {
	if !gated {
		w.clearMatch()
		return []Event{NoNoteDetected{TimestampMs: r.TimestampMs}}
	}

	events := []Event{NoteDetected{
		Note:        r.Note,
		Confidence:  r.Confidence,
		TimestampMs: r.TimestampMs,
	}}

	target, ok := w.selector()
	if !ok {
		w.clearMatch()
		w.targetMIDI = -1
		return events
	}

	midi, ok := target.MIDI()
	if !ok {
		w.clearMatch()
		w.targetMIDI = -1
		return events
	}
	if midi != w.targetMIDI {
		// Target moved under us; the hold starts over.
		w.clearMatch()
		w.targetMIDI = midi
	}

	tolerance := w.opts.ToleranceCents
	if w.inMatch {
		tolerance = w.opts.ExitToleranceCents
	}

	if !IsMatch(target, r.Note, tolerance) {
		w.clearMatch()
		return events
	}

	if !w.inMatch {
		w.inMatch = true
		w.holdSince = r.TimestampMs
	}
	if !w.emitted && r.TimestampMs-w.holdSince >= w.opts.RequiredHoldMs {
		w.emitted = true
		events = append(events, NoteMatched{
			Note:        r.Note,
			Target:      target,
			TimestampMs: r.TimestampMs,
		})
	}
	return events
}

func (w *StabilityWindow) clearMatch() {
	w.holdSince = noTime
	w.inMatch = false
	w.emitted = false
}
