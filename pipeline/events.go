package pipeline

import (
	"github.com/violinlab/pitchcore/algorithms/pitch"
)

// Event is the stability pipeline's output union: NoteDetected,
// NoNoteDetected or NoteMatched. Sealed for exhaustive type switches.
type Event interface {
	When() float64

	sealed()
}

// NoteDetected is continuous feedback for every gated pitched reading.
type NoteDetected struct {
	Note        pitch.Note `json:"note"`
	Confidence  float64    `json:"confidence"`
	TimestampMs float64    `json:"timestamp_ms"`
}

// NoNoteDetected is emitted when a reading is filtered out by the RMS or
// confidence gates.
type NoNoteDetected struct {
	TimestampMs float64 `json:"timestamp_ms"`
}

// NoteMatched is emitted once per sustained match: the detected pitch has
// stayed enharmonically equal to the target, within tolerance, for the
// required hold time.
type NoteMatched struct {
	Note        pitch.Note `json:"note"`
	Target      Target     `json:"target"`
	TimestampMs float64    `json:"timestamp_ms"`
}

func (e NoteDetected) When() float64   { return e.TimestampMs }
func (e NoNoteDetected) When() float64 { return e.TimestampMs }
func (e NoteMatched) When() float64    { return e.TimestampMs }

func (NoteDetected) sealed()   {}
func (NoNoteDetected) sealed() {}
func (NoteMatched) sealed()    {}
