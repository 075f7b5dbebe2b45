package segment

// Frame is one analysis instant: the estimator's reading combined with the
// buffer amplitude at a capture timestamp. A frame is pitched iff the
// estimator found a fundamental and a note name was derived from it; an
// unpitched frame carries an empty NoteName.
type Frame struct {
	TimestampMs float64 `json:"timestamp_ms"` // Monotonic capture time
	PitchHz     float64 `json:"pitch_hz"`     // 0 when no fundamental found
	Cents       float64 `json:"cents"`        // Deviation from nearest note, roughly [-50, 50]
	RMS         float64 `json:"rms"`          // Signal amplitude, >= 0
	Confidence  float64 `json:"confidence"`   // Estimator confidence, 0-1
	NoteName    string  `json:"note_name,omitempty"`
}

// Pitched reports whether the frame carries a pitched reading.
func (f Frame) Pitched() bool {
	return f.PitchHz > 0 && f.NoteName != ""
}

// NoteSegment is the aggregated record of one finished note: every frame
// that belonged to it, in arrival order. Emitted inside Offset and
// NoteChange events; the segmenter keeps no reference after emission.
type NoteSegment struct {
	NoteName string  `json:"note_name"`
	StartMs  float64 `json:"start_ms"`
	EndMs    float64 `json:"end_ms"`
	Frames   []Frame `json:"frames"`
}

// DurationMs returns the span between the segment's first and last frame.
func (s NoteSegment) DurationMs() float64 {
	return s.EndMs - s.StartMs
}
