package segment

// Event is the segmenter's output union: Onset, Offset or NoteChange.
// The interface is sealed so call sites can type-switch exhaustively.
type Event interface {
	// When returns the timestamp of the frame that triggered the event.
	When() float64

	sealed()
}

// Onset marks the debounced start of a note. GapFrames is the bounded
// buffer of frames captured during the preceding silence, handed off for
// attack-transition analysis; the segmenter retains no reference to it.
type Onset struct {
	TimestampMs float64 `json:"timestamp_ms"`
	NoteName    string  `json:"note_name"`
	GapFrames   []Frame `json:"gap_frames"`
}

// Offset marks the debounced end of a note and carries the finished segment.
type Offset struct {
	TimestampMs float64     `json:"timestamp_ms"`
	Segment     NoteSegment `json:"segment"`
}

// NoteChange marks a debounced transition directly from one note to
// another. Segment is the note that just ended; NoteName is the note that
// began with the triggering frame.
type NoteChange struct {
	TimestampMs float64     `json:"timestamp_ms"`
	NoteName    string      `json:"note_name"`
	Segment     NoteSegment `json:"segment"`
}

func (e Onset) When() float64      { return e.TimestampMs }
func (e Offset) When() float64     { return e.TimestampMs }
func (e NoteChange) When() float64 { return e.TimestampMs }

func (Onset) sealed()      {}
func (Offset) sealed()     {}
func (NoteChange) sealed() {}
