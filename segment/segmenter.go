package segment

// Sentinel for "timer not running". Frame timestamps are assumed
// non-negative.
const noTime = -1.0

type stateKind int

const (
	stateSilence stateKind = iota
	stateNote
)

// machineState is the explicit segmenter state. The SILENCE fields track
// onset debouncing and the gap buffer; the NOTE fields track the current
// note, offset debouncing and the pending note-change pair. All timing is
// derived from frame timestamps, so a recorded frame sequence replays
// deterministically.
type machineState struct {
	kind stateKind

	// SILENCE
	aboveSince   float64 // start of the current continuous signal run
	lastSignalMs float64 // most recent signal frame seen while silent
	gap          []Frame

	// NOTE
	noteName     string
	startMs      float64
	frames       []Frame
	lastGoodMs   float64 // most recent signal frame while the note is held
	offsetSince  float64 // when the offset condition began holding
	pendingName  string  // candidate for a note change
	pendingSince float64
}

func initialState() machineState {
	return machineState{
		kind:         stateSilence,
		aboveSince:   noTime,
		lastSignalMs: noTime,
		lastGoodMs:   noTime,
		offsetSince:  noTime,
		pendingSince: noTime,
	}
}

// Segmenter turns a stream of per-frame pitch/confidence/RMS readings into
// discrete note boundary events using hysteresis and debouncing. Frames
// must arrive in non-decreasing timestamp order; behavior under
// out-of-order delivery is undefined. Not safe for concurrent use; one
// producer per instance.
type Segmenter struct {
	opts Options
	st   machineState
}

// NewSegmenter creates a segmenter. The options are validated up front
// and a segmenter is never constructed from an invalid configuration.
func NewSegmenter(opts Options) (*Segmenter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{opts: opts, st: initialState()}, nil
}

// Options returns the segmenter's configuration.
func (s *Segmenter) Options() Options {
	return s.opts
}

// ProcessFrame advances the state machine by one frame and returns the
// event it produced, or nil.
func (s *Segmenter) ProcessFrame(f Frame) Event {
	next, ev := advance(s.st, f, s.opts)
	s.st = next
	return ev
}

// Reset returns to the initial SILENCE state, clearing all buffers and
// timers. A note in progress is discarded without an Offset event.
func (s *Segmenter) Reset() {
	s.st = initialState()
}

// classify applies the per-frame signal gates: presence requires both RMS
// above MinRMS and a pitched reading above MinConfidence; true silence is
// RMS below MaxRMSSilence. Frames between the two RMS thresholds are
// neither.
func classify(f Frame, o Options) (present, silent bool) {
	isRMS := f.RMS > o.MinRMS
	isPitch := f.Pitched() && f.Confidence > o.MinConfidence
	return isRMS && isPitch, f.RMS < o.MaxRMSSilence
}

// advance is the pure transition function (state, frame) -> (state, event).
func advance(st machineState, f Frame, o Options) (machineState, Event) {
	if st.kind == stateSilence {
		return advanceSilence(st, f, o)
	}
	return advanceNote(st, f, o)
}

func advanceSilence(st machineState, f Frame, o Options) (machineState, Event) {
	present, silent := classify(f, o)

	if present {
		if st.aboveSince == noTime {
			st.aboveSince = f.TimestampMs
		}
		st.lastSignalMs = f.TimestampMs

		if f.TimestampMs-st.aboveSince >= o.OnsetDebounceMs {
			// Gap buffer is handed off with the event; the new note
			// starts with its own buffers.
			gap := st.gap
			next := initialState()
			next.kind = stateNote
			next.noteName = f.NoteName
			next.startMs = f.TimestampMs
			next.frames = []Frame{f}
			next.lastGoodMs = f.TimestampMs
			return next, Onset{
				TimestampMs: f.TimestampMs,
				NoteName:    f.NoteName,
				GapFrames:   gap,
			}
		}

		st.gap = appendBounded(st.gap, f, o.MaxGapFrames)
		return st, nil
	}

	// True silence resets onset progress immediately; a noisy gap only
	// does so once it outlasts the reset window, so sub-window noise
	// bursts never accumulate toward an onset.
	if silent || (st.lastSignalMs != noTime && f.TimestampMs-st.lastSignalMs > o.NoisyGapResetMs) {
		st.aboveSince = noTime
	}
	st.gap = appendBounded(st.gap, f, o.MaxGapFrames)
	return st, nil
}

func advanceNote(st machineState, f Frame, o Options) (machineState, Event) {
	present, silent := classify(f, o)

	if present {
		st.offsetSince = noTime
		st.lastGoodMs = f.TimestampMs

		if f.NoteName == st.noteName {
			st.pendingName = ""
			st.pendingSince = noTime
			if len(st.frames) < o.MaxNoteFrames {
				st.frames = append(st.frames, f)
			}
			return st, nil
		}

		// Different pitch: debounce via the pending pair. Frames carrying
		// the candidate note belong to neither segment.
		if st.pendingName == f.NoteName {
			if f.TimestampMs-st.pendingSince >= o.NoteChangeDebounceMs {
				seg := finalize(st)
				next := initialState()
				next.kind = stateNote
				next.noteName = f.NoteName
				next.startMs = f.TimestampMs
				next.frames = []Frame{f}
				next.lastGoodMs = f.TimestampMs
				return next, NoteChange{
					TimestampMs: f.TimestampMs,
					NoteName:    f.NoteName,
					Segment:     seg,
				}
			}
			return st, nil
		}
		st.pendingName = f.NoteName
		st.pendingSince = f.TimestampMs
		return st, nil
	}

	// Signal lost: a pending change never survives a dropout.
	st.pendingName = ""
	st.pendingSince = noTime

	if silent {
		// True silence starts the offset timer immediately.
		if st.offsetSince == noTime {
			st.offsetSince = f.TimestampMs
		}
	} else if f.TimestampMs-st.lastGoodMs > o.PitchDropoutToleranceMs {
		// Bow may still be on the string with the pitch reading lost;
		// tolerate the dropout before treating it as an ending.
		if st.offsetSince == noTime {
			st.offsetSince = f.TimestampMs
		}
	}

	if st.offsetSince != noTime && f.TimestampMs-st.offsetSince >= o.OffsetDebounceMs {
		seg := finalize(st)
		return initialState(), Offset{TimestampMs: f.TimestampMs, Segment: seg}
	}
	return st, nil
}

// finalize freezes the current note buffer into a NoteSegment. The state
// holding the buffer is discarded by the caller, so the slice transfers
// ownership without copying.
func finalize(st machineState) NoteSegment {
	seg := NoteSegment{
		NoteName: st.noteName,
		StartMs:  st.startMs,
		Frames:   st.frames,
	}
	if n := len(st.frames); n > 0 {
		seg.EndMs = st.frames[n-1].TimestampMs
	}
	return seg
}

// appendBounded appends to a buffer capped at limit, dropping the oldest
// entry past the cap.
func appendBounded(buf []Frame, f Frame, limit int) []Frame {
	buf = append(buf, f)
	if len(buf) > limit {
		buf = buf[1:]
	}
	return buf
}
