package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/violinlab/pitchcore/algorithms/pitch"
	"github.com/violinlab/pitchcore/logging"
	"github.com/violinlab/pitchcore/segment"
)

const (
	testSampleRate = 44100.0
	testBufferSize = 2048
	testStepMs     = 16.0
)

func sineBuffer(freq float64) []float64 {
	out := make([]float64, testBufferSize)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return out
}

type timedBuffer struct {
	samples     []float64
	timestampMs float64
}

// sliceSource replays a recorded buffer sequence, then reports io.EOF.
type sliceSource struct {
	buffers []timedBuffer
	pos     int
}

func (s *sliceSource) Next(ctx context.Context) ([]float64, float64, error) {
	if s.pos >= len(s.buffers) {
		return nil, 0, io.EOF
	}
	b := s.buffers[s.pos]
	s.pos++
	return b.samples, b.timestampMs, nil
}

// buildSession lays out silent / sine / silent buffers at the frame cadence.
func buildSession(silentBefore, toneFrames, silentAfter int, freq float64) []timedBuffer {
	var out []timedBuffer
	ts := 0.0
	push := func(samples []float64) {
		out = append(out, timedBuffer{samples: samples, timestampMs: ts})
		ts += testStepMs
	}
	for n := 0; n < silentBefore; n++ {
		push(make([]float64, testBufferSize))
	}
	tone := sineBuffer(freq)
	for n := 0; n < toneFrames; n++ {
		push(tone)
	}
	for n := 0; n < silentAfter; n++ {
		push(make([]float64, testBufferSize))
	}
	return out
}

func newTestAnalyzer(t *testing.T, selector TargetSelector) *Analyzer {
	t.Helper()
	cfg := DefaultConfig(testSampleRate)
	cfg.Logger = &logging.NoOpLogger{}
	a, err := NewAnalyzer(cfg, selector)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestAnalyzer_EndToEndSession(t *testing.T) {
	a := newTestAnalyzer(t, fixedTarget(Target{Step: "A", Octave: 4}))

	// 5 silent buffers, 60 of sustained A440 (~960ms), then silence long
	// enough to close the note.
	src := &sliceSource{buffers: buildSession(5, 60, 30, 440)}

	var results []FrameResult
	err := a.Run(context.Background(), src, func(r FrameResult) {
		results = append(results, r)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 95 {
		t.Fatalf("got %d results, want 95", len(results))
	}

	var onsets []segment.Onset
	var offsets []segment.Offset
	var detected, noNote int
	var matches []NoteMatched
	for _, r := range results {
		switch ev := r.SegmentEvent.(type) {
		case segment.Onset:
			onsets = append(onsets, ev)
		case segment.Offset:
			offsets = append(offsets, ev)
		case segment.NoteChange:
			t.Errorf("unexpected note change at %v", ev.TimestampMs)
		}
		for _, ev := range r.StabilityEvents {
			switch m := ev.(type) {
			case NoteDetected:
				detected++
			case NoNoteDetected:
				noNote++
			case NoteMatched:
				matches = append(matches, m)
			}
		}
	}

	if len(onsets) != 1 {
		t.Fatalf("got %d onsets, want 1", len(onsets))
	}
	// Tone starts at t=80; the onset debounce crosses at t=144.
	if onsets[0].NoteName != "A4" || onsets[0].TimestampMs != 144 {
		t.Errorf("onset: got %q at %v, want \"A4\" at 144", onsets[0].NoteName, onsets[0].TimestampMs)
	}

	if len(offsets) != 1 {
		t.Fatalf("got %d offsets, want 1", len(offsets))
	}
	off := offsets[0]
	// Last tone buffer at t=1024, silence from t=1040, offset at t=1200.
	if off.TimestampMs != 1200 {
		t.Errorf("offset timestamp: got %v, want 1200", off.TimestampMs)
	}
	if off.Segment.NoteName != "A4" || off.Segment.StartMs != 144 || off.Segment.EndMs != 1024 {
		t.Errorf("segment: got %q [%v, %v], want \"A4\" [144, 1024]",
			off.Segment.NoteName, off.Segment.StartMs, off.Segment.EndMs)
	}

	if detected != 60 {
		t.Errorf("NoteDetected count: got %d, want 60", detected)
	}
	if noNote != 35 {
		t.Errorf("NoNoteDetected count: got %d, want 35", noNote)
	}

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want exactly 1", len(matches))
	}
	// First gated reading at t=80; the 500ms hold crosses at t=592.
	if matches[0].TimestampMs != 592 {
		t.Errorf("match timestamp: got %v, want 592", matches[0].TimestampMs)
	}
	if matches[0].Note.MIDI != 69 {
		t.Errorf("matched note MIDI: got %d, want 69", matches[0].Note.MIDI)
	}

	// The segment's summary should read as a clean in-tune A4.
	sum := segment.Summarize(off.Segment)
	if math.Abs(sum.MeanPitchHz-440) > 2 {
		t.Errorf("segment mean pitch: got %v, want ~440", sum.MeanPitchHz)
	}
	if math.Abs(sum.MeanCents) > 8 {
		t.Errorf("segment mean cents: got %v, want ~0", sum.MeanCents)
	}
}

func TestAnalyzer_WrongNoteNeverMatches(t *testing.T) {
	// Performer plays A4 against a B4 target.
	a := newTestAnalyzer(t, fixedTarget(Target{Step: "B", Octave: 4}))
	src := &sliceSource{buffers: buildSession(0, 60, 0, 440)}

	err := a.Run(context.Background(), src, func(r FrameResult) {
		for _, ev := range r.StabilityEvents {
			if _, ok := ev.(NoteMatched); ok {
				t.Errorf("matched at %v against the wrong target", r.Frame.TimestampMs)
			}
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestAnalyzer_ProcessBufferFrameFields(t *testing.T) {
	a := newTestAnalyzer(t, fixedTarget(Target{Step: "A", Octave: 4}))

	result := a.ProcessBuffer(sineBuffer(440), 0)

	f := result.Frame
	if f.NoteName != "A4" {
		t.Errorf("NoteName: got %q, want \"A4\"", f.NoteName)
	}
	if math.Abs(f.PitchHz-440) > 2 {
		t.Errorf("PitchHz: got %v, want ~440", f.PitchHz)
	}
	// Half-amplitude sine has RMS 0.5/sqrt(2).
	if math.Abs(f.RMS-0.5/math.Sqrt2) > 0.01 {
		t.Errorf("RMS: got %v, want ~%v", f.RMS, 0.5/math.Sqrt2)
	}
	if f.Confidence <= 0.9 {
		t.Errorf("Confidence: got %v, want > 0.9", f.Confidence)
	}

	silent := a.ProcessBuffer(make([]float64, testBufferSize), 16)
	if silent.Frame.Pitched() {
		t.Errorf("silent buffer produced a pitched frame: %+v", silent.Frame)
	}
	if len(silent.StabilityEvents) != 1 {
		t.Fatalf("silent buffer: got %d stability events, want 1", len(silent.StabilityEvents))
	}
	if _, ok := silent.StabilityEvents[0].(NoNoteDetected); !ok {
		t.Errorf("silent buffer: got %T, want NoNoteDetected", silent.StabilityEvents[0])
	}
}

func TestAnalyzer_ResetClearsState(t *testing.T) {
	a := newTestAnalyzer(t, fixedTarget(Target{Step: "A", Octave: 4}))

	// Drive into a note, then reset mid-note.
	tone := sineBuffer(440)
	for i := 0; i < 10; i++ {
		a.ProcessBuffer(tone, float64(i)*testStepMs)
	}
	a.Reset()

	// Post-reset silence produces no segment events: the in-progress note
	// was discarded without an offset.
	for i := 0; i < 30; i++ {
		r := a.ProcessBuffer(make([]float64, testBufferSize), float64(160+i*16))
		if r.SegmentEvent != nil {
			t.Fatalf("segment event after reset: %T", r.SegmentEvent)
		}
	}
}

func TestAnalyzer_RunCanceled(t *testing.T) {
	a := newTestAnalyzer(t, fixedTarget(Target{Step: "A", Octave: 4}))
	src := &sliceSource{buffers: buildSession(0, 10, 0, 440)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Run(ctx, src, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

type failingSource struct{}

func (failingSource) Next(ctx context.Context) ([]float64, float64, error) {
	return nil, 0, errors.New("device gone")
}

func TestAnalyzer_RunSourceError(t *testing.T) {
	a := newTestAnalyzer(t, fixedTarget(Target{Step: "A", Octave: 4}))

	err := a.Run(context.Background(), failingSource{}, nil)
	if err == nil {
		t.Fatal("got nil, want wrapped source error")
	}
	if err.Error() != "buffer source: device gone" {
		t.Errorf("error: got %q, want \"buffer source: device gone\"", err.Error())
	}
}

func TestNewAnalyzer_PropagatesInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(testSampleRate)
	cfg.Estimator.SampleRate = -1
	if _, err := NewAnalyzer(cfg, noTarget); !errors.Is(err, pitch.ErrInvalidSampleRate) {
		t.Errorf("bad estimator: got %v, want ErrInvalidSampleRate", err)
	}

	cfg = DefaultConfig(testSampleRate)
	cfg.Segmenter.MinConfidence = 2
	if _, err := NewAnalyzer(cfg, noTarget); !errors.Is(err, segment.ErrInvalidOptions) {
		t.Errorf("bad segmenter: got %v, want segment.ErrInvalidOptions", err)
	}

	cfg = DefaultConfig(testSampleRate)
	cfg.Stability.ToleranceCents = -1
	if _, err := NewAnalyzer(cfg, noTarget); !errors.Is(err, ErrInvalidStabilityOptions) {
		t.Errorf("bad stability: got %v, want ErrInvalidStabilityOptions", err)
	}
}
