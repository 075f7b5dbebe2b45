package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/violinlab/pitchcore/algorithms/pitch"
	"github.com/violinlab/pitchcore/logging"
	"github.com/violinlab/pitchcore/segment"
)

// Config assembles the per-component parameters of one analysis pipeline.
type Config struct {
	Estimator pitch.Params     `json:"estimator"`
	Segmenter segment.Options  `json:"segmenter"`
	Stability StabilityOptions `json:"stability"`

	// SkipSilentBuffers short-circuits pitch estimation when the buffer
	// RMS is under the estimator's signal floor. Affects cost only, never
	// results.
	SkipSilentBuffers bool `json:"skip_silent_buffers"`

	// Logger defaults to the package global when nil.
	Logger logging.Logger `json:"-"`
}

// DefaultConfig returns a pipeline configuration with every component at
// its defaults.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		Estimator:         pitch.DefaultParams(sampleRate),
		Segmenter:         segment.DefaultOptions(),
		Stability:         DefaultStabilityOptions(),
		SkipSilentBuffers: true,
	}
}

// FrameResult is everything one buffer produced: the derived frame, the
// segmenter event if any, and the stability events in order.
type FrameResult struct {
	Frame           segment.Frame
	SegmentEvent    segment.Event // nil when none
	StabilityEvents []Event
}

// Analyzer composes the estimator, the note segmenter and the stability
// window into one synchronous per-buffer pipeline. Instances are
// independent; nothing is shared between analyzers, so parallel and test
// instances are cheap. Not safe for concurrent use: one producer per
// instance, frames in non-decreasing timestamp order.
type Analyzer struct {
	cfg       Config
	estimator *pitch.Estimator
	segmenter *segment.Segmenter
	stability *StabilityWindow
	log       logging.Logger

	lastTimestampMs float64
	sawFrame        bool
}

// NewAnalyzer builds a pipeline from a validated configuration and a
// target selector.
func NewAnalyzer(cfg Config, selector TargetSelector) (*Analyzer, error) {
	estimator, err := pitch.NewEstimatorWithParams(cfg.Estimator)
	if err != nil {
		return nil, fmt.Errorf("pipeline estimator: %w", err)
	}
	segmenter, err := segment.NewSegmenter(cfg.Segmenter)
	if err != nil {
		return nil, fmt.Errorf("pipeline segmenter: %w", err)
	}
	stability, err := NewStabilityWindow(cfg.Stability, selector)
	if err != nil {
		return nil, fmt.Errorf("pipeline stability window: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.WithFields(logging.Fields{"component": "pipeline"})
	}

	return &Analyzer{
		cfg:       cfg,
		estimator: estimator,
		segmenter: segmenter,
		stability: stability,
		log:       log,
	}, nil
}

// ProcessBuffer runs one PCM buffer through the whole pipeline. The
// buffer holds samples normalized to [-1, 1]; timestampMs is its
// monotonic capture time. Each call is atomic and bounded by the buffer
// size.
func (a *Analyzer) ProcessBuffer(buffer []float64, timestampMs float64) FrameResult {
	if a.sawFrame && timestampMs < a.lastTimestampMs {
		// Ordering is a caller contract; warn and forward rather than
		// guess at a correction.
		a.log.Warn("out-of-order frame timestamp", logging.Fields{
			"timestamp_ms": timestampMs,
			"previous_ms":  a.lastTimestampMs,
		})
	}
	a.lastTimestampMs = timestampMs
	a.sawFrame = true

	rms := pitch.RMS(buffer)

	var detected pitch.Result
	if !a.cfg.SkipSilentBuffers || a.estimator.HasSignal(buffer) {
		detected = a.estimator.Detect(buffer)
	}

	frame := segment.Frame{
		TimestampMs: timestampMs,
		PitchHz:     detected.PitchHz,
		RMS:         rms,
		Confidence:  detected.Confidence,
	}

	var note pitch.Note
	var pitched bool
	if detected.PitchHz > 0 {
		if note, pitched = pitch.NoteFromFrequency(detected.PitchHz); pitched {
			frame.NoteName = note.String()
			frame.Cents = note.Cents
		}
	}

	result := FrameResult{Frame: frame}
	result.SegmentEvent = a.segmenter.ProcessFrame(frame)
	if result.SegmentEvent != nil {
		a.logSegmentEvent(result.SegmentEvent)
	}

	gated := pitched &&
		rms > a.cfg.Segmenter.MinRMS &&
		detected.Confidence > a.cfg.Segmenter.MinConfidence
	result.StabilityEvents = a.stability.Process(Reading{
		Note:        note,
		Confidence:  detected.Confidence,
		TimestampMs: timestampMs,
	}, gated)

	return result
}

// Reset returns every stage to its initial state. A note in progress is
// discarded without an Offset event, matching the segmenter's Reset.
func (a *Analyzer) Reset() {
	a.segmenter.Reset()
	a.stability.Reset()
	a.sawFrame = false
	a.lastTimestampMs = 0
}

// BufferSource supplies fixed-length PCM buffers with capture timestamps.
// Next returns io.EOF when the stream is exhausted.
type BufferSource interface {
	Next(ctx context.Context) (buffer []float64, timestampMs float64, err error)
}

// Run polls the source until it drains or the context is canceled,
// forwarding each FrameResult to sink. Cancellation is checked between
// frames; in-flight processing is never interrupted.
func (a *Analyzer) Run(ctx context.Context, src BufferSource, sink func(FrameResult)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		buffer, timestampMs, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("buffer source: %w", err)
		}

		result := a.ProcessBuffer(buffer, timestampMs)
		if sink != nil {
			sink(result)
		}
	}
}

func (a *Analyzer) logSegmentEvent(ev segment.Event) {
	switch e := ev.(type) {
	case segment.Onset:
		a.log.Debug("note onset", logging.Fields{
			"note": e.NoteName, "timestamp_ms": e.TimestampMs, "gap_frames": len(e.GapFrames),
		})
	case segment.Offset:
		a.log.Debug("note offset", logging.Fields{
			"note": e.Segment.NoteName, "timestamp_ms": e.TimestampMs, "duration_ms": e.Segment.DurationMs(),
		})
	case segment.NoteChange:
		a.log.Debug("note change", logging.Fields{
			"from": e.Segment.NoteName, "to": e.NoteName, "timestamp_ms": e.TimestampMs,
		})
	}
}
