package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidSource classifies PCM source configuration errors.
var ErrInvalidSource = errors.New("invalid pcm source")

// PCMSource frames a recorded mono PCM take into fixed-size analysis
// buffers. Buffers overlap when the hop is smaller than the buffer size;
// a trailing partial buffer is dropped. Timestamps are derived from the
// sample positions, so replaying a recording is deterministic.
type PCMSource struct {
	samples    []float64
	sampleRate float64
	bufferSize int
	hopSize    int
	pos        int
}

// NewPCMSource creates a source over a recorded take. hopSize of 0
// defaults to bufferSize (no overlap).
func NewPCMSource(samples []float64, sampleRate float64, bufferSize, hopSize int) (*PCMSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %v must be > 0", ErrInvalidSource, sampleRate)
	}
	if bufferSize <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d must be > 0", ErrInvalidSource, bufferSize)
	}
	if hopSize < 0 {
		return nil, fmt.Errorf("%w: hop size %d must be >= 0", ErrInvalidSource, hopSize)
	}
	if hopSize == 0 {
		hopSize = bufferSize
	}
	return &PCMSource{
		samples:    samples,
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		hopSize:    hopSize,
	}, nil
}

// Next returns the next analysis buffer and its capture timestamp, or
// io.EOF once the recording is exhausted. The returned slice aliases the
// recording; callers must not modify it.
func (s *PCMSource) Next(ctx context.Context) ([]float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if s.pos+s.bufferSize > len(s.samples) {
		return nil, 0, io.EOF
	}
	buffer := s.samples[s.pos : s.pos+s.bufferSize]
	timestampMs := float64(s.pos) / s.sampleRate * 1000.0
	s.pos += s.hopSize
	return buffer, timestampMs, nil
}

// Rewind restarts the source from the beginning of the recording.
func (s *PCMSource) Rewind() {
	s.pos = 0
}
