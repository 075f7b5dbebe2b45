package segment

import (
	"github.com/violinlab/pitchcore/algorithms/common"
)

// Summary holds per-segment statistics for downstream technique analysis
// (intonation drift, dynamics, steadiness of the bow).
type Summary struct {
	NoteName       string  `json:"note_name"`
	DurationMs     float64 `json:"duration_ms"`
	FrameCount     int     `json:"frame_count"`
	MeanPitchHz    float64 `json:"mean_pitch_hz"`
	PitchStdDevHz  float64 `json:"pitch_std_dev_hz"`
	MeanCents      float64 `json:"mean_cents"`
	CentsStdDev    float64 `json:"cents_std_dev"`
	MeanRMS        float64 `json:"mean_rms"`
	PeakRMS        float64 `json:"peak_rms"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// Summarize computes summary statistics over a finished segment. Pitch,
// cents and confidence statistics consider pitched frames only; amplitude
// statistics consider every frame.
func Summarize(seg NoteSegment) Summary {
	sum := Summary{
		NoteName:   seg.NoteName,
		DurationMs: seg.DurationMs(),
		FrameCount: len(seg.Frames),
	}
	if len(seg.Frames) == 0 {
		return sum
	}

	pitches := make([]float64, 0, len(seg.Frames))
	cents := make([]float64, 0, len(seg.Frames))
	confidences := make([]float64, 0, len(seg.Frames))
	amplitudes := make([]float64, len(seg.Frames))

	for i, f := range seg.Frames {
		amplitudes[i] = f.RMS
		if f.Pitched() {
			pitches = append(pitches, f.PitchHz)
			cents = append(cents, f.Cents)
			confidences = append(confidences, f.Confidence)
		}
	}

	sum.MeanPitchHz = common.Mean(pitches)
	sum.PitchStdDevHz = common.StandardDeviation(pitches)
	sum.MeanCents = common.Mean(cents)
	sum.CentsStdDev = common.StandardDeviation(cents)
	sum.MeanConfidence = common.Mean(confidences)
	sum.MeanRMS = common.Mean(amplitudes)
	sum.PeakRMS = common.MaxAbs(amplitudes)

	return sum
}
