package pitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/violinlab/pitchcore/algorithms/spectral"
)

// Configuration errors raised at construction or by setters.
var (
	ErrInvalidSampleRate = errors.New("sample rate must be finite and positive")
	ErrFrequencyBounds   = errors.New("frequency bound out of range")
)

// Upper limit accepted by SetMaxFrequency.
const maxFrequencyCeiling = 20000.0

// Params contains parameters for the YIN estimator.
type Params struct {
	SampleRate   float64 `json:"sample_rate"`
	MinFrequency float64 `json:"min_frequency"` // Lowest detectable frequency (Hz)
	MaxFrequency float64 `json:"max_frequency"` // Highest detectable frequency (Hz)
	Threshold    float64 `json:"threshold"`     // Absolute threshold on d'(tau)
	SignalFloor  float64 `json:"signal_floor"`  // RMS floor for HasSignal
	UseFFT       bool    `json:"use_fft"`       // FFT-accelerated difference function
}

// DefaultParams returns estimator defaults tuned for the violin's first
// position range.
func DefaultParams(sampleRate float64) Params {
	return Params{
		SampleRate:   sampleRate,
		MinFrequency: 180.0,
		MaxFrequency: 700.0,
		Threshold:    0.1,
		SignalFloor:  0.01,
	}
}

// Result is a single-frame fundamental frequency estimate. A PitchHz of 0
// with Confidence 0 means no pitch was found.
type Result struct {
	PitchHz    float64 `json:"pitch_hz"`
	Confidence float64 `json:"confidence"` // 0-1, higher is better
}

// Estimator implements the YIN fundamental frequency estimator.
//
// Reference: de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental
// frequency estimator for speech and music"
//
// Detect is a pure function of its input buffer; the only state is the
// configured parameters, so instances are safe to construct per pipeline.
type Estimator struct {
	params Params
	fft    *spectral.FFT
}

// NewEstimator creates an estimator with default parameters for the given
// sample rate.
func NewEstimator(sampleRate float64) (*Estimator, error) {
	return NewEstimatorWithParams(DefaultParams(sampleRate))
}

// NewEstimatorWithParams creates an estimator with custom parameters.
// Zero values for MinFrequency, MaxFrequency, Threshold and SignalFloor
// fall back to the defaults.
func NewEstimatorWithParams(params Params) (*Estimator, error) {
	if math.IsNaN(params.SampleRate) || math.IsInf(params.SampleRate, 0) || params.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSampleRate, params.SampleRate)
	}

	def := DefaultParams(params.SampleRate)
	if params.MinFrequency == 0 {
		params.MinFrequency = def.MinFrequency
	}
	if params.MaxFrequency == 0 {
		params.MaxFrequency = def.MaxFrequency
	}
	if params.Threshold == 0 {
		params.Threshold = def.Threshold
	}
	if params.SignalFloor == 0 {
		params.SignalFloor = def.SignalFloor
	}

	if params.MinFrequency <= 0 {
		return nil, fmt.Errorf("%w: min frequency %v must be positive", ErrFrequencyBounds, params.MinFrequency)
	}
	if params.MaxFrequency <= params.MinFrequency || params.MaxFrequency > maxFrequencyCeiling {
		return nil, fmt.Errorf("%w: max frequency %v must be in (%v, %v]",
			ErrFrequencyBounds, params.MaxFrequency, params.MinFrequency, maxFrequencyCeiling)
	}

	return &Estimator{
		params: params,
		fft:    spectral.NewFFT(),
	}, nil
}

// SetMaxFrequency updates the upper detection bound. The valid range is
// (MinFrequency, 20000]; out-of-range values are rejected and the previous
// bound is retained.
func (e *Estimator) SetMaxFrequency(maxHz float64) error {
	if math.IsNaN(maxHz) || maxHz <= e.params.MinFrequency || maxHz > maxFrequencyCeiling {
		return fmt.Errorf("%w: max frequency %v must be in (%v, %v]",
			ErrFrequencyBounds, maxHz, e.params.MinFrequency, maxFrequencyCeiling)
	}
	e.params.MaxFrequency = maxHz
	return nil
}

// Params returns the current parameters.
func (e *Estimator) Params() Params {
	return e.params
}

// Detect estimates the fundamental frequency of one PCM buffer with
// samples normalized to [-1, 1]. The buffer must cover at least one period
// of MinFrequency for the full lag range to be searched; shorter buffers
// simply narrow the range. Silent or degenerate buffers yield a zero
// result, never an error.
func (e *Estimator) Detect(buffer []float64) Result {
	n := len(buffer)
	half := n / 2
	if half < 4 {
		return Result{}
	}

	tauMin := int(math.Floor(e.params.SampleRate / e.params.MaxFrequency))
	if tauMin < 2 {
		tauMin = 2
	}
	tauMax := int(math.Ceil(e.params.SampleRate / e.params.MinFrequency))
	if tauMax > half-1 {
		tauMax = half - 1
	}
	if tauMin >= tauMax {
		return Result{}
	}

	var diff []float64
	if e.params.UseFFT {
		diff = e.differenceFFT(buffer, half, tauMax)
	} else {
		diff = difference(buffer, half, tauMax)
	}

	cmndf := cumulativeMeanNormalize(diff)

	// First local minimum of d'(tau) below the absolute threshold.
	candidate := -1
	for tau := tauMin; tau < tauMax; tau++ {
		if cmndf[tau] < e.params.Threshold && cmndf[tau] < cmndf[tau+1] {
			candidate = tau
			break
		}
	}
	if candidate < 0 {
		return Result{}
	}

	period := parabolicInterpolate(cmndf, candidate)
	if period <= 0 {
		return Result{}
	}

	frequency := e.params.SampleRate / period
	if frequency < e.params.MinFrequency || frequency > e.params.MaxFrequency {
		return Result{}
	}

	return Result{
		PitchHz:    frequency,
		Confidence: 1.0 - cmndf[candidate],
	}
}

// difference computes the YIN difference function d(tau) over a window of
// `window` samples for lags 0..tauMax inclusive. O(window * tauMax).
func difference(buffer []float64, window, tauMax int) []float64 {
	diff := make([]float64, tauMax+1)
	for tau := 0; tau <= tauMax; tau++ {
		sum := 0.0
		for j := 0; j < window; j++ {
			delta := buffer[j] - buffer[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}
	return diff
}

// differenceFFT computes the same d(tau) as difference via the identity
// d(tau) = P(0) + P(tau) - 2*C(tau), where P is the sliding window power
// and C the cross-correlation of the window with the shifted signal.
// O(n log n), used for large buffers where the naive scan would exceed the
// real-time frame budget.
func (e *Estimator) differenceFFT(buffer []float64, window, tauMax int) []float64 {
	n := len(buffer)

	// Prefix sums of squared samples for the power terms.
	prefixSq := make([]float64, n+1)
	for i, v := range buffer {
		prefixSq[i+1] = prefixSq[i] + v*v
	}

	corr := e.fft.CrossCorrelate(buffer, buffer[:window])

	diff := make([]float64, tauMax+1)
	p0 := prefixSq[window]
	for tau := 0; tau <= tauMax; tau++ {
		pTau := prefixSq[tau+window] - prefixSq[tau]
		diff[tau] = p0 + pTau - 2.0*corr[tau]
		if diff[tau] < 0 {
			diff[tau] = 0 // float round-off near perfect correlation
		}
	}
	return diff
}

// cumulativeMeanNormalize computes d'(tau) = d(tau) / ((1/tau) * sum d(1..tau)),
// with d'(0) = 1 by convention. Removes the bias of d(tau) toward small lags.
func cumulativeMeanNormalize(diff []float64) []float64 {
	cmndf := make([]float64, len(diff))
	cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau < len(diff); tau++ {
		runningSum += diff[tau]
		if runningSum > 0 {
			cmndf[tau] = diff[tau] * float64(tau) / runningSum
		} else {
			// All-zero signal up to this lag; treat as no dip.
			cmndf[tau] = 1.0
		}
	}
	return cmndf
}

// parabolicInterpolate refines an integer minimum to sub-sample precision
// using its two neighbors.
func parabolicInterpolate(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}

	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]

	a := (y1 - 2.0*y2 + y3) / 2.0
	b := (y3 - y1) / 2.0
	if a == 0 {
		return float64(idx)
	}

	return float64(idx) - b/(2.0*a)
}
