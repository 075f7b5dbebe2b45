package pitch

import (
	"github.com/violinlab/pitchcore/algorithms/common"
)

// RMS calculates the root mean square amplitude of a buffer.
func RMS(buffer []float64) float64 {
	return common.RMS(buffer)
}

// HasSignal reports whether the buffer's RMS exceeds the given floor.
// Cheap pre-check that lets callers skip the full difference function on
// silent buffers; skipping it never changes results, only cost.
func HasSignal(buffer []float64, floor float64) bool {
	return RMS(buffer) > floor
}

// HasSignal applies the estimator's configured signal floor.
func (e *Estimator) HasSignal(buffer []float64) bool {
	return HasSignal(buffer, e.params.SignalFloor)
}
