package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality for the pitch
// estimation fast path.
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform using mjibson/go-dsp.
// Takes []float64 input and returns []complex128 output.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// mjibson/go-dsp handles all sizes efficiently, including non-power-of-2
	return fft.FFTReal(x)
}

// ComputeInverse computes the inverse FFT
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.IFFT(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// CrossCorrelate computes c[k] = sum_j b[j]*a[j+k] for k in [0, len(a))
// via the frequency domain. Both inputs are zero-padded to a common length
// internally. Used by the FFT-accelerated YIN difference function.
func (f *FFT) CrossCorrelate(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return []float64{}
	}

	n := len(a) + len(b)
	pa := make([]float64, n)
	pb := make([]float64, n)
	copy(pa, a)
	copy(pb, b)

	fa := fft.FFTReal(pa)
	fb := fft.FFTReal(pb)

	prod := make([]complex128, n)
	for i := range prod {
		fbConj := complex(real(fb[i]), -imag(fb[i]))
		prod[i] = fa[i] * fbConj
	}

	inv := fft.IFFT(prod)
	out := make([]float64, len(a))
	for i := range out {
		out[i] = real(inv[i])
	}

	return out
}
