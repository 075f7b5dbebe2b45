package spectral

import (
	"math"
	"testing"
)

func TestCrossCorrelate_MatchesNaive(t *testing.T) {
	f := NewFFT()

	a := make([]float64, 128)
	for i := range a {
		a[i] = math.Sin(2*math.Pi*float64(i)/16) + 0.3*math.Cos(2*math.Pi*float64(i)/7)
	}
	b := a[:64]

	got := f.CrossCorrelate(a, b)
	if len(got) != len(a) {
		t.Fatalf("length: got %d, want %d", len(got), len(a))
	}

	for k := 0; k+len(b) <= len(a); k++ {
		want := 0.0
		for j := range b {
			want += b[j] * a[j+k]
		}
		if math.Abs(got[k]-want) > 1e-9 {
			t.Errorf("lag %d: got %v, want %v", k, got[k], want)
		}
	}
}

func TestCrossCorrelate_Empty(t *testing.T) {
	f := NewFFT()
	if got := f.CrossCorrelate(nil, []float64{1}); len(got) != 0 {
		t.Errorf("nil input: got %d values, want 0", len(got))
	}
}

func TestFFT_RoundTrip(t *testing.T) {
	f := NewFFT()

	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	back := f.ComputeInverseReal(f.Compute(x))

	if len(back) != len(x) {
		t.Fatalf("length: got %d, want %d", len(back), len(x))
	}
	for i := range x {
		if math.Abs(back[i]-x[i]) > 1e-9 {
			t.Errorf("sample %d: got %v, want %v", i, back[i], x[i])
		}
	}
}
