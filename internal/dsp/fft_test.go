package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNextPow2(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{1024, 1024},
		{1025, 2048},
	}
	for _, tt := range tests {
		if got := NextPow2(tt.n); got != tt.want {
			t.Errorf("NextPow2(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestFFTDCComponent(t *testing.T) {
	n := 8
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(1.0, 0)
	}
	FFT(x)

	if math.Abs(real(x[0])-float64(n)) > 1e-9 {
		t.Errorf("bin 0 = %v, want %v", x[0], complex(float64(n), 0))
	}
	for k := 1; k < n; k++ {
		if cmplx.Abs(x[k]) > 1e-9 {
			t.Errorf("bin %d = %v, want ~0", k, x[k])
		}
	}
}

func TestFFTKnownSinusoid(t *testing.T) {
	n := 16
	freqBin := 2
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Cos(2*math.Pi*float64(freqBin)*float64(i)/float64(n)), 0)
	}
	FFT(x)

	mag := PowerSpectrum(x)
	peak := 0
	for k := 1; k < len(mag); k++ {
		if mag[k] > mag[peak] {
			peak = k
		}
	}
	if peak != freqBin {
		t.Errorf("peak bin = %d, want %d", peak, freqBin)
	}
}

func TestPowerSpectrumLength(t *testing.T) {
	x := make([]complex128, 64)
	got := PowerSpectrum(x)
	if len(got) != 33 {
		t.Fatalf("len(PowerSpectrum) = %d, want 33", len(got))
	}
}

func TestMagnitudeSpectrumMatchesPower(t *testing.T) {
	x := []complex128{complex(3, 4), complex(0, 0)}
	mag := MagnitudeSpectrum(x)
	if math.Abs(mag[0]-5.0) > 1e-9 {
		t.Errorf("MagnitudeSpectrum[0] = %v, want 5", mag[0])
	}
}
