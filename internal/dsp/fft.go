// Package dsp holds the low-level numeric building blocks shared by the
// feature extractor: framing, windowing, FFT, the mel filterbank, and the
// DCT used to turn log mel energies into cepstral coefficients. Nothing in
// this package knows about voiceprints or users — it operates on plain
// float64/complex128 slices.
package dsp

import (
	"math"
	"math/cmplx"
)

// FFT computes the in-place iterative radix-2 Cooley-Tukey transform of x.
// len(x) must be a power of two; callers are responsible for zero-padding.
func FFT(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for j&bit != 0 {
			j ^= bit
			bit >>= 1
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	// Iterative butterfly stages.
	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		wn := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1.0, 0.0)
			for k := 0; k < half; k++ {
				u := x[start+k]
				t := w * x[start+k+half]
				x[start+k] = u + t
				x[start+k+half] = u - t
				w *= wn
			}
		}
	}
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerSpectrum returns |X[k]|^2 for k in [0, len(x)/2], i.e. the
// non-redundant half of the spectrum of a real-valued FFT input.
func PowerSpectrum(x []complex128) []float64 {
	half := len(x)/2 + 1
	out := make([]float64, half)
	for k := 0; k < half; k++ {
		r := real(x[k])
		im := imag(x[k])
		out[k] = r*r + im*im
	}
	return out
}

// MagnitudeSpectrum returns |X[k]| for k in [0, len(x)/2].
func MagnitudeSpectrum(x []complex128) []float64 {
	half := len(x)/2 + 1
	out := make([]float64, half)
	for k := 0; k < half; k++ {
		out[k] = cmplx.Abs(x[k])
	}
	return out
}
