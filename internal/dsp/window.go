package dsp

import "math"

// HannWindow returns a periodic Hann window of length n, as used for the
// MFCC STFT (n_fft=2048, matching librosa's default periodic Hann).
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// ApplyWindow multiplies frame by window in place. Both must share length.
func ApplyWindow(frame, window []float64) {
	for i := range frame {
		frame[i] *= window[i]
	}
}
