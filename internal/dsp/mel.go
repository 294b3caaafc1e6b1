package dsp

import "math"

// HzToMel and MelToHz use the HTK mel-scale convention (not Slaney), which
// is what this package's mel filterbank and MFCC stage are built on and
// calibrated against; this is the documented choice the component design
// for MFCC extraction requires implementations to pin down and keep
// stable.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterbank builds numMels triangular filters over the non-redundant
// half of an fftSize-point FFT of a sampleRate-Hz signal, spanning
// [lowFreq, highFreq]. Returns filterbank[mel][bin] weights.
func MelFilterbank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	halfFFT := fftSize/2 + 1

	melLow := HzToMel(lowFreq)
	melHigh := HzToMel(highFreq)

	melPoints := make([]float64, numMels+2)
	for i := range melPoints {
		melPoints[i] = melLow + float64(i)*(melHigh-melLow)/float64(numMels+1)
	}

	binIndices := make([]int, numMels+2)
	for i, mp := range melPoints {
		hz := MelToHz(mp)
		bin := int(math.Floor(hz * float64(fftSize) / float64(sampleRate)))
		if bin >= halfFFT {
			bin = halfFFT - 1
		}
		if bin < 0 {
			bin = 0
		}
		binIndices[i] = bin
	}

	fb := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		fb[m] = make([]float64, halfFFT)
		left := binIndices[m]
		center := binIndices[m+1]
		right := binIndices[m+2]

		for k := left; k <= center && k < halfFFT; k++ {
			if center > left {
				fb[m][k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right && k < halfFFT; k++ {
			if right > center {
				fb[m][k] = float64(right-k) / float64(right-center)
			}
		}
	}
	return fb
}

// DCT2 applies the orthonormal type-II discrete cosine transform used to
// decorrelate log mel energies into cepstral coefficients, returning the
// first nOut coefficients.
func DCT2(in []float64, nOut int) []float64 {
	n := len(in)
	out := make([]float64, nOut)
	for k := 0; k < nOut; k++ {
		var sum float64
		for i, v := range in {
			sum += v * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		out[k] = sum * scale
	}
	return out
}
