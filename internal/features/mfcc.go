// Package features implements the FeatureExtractor stage: turning a
// preprocessed mono signal into the stacked MFCC/delta/delta-delta matrix
// and the per-frame spectral descriptors, all sharing one frame grid.
package features

import (
	"math"

	"voiceauth/internal/corefail"
	"voiceauth/internal/dsp"
	"voiceauth/internal/voiceprint"
)

const (
	nFFT        = 2048
	hopLength   = 512
	deltaWindow = 9
	melLow      = 0.0
	chromaBins  = 12
	a4Freq      = 440.0
	pitchThresh = 0.1
	rolloffPct  = 0.85
)

// Extractor computes MFCC-stacked features and spectral descriptors.
type Extractor struct {
	SampleRate int
	NMFCC      int

	window []float64
	melFB  [][]float64
}

func NewExtractor(sampleRate, nMFCC int) *Extractor {
	return &Extractor{
		SampleRate: sampleRate,
		NMFCC:      nMFCC,
		window:     dsp.HannWindow(nFFT),
		melFB:      dsp.MelFilterbank(nMFCC, nFFT, sampleRate, melLow, float64(sampleRate)/2),
	}
}

// frameSpectra returns the power spectrum and complex STFT for every frame
// of y, zero-padded/truncated to nFFT. Frames are centered the way
// librosa's default framing centers each analysis window.
func (e *Extractor) frameSpectra(y []float32) ([][]float64, [][]complex128) {
	padded := centerPad(y, nFFT/2)
	frames := dsp.Frame(padded, nFFT, hopLength)

	powers := make([][]float64, len(frames))
	stfts := make([][]complex128, len(frames))
	for i, f := range frames {
		windowed := make([]float64, nFFT)
		copy(windowed, f)
		dsp.ApplyWindow(windowed, e.window)

		c := make([]complex128, nFFT)
		for j, v := range windowed {
			c[j] = complex(v, 0)
		}
		dsp.FFT(c)

		stfts[i] = c
		powers[i] = dsp.PowerSpectrum(c)
	}
	return powers, stfts
}

func centerPad(y []float32, pad int) []float32 {
	out := make([]float32, len(y)+2*pad)
	copy(out[pad:], y)
	return out
}

// Extract computes the 3*NMFCC x T feature matrix (MFCC, delta,
// delta-delta stacked) and the spectral descriptor sequences for y.
func (e *Extractor) Extract(y []float32) (*voiceprint.FeatureMatrix, *voiceprint.SpectralDescriptors, error) {
	const stage = "features.extract"

	powers, stfts := e.frameSpectra(y)
	nFrames := len(powers)
	if nFrames == 0 {
		return nil, nil, corefail.New(corefail.EmptySignal, stage)
	}

	mfcc := make([][]float64, nFrames)
	for t, p := range powers {
		mfcc[t] = e.mfccFrame(p)
	}

	delta := deltas(mfcc, deltaWindow)
	delta2 := deltas(delta, deltaWindow)

	fm := voiceprint.NewFeatureMatrix(3*e.NMFCC, nFrames)
	for t := 0; t < nFrames; t++ {
		for c := 0; c < e.NMFCC; c++ {
			fm.Data[c][t] = float32(mfcc[t][c])
			fm.Data[e.NMFCC+c][t] = float32(delta[t][c])
			fm.Data[2*e.NMFCC+c][t] = float32(delta2[t][c])
		}
	}

	desc, err := e.spectralDescriptors(y, powers, stfts)
	if err != nil {
		return nil, nil, err
	}

	if err := checkFinite(fm); err != nil {
		return nil, nil, err
	}
	if err := checkDescriptorsFinite(desc); err != nil {
		return nil, nil, err
	}

	return fm, desc, nil
}

// mfccFrame reduces one frame's power spectrum through the mel filterbank,
// log-compresses, and applies DCT-II to yield NMFCC cepstral coefficients.
func (e *Extractor) mfccFrame(power []float64) []float64 {
	logMel := make([]float64, e.NMFCC)
	for m, filt := range e.melFB {
		var energy float64
		for k, w := range filt {
			energy += w * power[k]
		}
		logMel[m] = math.Log(energy + 1e-10)
	}
	return dsp.DCT2(logMel, e.NMFCC)
}

// deltas computes central-difference deltas over the time axis of a
// []frame-major matrix, using librosa's windowed regression formula with
// the given window width (must be odd).
func deltas(x [][]float64, width int) [][]float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	dim := len(x[0])
	half := width / 2

	var denom float64
	for i := 1; i <= half; i++ {
		denom += 2 * float64(i*i)
	}
	if denom == 0 {
		denom = 1
	}

	out := make([][]float64, n)
	for t := 0; t < n; t++ {
		out[t] = make([]float64, dim)
		for i := 1; i <= half; i++ {
			fwd := clampIndex(t+i, n)
			bwd := clampIndex(t-i, n)
			for d := 0; d < dim; d++ {
				out[t][d] += float64(i) * (x[fwd][d] - x[bwd][d])
			}
		}
		for d := 0; d < dim; d++ {
			out[t][d] /= denom
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func checkFinite(fm *voiceprint.FeatureMatrix) error {
	for _, row := range fm.Data {
		for _, v := range row {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return corefail.New(corefail.FeatureNaN, "features.extract")
			}
		}
	}
	return nil
}

func checkDescriptorsFinite(d *voiceprint.SpectralDescriptors) error {
	seqs := [][]float32{d.Centroid, d.Rolloff, d.Bandwidth, d.ZCR, d.F0}
	for _, seq := range seqs {
		if !allFinite(seq) {
			return corefail.New(corefail.FeatureNaN, "features.extract")
		}
	}
	for _, row := range d.Chroma {
		if !allFinite(row) {
			return corefail.New(corefail.FeatureNaN, "features.extract")
		}
	}
	return nil
}

func allFinite(xs []float32) bool {
	for _, v := range xs {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
