// Package liveness implements the LivenessDetector: a lightweight
// anti-spoofing check that flags recordings and synthetic speech before
// they reach enrollment or verification.
package liveness

import (
	"math"

	"voiceauth/internal/dsp"
	"voiceauth/internal/voiceprint"
)

const (
	entropyFloor   = 5.0
	entropyPenalty = 0.6

	f0StdFloor   = 10.0
	f0StdPenalty = 0.7

	speechRatioCeiling = 0.95
	continuousPenalty  = 0.8

	energyVarianceFloor = 0.005
	staticAmpPenalty    = 0.7

	stftFrameLen = 256
	stftHop      = 128
)

// Result is the outcome of a liveness check.
type Result struct {
	IsLive bool
	Score  float64
}

// Detector computes the liveness score for a preprocessed signal.
type Detector struct{}

func NewDetector() *Detector { return &Detector{} }

// Detect runs the four anti-spoofing checks over y (pre-emphasized,
// normalized signal) and desc.F0 (the extractor's pitch track), combining
// them into a single multiplicative score. threshold is the caller's
// configured liveness threshold; IsLive is score > threshold, so the
// decision is fully governed by the caller's configuration rather than a
// second, fixed cutoff baked into this package.
func (d *Detector) Detect(y []float32, meta voiceprint.SignalMetadata, desc *voiceprint.SpectralDescriptors, threshold float64) Result {
	score := 1.0

	if stftFreqEntropy(y) < entropyFloor {
		score *= entropyPenalty
	}

	f0Std := stdFloat32(desc.F0)
	if len(desc.F0) > 1 && f0Std < f0StdFloor {
		score *= f0StdPenalty
	}

	if meta.SpeechRatio > speechRatioCeiling {
		score *= continuousPenalty
	}

	if meta.EnergyVariance < energyVarianceFloor {
		score *= staticAmpPenalty
	}

	return Result{
		IsLive: score > threshold,
		Score:  score,
	}
}

// stftFreqEntropy computes the average per-frame spectral entropy of y
// over a short-window STFT, a cheap proxy for "too uniform to be a live
// recording".
func stftFreqEntropy(y []float32) float64 {
	window := dsp.HannWindow(stftFrameLen)
	frames := dsp.Frame(y, stftFrameLen, stftHop)
	if len(frames) == 0 {
		return 0
	}

	var total float64
	for _, f := range frames {
		windowed := make([]float64, stftFrameLen)
		copy(windowed, f)
		dsp.ApplyWindow(windowed, window)

		c := make([]complex128, stftFrameLen)
		for i, v := range windowed {
			c[i] = complex(v, 0)
		}
		dsp.FFT(c)

		mag := dsp.MagnitudeSpectrum(c)
		var entropy float64
		for _, m := range mag {
			entropy += -m * math.Log(m+1e-8)
		}
		total += entropy
	}
	return total / float64(len(frames))
}

func stdFloat32(xs []float32) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, v := range xs {
		mean += float64(v)
	}
	mean /= float64(len(xs))

	var sq float64
	for _, v := range xs {
		diff := float64(v) - mean
		sq += diff * diff
	}
	return math.Sqrt(sq / float64(len(xs)))
}
