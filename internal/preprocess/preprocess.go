// Package preprocess implements the Preprocessor stage: pre-emphasis,
// peak normalization, and voice-activity framing over a decoded PCM
// signal.
package preprocess

import (
	"math"

	"voiceauth/internal/corefail"
	"voiceauth/internal/dsp"
	"voiceauth/internal/voiceprint"
)

const (
	preEmphasisAlpha  = 0.97
	frameMs           = 25
	hopMs             = 10
	vadThreshold      = 0.01
	silentSignalFloor = 1e-9
)

// Preprocessor applies pre-emphasis, normalization, and VAD framing to a
// decoded signal, yielding a cleaned signal plus its SignalMetadata.
type Preprocessor struct {
	MinSpeechDurationS float64
}

func NewPreprocessor(minSpeechDurationS float64) *Preprocessor {
	return &Preprocessor{MinSpeechDurationS: minSpeechDurationS}
}

// Process runs the full preprocessing chain over sig.
func (p *Preprocessor) Process(sig *voiceprint.PCMSignal) ([]float32, voiceprint.SignalMetadata, error) {
	const stage = "preprocess"

	if len(sig.Samples) == 0 {
		return nil, voiceprint.SignalMetadata{}, corefail.New(corefail.EmptySignal, stage)
	}

	y := preEmphasize(sig.Samples)

	peak := peakAbs(y)
	if peak < silentSignalFloor {
		return nil, voiceprint.SignalMetadata{}, corefail.New(corefail.SilentSignal, stage)
	}
	normalize(y, peak)

	frameLen := sig.SampleRate * frameMs / 1000
	hop := sig.SampleRate * hopMs / 1000
	frames := dsp.Frame(y, frameLen, hop)

	meta := computeMetadata(y, frames, sig.SampleRate, hop, p.MinSpeechDurationS)
	return y, meta, nil
}

func preEmphasize(x []float32) []float32 {
	y := make([]float32, len(x))
	y[0] = x[0]
	for n := 1; n < len(x); n++ {
		y[n] = x[n] - preEmphasisAlpha*x[n-1]
	}
	return y
}

func peakAbs(x []float32) float64 {
	var peak float64
	for _, v := range x {
		a := math.Abs(float64(v))
		if a > peak {
			peak = a
		}
	}
	return peak
}

func normalize(x []float32, peak float64) {
	inv := float32(1.0 / peak)
	for i := range x {
		x[i] *= inv
	}
}

func computeMetadata(y []float32, frames [][]float64, sampleRate, hop int, minSpeechDurationS float64) voiceprint.SignalMetadata {
	energies := make([]float64, len(frames))
	maxEnergy := 0.0
	for i, f := range frames {
		e := 0.0
		for _, v := range f {
			e += v * v
		}
		energies[i] = e
		if e > maxEnergy {
			maxEnergy = e
		}
	}

	speechFrames := 0
	threshold := vadThreshold * maxEnergy
	for _, e := range energies {
		if e > threshold {
			speechFrames++
		}
	}

	speechRatio := 0.0
	if len(frames) > 0 {
		speechRatio = float64(speechFrames) / float64(len(frames))
	}

	meta := voiceprint.SignalMetadata{
		DurationSeconds: float64(len(y)) / float64(sampleRate),
		SpeechRatio:     speechRatio,
		MaxAmplitude:    peakAbs(y),
		EnergyVariance:  variance(energies),
	}

	minSpeechFrames := minSpeechDurationS * float64(sampleRate) / float64(hop)
	if float64(speechFrames) < minSpeechFrames {
		meta.Warnings = append(meta.Warnings, voiceprint.WarningInsufficientSpeech)
	}

	return meta
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))

	var sq float64
	for _, v := range xs {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(xs))
}
