// Package quality implements the QualityScorer: a multiplicative penalty
// model that rates how suitable an enrollment sample is, independent of
// whose voice it is.
package quality

import (
	"voiceauth/internal/voiceprint"
)

const (
	speechRatioFloor   = 0.6
	speechRatioPenalty = 0.7

	minDurationS         = 2.0
	shortDurationPenalty = 0.8

	energyVarianceFloor   = 0.01
	energyVariancePenalty = 0.6

	mfccVarianceFloor   = 10.0
	mfccVariancePenalty = 0.8

	centroidVarianceFloor   = 1000.0
	centroidVariancePenalty = 0.9
)

// Scorer computes the enrollment quality score.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Score starts at 1.0 and applies a multiplicative penalty for each
// undesirable signal property observed, clamped to [0, 1].
func (s *Scorer) Score(meta voiceprint.SignalMetadata, fm *voiceprint.FeatureMatrix, desc *voiceprint.SpectralDescriptors) float64 {
	score := 1.0

	if meta.SpeechRatio < speechRatioFloor {
		score *= speechRatioPenalty
	}
	if meta.DurationSeconds < minDurationS {
		score *= shortDurationPenalty
	}
	if meta.EnergyVariance < energyVarianceFloor {
		score *= energyVariancePenalty
	}
	if meanRowVariance(fm) < mfccVarianceFloor {
		score *= mfccVariancePenalty
	}
	if varianceFloat32(desc.Centroid) < centroidVarianceFloor {
		score *= centroidVariancePenalty
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// meanRowVariance returns the mean, across all rows of fm, of each row's
// variance over time — the same reduction the original scorer applies to
// its stacked MFCC/delta/delta-delta matrix.
func meanRowVariance(fm *voiceprint.FeatureMatrix) float64 {
	if fm.NChannels == 0 {
		return 0
	}
	var sum float64
	for _, row := range fm.Data {
		sum += varianceFloat32(row)
	}
	return sum / float64(fm.NChannels)
}

func varianceFloat32(xs []float32) float64 {
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
		d := float64(v) - mean
		sq += d * d
	}
	return sq / float64(len(xs))
}
