// Package compare implements the VoiceprintComparator: scoring how
// similar two voiceprints are, for use by Verify.
package compare

import (
	"math"

	"voiceauth/internal/corefail"
	"voiceauth/internal/voiceprint"
)

const (
	meanSimWeight     = 0.6
	stdCorrWeight     = 0.2
	spectralSimWeight = 0.2
	epsilon           = 1e-8
)

// Comparator scores similarity between two voiceprints.
type Comparator struct{}

func NewComparator() *Comparator { return &Comparator{} }

// Compare returns a similarity score in [0, 1]. The mean-similarity term
// is the raw (unclamped) cosine similarity between MFCC means — any
// negative contribution is absorbed by the final clamp, not clamped away
// here, matching a literal reading of the weighted-combination formula.
func (c *Comparator) Compare(a, b *voiceprint.Voiceprint) (float64, error) {
	const stage = "compare"

	if a.SchemaVersion != b.SchemaVersion {
		return 0, corefail.New(corefail.SchemaMismatch, stage)
	}

	meanSim := cosineSimilarity(a.MFCCStats.Mean, b.MFCCStats.Mean)

	stdCorr := pearsonCorrelation(a.MFCCStats.Std, b.MFCCStats.Std)
	if math.IsNaN(stdCorr) {
		stdCorr = 0.0
	}

	spectralSim := spectralSimilarity(a.SpectralMeans, b.SpectralMeans)

	final := meanSimWeight*meanSim + stdCorrWeight*math.Abs(stdCorr) + spectralSimWeight*spectralSim

	if final < 0 {
		return 0, nil
	}
	if final > 1 {
		return 1, nil
	}
	return final, nil
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

func pearsonCorrelation(a, b []float64) float64 {
	n := len(a)
	if n == 0 {
		return math.NaN()
	}

	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	denom := math.Sqrt(varA) * math.Sqrt(varB)
	if denom == 0 {
		return math.NaN()
	}
	return cov / denom
}

// spectralSimilarity averages a symmetric relative-difference similarity
// over centroid, rolloff, and bandwidth.
func spectralSimilarity(a, b voiceprint.SpectralMeans) float64 {
	sims := []float64{
		relativeSimilarity(a.Centroid, b.Centroid),
		relativeSimilarity(a.Rolloff, b.Rolloff),
		relativeSimilarity(a.Bandwidth, b.Bandwidth),
	}

	var sum float64
	for _, s := range sims {
		sum += s
	}
	return sum / float64(len(sims))
}

func relativeSimilarity(x, y float64) float64 {
	return 1.0 - math.Abs(x-y)/(math.Abs(x)+math.Abs(y)+epsilon)
}
