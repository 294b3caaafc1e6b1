package features

import (
	"math"
	"time"

	"voiceauth/internal/voiceprint"
)

// Builder reduces a FeatureMatrix and its SpectralDescriptors to a
// fixed-size Voiceprint.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

// Build reduces fm's 3*NMFCC x T stack to four length-3*NMFCC vectors and
// each spectral descriptor sequence to its scalar mean, attaching meta and
// a UTC creation timestamp.
func (b *Builder) Build(fm *voiceprint.FeatureMatrix, desc *voiceprint.SpectralDescriptors, meta voiceprint.SignalMetadata, now time.Time) *voiceprint.Voiceprint {
	stats := reduceMFCC(fm)

	return &voiceprint.Voiceprint{
		SchemaVersion: voiceprint.SchemaV1,
		MFCCStats:     stats,
		SpectralMeans: voiceprint.SpectralMeans{
			Centroid:   meanFloat32(desc.Centroid),
			Rolloff:    meanFloat32(desc.Rolloff),
			Bandwidth:  meanFloat32(desc.Bandwidth),
			ZCR:        meanFloat32(desc.ZCR),
			ChromaMean: meanChroma(desc.Chroma),
			F0Mean:     meanFloat32(desc.F0),
		},
		SignalMeta: meta,
		CreatedAt:  now.UTC(),
	}
}

func reduceMFCC(fm *voiceprint.FeatureMatrix) voiceprint.MFCCStats {
	stats := voiceprint.MFCCStats{
		Mean: make([]float64, fm.NChannels),
		Std:  make([]float64, fm.NChannels),
		Min:  make([]float64, fm.NChannels),
		Max:  make([]float64, fm.NChannels),
	}

	for c := 0; c < fm.NChannels; c++ {
		row := fm.Data[c]
		mean, std, min, max := rowStats(row)
		stats.Mean[c] = mean
		stats.Std[c] = std
		stats.Min[c] = min
		stats.Max[c] = max
	}
	return stats
}

func rowStats(row []float32) (mean, std, min, max float64) {
	if len(row) == 0 {
		return 0, 0, 0, 0
	}

	min = float64(row[0])
	max = float64(row[0])
	var sum float64
	for _, v := range row {
		f := float64(v)
		sum += f
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	mean = sum / float64(len(row))

	var sq float64
	for _, v := range row {
		d := float64(v) - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(row)))

	return mean, std, min, max
}

func meanFloat32(xs []float32) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	return sum / float64(len(xs))
}

// meanChroma averages chroma's per-frame means across all 12 pitch-class
// bins, matching the original encoder's treatment of any feature whose
// leading axis has more than one row: reduce to a single scalar mean of
// means rather than one scalar per bin.
func meanChroma(chroma [][]float32) float64 {
	if len(chroma) == 0 {
		return 0
	}
	var sum float64
	for _, row := range chroma {
		sum += meanFloat32(row)
	}
	return sum / float64(len(chroma))
}
