package features

import (
	"testing"
	"time"

	"voiceauth/internal/voiceprint"
)

func TestBuildReducesToFixedSize(t *testing.T) {
	fm := voiceprint.NewFeatureMatrix(6, 10)
	for c := range fm.Data {
		for i := range fm.Data[c] {
			fm.Data[c][i] = float32(c + i)
		}
	}
	desc := &voiceprint.SpectralDescriptors{
		Centroid:  []float32{100, 200, 300},
		Rolloff:   []float32{400, 500, 600},
		Bandwidth: []float32{10, 20, 30},
		ZCR:       []float32{0.1, 0.2, 0.3},
		F0:        []float32{120, 130, 140},
		Chroma:    [][]float32{{1, 2}, {3, 4}},
	}
	meta := voiceprint.SignalMetadata{DurationSeconds: 2.0}

	b := NewBuilder()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	vp := b.Build(fm, desc, meta, now)

	if vp.SchemaVersion != voiceprint.SchemaV1 {
		t.Errorf("SchemaVersion = %q, want %q", vp.SchemaVersion, voiceprint.SchemaV1)
	}
	if len(vp.MFCCStats.Mean) != 6 {
		t.Fatalf("len(Mean) = %d, want 6", len(vp.MFCCStats.Mean))
	}
	if vp.SpectralMeans.Centroid != 200 {
		t.Errorf("Centroid mean = %v, want 200", vp.SpectralMeans.Centroid)
	}
	if vp.SpectralMeans.ChromaMean != 2.5 {
		t.Errorf("ChromaMean = %v, want 2.5", vp.SpectralMeans.ChromaMean)
	}
	if !vp.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", vp.CreatedAt, now)
	}
}

func TestRowStatsEmpty(t *testing.T) {
	mean, std, min, max := rowStats(nil)
	if mean != 0 || std != 0 || min != 0 || max != 0 {
		t.Fatalf("rowStats(nil) = (%v,%v,%v,%v), want all zero", mean, std, min, max)
	}
}

func TestRowStatsKnownValues(t *testing.T) {
	mean, std, min, max := rowStats([]float32{1, 2, 3, 4, 5})
	if mean != 3 {
		t.Errorf("mean = %v, want 3", mean)
	}
	if min != 1 || max != 5 {
		t.Errorf("min,max = %v,%v want 1,5", min, max)
	}
	wantStd := 1.4142135623730951
	if diff := std - wantStd; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("std = %v, want %v", std, wantStd)
	}
}
