package integrity

import (
	"testing"
	"time"

	"voiceauth/internal/voiceprint"
)

func sampleVoiceprint() *voiceprint.Voiceprint {
	return &voiceprint.Voiceprint{
		SchemaVersion: voiceprint.SchemaV1,
		MFCCStats: voiceprint.MFCCStats{
			Mean: []float64{1.1, 2.2, 3.3},
			Std:  []float64{0.1, 0.2, 0.3},
			Min:  []float64{-1, -2, -3},
			Max:  []float64{4, 5, 6},
		},
		SpectralMeans: voiceprint.SpectralMeans{
			Centroid:   1500.5,
			Rolloff:    3200.1,
			Bandwidth:  900.25,
			ZCR:        0.05,
			ChromaMean: 0.4,
			F0Mean:     180.0,
		},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDigestDeterministic(t *testing.T) {
	v1 := sampleVoiceprint()
	v2 := sampleVoiceprint()

	if Digest(v1) != Digest(v2) {
		t.Fatal("expected identical Voiceprints to produce identical digests")
	}
}

func TestDigestIgnoresCreatedAt(t *testing.T) {
	v1 := sampleVoiceprint()
	v2 := sampleVoiceprint()
	v2.CreatedAt = time.Now()

	if Digest(v1) != Digest(v2) {
		t.Fatal("expected digest to be independent of CreatedAt")
	}
}

func TestDigestChangesWithMFCC(t *testing.T) {
	v1 := sampleVoiceprint()
	v2 := sampleVoiceprint()
	v2.MFCCStats.Mean[0] += 0.0001

	if Digest(v1) == Digest(v2) {
		t.Fatal("expected digest to change with MFCC mean")
	}
}

func TestVerify(t *testing.T) {
	v := sampleVoiceprint()
	want := Digest(v)

	if !Verify(v, want) {
		t.Fatal("expected Verify to succeed against its own digest")
	}
	if Verify(v, "not-a-real-digest") {
		t.Fatal("expected Verify to fail against a bogus digest")
	}
}

func TestDigestLength(t *testing.T) {
	v := sampleVoiceprint()
	d := Digest(v)
	if len(d) != 64 {
		t.Fatalf("len(Digest) = %d, want 64 (sha256 hex)", len(d))
	}
}
