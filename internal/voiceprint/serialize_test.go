package voiceprint

import (
	"testing"
	"time"
)

func sampleVoiceprint() *Voiceprint {
	return &Voiceprint{
		SchemaVersion: SchemaV1,
		MFCCStats: MFCCStats{
			Mean: []float64{1, 2, 3, 4},
			Std:  []float64{0.1, 0.2, 0.3, 0.4},
			Min:  []float64{-1, -2, -3, -4},
			Max:  []float64{5, 6, 7, 8},
		},
		SpectralMeans: SpectralMeans{
			Centroid:   1234.5,
			Rolloff:    3456.7,
			Bandwidth:  890.1,
			ZCR:        0.08,
			ChromaMean: 0.33,
			F0Mean:     150.2,
		},
		SignalMeta: SignalMetadata{
			DurationSeconds: 4.2,
			SpeechRatio:     0.81,
			MaxAmplitude:    0.999,
			EnergyVariance:  0.04,
			Warnings:        []string{WarningInsufficientSpeech},
		},
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 123456789, time.UTC),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := sampleVoiceprint()
	decoded, err := Decode(Encode(v))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.SchemaVersion != v.SchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", decoded.SchemaVersion, v.SchemaVersion)
	}
	if !equalF64(decoded.MFCCStats.Mean, v.MFCCStats.Mean) {
		t.Errorf("MFCCStats.Mean = %v, want %v", decoded.MFCCStats.Mean, v.MFCCStats.Mean)
	}
	if decoded.SpectralMeans != v.SpectralMeans {
		t.Errorf("SpectralMeans = %+v, want %+v", decoded.SpectralMeans, v.SpectralMeans)
	}
	if decoded.SignalMeta.DurationSeconds != v.SignalMeta.DurationSeconds {
		t.Errorf("DurationSeconds = %v, want %v", decoded.SignalMeta.DurationSeconds, v.SignalMeta.DurationSeconds)
	}
	if len(decoded.SignalMeta.Warnings) != 1 || decoded.SignalMeta.Warnings[0] != WarningInsufficientSpeech {
		t.Errorf("Warnings = %v, want [%s]", decoded.SignalMeta.Warnings, WarningInsufficientSpeech)
	}
	if !decoded.CreatedAt.Equal(v.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", decoded.CreatedAt, v.CreatedAt)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := Encode(sampleVoiceprint())
	data[0] = 'X'

	if _, err := Decode(data); err == nil {
		t.Fatal("expected Decode to reject corrupted magic bytes")
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	data := Encode(sampleVoiceprint())
	if _, err := Decode(data[:len(data)-10]); err == nil {
		t.Fatal("expected Decode to reject truncated payload")
	}
}

func TestDecodeRejectsStringTruncatedMidField(t *testing.T) {
	data := Encode(sampleVoiceprint())
	// magic(4) + length-prefix(4) covers the SchemaVersion "1.0" (len 3);
	// cutting one byte into that string must surface a decode error rather
	// than silently zero-filling the missing byte.
	truncated := data[:4+4+1]
	if _, err := Decode(truncated); err == nil {
		t.Fatal("expected Decode to reject a string field truncated mid-value")
	}
}

func TestZeroClearsNumericFields(t *testing.T) {
	v := sampleVoiceprint()
	v.Zero()

	for _, f := range [][]float64{v.MFCCStats.Mean, v.MFCCStats.Std, v.MFCCStats.Min, v.MFCCStats.Max} {
		for _, x := range f {
			if x != 0 {
				t.Fatalf("expected all MFCCStats fields zeroed, found %v", x)
			}
		}
	}
	if v.SpectralMeans != (SpectralMeans{}) {
		t.Fatalf("expected SpectralMeans zeroed, got %+v", v.SpectralMeans)
	}
}

func equalF64(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
