package voiceprint

import "testing"

func TestPCMSignalDurationSeconds(t *testing.T) {
	s := PCMSignal{SampleRate: 16000, Samples: make([]float32, 32000)}
	if got := s.DurationSeconds(); got != 2.0 {
		t.Errorf("DurationSeconds() = %v, want 2.0", got)
	}
}

func TestPCMSignalDurationSecondsZeroSampleRate(t *testing.T) {
	s := PCMSignal{SampleRate: 0, Samples: make([]float32, 100)}
	if got := s.DurationSeconds(); got != 0 {
		t.Errorf("DurationSeconds() with zero sample rate = %v, want 0", got)
	}
}

func TestSignalMetadataHasWarning(t *testing.T) {
	m := SignalMetadata{Warnings: []string{WarningInsufficientSpeech}}
	if !m.HasWarning(WarningInsufficientSpeech) {
		t.Error("expected HasWarning to find the set flag")
	}
	if m.HasWarning("not_set") {
		t.Error("expected HasWarning to return false for an unset flag")
	}
}

func TestVoiceprintZeroClearsFields(t *testing.T) {
	v := &Voiceprint{
		MFCCStats:     MFCCStats{Mean: []float64{1, 2}, Std: []float64{3, 4}, Min: []float64{5}, Max: []float64{6}},
		SpectralMeans: SpectralMeans{Centroid: 1.5},
		SignalMeta:    SignalMetadata{SpeechRatio: 0.8},
	}
	v.Zero()

	for _, got := range [][]float64{v.MFCCStats.Mean, v.MFCCStats.Std, v.MFCCStats.Min, v.MFCCStats.Max} {
		for _, x := range got {
			if x != 0 {
				t.Errorf("expected all MFCCStats values zeroed, found %v", x)
			}
		}
	}
	if v.SpectralMeans != (SpectralMeans{}) {
		t.Errorf("SpectralMeans = %+v, want zero value", v.SpectralMeans)
	}
	if v.SignalMeta.SpeechRatio != 0 {
		t.Errorf("SignalMeta.SpeechRatio = %v, want 0", v.SignalMeta.SpeechRatio)
	}
}
