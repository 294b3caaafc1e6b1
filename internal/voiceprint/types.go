// Package voiceprint defines the core data model shared by the audio
// pipeline, the comparator, the integrity hasher, and the at-rest cipher:
// the plaintext signal and feature types that exist only transiently in
// memory, and the fixed, version-stamped Voiceprint and VoiceprintRecord
// that get persisted.
package voiceprint

import "time"

// SchemaV1 is the only feature-layout version this build understands.
// A future layout bump adds SchemaV2 alongside it rather than widening V1.
const SchemaV1 = "1.0"

// PCMSignal is mono float32 PCM in [-1, 1] at SampleRate Hz. It never
// leaves the process and is never persisted.
type PCMSignal struct {
	SampleRate int
	Samples    []float32
}

// DurationSeconds returns the signal's length in seconds.
func (s PCMSignal) DurationSeconds() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// SignalMetadata summarizes the preprocessed signal for the quality and
// liveness scorers.
type SignalMetadata struct {
	DurationSeconds float64
	SpeechRatio     float64
	MaxAmplitude    float64
	EnergyVariance  float64
	Warnings        []string
}

// HasWarning reports whether the given warning flag is set.
func (m SignalMetadata) HasWarning(w string) bool {
	for _, x := range m.Warnings {
		if x == w {
			return true
		}
	}
	return false
}

const WarningInsufficientSpeech = "insufficient_speech"

// FeatureMatrix is the stacked MFCC + delta + delta-delta matrix,
// NChannels (= 3*n_mfcc) rows by NFrames columns.
type FeatureMatrix struct {
	NChannels int
	NFrames   int
	Data      [][]float32 // Data[channel][frame]
}

// NewFeatureMatrix allocates a zeroed matrix of the given shape.
func NewFeatureMatrix(nChannels, nFrames int) *FeatureMatrix {
	data := make([][]float32, nChannels)
	for i := range data {
		data[i] = make([]float32, nFrames)
	}
	return &FeatureMatrix{NChannels: nChannels, NFrames: nFrames, Data: data}
}

// SpectralDescriptors holds the per-frame descriptor sequences, all sharing
// the MFCC frame grid.
type SpectralDescriptors struct {
	Centroid  []float32
	Rolloff   []float32
	Bandwidth []float32
	ZCR       []float32
	Chroma    [][]float32 // Chroma[bin][frame], 12 bins
	F0        []float32
}

// MFCCStats is the time-reduced statistical summary of the feature matrix:
// four vectors of length NChannels.
type MFCCStats struct {
	Mean []float64
	Std  []float64
	Min  []float64
	Max  []float64
}

// SpectralMeans is the scalar reduction of each spectral descriptor.
type SpectralMeans struct {
	Centroid   float64
	Rolloff    float64
	Bandwidth  float64
	ZCR        float64
	ChromaMean float64
	F0Mean     float64
}

// Voiceprint is the fixed-size statistical summary of one speech sample.
type Voiceprint struct {
	SchemaVersion string
	MFCCStats     MFCCStats
	SpectralMeans SpectralMeans
	SignalMeta    SignalMetadata
	CreatedAt     time.Time
}

// Zero overwrites every numeric field of v with zero values. Called on any
// plaintext Voiceprint the caller is done with, per the Data Model's
// "zeroed when dropped where the platform allows" ownership note — Go
// cannot force deallocation, but this at least removes the values from the
// struct before it becomes garbage.
func (v *Voiceprint) Zero() {
	zeroF64(v.MFCCStats.Mean)
	zeroF64(v.MFCCStats.Std)
	zeroF64(v.MFCCStats.Min)
	zeroF64(v.MFCCStats.Max)
	v.SpectralMeans = SpectralMeans{}
	v.SignalMeta = SignalMetadata{}
}

func zeroF64(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

// VoiceprintRecord is the self-describing envelope persisted per user.
type VoiceprintRecord struct {
	UserID             string
	SchemaVersion      string
	Salt               string // 32 hex chars (16 bytes)
	Ciphertext         []byte
	IntegrityHash      string // 64 hex chars (sha256)
	QualityScore       float64
	EnrollmentDuration float64
	CreatedAt          time.Time
}
