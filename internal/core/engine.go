// Package core wires the pipeline stages — decode, preprocess, extract,
// build, score, compare, encrypt — into the two operations the rest of
// the system calls: Enroll and Verify, plus Delete. It is stateless and
// re-entrant: every method takes its inputs by value and touches no
// package-level state beyond the Engine's own immutable collaborators.
package core

import (
	"context"
	"encoding/hex"
	"time"

	"voiceauth/internal/audio"
	"voiceauth/internal/compare"
	"voiceauth/internal/corefail"
	"voiceauth/internal/features"
	"voiceauth/internal/integrity"
	"voiceauth/internal/liveness"
	"voiceauth/internal/preprocess"
	"voiceauth/internal/quality"
	"voiceauth/internal/store"
	"voiceauth/internal/vcipher"
	"voiceauth/internal/voiceprint"
)

// Decision is the outcome of a verification attempt.
type Decision string

const (
	Pass              Decision = "pass"
	Fail              Decision = "fail"
	SpoofingSuspected Decision = "spoofing_suspected"
)

// EnrollResult is returned on successful enrollment.
type EnrollResult struct {
	QualityScore float64
	Warnings     []string
}

// VerifyResult is returned on successful verification.
type VerifyResult struct {
	Similarity float64
	Liveness   float64
	Decision   Decision
}

// Params configures the thresholds and pipeline constants an Engine
// enforces; it is the factory input the redesign note in the original
// spec asked for, in place of global singletons.
type Params struct {
	SampleRate            int
	NMFCC                 int
	MinAudioDurationS     float64
	MaxAudioDurationS     float64
	MinSpeechDurationS    float64
	VerificationThreshold float64
	LivenessThreshold     float64
	QualityMin            float64
	ProcessSecret         string
	PBKDF2Iterations      int
	FFmpegPath            string
}

// Engine is the constructed, reusable handle exposing Enroll/Verify/Delete.
// It holds no per-request state; concurrent calls from multiple
// goroutines are safe as long as the underlying Store is.
type Engine struct {
	params Params

	decoder      *audio.Decoder
	preprocessor *preprocess.Preprocessor
	extractor    *features.Extractor
	builder      *features.Builder
	scorer       *quality.Scorer
	liveness     *liveness.Detector
	comparator   *compare.Comparator
	cipher       *vcipher.Cipher

	store *store.Store
}

// New constructs an Engine from explicit collaborators. st may be nil for
// a pure-compute Engine used only to exercise enroll/verify scoring in
// tests; any persistence-dependent call on such an Engine panics.
func New(p Params, st *store.Store) *Engine {
	return &Engine{
		params:       p,
		decoder:      audio.NewDecoder(p.SampleRate, p.MinAudioDurationS, p.MaxAudioDurationS, p.FFmpegPath),
		preprocessor: preprocess.NewPreprocessor(p.MinSpeechDurationS),
		extractor:    features.NewExtractor(p.SampleRate, p.NMFCC),
		builder:      features.NewBuilder(),
		scorer:       quality.NewScorer(),
		liveness:     liveness.NewDetector(),
		comparator:   compare.NewComparator(),
		cipher:       vcipher.NewCipher(p.ProcessSecret, p.PBKDF2Iterations),
		store:        st,
	}
}

// pipelineOutput is everything stages 1-4 produce for one audio sample:
// the cleaned time-domain signal (liveness needs it directly), the raw
// feature matrix (quality needs its per-frame variance), the spectral
// descriptors, and the reduced Voiceprint summary.
type pipelineOutput struct {
	signal *voiceprint.Voiceprint
	y      []float32
	fm     *voiceprint.FeatureMatrix
	desc   *voiceprint.SpectralDescriptors
}

// runPipeline runs decode through build (stages 1-4) over raw audio bytes.
func (e *Engine) runPipeline(audioBytes []byte, format audio.Format, now time.Time) (*pipelineOutput, error) {
	sig, err := e.decoder.Decode(audioBytes, format)
	if err != nil {
		return nil, err
	}

	y, meta, err := e.preprocessor.Process(sig)
	if err != nil {
		return nil, err
	}

	fm, desc, err := e.extractor.Extract(y)
	if err != nil {
		return nil, err
	}

	vp := e.builder.Build(fm, desc, meta, now)

	return &pipelineOutput{signal: vp, y: y, fm: fm, desc: desc}, nil
}

// buildRecord runs the scoring and encryption stages shared by Enroll and
// Reenroll, stopping short of the persistence call so each caller can pick
// INSERT vs UPDATE semantics.
func (e *Engine) buildRecord(userID string, out *pipelineOutput, now time.Time, stage string) (*store.Record, *EnrollResult, error) {
	vp := out.signal

	q := e.scorer.Score(vp.SignalMeta, out.fm, out.desc)
	if q < e.params.QualityMin {
		return nil, nil, corefail.WithScore(corefail.QualityTooLow, stage, q)
	}

	live := e.liveness.Detect(out.y, vp.SignalMeta, out.desc, e.params.LivenessThreshold)
	if !live.IsLive {
		return nil, nil, corefail.WithScore(corefail.QualityTooLow, stage, live.Score)
	}

	salt, err := e.cipher.GenerateSalt()
	if err != nil {
		return nil, nil, corefail.Wrap(corefail.InternalInvariant, stage, err)
	}

	ciphertext, err := e.cipher.Encrypt(voiceprint.Encode(vp), userID, salt)
	if err != nil {
		return nil, nil, corefail.Wrap(corefail.InternalInvariant, stage, err)
	}

	rec := &store.Record{
		UserID:             userID,
		SchemaVersion:      vp.SchemaVersion,
		Salt:               salt,
		Ciphertext:         ciphertext,
		IntegrityHash:      integrity.Digest(vp),
		QualityScore:       q,
		EnrollmentDuration: vp.SignalMeta.DurationSeconds,
		CreatedAt:          now.UTC(),
	}

	warnings := vp.SignalMeta.Warnings
	vp.Zero()

	return rec, &EnrollResult{QualityScore: q, Warnings: warnings}, nil
}

// Enroll runs the full pipeline over audioBytes, scores its quality, and
// persists an encrypted record for userID. Fails with AlreadyEnrolled if
// a record already exists.
func (e *Engine) Enroll(ctx context.Context, userID string, audioBytes []byte, format audio.Format) (*EnrollResult, error) {
	now := time.Now()

	out, err := e.runPipeline(audioBytes, format, now)
	if err != nil {
		return nil, err
	}

	rec, result, err := e.buildRecord(userID, out, now, "core.enroll")
	if err != nil {
		return nil, err
	}
	if err := e.store.Store(ctx, rec); err != nil {
		return nil, err
	}

	return result, nil
}

// Reenroll replaces the active record for userID atomically, per the Data
// Model's re-enrollment guarantee: the old record is visible to concurrent
// verifications right up until the single UPDATE commits, never a partial
// mix of old and new fields. Fails with NotEnrolled if userID has no active
// record — callers that aren't sure should fall back to Enroll.
func (e *Engine) Reenroll(ctx context.Context, userID string, audioBytes []byte, format audio.Format) (*EnrollResult, error) {
	now := time.Now()

	out, err := e.runPipeline(audioBytes, format, now)
	if err != nil {
		return nil, err
	}

	rec, result, err := e.buildRecord(userID, out, now, "core.reenroll")
	if err != nil {
		return nil, err
	}
	if err := e.store.Replace(ctx, rec); err != nil {
		return nil, err
	}

	return result, nil
}

// Verify decrypts the persisted record for userID, rebuilds a fresh
// voiceprint from audioBytes, and compares the two.
func (e *Engine) Verify(ctx context.Context, userID string, audioBytes []byte, format audio.Format) (*VerifyResult, error) {
	now := time.Now()

	out, err := e.runPipeline(audioBytes, format, now)
	if err != nil {
		return nil, err
	}
	vp := out.signal
	defer vp.Zero()

	rec, err := e.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	plaintext, err := e.cipher.Decrypt(rec.Ciphertext, userID, rec.Salt)
	if err != nil {
		return nil, err
	}

	stored, err := voiceprint.Decode(plaintext)
	if err != nil {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, "core.verify", err)
	}
	defer stored.Zero()

	if !integrity.Verify(stored, rec.IntegrityHash) {
		return nil, corefail.New(corefail.IntegrityViolation, "core.verify")
	}

	sim, err := e.comparator.Compare(vp, stored)
	if err != nil {
		return nil, err
	}

	live := e.liveness.Detect(out.y, vp.SignalMeta, out.desc, e.params.LivenessThreshold)

	decision := Fail
	switch {
	case !live.IsLive:
		decision = SpoofingSuspected
	case sim >= e.params.VerificationThreshold:
		decision = Pass
	}

	return &VerifyResult{Similarity: sim, Liveness: live.Score, Decision: decision}, nil
}

// Delete soft-deletes userID's record.
func (e *Engine) Delete(ctx context.Context, userID string) error {
	return e.store.Delete(ctx, userID, time.Now().UTC())
}

// Inspect returns the persisted record layout for userID without
// decrypting it, for audit and support tooling. The returned Ciphertext
// is the encrypted voiceprint blob as stored; Salt and IntegrityHash are
// hex-encoded per the record layout's documented envelope shape.
func (e *Engine) Inspect(ctx context.Context, userID string) (*voiceprint.VoiceprintRecord, error) {
	rec, err := e.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &voiceprint.VoiceprintRecord{
		UserID:             rec.UserID,
		SchemaVersion:      rec.SchemaVersion,
		Salt:               hex.EncodeToString(rec.Salt),
		Ciphertext:         rec.Ciphertext,
		IntegrityHash:      rec.IntegrityHash,
		QualityScore:       rec.QualityScore,
		EnrollmentDuration: rec.EnrollmentDuration,
		CreatedAt:          rec.CreatedAt,
	}, nil
}
