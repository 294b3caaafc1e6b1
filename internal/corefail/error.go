// Package corefail defines the sum-type error shape returned by every core
// voiceauth operation. No package in internal/ ever panics on a validation
// failure or returns a bare string error for a core operation; they build a
// *Error instead, so the HTTP layer can map a Kind to a status code without
// string matching.
package corefail

import "fmt"

// Kind identifies which of the documented failure modes occurred. Kinds are
// stable identifiers, not human-facing text — format them yourself at the
// boundary that needs prose.
type Kind string

const (
	UnsupportedFormat  Kind = "unsupported_format"
	CorruptStream      Kind = "corrupt_stream"
	EmptySignal        Kind = "empty_signal"
	SilentSignal       Kind = "silent_signal"
	DurationOutOfRange Kind = "duration_out_of_range"
	FeatureNaN         Kind = "feature_nan"
	QualityTooLow      Kind = "quality_too_low"
	NotEnrolled        Kind = "not_enrolled"
	AlreadyEnrolled    Kind = "already_enrolled"
	SchemaMismatch     Kind = "schema_mismatch"
	IntegrityViolation Kind = "integrity_violation"
	CorruptVoiceprint  Kind = "corrupt_voiceprint"
	InternalInvariant  Kind = "internal_invariant"
)

// Error is the structured failure value every core operation returns. Score
// carries the numeric value that triggered the failure (quality, liveness,
// similarity) when one applies, for audit logging — never plaintext
// voiceprint fields or key material.
type Error struct {
	Kind  Kind
	Stage string
	Score *float64
	Cause error
}

func (e *Error) Error() string {
	if e.Score != nil {
		return fmt.Sprintf("voiceauth: %s at %s (score=%.4f)", e.Kind, e.Stage, *e.Score)
	}
	if e.Cause != nil {
		return fmt.Sprintf("voiceauth: %s at %s: %v", e.Kind, e.Stage, e.Cause)
	}
	return fmt.Sprintf("voiceauth: %s at %s", e.Kind, e.Stage)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error for the given kind and processing stage.
func New(kind Kind, stage string) *Error {
	return &Error{Kind: kind, Stage: stage}
}

// Wrap builds an Error that carries an underlying cause (e.g. an os/exec
// failure during decode). The cause is never exposed in a way that would
// leak secrets — callers of Error() only see the Kind, Stage, and a %v of
// the cause, which must itself never be constructed from key material.
func Wrap(kind Kind, stage string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Cause: cause}
}

// WithScore attaches the numeric score that produced this failure.
func WithScore(kind Kind, stage string, score float64) *Error {
	return &Error{Kind: kind, Stage: stage, Score: &score}
}

// Is reports whether err is a *Error of the given kind. Useful at the HTTP
// boundary for status-code mapping.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
