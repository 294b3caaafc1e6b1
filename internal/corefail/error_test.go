package corefail

import (
	"errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(UnsupportedFormat, "audio.sniff")
	want := "voiceauth: unsupported_format at audio.sniff"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageWithScore(t *testing.T) {
	err := WithScore(QualityTooLow, "core.enroll", 0.42)
	got := err.Error()
	want := "voiceauth: quality_too_low at core.enroll (score=0.4200)"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("ffmpeg exit 1")
	err := Wrap(CorruptStream, "audio.decode", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap() to expose cause")
	}
}

func TestIs(t *testing.T) {
	err := New(NotEnrolled, "core.verify")
	if !Is(err, NotEnrolled) {
		t.Fatal("expected Is(NotEnrolled) to be true")
	}
	if Is(err, AlreadyEnrolled) {
		t.Fatal("expected Is(AlreadyEnrolled) to be false")
	}
}

func TestErrorsAsFindsErrorInsideJoin(t *testing.T) {
	inner := New(IntegrityViolation, "vcipher.decrypt")
	outer := errors.Join(errors.New("request failed"), inner)

	if !errors.As(outer, new(*Error)) {
		t.Fatal("expected errors.As to find the wrapped *Error")
	}
}
