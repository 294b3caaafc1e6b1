// Package integrity implements the IntegrityHasher: a deterministic digest
// over a voiceprint's salient features, used to detect tampering between
// encryption and decryption.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"voiceauth/internal/voiceprint"
)

// Digest canonicalizes {mfcc_stats.mean, mfcc_stats.std, spectral_means,
// schema_version} into a deterministic, key-sorted textual encoding with
// stable float formatting, then returns the SHA-256 hex digest of that
// encoding. Two Voiceprints with identical salient fields always produce
// the same digest, independent of struct field order or map iteration —
// there are no maps here, every field is written in a fixed, sorted order.
func Digest(v *voiceprint.Voiceprint) string {
	sum := sha256.Sum256(canonicalBytes(v))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether v's digest matches want.
func Verify(v *voiceprint.Voiceprint, want string) bool {
	return Digest(v) == want
}

func canonicalBytes(v *voiceprint.Voiceprint) []byte {
	var b strings.Builder
	b.WriteByte('{')

	b.WriteString(`"mfcc_mean":`)
	writeFloatArray(&b, v.MFCCStats.Mean)
	b.WriteByte(',')

	b.WriteString(`"mfcc_std":`)
	writeFloatArray(&b, v.MFCCStats.Std)
	b.WriteByte(',')

	b.WriteString(`"schema_version":`)
	writeString(&b, v.SchemaVersion)
	b.WriteByte(',')

	// Keys within spectral_means are written alphabetically, matching the
	// canonical-encoding discipline for the rest of this structure.
	b.WriteString(`"spectral_means":{`)
	b.WriteString(`"bandwidth":`)
	writeFloat(&b, v.SpectralMeans.Bandwidth)
	b.WriteString(`,"centroid":`)
	writeFloat(&b, v.SpectralMeans.Centroid)
	b.WriteString(`,"chroma_mean":`)
	writeFloat(&b, v.SpectralMeans.ChromaMean)
	b.WriteString(`,"f0_mean":`)
	writeFloat(&b, v.SpectralMeans.F0Mean)
	b.WriteString(`,"rolloff":`)
	writeFloat(&b, v.SpectralMeans.Rolloff)
	b.WriteString(`,"zcr":`)
	writeFloat(&b, v.SpectralMeans.ZCR)
	b.WriteByte('}')

	b.WriteByte('}')
	return []byte(b.String())
}

// writeFloat formats f as the shortest decimal string that round-trips
// exactly back to f's IEEE-754 bit pattern (strconv's -1 precision). This
// is the Go analogue of taking repr() of a Python float: deterministic,
// portable, and stable across runs for the same bits.
func writeFloat(b *strings.Builder, f float64) {
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func writeFloatArray(b *strings.Builder, vals []float64) {
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		writeFloat(b, v)
	}
	b.WriteByte(']')
}

func writeString(b *strings.Builder, s string) {
	b.WriteString(fmt.Sprintf("%q", s))
}
