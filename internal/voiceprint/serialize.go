package voiceprint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// magic tags the start of the binary envelope so a corrupt or foreign blob
// is rejected immediately instead of partially decoding into garbage.
var magic = [4]byte{'V', 'A', 'P', '1'}

// Encode serializes a Voiceprint into the compact binary payload that gets
// AEAD-encrypted for at-rest storage. The format uses explicit
// little-endian byte order throughout, matching the convention used by the
// rest of this codebase's raw PCM handling — never a language-native object
// pickler.
func Encode(v *Voiceprint) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeString(&buf, v.SchemaVersion)
	writeF64Slice(&buf, v.MFCCStats.Mean)
	writeF64Slice(&buf, v.MFCCStats.Std)
	writeF64Slice(&buf, v.MFCCStats.Min)
	writeF64Slice(&buf, v.MFCCStats.Max)
	writeF64(&buf, v.SpectralMeans.Centroid)
	writeF64(&buf, v.SpectralMeans.Rolloff)
	writeF64(&buf, v.SpectralMeans.Bandwidth)
	writeF64(&buf, v.SpectralMeans.ZCR)
	writeF64(&buf, v.SpectralMeans.ChromaMean)
	writeF64(&buf, v.SpectralMeans.F0Mean)
	writeF64(&buf, v.SignalMeta.DurationSeconds)
	writeF64(&buf, v.SignalMeta.SpeechRatio)
	writeF64(&buf, v.SignalMeta.MaxAmplitude)
	writeF64(&buf, v.SignalMeta.EnergyVariance)
	writeStringSlice(&buf, v.SignalMeta.Warnings)
	writeString(&buf, v.CreatedAt.UTC().Format(time.RFC3339Nano))
	return buf.Bytes()
}

// Decode is the inverse of Encode. It returns a *corefail-classifiable
// error (wrapped by the caller) on any structural inconsistency.
func Decode(data []byte) (*Voiceprint, error) {
	r := bytes.NewReader(data)
	var m [4]byte
	if _, err := r.Read(m[:]); err != nil || m != magic {
		return nil, fmt.Errorf("voiceprint: bad magic")
	}

	v := &Voiceprint{}
	var err error
	if v.SchemaVersion, err = readString(r); err != nil {
		return nil, err
	}
	if v.MFCCStats.Mean, err = readF64Slice(r); err != nil {
		return nil, err
	}
	if v.MFCCStats.Std, err = readF64Slice(r); err != nil {
		return nil, err
	}
	if v.MFCCStats.Min, err = readF64Slice(r); err != nil {
		return nil, err
	}
	if v.MFCCStats.Max, err = readF64Slice(r); err != nil {
		return nil, err
	}
	fields := []*float64{
		&v.SpectralMeans.Centroid, &v.SpectralMeans.Rolloff, &v.SpectralMeans.Bandwidth,
		&v.SpectralMeans.ZCR, &v.SpectralMeans.ChromaMean, &v.SpectralMeans.F0Mean,
		&v.SignalMeta.DurationSeconds, &v.SignalMeta.SpeechRatio,
		&v.SignalMeta.MaxAmplitude, &v.SignalMeta.EnergyVariance,
	}
	for _, f := range fields {
		if *f, err = readF64(r); err != nil {
			return nil, err
		}
	}
	if v.SignalMeta.Warnings, err = readStringSlice(r); err != nil {
		return nil, err
	}
	createdAt, err := readString(r)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: bad created_at: %w", err)
	}
	v.CreatedAt = t
	return v, nil
}

func writeF64(buf *bytes.Buffer, f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	buf.Write(b[:])
}

func readF64(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("voiceprint: truncated float: %w", err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

func writeF64Slice(buf *bytes.Buffer, vals []float64) {
	var lenB [4]byte
	binary.LittleEndian.PutUint32(lenB[:], uint32(len(vals)))
	buf.Write(lenB[:])
	for _, v := range vals {
		writeF64(buf, v)
	}
}

func readF64Slice(r *bytes.Reader) ([]float64, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		if out[i], err = readF64(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeString(buf *bytes.Buffer, s string) {
	var lenB [4]byte
	binary.LittleEndian.PutUint32(lenB[:], uint32(len(s)))
	buf.Write(lenB[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("voiceprint: truncated string: %w", err)
	}
	return string(b), nil
}

func writeStringSlice(buf *bytes.Buffer, vals []string) {
	var lenB [4]byte
	binary.LittleEndian.PutUint32(lenB[:], uint32(len(vals)))
	buf.Write(lenB[:])
	for _, s := range vals {
		writeString(buf, s)
	}
}

func readStringSlice(r *bytes.Reader) ([]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = readString(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("voiceprint: truncated length: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
