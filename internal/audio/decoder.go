// Package audio implements AudioDecoder: validating an uploaded clip's
// container format and turning it into mono float32 PCM at the system
// sample rate. Decoding itself is delegated to an ffmpeg subprocess, the
// same piping idiom the daemon's prior audio-ingestion code used — rather
// than link a cgo decoder, shell out and read raw PCM off the pipe.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"

	"voiceauth/internal/corefail"
	"voiceauth/internal/voiceprint"
)

// Format identifies a container this decoder knows how to sniff.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatM4A Format = "m4a"
	FormatOGG Format = "ogg"
)

// Decoder turns raw container bytes into mono float32 PCM. FFmpegPath
// defaults to "ffmpeg" on the PATH if left empty.
type Decoder struct {
	SampleRate   int
	MinDurationS float64
	MaxDurationS float64
	FFmpegPath   string
}

func NewDecoder(sampleRate int, minDurationS, maxDurationS float64, ffmpegPath string) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{
		SampleRate:   sampleRate,
		MinDurationS: minDurationS,
		MaxDurationS: maxDurationS,
		FFmpegPath:   ffmpegPath,
	}
}

// Decode verifies buf's magic bytes against asserted, decodes it to mono
// PCM at d.SampleRate via ffmpeg, and enforces the configured duration
// bounds. It never trusts the asserted format on its own — a mismatched
// signature fails fast with UnsupportedFormat before a subprocess is ever
// started.
func (d *Decoder) Decode(buf []byte, asserted Format) (*voiceprint.PCMSignal, error) {
	const stage = "audio.decode"

	if err := sniff(buf, asserted); err != nil {
		return nil, err
	}

	pcm, err := d.ffmpegDecode(buf)
	if err != nil {
		return nil, corefail.Wrap(corefail.CorruptStream, stage, err)
	}

	samples := pcmBytesToFloat32(pcm)
	duration := float64(len(samples)) / float64(d.SampleRate)
	if duration < d.MinDurationS || duration > d.MaxDurationS {
		return nil, corefail.WithScore(corefail.DurationOutOfRange, stage, duration)
	}

	return &voiceprint.PCMSignal{
		Samples:    samples,
		SampleRate: d.SampleRate,
	}, nil
}

// sniff checks buf's leading bytes against the known signature for
// asserted, matching the container detection original_source used before
// handing a file to its decoder.
func sniff(buf []byte, asserted Format) error {
	const stage = "audio.sniff"

	if len(buf) < 4 {
		return corefail.New(corefail.CorruptStream, stage)
	}

	switch asserted {
	case FormatWAV:
		if !bytes.Equal(buf[0:4], []byte("RIFF")) {
			return corefail.New(corefail.UnsupportedFormat, stage)
		}
	case FormatMP3:
		if !(bytes.Equal(buf[0:3], []byte("ID3")) ||
			(buf[0] == 0xFF && (buf[1] == 0xFB || buf[1] == 0xF3 || buf[1] == 0xF2))) {
			return corefail.New(corefail.UnsupportedFormat, stage)
		}
	case FormatOGG:
		if !bytes.Equal(buf[0:4], []byte("OggS")) {
			return corefail.New(corefail.UnsupportedFormat, stage)
		}
	case FormatM4A:
		// M4A/MP4 containers carry their signature at offset 4 ("ftyp"),
		// not the start of the file.
		if len(buf) < 8 || !bytes.Equal(buf[4:8], []byte("ftyp")) {
			return corefail.New(corefail.UnsupportedFormat, stage)
		}
	default:
		return corefail.New(corefail.UnsupportedFormat, stage)
	}
	return nil
}

// ffmpegDecode pipes buf into ffmpeg and reads back raw signed 16-bit
// little-endian mono PCM at SampleRate. ffmpeg handles channel mixing and
// resampling itself ("-ac 1 -ar <rate>"), so this function only has to
// trust its exit status.
func (d *Decoder) ffmpegDecode(buf []byte) ([]byte, error) {
	cmd := exec.Command(d.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", d.SampleRate),
		"-ac", "1",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(buf)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %v: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// pcmBytesToFloat32 converts little-endian int16 PCM samples to float32 in
// [-1, 1].
func pcmBytesToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return out
}
