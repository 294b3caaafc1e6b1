package features

import (
	"math"
	"math/cmplx"

	"voiceauth/internal/dsp"
	"voiceauth/internal/voiceprint"
)

// spectralDescriptors computes centroid, rolloff, bandwidth, ZCR, chroma,
// and F0 over the same frame grid as the MFCC stack.
func (e *Extractor) spectralDescriptors(y []float32, powers [][]float64, stfts [][]complex128) (*voiceprint.SpectralDescriptors, error) {
	nFrames := len(powers)
	freqs := binFrequencies(nFFT, e.SampleRate)
	chromaMap := chromaBinMap(freqs)

	centroid := make([]float32, nFrames)
	rolloff := make([]float32, nFrames)
	bandwidth := make([]float32, nFrames)
	f0 := make([]float32, nFrames)
	chroma := make([][]float32, chromaBins)
	for c := range chroma {
		chroma[c] = make([]float32, nFrames)
	}

	for t := 0; t < nFrames; t++ {
		mag := magnitudeFromPower(powers[t])

		c := spectralCentroid(freqs, mag)
		centroid[t] = float32(c)
		rolloff[t] = float32(spectralRolloff(freqs, mag, rolloffPct))
		bandwidth[t] = float32(spectralBandwidth(freqs, mag, c))
		f0[t] = float32(pitchPick(freqs, stfts[t], pitchThresh))

		for pc, weight := range chromaAccumulate(mag, chromaMap) {
			chroma[pc][t] = float32(weight)
		}
	}

	zcr := zeroCrossingRate(y, nFFT, hopLength)

	return &voiceprint.SpectralDescriptors{
		Centroid:  centroid,
		Rolloff:   rolloff,
		Bandwidth: bandwidth,
		ZCR:       zcr,
		Chroma:    chroma,
		F0:        f0,
	}, nil
}

func magnitudeFromPower(power []float64) []float64 {
	mag := make([]float64, len(power))
	for k, p := range power {
		mag[k] = math.Sqrt(p)
	}
	return mag
}

func binFrequencies(nFFT, sampleRate int) []float64 {
	half := nFFT/2 + 1
	freqs := make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}
	return freqs
}

func spectralCentroid(freqs, mag []float64) float64 {
	var num, den float64
	for k, m := range mag {
		num += freqs[k] * m
		den += m
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func spectralBandwidth(freqs, mag []float64, centroid float64) float64 {
	var num, den float64
	for k, m := range mag {
		d := freqs[k] - centroid
		num += d * d * m
		den += m
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}

// spectralRolloff returns the frequency below which pct of the frame's
// total magnitude is concentrated.
func spectralRolloff(freqs, mag []float64, pct float64) float64 {
	var total float64
	for _, m := range mag {
		total += m
	}
	if total == 0 {
		return 0
	}
	target := pct * total
	var cum float64
	for k, m := range mag {
		cum += m
		if cum >= target {
			return freqs[k]
		}
	}
	return freqs[len(freqs)-1]
}

// chromaBinMap assigns each FFT bin to one of the 12 pitch classes
// relative to A4 = 440Hz, grouping frequency bins by pitch class the way
// librosa's chroma filterbank does rather than by absolute frequency.
func chromaBinMap(freqs []float64) []int {
	bins := make([]int, len(freqs))
	for k, f := range freqs {
		if f <= 0 {
			bins[k] = -1
			continue
		}
		midi := 69 + 12*math.Log2(f/a4Freq)
		pc := int(math.Round(midi)) % 12
		if pc < 0 {
			pc += 12
		}
		bins[k] = pc
	}
	return bins
}

func chromaAccumulate(mag []float64, binMap []int) map[int]float64 {
	sums := make(map[int]float64, chromaBins)
	counts := make(map[int]int, chromaBins)
	for k, m := range mag {
		pc := binMap[k]
		if pc < 0 {
			continue
		}
		sums[pc] += m
		counts[pc]++
	}
	out := make(map[int]float64, chromaBins)
	for pc := 0; pc < chromaBins; pc++ {
		if counts[pc] > 0 {
			out[pc] = sums[pc] / float64(counts[pc])
		}
	}
	return out
}

// pitchPick returns the frequency of the strongest bin above threshold,
// the per-frame analogue of librosa.piptrack's max-magnitude pitch pick.
func pitchPick(freqs []float64, frame []complex128, threshold float64) float64 {
	half := len(freqs)
	var bestFreq, bestMag float64
	for k := 0; k < half && k < len(frame); k++ {
		m := cmplx.Abs(frame[k])
		if m > threshold && m > bestMag {
			bestMag = m
			bestFreq = freqs[k]
		}
	}
	return bestFreq
}

// zeroCrossingRate computes the fraction of sign changes in each
// frameLen-sample window of y, hopped by hop and centered the same way the
// MFCC frame grid is, so the sequence lines up frame-for-frame with the
// other descriptors.
func zeroCrossingRate(y []float32, frameLen, hop int) []float32 {
	padded := centerPad(y, frameLen/2)
	frames := dsp.Frame(padded, frameLen, hop)

	out := make([]float32, len(frames))
	for i, f := range frames {
		var crossings int
		for j := 1; j < len(f); j++ {
			if (f[j-1] >= 0) != (f[j] >= 0) {
				crossings++
			}
		}
		out[i] = float32(crossings) / float32(len(f))
	}
	return out
}
