package features

import (
	"math"

	"github.com/voxgate/voxgate/pkg/audio"
)

// Analysis constants. Frequencies in Hz, magnitudes on the 0-255 byte scale.
const (
	f0MinHz       = 80
	f0MaxHz       = 400
	f0NoiseFloor  = 50
	voicedLowHz   = 100
	voicedHighHz  = 1000
	maxHarmonic   = 8
	minHarmonicF0 = 50
)

// Formant search bands, F1 through F3.
var formantBands = [3][2]float64{
	{300, 1000},
	{800, 2500},
	{1500, 3500},
}

// Extract derives the feature vector for one frame. Pure: the same frame
// always yields the same vector.
func Extract(frame *audio.Frame) Vector {
	mags := frame.Frequency
	binWidth := frame.BinWidth()

	var total float64
	for _, m := range mags {
		total += float64(m)
	}

	v := Vector{
		FundamentalFreq:  fundamentalFreq(frame),
		SpectralCentroid: spectralCentroid(mags, binWidth, total),
		SpectralRolloff:  spectralRolloff(mags, binWidth, total),
		SpectralFlux:     spectralFlux(mags),
		SpectralFlatness: spectralFlatness(mags),
		MFCC:             mfccProxy(mags),
		ZeroCrossingRate: zeroCrossingRate(frame.Samples),
		Energy:           energy(frame.Samples),
		VoicedRatio:      bandRatio(frame, voicedLowHz, voicedHighHz, total),
		Timestamp:        frame.CapturedAt,
	}
	for i, band := range formantBands {
		v.Formants[i] = formantPeak(frame, band[0], band[1])
	}
	v.HarmonicRatio = harmonicRatio(frame, v.FundamentalFreq, total)
	return v
}

// fundamentalFreq picks the strongest local spectral maximum in the pitch
// range. A bin qualifies when it exceeds both neighbors and the noise floor.
func fundamentalFreq(frame *audio.Frame) float64 {
	mags := frame.Frequency
	lo := frame.BinFor(f0MinHz)
	hi := frame.BinFor(f0MaxHz)
	if lo < 1 {
		lo = 1
	}
	if hi > len(mags)-2 {
		hi = len(mags) - 2
	}

	bestBin := -1
	var bestMag byte
	for i := lo; i <= hi; i++ {
		m := mags[i]
		if m <= f0NoiseFloor {
			continue
		}
		if m > mags[i-1] && m > mags[i+1] && m > bestMag {
			bestBin = i
			bestMag = m
		}
	}
	if bestBin < 0 {
		return 0
	}
	return float64(bestBin) * frame.BinWidth()
}

// formantPeak returns the strongest bin inside one formant band.
func formantPeak(frame *audio.Frame, loHz, hiHz float64) Formant {
	mags := frame.Frequency
	lo := frame.BinFor(loHz)
	hi := frame.BinFor(hiHz)

	bestBin := lo
	for i := lo; i <= hi; i++ {
		if mags[i] > mags[bestBin] {
			bestBin = i
		}
	}
	if mags[bestBin] == 0 {
		return Formant{}
	}
	return Formant{
		Frequency: float64(bestBin) * frame.BinWidth(),
		Magnitude: float64(mags[bestBin]),
	}
}

func spectralCentroid(mags []byte, binWidth, total float64) float64 {
	if total == 0 {
		return 0
	}
	var weighted float64
	for i, m := range mags {
		weighted += float64(i) * binWidth * float64(m)
	}
	return weighted / total
}

// spectralRolloff finds the frequency below which 85% of the magnitude lies.
func spectralRolloff(mags []byte, binWidth, total float64) float64 {
	if total == 0 {
		return 0
	}
	target := total * 0.85
	var cum float64
	for i, m := range mags {
		cum += float64(m)
		if cum >= target {
			return float64(i) * binWidth
		}
	}
	return float64(len(mags)-1) * binWidth
}

// spectralFlux is a single-frame proxy: RMS of adjacent-bin differences,
// not a true inter-frame delta.
func spectralFlux(mags []byte) float64 {
	if len(mags) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < len(mags)-1; i++ {
		d := float64(mags[i+1]) - float64(mags[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(mags)-1))
}

// spectralFlatness is the geometric over arithmetic mean of the nonzero
// magnitudes.
func spectralFlatness(mags []byte) float64 {
	var logSum, sum float64
	var n int
	for _, m := range mags {
		if m == 0 {
			continue
		}
		f := float64(m)
		logSum += math.Log(f)
		sum += f
		n++
	}
	if n == 0 {
		return 0
	}
	geo := math.Exp(logSum / float64(n))
	arith := sum / float64(n)
	return geo / arith
}

// mfccProxy partitions the spectrum into equal-width bands and takes the
// log of each band's magnitude sum.
func mfccProxy(mags []byte) [MFCCBands]float64 {
	var out [MFCCBands]float64
	if len(mags) == 0 {
		return out
	}
	width := len(mags) / MFCCBands
	if width == 0 {
		width = 1
	}
	for b := 0; b < MFCCBands; b++ {
		start := b * width
		end := start + width
		if b == MFCCBands-1 || end > len(mags) {
			end = len(mags)
		}
		var sum float64
		for i := start; i < end && i < len(mags); i++ {
			sum += float64(mags[i])
		}
		out[b] = math.Log(sum + 1)
	}
	return out
}

// zeroCrossingRate is the fraction of adjacent sample pairs straddling the
// 128 midpoint.
func zeroCrossingRate(samples []byte) float64 {
	if len(samples) < 2 {
		return 0
	}
	var crossings int
	for i := 0; i < len(samples)-1; i++ {
		a := int(samples[i]) - 128
		b := int(samples[i+1]) - 128
		if a*b < 0 {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

func energy(samples []byte) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		norm := (float64(s) - 128) / 128
		sum += norm * norm
	}
	return sum / float64(len(samples))
}

func bandRatio(frame *audio.Frame, loHz, hiHz, total float64) float64 {
	if total == 0 {
		return 0
	}
	lo := frame.BinFor(loHz)
	hi := frame.BinFor(hiHz)
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += float64(frame.Frequency[i])
	}
	return sum / total
}

// harmonicRatio sums magnitude at f0 and its integer multiples up to the
// 8th harmonic, capped at Nyquist, relative to total magnitude.
func harmonicRatio(frame *audio.Frame, f0, total float64) float64 {
	if f0 < minHarmonicF0 || total == 0 {
		return 0
	}
	nyquist := frame.Nyquist()
	var sum float64
	for k := 1; k <= maxHarmonic; k++ {
		f := f0 * float64(k)
		if f > nyquist {
			break
		}
		sum += float64(frame.Frequency[frame.BinFor(f)])
	}
	return sum / total
}
