package voiceprint

import (
	"math"
	"time"

	"github.com/voxgate/voxgate/internal/domains/voice/features"
)

// Stat is a scalar feature summary across enrollment samples.
type Stat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"` // population standard deviation
}

// Voiceprint is the aggregated statistical summary of a speaker's
// enrollment samples. Built exactly once per completed enrollment and
// overwritten wholesale on retraining.
type Voiceprint struct {
	Energy           Stat `json:"energy"`
	ZeroCrossingRate Stat `json:"zeroCrossingRate"`
	FundamentalFreq  Stat `json:"fundamentalFreq"`
	SpectralCentroid Stat `json:"spectralCentroid"`
	SpectralRolloff  Stat `json:"spectralRolloff"`
	SpectralFlux     Stat `json:"spectralFlux"`
	SpectralFlatness Stat `json:"spectralFlatness"`
	VoicedRatio      Stat `json:"voicedRatio"`
	HarmonicRatio    Stat `json:"harmonicRatio"`

	MFCC     [features.MFCCBands]float64 `json:"mfcc"`
	Formants [3]features.Formant         `json:"formants"`

	SampleCount int       `json:"sampleCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Aggregate builds a voiceprint over the full sample list in one batch:
// per-scalar mean and population std, element-wise averages for the MFCC
// vector and formant triplet. Never updated incrementally.
func Aggregate(vectors []features.Vector) *Voiceprint {
	n := len(vectors)
	if n == 0 {
		return nil
	}

	vp := &Voiceprint{
		Energy:           stat(vectors, func(v features.Vector) float64 { return v.Energy }),
		ZeroCrossingRate: stat(vectors, func(v features.Vector) float64 { return v.ZeroCrossingRate }),
		FundamentalFreq:  stat(vectors, func(v features.Vector) float64 { return v.FundamentalFreq }),
		SpectralCentroid: stat(vectors, func(v features.Vector) float64 { return v.SpectralCentroid }),
		SpectralRolloff:  stat(vectors, func(v features.Vector) float64 { return v.SpectralRolloff }),
		SpectralFlux:     stat(vectors, func(v features.Vector) float64 { return v.SpectralFlux }),
		SpectralFlatness: stat(vectors, func(v features.Vector) float64 { return v.SpectralFlatness }),
		VoicedRatio:      stat(vectors, func(v features.Vector) float64 { return v.VoicedRatio }),
		HarmonicRatio:    stat(vectors, func(v features.Vector) float64 { return v.HarmonicRatio }),
		SampleCount:      n,
		CreatedAt:        time.Now(),
	}

	for band := 0; band < features.MFCCBands; band++ {
		var sum float64
		for _, v := range vectors {
			sum += v.MFCC[band]
		}
		vp.MFCC[band] = sum / float64(n)
	}

	for slot := 0; slot < 3; slot++ {
		var freq, mag float64
		for _, v := range vectors {
			freq += v.Formants[slot].Frequency
			mag += v.Formants[slot].Magnitude
		}
		vp.Formants[slot] = features.Formant{
			Frequency: freq / float64(n),
			Magnitude: mag / float64(n),
		}
	}

	return vp
}

func stat(vectors []features.Vector, pick func(features.Vector) float64) Stat {
	n := float64(len(vectors))
	var sum float64
	for _, v := range vectors {
		sum += pick(v)
	}
	mean := sum / n

	var sq float64
	for _, v := range vectors {
		d := pick(v) - mean
		sq += d * d
	}
	return Stat{Mean: mean, Std: math.Sqrt(sq / n)}
}
