package features

import "time"

// MFCCBands is the number of mel-proxy log-energy bands.
const MFCCBands = 13

// Formant is a vocal-tract resonance peak.
type Formant struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// Vector is the per-frame acoustic fingerprint used for enrollment and
// speaker verification. Derived purely from one analyser frame; immutable
// once created.
type Vector struct {
	FundamentalFreq  float64            `json:"fundamentalFreq"`
	Formants         [3]Formant         `json:"formants"`
	SpectralCentroid float64            `json:"spectralCentroid"`
	SpectralRolloff  float64            `json:"spectralRolloff"`
	SpectralFlux     float64            `json:"spectralFlux"`
	SpectralFlatness float64            `json:"spectralFlatness"`
	MFCC             [MFCCBands]float64 `json:"mfcc"`
	ZeroCrossingRate float64            `json:"zeroCrossingRate"`
	Energy           float64            `json:"energy"`
	VoicedRatio      float64            `json:"voicedRatio"`
	HarmonicRatio    float64            `json:"harmonicRatio"`
	SourceText       string             `json:"sourceText,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}
