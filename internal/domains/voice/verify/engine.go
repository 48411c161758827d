package verify

import (
	"math"

	"github.com/voxgate/voxgate/internal/domains/voice/features"
	"github.com/voxgate/voxgate/internal/domains/voice/voiceprint"
	"github.com/voxgate/voxgate/pkg/Logger"
)

// Context tags where a verification decision is being made; each carries
// its own required confidence.
type Context string

const (
	ContextWakeWord Context = "wake_word"
	ContextCommand  Context = "command"
	ContextGeneral  Context = "general"
)

const layerCount = 5

// requiredLayers is ceil(0.4 * layerCount).
var requiredLayers = int(math.Ceil(0.4 * layerCount))

func requiredConfidence(ctx Context) float64 {
	switch ctx {
	case ContextWakeWord:
		return 0.45
	case ContextCommand:
		return 0.40
	default:
		return 0.35
	}
}

// LayerScore is the diagnostic breakdown for one verification layer.
type LayerScore struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// Result is the full verdict for one verification call.
type Result struct {
	IsVerified         bool         `json:"isVerified"`
	Confidence         float64      `json:"confidence"`
	Layers             []LayerScore `json:"layers"`
	Context            Context      `json:"context"`
	RequiredConfidence float64      `json:"requiredConfidence"`
	RequiredLayers     int          `json:"requiredLayers"`
	PassedLayers       int          `json:"passedLayers"`
}

// Similarity tolerances for scalar comparisons without a learned std.
const (
	zcrTol      = 0.05
	centroidTol = 500
	rolloffTol  = 1000
	fluxTol     = 10
	flatnessTol = 0.1
	voicedTol   = 0.2
	harmonicTol = 0.2
	f0FloorTol  = 20 // Hz
	energyFloor = 0.05
)

// Formant layer weights and per-slot frequency tolerances. Skipped slots do
// not redistribute their weight; the downstream thresholds are tuned around
// that.
var (
	formantWeights = [3]float64{0.4, 0.4, 0.2}
	formantTols    = [3]float64{200, 300, 400}
)

// GaussianSimilarity maps the distance between two values onto (0,1],
// with tol setting the width of the bell.
func GaussianSimilarity(a, b, tol float64) float64 {
	d := (a - b) / tol
	s := math.Exp(-d * d)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Engine scores feature vectors against a stored voiceprint.
type Engine struct {
	logger *Logger.Logger
}

func NewEngine(logger *Logger.Logger) *Engine {
	return &Engine{logger: logger}
}

// Verify runs the five-layer comparison. The verdict requires both the
// context's confidence threshold and at least requiredLayers individually
// passing layers.
func (e *Engine) Verify(v features.Vector, vp *voiceprint.Voiceprint, ctx Context) Result {
	layers := []LayerScore{
		e.energyLayer(v, vp),
		e.pitchLayer(v, vp),
		e.formantLayer(v, vp),
		e.spectralLayer(v, vp),
		e.voiceLayer(v, vp),
	}

	var confidence float64
	passed := 0
	for i := range layers {
		layers[i].Passed = layers[i].Score >= layers[i].Threshold
		if layers[i].Passed {
			passed++
		}
		confidence += layers[i].Score * layers[i].Weight
	}

	required := requiredConfidence(ctx)
	res := Result{
		IsVerified:         confidence >= required && passed >= requiredLayers,
		Confidence:         confidence,
		Layers:             layers,
		Context:            ctx,
		RequiredConfidence: required,
		RequiredLayers:     requiredLayers,
		PassedLayers:       passed,
	}

	e.logger.Debugf("verification ctx=%s confidence=%.3f passed=%d verdict=%v",
		ctx, confidence, passed, res.IsVerified)
	return res
}

func (e *Engine) energyLayer(v features.Vector, vp *voiceprint.Voiceprint) LayerScore {
	tol := math.Max(2*vp.Energy.Std, energyFloor)
	score := 0.6*GaussianSimilarity(v.Energy, vp.Energy.Mean, tol) +
		0.4*GaussianSimilarity(v.ZeroCrossingRate, vp.ZeroCrossingRate.Mean, zcrTol)
	return LayerScore{Name: "energy_pattern", Score: score, Weight: 0.15, Threshold: 0.40}
}

func (e *Engine) pitchLayer(v features.Vector, vp *voiceprint.Voiceprint) LayerScore {
	tol := math.Max(2*vp.FundamentalFreq.Std, f0FloorTol)
	score := GaussianSimilarity(v.FundamentalFreq, vp.FundamentalFreq.Mean, tol)
	return LayerScore{Name: "fundamental_freq", Score: score, Weight: 0.25, Threshold: 0.50}
}

func (e *Engine) formantLayer(v features.Vector, vp *voiceprint.Voiceprint) LayerScore {
	var score float64
	for i := 0; i < 3; i++ {
		cur := v.Formants[i].Frequency
		ref := vp.Formants[i].Frequency
		if cur == 0 || ref == 0 {
			continue
		}
		score += formantWeights[i] * GaussianSimilarity(cur, ref, formantTols[i])
	}
	return LayerScore{Name: "formant_structure", Score: score, Weight: 0.25, Threshold: 0.45}
}

func (e *Engine) spectralLayer(v features.Vector, vp *voiceprint.Voiceprint) LayerScore {
	pairs := []struct {
		cur, ref, tol float64
	}{
		{v.SpectralCentroid, vp.SpectralCentroid.Mean, centroidTol},
		{v.SpectralRolloff, vp.SpectralRolloff.Mean, rolloffTol},
		{v.SpectralFlux, vp.SpectralFlux.Mean, fluxTol},
		{v.SpectralFlatness, vp.SpectralFlatness.Mean, flatnessTol},
	}

	var sum float64
	var used int
	for _, p := range pairs {
		if p.cur == 0 || p.ref == 0 {
			continue
		}
		sum += GaussianSimilarity(p.cur, p.ref, p.tol)
		used++
	}

	var score float64
	if used > 0 {
		score = sum / float64(used)
	}
	return LayerScore{Name: "spectral_signature", Score: score, Weight: 0.20, Threshold: 0.40}
}

func (e *Engine) voiceLayer(v features.Vector, vp *voiceprint.Voiceprint) LayerScore {
	score := (GaussianSimilarity(v.VoicedRatio, vp.VoicedRatio.Mean, voicedTol) +
		GaussianSimilarity(v.HarmonicRatio, vp.HarmonicRatio.Mean, harmonicTol) +
		GaussianSimilarity(v.ZeroCrossingRate, vp.ZeroCrossingRate.Mean, zcrTol)) / 3
	return LayerScore{Name: "voice_characteristics", Score: score, Weight: 0.15, Threshold: 0.45}
}
