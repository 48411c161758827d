package vad

import (
	"sync"
	"time"

	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio"
)

// Config contains tuning for speech-onset detection.
type Config struct {
	Threshold float64       // mean byte magnitude over the speech band
	BandLowHz float64       // speech band lower edge
	BandHiHz  float64       // speech band upper edge
	Interval  time.Duration // polling cadence
}

// DefaultConfig returns detection settings tuned for near-field speech.
func DefaultConfig() Config {
	return Config{
		Threshold: 32,
		BandLowHz: 300,
		BandHiHz:  3000,
		Interval:  16 * time.Millisecond,
	}
}

// Detector polls analyser frames on a fixed cadence and edge-triggers a
// callback on the not-speaking to speaking transition. It never blocks the
// capture path; a tick with no frame available is skipped.
type Detector struct {
	cfg     Config
	an      audio.Analyser
	logger  *Logger.Logger
	onOnset func()

	mu       sync.Mutex
	speaking bool
	done     chan struct{}
	running  bool
}

func New(an audio.Analyser, cfg Config, logger *Logger.Logger, onOnset func()) *Detector {
	return &Detector{cfg: cfg, an: an, logger: logger, onOnset: onOnset}
}

// Start begins the polling loop. Safe to call while already running.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.done = make(chan struct{})
	d.running = true
	d.speaking = false
	go d.loop(d.done)
}

// Stop halts polling. Disabled during enrollment to avoid interference.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	close(d.done)
	d.running = false
}

func (d *Detector) loop(done chan struct{}) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Tick runs one detection step. Exposed so tests and offline replay can
// drive the detector without the wall-clock ticker.
func (d *Detector) Tick() {
	frame, err := d.an.Frame()
	if err != nil {
		d.logger.Warnf("vad frame read failed: %v", err)
		return
	}
	if frame == nil {
		return
	}

	mean := BandMean(frame, d.cfg.BandLowHz, d.cfg.BandHiHz)
	nowSpeaking := mean > d.cfg.Threshold

	d.mu.Lock()
	onset := nowSpeaking && !d.speaking
	d.speaking = nowSpeaking
	d.mu.Unlock()

	if onset && d.onOnset != nil {
		d.onOnset()
	}
}

// BandMean computes the mean byte magnitude over [loHz, hiHz].
func BandMean(frame *audio.Frame, loHz, hiHz float64) float64 {
	lo := frame.BinFor(loHz)
	hi := frame.BinFor(hiHz)
	if hi < lo {
		return 0
	}
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += float64(frame.Frequency[i])
	}
	return sum / float64(hi-lo+1)
}
