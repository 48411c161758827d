package vad

import (
	"testing"
	"time"

	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio"
)

// fakeAnalyser serves a scripted sequence of frames.
type fakeAnalyser struct {
	frames []*audio.Frame
	idx    int
}

func (f *fakeAnalyser) Frame() (*audio.Frame, error) {
	if f.idx >= len(f.frames) {
		return nil, nil
	}
	fr := f.frames[f.idx]
	f.idx++
	return fr, nil
}

func (f *fakeAnalyser) SampleRate() int { return 16000 }
func (f *fakeAnalyser) Close() error    { return nil }

func flatFrame(mag byte) *audio.Frame {
	freq := make([]byte, 512)
	for i := range freq {
		freq[i] = mag
	}
	samples := make([]byte, 512)
	for i := range samples {
		samples[i] = 128
	}
	return &audio.Frame{Frequency: freq, Samples: samples, SampleRate: 16000, CapturedAt: time.Now()}
}

func TestEdgeTriggerOnOnsetOnly(t *testing.T) {
	an := &fakeAnalyser{frames: []*audio.Frame{
		flatFrame(0),   // quiet
		flatFrame(100), // onset
		flatFrame(100), // still speaking, no second trigger
		flatFrame(0),   // quiet again
		flatFrame(100), // second onset
	}}

	var onsets int
	d := New(an, DefaultConfig(), Logger.Nop(), func() { onsets++ })
	for i := 0; i < 5; i++ {
		d.Tick()
	}

	if onsets != 2 {
		t.Errorf("expected 2 onsets, got %d", onsets)
	}
}

func TestNoTriggerBelowThreshold(t *testing.T) {
	an := &fakeAnalyser{frames: []*audio.Frame{
		flatFrame(10), flatFrame(20), flatFrame(31),
	}}

	var onsets int
	cfg := DefaultConfig() // threshold 32
	d := New(an, cfg, Logger.Nop(), func() { onsets++ })
	for i := 0; i < 3; i++ {
		d.Tick()
	}

	if onsets != 0 {
		t.Errorf("expected no onsets below threshold, got %d", onsets)
	}
}

func TestTickSkipsMissingFrames(t *testing.T) {
	an := &fakeAnalyser{} // always nil frames
	d := New(an, DefaultConfig(), Logger.Nop(), func() {
		t.Error("onset fired with no frames")
	})
	d.Tick()
	d.Tick()
}

func TestBandMean(t *testing.T) {
	fr := flatFrame(50)
	if got := BandMean(fr, 300, 3000); got != 50 {
		t.Errorf("expected flat band mean 50, got %v", got)
	}
}
