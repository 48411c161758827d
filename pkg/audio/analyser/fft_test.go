package analyser

import (
	"math"
	"testing"
)

func sine(freq float64, rate, n int, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestFrameNilUntilWindowFull(t *testing.T) {
	a := New(16000, 2048)

	frame, err := a.Frame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame != nil {
		t.Error("expected nil frame before any capture")
	}

	a.Push(sine(200, 16000, 1024, 0.5))
	frame, _ = a.Frame()
	if frame != nil {
		t.Error("expected nil frame with partial window")
	}
}

func TestFrameSpectrumPeak(t *testing.T) {
	const rate = 16000
	const size = 2048
	a := New(rate, size)
	a.Push(sine(400, rate, size*2, 0.8))

	frame, err := a.Frame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame == nil {
		t.Fatal("expected a frame after full window")
	}
	if frame.BinCount() != size/2 {
		t.Errorf("expected %d bins, got %d", size/2, frame.BinCount())
	}
	if len(frame.Samples) != frame.BinCount() {
		t.Errorf("sample array length %d should match bin count %d", len(frame.Samples), frame.BinCount())
	}

	// Peak bin should sit at 400 Hz give or take one bin of leakage.
	peak := 0
	for i, m := range frame.Frequency {
		if m > frame.Frequency[peak] {
			peak = i
		}
	}
	peakHz := float64(peak) * frame.BinWidth()
	if math.Abs(peakHz-400) > 3*frame.BinWidth() {
		t.Errorf("expected spectral peak near 400 Hz, got %.1f Hz", peakHz)
	}
}

func TestSilenceIsQuiet(t *testing.T) {
	a := New(16000, 2048)
	a.Push(make([]int16, 4096))

	frame, _ := a.Frame()
	if frame == nil {
		t.Fatal("expected a frame")
	}
	for i, m := range frame.Frequency {
		if m != 0 {
			t.Errorf("bin %d: expected 0 magnitude for silence, got %d", i, m)
			break
		}
	}
	for i, s := range frame.Samples {
		if s != 128 {
			t.Errorf("sample %d: expected 128 for silence, got %d", i, s)
			break
		}
	}
}

func TestBinHelpers(t *testing.T) {
	a := New(16000, 2048)
	a.Push(make([]int16, 4096))
	frame, _ := a.Frame()

	if got := frame.Nyquist(); got != 8000 {
		t.Errorf("expected nyquist 8000, got %v", got)
	}
	if got := frame.BinWidth(); math.Abs(got-8000.0/1024) > 1e-9 {
		t.Errorf("unexpected bin width %v", got)
	}
	if got := frame.BinFor(1e9); got != frame.BinCount()-1 {
		t.Errorf("BinFor should clamp to last bin, got %d", got)
	}
	if got := frame.BinFor(-5); got != 0 {
		t.Errorf("BinFor should clamp to 0, got %d", got)
	}
}
