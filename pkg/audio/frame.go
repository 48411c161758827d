package audio

import "time"

// Frame is one analysis snapshot of the capture stream.
//
// Frequency holds byte-scaled magnitudes for BinCount() bins covering
// 0..Nyquist; Samples holds the matching time-domain window with silence
// centered at 128. Both follow the 0-255 convention of browser analyser
// nodes, which the feature extractor is calibrated against.
type Frame struct {
	Frequency  []byte
	Samples    []byte
	SampleRate int
	CapturedAt time.Time
}

// BinCount returns the number of frequency bins.
func (f *Frame) BinCount() int {
	return len(f.Frequency)
}

// BinWidth returns the width of one frequency bin in Hz.
func (f *Frame) BinWidth() float64 {
	if len(f.Frequency) == 0 {
		return 0
	}
	return float64(f.SampleRate) / 2 / float64(len(f.Frequency))
}

// Nyquist returns the highest representable frequency in Hz.
func (f *Frame) Nyquist() float64 {
	return float64(f.SampleRate) / 2
}

// BinFor maps a frequency in Hz to its bin index, clamped to the valid range.
func (f *Frame) BinFor(hz float64) int {
	w := f.BinWidth()
	if w == 0 {
		return 0
	}
	idx := int(hz / w)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(f.Frequency) {
		idx = len(f.Frequency) - 1
	}
	return idx
}

// Analyser produces frames on demand from some capture source.
type Analyser interface {
	// Frame returns the current analysis snapshot. Implementations must not
	// block on capture; if no full window is available yet they return
	// (nil, nil).
	Frame() (*Frame, error)

	// SampleRate reports the capture sample rate in Hz.
	SampleRate() int

	// Close releases the underlying capture source.
	Close() error
}
