package analyser

import (
	"math"
	"math/cmplx"
	"sync"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/smallnest/ringbuffer"

	"github.com/voxgate/voxgate/pkg/audio"
)

// Byte-magnitude scaling range, matching browser analyser nodes.
const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// FFTAnalyser turns a rolling PCM window into audio.Frames. Capture sources
// push int16 samples with Push; Frame computes the spectrum of the newest
// full window. Bin count is fftSize/2.
type FFTAnalyser struct {
	mu         sync.Mutex
	rb         *ringbuffer.RingBuffer
	fftSize    int
	sampleRate int
	window     []float64 // precomputed Hann coefficients
	closed     bool
}

// New creates an analyser for the given sample rate and FFT size. fftSize
// must be a power of two; 2048 is a reasonable default for speech.
func New(sampleRate, fftSize int) *FFTAnalyser {
	win := make([]float64, fftSize)
	for i := range win {
		win[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}
	// Hold a few windows so a slow consumer doesn't starve capture.
	capacity := fftSize * 2 * 4
	return &FFTAnalyser{
		rb:         ringbuffer.New(capacity).SetBlocking(false),
		fftSize:    fftSize,
		sampleRate: sampleRate,
		window:     win,
	}
}

// Push appends captured samples, discarding the oldest audio on overflow.
func (a *FFTAnalyser) Push(pcm []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}

	for a.rb.Free() < len(data) {
		skip := make([]byte, len(data)-a.rb.Free())
		if _, err := a.rb.Read(skip); err != nil {
			a.rb.Reset()
			break
		}
	}
	a.rb.Write(data)
}

// Frame implements audio.Analyser. Returns (nil, nil) until a full window
// has been captured.
func (a *FFTAnalyser) Frame() (*audio.Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	windowBytes := a.fftSize * 2
	if a.rb.Length() < windowBytes {
		return nil, nil
	}

	buf := make([]byte, a.rb.Length())
	a.rb.Bytes(buf)
	buf = buf[len(buf)-windowBytes:]

	samples := make([]float64, a.fftSize)
	for i := 0; i < a.fftSize; i++ {
		s := int16(buf[i*2]) | int16(buf[i*2+1])<<8
		samples[i] = float64(s) / 32768.0
	}

	windowed := make([]float64, a.fftSize)
	for i, s := range samples {
		windowed[i] = s * a.window[i]
	}
	spectrum := fft.FFTReal(windowed)

	bins := a.fftSize / 2
	freq := make([]byte, bins)
	for i := 0; i < bins; i++ {
		mag := cmplx.Abs(spectrum[i]) / float64(a.fftSize)
		freq[i] = scaleToByte(mag)
	}

	// Time-domain bytes centered at 128; keep the newest bins-worth so the
	// two arrays stay the same length.
	td := make([]byte, bins)
	for i := 0; i < bins; i++ {
		s := samples[a.fftSize-bins+i]
		td[i] = byte(int(s*128) + 128)
	}

	return &audio.Frame{
		Frequency:  freq,
		Samples:    td,
		SampleRate: a.sampleRate,
		CapturedAt: time.Now(),
	}, nil
}

// SampleRate implements audio.Analyser.
func (a *FFTAnalyser) SampleRate() int {
	return a.sampleRate
}

// Close implements audio.Analyser.
func (a *FFTAnalyser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.rb.Reset()
	return nil
}

// scaleToByte maps a linear magnitude onto 0-255 through the decibel range
// used by browser analysers.
func scaleToByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := (db - minDecibels) / (maxDecibels - minDecibels) * 255
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return byte(scaled)
}
