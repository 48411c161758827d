package playback

import "sync"

// Surface is the media player volume control consumed by audio ducking.
// Volume is in [0,1].
type Surface interface {
	Volume() float64
	SetVolume(v float64)
}

// Memory is an in-process Surface. It stands in for the real player bridge
// in tests and offline runs.
type Memory struct {
	mu  sync.Mutex
	vol float64
}

func NewMemory(initial float64) *Memory {
	return &Memory{vol: initial}
}

func (m *Memory) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vol
}

func (m *Memory) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.mu.Lock()
	m.vol = v
	m.mu.Unlock()
}
