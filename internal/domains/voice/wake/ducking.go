package wake

import (
	"sync"

	"github.com/voxgate/voxgate/pkg/io/playback"
)

const defaultDuckFactor = 0.2

// Ducker lowers playback volume while the system is listening for a command
// and restores it afterwards. Duck and Restore are idempotent so repeated
// calls never corrupt the remembered original volume.
type Ducker struct {
	mu       sync.Mutex
	surface  playback.Surface
	factor   float64
	ducked   bool
	original float64
}

func NewDucker(surface playback.Surface, factor float64) *Ducker {
	if factor <= 0 || factor >= 1 {
		factor = defaultDuckFactor
	}
	return &Ducker{surface: surface, factor: factor}
}

// Duck lowers the volume, remembering the level to restore. A no-op when
// already ducked.
func (d *Ducker) Duck() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ducked {
		return
	}
	d.original = d.surface.Volume()
	d.surface.SetVolume(d.original * d.factor)
	d.ducked = true
}

// Restore puts the volume back to its pre-duck level. A no-op when not
// ducked.
func (d *Ducker) Restore() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ducked {
		return
	}
	d.surface.SetVolume(d.original)
	d.ducked = false
}

func (d *Ducker) Ducked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ducked
}
