package wake

import (
	"testing"

	"github.com/voxgate/voxgate/pkg/io/playback"
)

func TestDuckLowersAndRestoresVolume(t *testing.T) {
	surface := playback.NewMemory(0.8)
	d := NewDucker(surface, 0.25)

	d.Duck()
	if got := surface.Volume(); got != 0.2 {
		t.Errorf("ducked volume = %v, want 0.2", got)
	}
	d.Restore()
	if got := surface.Volume(); got != 0.8 {
		t.Errorf("restored volume = %v, want 0.8", got)
	}
}

func TestDoubleDuckKeepsOriginalVolume(t *testing.T) {
	surface := playback.NewMemory(0.8)
	d := NewDucker(surface, 0.25)

	d.Duck()
	d.Duck()
	if got := surface.Volume(); got != 0.2 {
		t.Errorf("volume after double duck = %v, want 0.2", got)
	}
	d.Restore()
	if got := surface.Volume(); got != 0.8 {
		t.Errorf("restored volume = %v, want 0.8, original was corrupted", got)
	}
}

func TestRestoreWithoutDuckIsNoop(t *testing.T) {
	surface := playback.NewMemory(0.5)
	d := NewDucker(surface, 0.25)

	d.Restore()
	if got := surface.Volume(); got != 0.5 {
		t.Errorf("volume = %v, want 0.5", got)
	}
	if d.Ducked() {
		t.Error("Ducked() = true, want false")
	}
}

func TestInvalidFactorFallsBack(t *testing.T) {
	surface := playback.NewMemory(1.0)
	d := NewDucker(surface, 1.5)
	d.Duck()
	if got := surface.Volume(); got != defaultDuckFactor {
		t.Errorf("ducked volume = %v, want %v", got, defaultDuckFactor)
	}
}
