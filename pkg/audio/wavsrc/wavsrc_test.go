package wavsrc

import (
	"context"
	"math"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/voxgate/voxgate/pkg/audio/analyser"
)

func writeSineWav(t *testing.T, fs afero.Fs, path string, freq float64, rate, n int) {
	t.Helper()
	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           make([]int, n),
	}
	for i := range buf.Data {
		buf.Data[i] = int(20000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestLoadAndPump(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSineWav(t, fs, "tone.wav", 440, 16000, 8000)

	src, err := Load(fs, "tone.wav")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", src.SampleRate())
	}

	an := analyser.New(16000, 1024)
	if err := src.Pump(context.Background(), 1024, false, an); err != nil {
		t.Fatalf("Pump: %v", err)
	}

	frame, err := an.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if frame == nil {
		t.Fatal("no frame after pumping full file")
	}

	// The strongest bin should sit near 440 Hz.
	best := 0
	for i, m := range frame.Frequency {
		if m > frame.Frequency[best] {
			best = i
		}
	}
	peak := float64(best) * frame.BinWidth()
	if math.Abs(peak-440) > 3*frame.BinWidth() {
		t.Errorf("peak at %.1f Hz, want near 440", peak)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(afero.NewMemMapFs(), "nope.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPumpCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSineWav(t, fs, "tone.wav", 200, 16000, 16000)
	src, err := Load(fs, "tone.wav")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	an := analyser.New(16000, 1024)
	if err := src.Pump(ctx, 1024, true, an); err != context.Canceled {
		t.Errorf("Pump with cancelled context = %v, want context.Canceled", err)
	}
}
