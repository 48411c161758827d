package wavsrc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/voxgate/voxgate/pkg/audio"
)

// Source replays a mono 16-bit WAV file into an FFTAnalyser. Used for
// offline runs and deterministic pipeline tests in place of a microphone.
type Source struct {
	samples    []int16
	sampleRate int
}

// Load reads the whole file up front so replay never touches the filesystem.
func Load(fs afero.Fs, path string) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("expected mono wav, got %+v", buf.Format)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return &Source{samples: samples, sampleRate: buf.Format.SampleRate}, nil
}

// SampleRate reports the file's sample rate in Hz.
func (s *Source) SampleRate() int {
	return s.sampleRate
}

// Pump fans the file out to the given sinks in chunks, the same shape the
// microphone source produces. With realtime set it paces chunks at capture
// speed, otherwise it feeds everything immediately.
func (s *Source) Pump(ctx context.Context, chunk int, realtime bool, sinks ...audio.PCMSink) error {
	if chunk <= 0 {
		chunk = 1024
	}
	interval := time.Duration(float64(chunk) / float64(s.sampleRate) * float64(time.Second))

	for off := 0; off < len(s.samples); off += chunk {
		end := off + chunk
		if end > len(s.samples) {
			end = len(s.samples)
		}
		for _, sink := range sinks {
			sink.Push(s.samples[off:end])
		}

		if realtime {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
