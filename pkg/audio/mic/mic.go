package mic

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio"
)

const captureBufferSize = 1024

// Source captures microphone PCM through portaudio and fans each chunk out
// to the registered sinks (the FFT analyser, an active STT session).
// Opening the default input device fails when the process has no microphone
// access; callers treat that as fatal to voice control.
type Source struct {
	logger     *Logger.Logger
	sampleRate int
	sinks      []audio.PCMSink

	mu      sync.Mutex
	stream  *portaudio.Stream
	in      []int16
	done    chan struct{}
	running bool
}

func New(sampleRate int, logger *Logger.Logger, sinks ...audio.PCMSink) *Source {
	return &Source{
		logger:     logger,
		sampleRate: sampleRate,
		sinks:      sinks,
		in:         make([]int16, captureBufferSize),
	}
}

// Start opens the default input device and begins pumping samples.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.sampleRate), len(s.in), s.in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open microphone: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start microphone stream: %w", err)
	}

	s.stream = stream
	s.done = make(chan struct{})
	s.running = true
	go s.pump(stream, s.done)

	s.logger.Infof("microphone capture started at %d Hz", s.sampleRate)
	return nil
}

func (s *Source) pump(stream *portaudio.Stream, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			s.logger.Warnf("microphone read failed: %v", err)
			return
		}
		chunk := make([]int16, len(s.in))
		copy(chunk, s.in)
		for _, sink := range s.sinks {
			sink.Push(chunk)
		}
	}
}

// Stop halts capture and releases the device.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	close(s.done)
	s.stream.Stop()
	s.stream.Close()
	portaudio.Terminate()
	s.running = false
	s.logger.Info("microphone capture stopped")
	return nil
}
