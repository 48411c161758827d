// Package sttest provides a scripted recognizer for deterministic tests of
// the wake-word and enrollment pipelines.
package sttest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxgate/voxgate/pkg/io/stt"
)

// FakeRecognizer hands out scripted sessions. Tests drive each session by
// emitting events; Stop/Abort calls are recorded for assertions.
type FakeRecognizer struct {
	mu sync.Mutex
	// StartErr, when set, fails the next NewSession call once.
	StartErr error
	// AutoEndOnStop emits Ended when the consumer calls Stop.
	AutoEndOnStop bool

	sessions []*FakeSession
}

func New() *FakeRecognizer {
	return &FakeRecognizer{AutoEndOnStop: true}
}

// NewSession implements stt.Recognizer. Like the real transport, it fails
// when the context is already cancelled.
func (f *FakeRecognizer) NewSession(ctx context.Context) (stt.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		err := f.StartErr
		f.StartErr = nil
		return nil, err
	}
	s := &FakeSession{
		id:      uuid.New(),
		events:  make(chan stt.Event, 32),
		autoEnd: f.AutoEndOnStop,
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// SessionCount returns how many sessions were started.
func (f *FakeRecognizer) SessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// Last returns the most recently started session, or nil.
func (f *FakeRecognizer) Last() *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

// WaitForSession blocks until at least n sessions exist or the timeout hits.
func (f *FakeRecognizer) WaitForSession(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f.SessionCount() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// FakeSession is a scripted stt.Session.
type FakeSession struct {
	id      uuid.UUID
	events  chan stt.Event
	autoEnd bool

	mu      sync.Mutex
	stopped bool
	aborted bool
	ended   bool
}

func (s *FakeSession) ID() uuid.UUID            { return s.id }
func (s *FakeSession) Events() <-chan stt.Event { return s.events }

func (s *FakeSession) Stop() error {
	s.mu.Lock()
	s.stopped = true
	auto := s.autoEnd && !s.ended
	s.mu.Unlock()
	if auto {
		s.End()
	}
	return nil
}

func (s *FakeSession) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	if !s.ended {
		s.ended = true
		close(s.events)
	}
	return nil
}

// Stopped reports whether Stop was called.
func (s *FakeSession) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Aborted reports whether Abort was called.
func (s *FakeSession) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// EmitStarted scripts the session-started callback.
func (s *FakeSession) EmitStarted() {
	s.emit(stt.Event{Kind: stt.EventStarted})
}

// EmitHypothesis scripts a hypothesis callback.
func (s *FakeSession) EmitHypothesis(text string, final bool) {
	s.emit(stt.Event{Kind: stt.EventHypothesis, Text: text, Final: final})
}

// EmitError scripts an engine error callback.
func (s *FakeSession) EmitError(kind string) {
	s.emit(stt.Event{Kind: stt.EventError, ErrKind: kind})
}

// End scripts the session-ended callback and closes the event stream.
func (s *FakeSession) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()

	s.emit(stt.Event{Kind: stt.EventEnded})
	close(s.events)
}

func (s *FakeSession) emit(ev stt.Event) {
	ev.SessionID = s.id
	ev.At = time.Now()
	s.events <- ev
}
