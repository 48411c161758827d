package stt

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates recognition session events.
type EventKind string

const (
	EventStarted    EventKind = "started"
	EventHypothesis EventKind = "hypothesis"
	EventError      EventKind = "error"
	EventEnded      EventKind = "ended"
)

// Error kind strings reported by engines, mirroring the web speech API.
const (
	ErrKindNoSpeech     = "no-speech"
	ErrKindAborted      = "aborted"
	ErrKindNotAllowed   = "not-allowed"
	ErrKindAudioCapture = "audio-capture"
	ErrKindNetwork      = "network"
)

// IsTransientErrKind reports whether an error kind should be silently
// ignored, letting the session restart policy take over.
func IsTransientErrKind(kind string) bool {
	return kind == ErrKindNoSpeech || kind == ErrKindAborted
}

// IsFatalErrKind reports whether an error kind must disable listening until
// the user re-enables it.
func IsFatalErrKind(kind string) bool {
	return kind == ErrKindNotAllowed
}

// Event is one callback from a recognition session.
type Event struct {
	Kind      EventKind
	SessionID uuid.UUID
	Text      string // hypothesis text
	Final     bool   // final vs interim hypothesis
	ErrKind   string // set for EventError
	At        time.Time
}

// Session is one single-shot recognition run. The Events channel closes
// after the terminal event (Ended, or Error for fatal kinds).
type Session interface {
	ID() uuid.UUID
	Events() <-chan Event
	// Stop requests a graceful end; an Ended event still arrives.
	Stop() error
	// Abort tears the session down immediately.
	Abort() error
}

// Recognizer creates sessions. At most one session may be active at a time;
// the caller enforces that invariant.
type Recognizer interface {
	NewSession(ctx context.Context) (Session, error)
}
