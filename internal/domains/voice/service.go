// Package voice coordinates the wake-word machine, voice-activity detection
// and enrollment, enforcing their exclusivity rules.
package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/voxgate/voxgate/internal/domains/voice/enroll"
	"github.com/voxgate/voxgate/internal/domains/voice/voiceprint"
	"github.com/voxgate/voxgate/internal/domains/voice/wake"
	"github.com/voxgate/voxgate/internal/status"
	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio/vad"
)

var (
	ErrEnrollmentRunning = errors.New("voice: enrollment in progress")
	ErrNotListening      = errors.New("voice: not listening")
)

// Service is the top-level voice subsystem facade used by the control API.
type Service struct {
	baseCtx  context.Context
	logger   *Logger.Logger
	machine  *wake.Machine
	detector *vad.Detector
	enroller *enroll.Controller
	store    voiceprint.Store
	pub      *status.Publisher

	mu        sync.Mutex
	listening bool
	enrolled  bool
}

// NewService wires the voice subsystem. The context bounds the service
// lifetime: recognition sessions and enrollment runs outlive any single API
// call and are torn down only when this context is cancelled.
func NewService(
	ctx context.Context,
	logger *Logger.Logger,
	machine *wake.Machine,
	detector *vad.Detector,
	enroller *enroll.Controller,
	store voiceprint.Store,
	pub *status.Publisher,
) *Service {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Service{
		baseCtx:  ctx,
		logger:   logger,
		machine:  machine,
		detector: detector,
		enroller: enroller,
		store:    store,
		pub:      pub,
	}
	enroller.OnComplete = s.onEnrolled
	return s
}

// Init loads any persisted voiceprint into the wake machine. Called once at
// startup before listening begins.
func (s *Service) Init() error {
	vp, err := s.store.Load()
	if err != nil {
		return err
	}
	s.machine.SetVoiceprint(vp)
	s.mu.Lock()
	s.enrolled = vp != nil
	s.mu.Unlock()
	if vp != nil {
		s.logger.Infow("voiceprint loaded", "samples", vp.SampleCount)
	} else {
		s.logger.Infow("no voiceprint enrolled, wake detection runs unverified")
	}
	return nil
}

// StartListening enables wake detection and voice-activity monitoring.
func (s *Service) StartListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enroller.Running() {
		return ErrEnrollmentRunning
	}
	if s.listening {
		return nil
	}
	if err := s.machine.Start(s.baseCtx); err != nil {
		return err
	}
	s.detector.Start()
	s.listening = true
	return nil
}

// StopListening halts wake detection and voice-activity monitoring.
func (s *Service) StopListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopListeningLocked()
}

func (s *Service) stopListeningLocked() {
	if !s.listening {
		return
	}
	s.detector.Stop()
	s.machine.Stop()
	s.listening = false
}

// Reenable clears a fatal-error lockout so listening can be started again.
func (s *Service) Reenable() {
	s.machine.Reenable()
}

// BeginEnrollment suspends listening and starts the guided enrollment flow.
// Listening resumes automatically when enrollment completes; a cancelled or
// failed enrollment leaves the system stopped until the user re-starts it.
func (s *Service) BeginEnrollment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enroller.Running() {
		return ErrEnrollmentRunning
	}
	wasListening := s.listening
	s.stopListeningLocked()
	if err := s.enroller.Start(s.baseCtx); err != nil {
		if wasListening {
			if rerr := s.machine.Start(s.baseCtx); rerr == nil {
				s.detector.Start()
				s.listening = true
			}
		}
		return err
	}
	return nil
}

// CancelEnrollment aborts an in-progress enrollment. No voiceprint is saved.
func (s *Service) CancelEnrollment() {
	s.enroller.Cancel()
}

// onEnrolled installs the fresh voiceprint and hands control back to the
// wake machine with a new recognition session.
func (s *Service) onEnrolled(vp *voiceprint.Voiceprint) {
	s.machine.SetVoiceprint(vp)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolled = true
	if err := s.machine.Start(s.baseCtx); err != nil {
		s.logger.Errorw("resume listening after enrollment", "error", err)
		return
	}
	s.detector.Start()
	s.listening = true
}

// ClearVoiceprint removes the persisted voiceprint; wake detection falls
// back to unverified operation.
func (s *Service) ClearVoiceprint() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.machine.SetVoiceprint(nil)
	s.mu.Lock()
	s.enrolled = false
	s.mu.Unlock()
	return nil
}

// Listening reports whether wake detection is active.
func (s *Service) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Enrolled reports whether a voiceprint is installed.
func (s *Service) Enrolled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrolled
}

// Enrolling reports whether the guided enrollment flow is running.
func (s *Service) Enrolling() bool {
	return s.enroller.Running()
}

// Status returns the most recent published state for the control API.
func (s *Service) Status() status.Event {
	return s.pub.Last()
}

// MachineState exposes the wake machine state for diagnostics.
func (s *Service) MachineState() string {
	return s.machine.State()
}
