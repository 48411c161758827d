package wake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"

	"github.com/voxgate/voxgate/internal/domains/voice/command"
	"github.com/voxgate/voxgate/internal/domains/voice/features"
	"github.com/voxgate/voxgate/internal/domains/voice/verify"
	"github.com/voxgate/voxgate/internal/domains/voice/voiceprint"
	"github.com/voxgate/voxgate/internal/status"
	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio"
	"github.com/voxgate/voxgate/pkg/io/stt"
)

// Machine states.
const (
	StateIdle          = "idle"
	StateCommandWindow = "command_window"
	StateProcessing    = "processing"
	StateError         = "error"
)

// Machine transition events.
const (
	evOpenWindow = "open_window"
	evEngage     = "engage"
	evFail       = "fail"
	evReset      = "reset"
)

// Config carries the timing policy for the wake-word machine.
type Config struct {
	WakeToken      string
	CommandWindow  time.Duration // how long to wait for a command after the wake token
	RestartBackoff time.Duration // delay before a new session after natural end
	StartRetry     time.Duration // delay before retrying a failed session start
	DispatchDelay  time.Duration // how long to display the dispatched command
	DuckFactor     float64
}

func DefaultConfig() Config {
	return Config{
		WakeToken:      "hey youtube",
		CommandWindow:  4000 * time.Millisecond,
		RestartBackoff: 300 * time.Millisecond,
		StartRetry:     1000 * time.Millisecond,
		DispatchDelay:  500 * time.Millisecond,
		DuckFactor:     defaultDuckFactor,
	}
}

// Machine is the top-level coordinator. It consumes recognizer events,
// gates them through speaker verification and drives ducking and the
// command-window timer.
type Machine struct {
	cfg      Config
	logger   *Logger.Logger
	rec      stt.Recognizer
	an       audio.Analyser
	engine   *verify.Engine
	ducker   *Ducker
	pub      *status.Publisher
	dispatch command.Dispatcher

	sm *fsm.FSM

	mu            sync.Mutex
	ctx           context.Context
	active        bool
	disabled      bool
	vp            *voiceprint.Voiceprint
	sess          stt.Session
	windowClaim   *atomic.Bool
	windowTimer   *time.Timer
	dispatchTimer *time.Timer
	restartTimer  *time.Timer
}

func NewMachine(
	cfg Config,
	logger *Logger.Logger,
	rec stt.Recognizer,
	an audio.Analyser,
	engine *verify.Engine,
	ducker *Ducker,
	pub *status.Publisher,
	dispatch command.Dispatcher,
) *Machine {
	m := &Machine{
		cfg:      cfg,
		logger:   logger,
		rec:      rec,
		an:       an,
		engine:   engine,
		ducker:   ducker,
		pub:      pub,
		dispatch: dispatch,
	}
	m.sm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: evOpenWindow, Src: []string{StateIdle}, Dst: StateCommandWindow},
			{Name: evEngage, Src: []string{StateIdle, StateCommandWindow}, Dst: StateProcessing},
			{Name: evFail, Src: []string{StateIdle, StateCommandWindow, StateProcessing}, Dst: StateError},
			{Name: evReset, Src: []string{StateIdle, StateCommandWindow, StateProcessing, StateError}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_" + StateCommandWindow: func(_ context.Context, e *fsm.Event) {
				m.ducker.Duck()
				m.pub.Publish(status.StateCommandWindow, "Listening for command...")
			},
			"enter_" + StateProcessing: func(_ context.Context, e *fsm.Event) {
				m.ducker.Duck()
			},
			"enter_" + StateError: func(_ context.Context, e *fsm.Event) {
				msg := "Error"
				if len(e.Args) > 0 {
					if s, ok := e.Args[0].(string); ok {
						msg = s
					}
				}
				m.pub.Publish(status.StateError, msg)
			},
			"enter_" + StateIdle: func(_ context.Context, e *fsm.Event) {
				m.ducker.Restore()
				m.pub.Publish(status.StateIdle, "")
			},
		},
	)
	return m
}

// State returns the current machine state.
func (m *Machine) State() string {
	return m.sm.Current()
}

// Active reports whether the machine is consuming recognition sessions.
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetVoiceprint installs (or clears) the enrolled voiceprint used for
// verification. With no voiceprint installed, wake detection runs
// unverified.
func (m *Machine) SetVoiceprint(vp *voiceprint.Voiceprint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vp = vp
}

// EnsureSession opens a recognition session if listening is enabled and no
// session is active. Wired to voice-activity onsets.
func (m *Machine) EnsureSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startSessionLocked()
}

// Start begins listening. It opens the first recognition session and keeps
// one alive per the restart policy until Stop is called.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return errors.New("wake: listening disabled after fatal recognition error")
	}
	if m.active {
		return errors.New("wake: already listening")
	}
	m.active = true
	m.ctx = ctx
	m.startSessionLocked()
	return nil
}

// Stop halts listening, clears every pending timer and restores playback
// volume. Safe to call repeatedly.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.active = false
	m.clearTimersLocked()
	if m.sess != nil {
		m.sess.Abort()
		m.sess = nil
	}
	m.resetLocked()
}

// Reenable clears the disabled flag set by a fatal recognition error so a
// subsequent Start can succeed.
func (m *Machine) Reenable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = false
}

// clearTimersLocked synchronously stops every pending timer so a stale
// callback cannot resurrect a superseded state.
func (m *Machine) clearTimersLocked() {
	for _, t := range []*time.Timer{m.windowTimer, m.dispatchTimer, m.restartTimer} {
		if t != nil {
			t.Stop()
		}
	}
	m.windowTimer = nil
	m.dispatchTimer = nil
	m.restartTimer = nil
	if m.windowClaim != nil {
		m.windowClaim.Store(true)
		m.windowClaim = nil
	}
}

func (m *Machine) resetLocked() {
	if m.sm.Current() != StateIdle {
		m.sm.Event(context.Background(), evReset)
	} else {
		m.ducker.Restore()
	}
}

// startSessionLocked opens a recognition session and hands its event stream
// to a consumer goroutine. Start failures retry on a timer while active.
func (m *Machine) startSessionLocked() {
	if !m.active || m.sess != nil {
		return
	}
	sess, err := m.rec.NewSession(m.ctx)
	if err != nil {
		m.logger.Warnw("recognition session start failed", "error", err)
		m.restartTimer = time.AfterFunc(m.cfg.StartRetry, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.restartTimer = nil
			m.startSessionLocked()
		})
		return
	}
	m.sess = sess
	go m.consume(sess)
}

// consume drains one session's events until its channel closes, then
// schedules the next session per the restart policy.
func (m *Machine) consume(sess stt.Session) {
	for ev := range sess.Events() {
		switch ev.Kind {
		case stt.EventHypothesis:
			if ev.Final {
				m.handleFinal(ev.Text)
			}
		case stt.EventError:
			if stt.IsFatalErrKind(ev.ErrKind) {
				m.fatal(ev.ErrKind)
				return
			}
			if !stt.IsTransientErrKind(ev.ErrKind) {
				m.logger.Warnw("recognition error", "kind", ev.ErrKind)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != sess {
		return
	}
	m.sess = nil
	if !m.active {
		return
	}
	m.restartTimer = time.AfterFunc(m.cfg.RestartBackoff, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.restartTimer = nil
		m.startSessionLocked()
	})
}

// fatal handles a permission-denied class error: listening shuts down until
// the user re-enables it.
func (m *Machine) fatal(kind string) {
	m.logger.Errorw("fatal recognition error, disabling listening", "kind", kind)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = true
	m.active = false
	m.clearTimersLocked()
	if m.sess != nil {
		m.sess.Abort()
		m.sess = nil
	}
	if m.sm.Current() != StateIdle {
		m.sm.Event(context.Background(), evReset)
	} else {
		m.ducker.Restore()
	}
	m.pub.Publish(status.StateDisabled, "Microphone access denied")
}

// handleFinal routes a final hypothesis according to the current state.
func (m *Machine) handleFinal(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	switch m.sm.Current() {
	case StateIdle:
		m.handleWakeLocked(text)
	case StateCommandWindow:
		m.handleCommandLocked(text)
	default:
		// Busy processing; drop the utterance.
	}
}

func (m *Machine) handleWakeLocked(text string) {
	found, trailing := splitWake(text, m.cfg.WakeToken)
	if !found {
		return
	}
	m.logger.Debugw("wake token heard", "text", text)
	if ok, msg := m.verifyLocked(verify.ContextWakeWord); !ok {
		m.failLocked(msg)
		return
	}
	if trailing != "" {
		m.sm.Event(context.Background(), evEngage)
		m.processLocked(trailing)
		return
	}
	m.sm.Event(context.Background(), evOpenWindow)
	m.armWindowLocked()
}

// armWindowLocked starts the command-window timer with a fresh claim flag.
// The timer and an incoming hypothesis race for the claim; whichever wins
// decides the window, the loser becomes a no-op.
func (m *Machine) armWindowLocked() {
	claim := &atomic.Bool{}
	m.windowClaim = claim
	m.windowTimer = time.AfterFunc(m.cfg.CommandWindow, func() {
		if !claim.CompareAndSwap(false, true) {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		m.windowTimer = nil
		m.windowClaim = nil
		if m.sm.Current() == StateCommandWindow {
			m.logger.Debugw("command window expired")
			m.sm.Event(context.Background(), evReset)
		}
	})
}

func (m *Machine) handleCommandLocked(text string) {
	if m.windowClaim == nil || !m.windowClaim.CompareAndSwap(false, true) {
		return
	}
	if m.windowTimer != nil {
		m.windowTimer.Stop()
		m.windowTimer = nil
	}
	m.windowClaim = nil
	if ok, msg := m.verifyLocked(verify.ContextCommand); !ok {
		m.failLocked(msg)
		return
	}
	m.sm.Event(context.Background(), evEngage)
	m.processLocked(text)
}

// verifyLocked scores the current audio frame against the enrolled
// voiceprint. With no voiceprint installed, verification passes.
func (m *Machine) verifyLocked(vctx verify.Context) (bool, string) {
	if m.vp == nil {
		return true, ""
	}
	frame, err := m.an.Frame()
	if err != nil || frame == nil {
		return false, "Could not capture audio for verification"
	}
	res := m.engine.Verify(features.Extract(frame), m.vp, vctx)
	if !res.IsVerified {
		m.logger.Infow("speaker rejected",
			"context", string(vctx),
			"confidence", res.Confidence,
			"passedLayers", res.PassedLayers,
		)
		return false, "Voice not recognized"
	}
	return true, ""
}

// processLocked parses the utterance and hands the command to the
// dispatcher, then returns to Idle after the display delay.
func (m *Machine) processLocked(text string) {
	cmd, ok := command.Parse(text)
	if !ok {
		m.failLocked("Did not understand: " + text)
		return
	}
	m.logger.Infow("command dispatched", "action", string(cmd.Action), "raw", cmd.Raw)
	m.pub.Publish(status.StateProcessing, "Command: "+string(cmd.Action))
	m.dispatch.Dispatch(cmd)
	m.dispatchTimer = time.AfterFunc(m.cfg.DispatchDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.dispatchTimer = nil
		if m.sm.Current() == StateProcessing {
			m.sm.Event(context.Background(), evReset)
		}
	})
}

// failLocked passes through the transient Error state and settles in Idle.
func (m *Machine) failLocked(msg string) {
	m.sm.Event(context.Background(), evFail, msg)
	m.sm.Event(context.Background(), evReset)
}

// splitWake locates the wake token in an utterance and returns the trailing
// command text after it, if any.
func splitWake(text, token string) (bool, string) {
	norm := strings.ToLower(text)
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return false, ""
	}
	i := strings.Index(norm, token)
	if i < 0 {
		return false, ""
	}
	return true, strings.TrimSpace(text[i+len(token):])
}
