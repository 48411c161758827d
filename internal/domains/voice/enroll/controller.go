package enroll

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxgate/voxgate/internal/domains/voice/features"
	"github.com/voxgate/voxgate/internal/domains/voice/voiceprint"
	"github.com/voxgate/voxgate/internal/status"
	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio"
	"github.com/voxgate/voxgate/pkg/io/stt"
)

// Config carries the enrollment pacing knobs.
type Config struct {
	Phrases        []string
	DisplayPause   time.Duration // pause after showing a phrase
	SessionTimeout time.Duration // hard cap per recognition attempt
	AdvancePause   time.Duration // pause after an accepted phrase
	MismatchRetry  time.Duration // pause before retrying a mismatch
	TimeoutRetry   time.Duration // pause before retrying a timeout
}

// DefaultConfig returns the canonical phrase list and pacing.
func DefaultConfig() Config {
	return Config{
		Phrases: []string{
			"hey youtube",
			"youtube play",
			"youtube pause",
			"youtube volume up",
			"youtube skip ahead thirty seconds",
		},
		DisplayPause:   1500 * time.Millisecond,
		SessionTimeout: 5 * time.Second,
		AdvancePause:   800 * time.Millisecond,
		MismatchRetry:  1200 * time.Millisecond,
		TimeoutRetry:   2 * time.Second,
	}
}

// Sample is one accepted enrollment capture, tagged with its phrase index.
type Sample struct {
	Vector      features.Vector
	PhraseIndex int
}

type attemptOutcome int

const (
	outcomeAccepted attemptOutcome = iota
	outcomeMismatch
	outcomeTimeout
	outcomeCancelled
)

// Controller drives phrase-by-phrase sample collection and builds the
// voiceprint. It runs exclusively: the caller disables wake-word handling
// and the activity detector for the duration.
type Controller struct {
	cfg    Config
	logger *Logger.Logger
	rec    stt.Recognizer
	an     audio.Analyser
	store  voiceprint.Store
	pub    *status.Publisher

	// OnComplete runs after a voiceprint is persisted, before control is
	// handed back to the caller.
	OnComplete func(vp *voiceprint.Voiceprint)

	mu        sync.Mutex
	running   bool
	phraseIdx int
	cancelCh  chan struct{}
}

func NewController(
	cfg Config,
	rec stt.Recognizer,
	an audio.Analyser,
	store voiceprint.Store,
	pub *status.Publisher,
	logger *Logger.Logger,
) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger,
		rec:    rec,
		an:     an,
		store:  store,
		pub:    pub,
	}
}

// Running reports whether an enrollment is in progress.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// PhraseIndex reports the phrase currently being collected.
func (c *Controller) PhraseIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phraseIdx
}

// Start begins an enrollment run. Returns an error if one is already
// running or no phrases are configured.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("enrollment already in progress")
	}
	if len(c.cfg.Phrases) == 0 {
		return fmt.Errorf("no enrollment phrases configured")
	}
	c.running = true
	c.phraseIdx = 0
	c.cancelCh = make(chan struct{})
	go c.run(ctx, c.cancelCh)
	return nil
}

// Cancel aborts the run. The active session is torn down, pending timers
// die with the run goroutine, and no voiceprint is saved.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.cancelCh)
	c.running = false
}

// finish clears the running flag, but only for the run that owns it. A
// cancelled run's deferred teardown can land after a newer run has already
// started; comparing cancel channels keeps it from clobbering that run.
func (c *Controller) finish(cancel chan struct{}) {
	c.mu.Lock()
	if c.cancelCh == cancel {
		c.running = false
	}
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context, cancel chan struct{}) {
	defer c.finish(cancel)

	var collected []features.Vector
	idx := 0
	for idx < len(c.cfg.Phrases) {
		c.mu.Lock()
		c.phraseIdx = idx
		c.mu.Unlock()

		phrase := c.cfg.Phrases[idx]
		c.pub.Publish(status.StateEnrolling,
			fmt.Sprintf("Say: %q (%d/%d)", phrase, idx+1, len(c.cfg.Phrases)))

		if !c.pause(ctx, cancel, c.cfg.DisplayPause) {
			c.cancelled()
			return
		}

		outcome, sample := c.collectPhrase(ctx, cancel, phrase, idx)
		switch outcome {
		case outcomeAccepted:
			collected = append(collected, sample.Vector)
			c.logger.Infof("enrollment phrase %d accepted: %q", idx, phrase)
			idx++
			if !c.pause(ctx, cancel, c.cfg.AdvancePause) {
				c.cancelled()
				return
			}
		case outcomeMismatch:
			c.pub.Publish(status.StateEnrolling, "That didn't match, try again")
			if !c.pause(ctx, cancel, c.cfg.MismatchRetry) {
				c.cancelled()
				return
			}
		case outcomeTimeout:
			c.pub.Publish(status.StateEnrolling, "Didn't catch that, try again")
			if !c.pause(ctx, cancel, c.cfg.TimeoutRetry) {
				c.cancelled()
				return
			}
		case outcomeCancelled:
			c.cancelled()
			return
		}
	}

	vp := voiceprint.Aggregate(collected)
	if err := c.store.Save(vp); err != nil {
		c.logger.Errorf("voiceprint save failed: %v", err)
		c.pub.Publish(status.StateError, "Could not save voice profile")
		return
	}

	c.pub.Publish(status.StateComplete,
		fmt.Sprintf("Voice profile trained on %d phrases", vp.SampleCount))
	if c.OnComplete != nil {
		c.OnComplete(vp)
	}
}

func (c *Controller) cancelled() {
	c.logger.Info("enrollment cancelled")
	c.pub.Publish(status.StateIdle, "Enrollment cancelled")
}

// collectPhrase runs one recognition attempt for a phrase. The 5 s timeout
// and incoming hypotheses race for the decision; an atomic claim ensures
// only one of them resolves the attempt.
func (c *Controller) collectPhrase(ctx context.Context, cancel <-chan struct{}, phrase string, idx int) (attemptOutcome, Sample) {
	sess, err := c.rec.NewSession(ctx)
	if err != nil {
		c.logger.Warnf("enrollment session start failed: %v", err)
		return outcomeTimeout, Sample{}
	}

	timer := time.NewTimer(c.cfg.SessionTimeout)
	defer timer.Stop()

	var claimed atomic.Bool
	events := sess.Events()

	for {
		select {
		case <-ctx.Done():
			sess.Abort()
			return outcomeCancelled, Sample{}
		case <-cancel:
			sess.Abort()
			return outcomeCancelled, Sample{}

		case <-timer.C:
			if !claimed.CompareAndSwap(false, true) {
				continue
			}
			sess.Abort()
			return outcomeTimeout, Sample{}

		case ev, ok := <-events:
			if !ok {
				// Session died without a decision; let the timeout claim it.
				events = nil
				continue
			}
			switch ev.Kind {
			case stt.EventHypothesis:
				// Interim results count too, but only once long enough to
				// judge fairly.
				if !hypothesisReady(ev.Text, phrase) {
					continue
				}
				if !claimed.CompareAndSwap(false, true) {
					continue
				}
				sim := Similarity(ev.Text, phrase)
				if sim >= AcceptThreshold(phrase) {
					sample, ok := c.capture(ev.Text, idx)
					sess.Stop()
					if !ok {
						return outcomeMismatch, Sample{}
					}
					return outcomeAccepted, sample
				}
				sess.Stop()
				c.logger.Debugf("enrollment mismatch: %q vs %q (%.2f)", ev.Text, phrase, sim)
				return outcomeMismatch, Sample{}

			case stt.EventError:
				if !stt.IsTransientErrKind(ev.ErrKind) {
					c.logger.Warnf("enrollment recognition error: %s", ev.ErrKind)
				}
			}
		}
	}
}

// hypothesisReady gates evaluation so truncated partials aren't judged.
func hypothesisReady(text, expected string) bool {
	spokenWords := len(strings.Fields(Normalize(text)))
	expectedWords := len(strings.Fields(Normalize(expected)))
	if spokenWords >= expectedWords {
		return true
	}
	return len(Normalize(text)) >= int(0.7*float64(len(Normalize(expected))))
}

// capture snapshots the analyser into an enrollment sample.
func (c *Controller) capture(text string, idx int) (Sample, bool) {
	frame, err := c.an.Frame()
	if err != nil || frame == nil {
		c.logger.Warnf("no analyser frame at acceptance, retrying phrase")
		return Sample{}, false
	}
	vec := features.Extract(frame)
	vec.SourceText = text
	return Sample{Vector: vec, PhraseIndex: idx}, true
}

// pause waits for d, returning false when cancelled.
func (c *Controller) pause(ctx context.Context, cancel <-chan struct{}, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-cancel:
		return false
	case <-time.After(d):
		return true
	}
}
