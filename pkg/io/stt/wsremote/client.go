package wsremote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/io/stt"
)

// Wire messages exchanged with the recognition service. The client sends a
// start control frame followed by binary PCM chunks; the service responds
// with JSON events until the session ends.
type controlMessage struct {
	Type       string `json:"type"` // "start" | "stop"
	SessionID  string `json:"sessionId"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Interim    bool   `json:"interim,omitempty"`
}

type serverMessage struct {
	Type  string `json:"type"` // "started" | "hypothesis" | "error" | "ended"
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client is an stt.Recognizer backed by a websocket recognition service.
// It also acts as an audio.PCMSink: captured chunks are forwarded to the
// active session, and dropped when none is running.
type Client struct {
	url        string
	sampleRate int
	logger     *Logger.Logger

	mu     sync.Mutex
	active *session
}

func New(url string, sampleRate int, logger *Logger.Logger) *Client {
	return &Client{url: url, sampleRate: sampleRate, logger: logger}
}

// NewSession implements stt.Recognizer.
func (c *Client) NewSession(ctx context.Context) (stt.Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial recognition service: %w", err)
	}

	s := &session{
		id:     uuid.New(),
		conn:   conn,
		events: make(chan stt.Event, 16),
		pcm:    make(chan []int16, 32),
		done:   make(chan struct{}),
		logger: c.logger,
	}

	start := controlMessage{
		Type:       "start",
		SessionID:  s.id.String(),
		SampleRate: c.sampleRate,
		Interim:    true,
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return nil, fmt.Errorf("start recognition session: %w", err)
	}

	c.mu.Lock()
	c.active = s
	c.mu.Unlock()

	go s.readLoop(func() { c.clear(s) })
	go s.writeLoop()
	return s, nil
}

// Push implements audio.PCMSink, forwarding capture to the active session.
func (c *Client) Push(pcm []int16) {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case s.pcm <- pcm:
	default:
		// session is not draining; drop rather than stall capture
	}
}

func (c *Client) clear(s *session) {
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
}

type session struct {
	id     uuid.UUID
	conn   *websocket.Conn
	events chan stt.Event
	pcm    chan []int16
	logger *Logger.Logger

	wmu       sync.Mutex // serializes writes to conn
	closeOnce sync.Once
	done      chan struct{}
}

func (s *session) ID() uuid.UUID            { return s.id }
func (s *session) Events() <-chan stt.Event { return s.events }

func (s *session) Stop() error {
	msg := controlMessage{Type: "stop", SessionID: s.id.String()}
	s.wmu.Lock()
	err := s.conn.WriteJSON(msg)
	s.wmu.Unlock()
	if err != nil {
		// Connection already gone; tear down locally.
		s.teardown()
		return err
	}
	return nil
}

func (s *session) Abort() error {
	s.teardown()
	return nil
}

func (s *session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *session) readLoop(onExit func()) {
	defer func() {
		s.teardown()
		close(s.events)
		onExit()
	}()

	for {
		var msg serverMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
				// aborted locally, no error event needed
			default:
				s.emit(stt.Event{Kind: stt.EventError, ErrKind: stt.ErrKindNetwork})
				s.emit(stt.Event{Kind: stt.EventEnded})
			}
			return
		}

		switch msg.Type {
		case "started":
			s.emit(stt.Event{Kind: stt.EventStarted})
		case "hypothesis":
			s.emit(stt.Event{Kind: stt.EventHypothesis, Text: msg.Text, Final: msg.Final})
		case "error":
			s.emit(stt.Event{Kind: stt.EventError, ErrKind: msg.Error})
		case "ended":
			s.emit(stt.Event{Kind: stt.EventEnded})
			return
		default:
			s.logger.Debugf("ignoring unknown recognition message type %q", msg.Type)
		}
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case chunk := <-s.pcm:
			data := make([]byte, len(chunk)*2)
			for i, v := range chunk {
				data[i*2] = byte(v)
				data[i*2+1] = byte(v >> 8)
			}
			s.wmu.Lock()
			err := s.conn.WriteMessage(websocket.BinaryMessage, data)
			s.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *session) emit(ev stt.Event) {
	ev.SessionID = s.id
	ev.At = time.Now()
	select {
	case s.events <- ev:
	case <-time.After(time.Second):
		s.logger.Warnf("recognition event dropped, consumer stalled: %v", ev.Kind)
	}
}
