package wsremote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/io/stt"
)

// newWSServer serves one scripted recognition endpoint and returns its
// ws:// URL.
func newWSServer(t *testing.T, handle func(t *testing.T, conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		handle(t, conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, events <-chan stt.Event) (stt.Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-events:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return stt.Event{}, false
	}
}

func TestSessionStreamsEventsUntilEnded(t *testing.T) {
	url := newWSServer(t, func(t *testing.T, conn *websocket.Conn) {
		defer conn.Close()
		var start controlMessage
		if err := conn.ReadJSON(&start); err != nil {
			t.Errorf("read start frame: %v", err)
			return
		}
		if start.Type != "start" || start.SampleRate != 16000 || start.SessionID == "" {
			t.Errorf("unexpected start frame %+v", start)
		}
		conn.WriteJSON(serverMessage{Type: "started"})
		conn.WriteJSON(serverMessage{Type: "hypothesis", Text: "hey youtube", Final: true})
		conn.WriteJSON(serverMessage{Type: "ended"})
	})

	c := New(url, 16000, Logger.Nop())
	sess, err := c.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ev, _ := nextEvent(t, sess.Events())
	if ev.Kind != stt.EventStarted {
		t.Errorf("first event %s, want started", ev.Kind)
	}
	ev, _ = nextEvent(t, sess.Events())
	if ev.Kind != stt.EventHypothesis || ev.Text != "hey youtube" || !ev.Final {
		t.Errorf("unexpected hypothesis event %+v", ev)
	}
	if ev.SessionID != sess.ID() {
		t.Errorf("event session id %s, want %s", ev.SessionID, sess.ID())
	}
	ev, _ = nextEvent(t, sess.Events())
	if ev.Kind != stt.EventEnded {
		t.Errorf("terminal event %s, want ended", ev.Kind)
	}
	if _, ok := nextEvent(t, sess.Events()); ok {
		t.Error("events channel still open after the terminal event")
	}
}

func TestStopRequestsGracefulEnd(t *testing.T) {
	url := newWSServer(t, func(t *testing.T, conn *websocket.Conn) {
		defer conn.Close()
		var start, stop controlMessage
		if err := conn.ReadJSON(&start); err != nil {
			t.Errorf("read start frame: %v", err)
			return
		}
		if err := conn.ReadJSON(&stop); err != nil {
			t.Errorf("read stop frame: %v", err)
			return
		}
		if stop.Type != "stop" || stop.SessionID != start.SessionID {
			t.Errorf("unexpected stop frame %+v", stop)
		}
		conn.WriteJSON(serverMessage{Type: "ended"})
	})

	c := New(url, 16000, Logger.Nop())
	sess, err := c.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	ev, _ := nextEvent(t, sess.Events())
	if ev.Kind != stt.EventEnded {
		t.Errorf("event after stop %s, want ended", ev.Kind)
	}
	if _, ok := nextEvent(t, sess.Events()); ok {
		t.Error("events channel still open after graceful end")
	}
}

func TestAbortClosesWithoutErrorEvent(t *testing.T) {
	url := newWSServer(t, func(t *testing.T, conn *websocket.Conn) {
		defer conn.Close()
		var start controlMessage
		conn.ReadJSON(&start)
		// Hold the connection until the client tears it down.
		conn.ReadMessage()
	})

	c := New(url, 16000, Logger.Nop())
	sess, err := c.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := sess.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	for {
		ev, ok := nextEvent(t, sess.Events())
		if !ok {
			return
		}
		if ev.Kind == stt.EventError {
			t.Fatalf("error event after local abort: %+v", ev)
		}
	}
}

func TestStreamLossReportsNetworkError(t *testing.T) {
	url := newWSServer(t, func(t *testing.T, conn *websocket.Conn) {
		var start controlMessage
		conn.ReadJSON(&start)
		// Drop the connection without an ended frame.
		conn.Close()
	})

	c := New(url, 16000, Logger.Nop())
	sess, err := c.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ev, _ := nextEvent(t, sess.Events())
	if ev.Kind != stt.EventError || ev.ErrKind != stt.ErrKindNetwork {
		t.Errorf("event after stream loss %+v, want network error", ev)
	}
	ev, _ = nextEvent(t, sess.Events())
	if ev.Kind != stt.EventEnded {
		t.Errorf("event after network error %s, want ended", ev.Kind)
	}
	if _, ok := nextEvent(t, sess.Events()); ok {
		t.Error("events channel still open after stream loss")
	}
}

func TestPushNeverBlocksCapture(t *testing.T) {
	url := newWSServer(t, func(t *testing.T, conn *websocket.Conn) {
		defer conn.Close()
		var start controlMessage
		conn.ReadJSON(&start)
		conn.ReadMessage()
	})

	c := New(url, 16000, Logger.Nop())

	// Without a session, capture is dropped outright.
	c.Push(make([]int16, 160))

	sess, err := c.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	// After an abort the session stops draining; pushes beyond the buffer
	// capacity must be dropped, never stall the capture callback.
	sess.Abort()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Push(make([]int16, 160))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked while the session was not draining")
	}
}
