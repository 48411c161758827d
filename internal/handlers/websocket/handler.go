// Package websocket streams pipeline status events to UI clients.
package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/voxgate/voxgate/internal/status"
	"github.com/voxgate/voxgate/pkg/Logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatusHandler upgrades control-API clients to a live status event stream.
type StatusHandler struct {
	pub    *status.Publisher
	logger *Logger.Logger
}

// NewStatusHandler creates a new status stream handler
func NewStatusHandler(pub *status.Publisher, logger *Logger.Logger) *StatusHandler {
	return &StatusHandler{pub: pub, logger: logger}
}

// Stream handles one client connection. The last known event is sent
// immediately so late joiners see the current state.
func (h *StatusHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, events := h.pub.Subscribe()
	defer h.pub.Unsubscribe(id)

	h.logger.Debugf("status subscriber %s connected", id)

	// Reader goroutine: we only care about the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last := h.pub.Last(); !last.At.IsZero() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(last); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debugf("status subscriber %s write failed: %v", id, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
