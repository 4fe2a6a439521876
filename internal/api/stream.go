package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vvnuui/cerisier/internal/pipeline"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// StreamHub fans pipeline progress events out to websocket subscribers.
// It implements pipeline.Sink; a hub with no subscribers drops events.
// SSOT: websocket broadcast state lives in this struct.
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewStreamHub creates a stream hub.
func NewStreamHub(log *logger.Logger) *StreamHub {
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// paper trading dashboard runs on a different origin in dev
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.WithComponent("stream"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Publish sends one event to every connected subscriber. Write errors
// evict the subscriber.
func (h *StreamHub) Publish(event pipeline.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.WithError(err).Debug("Evicting stream subscriber")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *StreamHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleStream upgrades the connection and registers the subscriber.
// GET /api/v1/stream
func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Stream subscriber connected")

	// drain reads so close frames are processed; subscribers only listen
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
