package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bbernstein/lacylights-strip/internal/services/control"
	"github.com/bbernstein/lacylights-strip/internal/services/pubsub"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

const (
	pingInterval = 10 * time.Second
	writeTimeout = 5 * time.Second
	// a slow client misses frames instead of stalling the publisher
	streamBuffer = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleStream sends every rendered frame as a JSON array of "#rrggbb" strings,
// and the configuration as a JSON object whenever it changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️  WebSocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	frames := s.ps.Subscribe(pubsub.TopicFrame, streamBuffer)
	defer s.ps.Unsubscribe(frames)
	changes := s.ps.Subscribe(pubsub.TopicSettings, streamBuffer)
	defer s.ps.Unsubscribe(changes)

	// the reader only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.send(conn, s.control.State()); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-frames.Channel:
			if !ok {
				return
			}
			frame, isFrame := msg.(rgb.Frame)
			if !isFrame {
				continue
			}
			if err := s.send(conn, frame.Hex()); err != nil {
				return
			}
		case msg, ok := <-changes.Channel:
			if !ok {
				return
			}
			state, isState := msg.(control.State)
			if !isState {
				continue
			}
			if err := s.send(conn, state); err != nil {
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}
