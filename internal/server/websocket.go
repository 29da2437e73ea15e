package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wesleyorama2/loadlab/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512
)

// handleMetricsWS pushes the metrics payload to a websocket client: once
// on connect, then after every window closure.
func (s *Server) handleMetricsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		log.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	sub := s.engine.Subscribe()
	entry := log.WithFields(log.Fields{
		"subscriber": sub.ID().String(),
		"remote":     r.RemoteAddr,
	})
	entry.Info("Metrics subscriber connected")

	done := make(chan struct{})
	go readPump(conn, done)
	writePump(conn, sub, done)

	sub.Close()
	_ = conn.Close()
	entry.Info("Metrics subscriber disconnected")
}

// readPump discards client messages and closes done when the peer goes
// away or stops answering pings.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("Websocket read error")
			}
			return
		}
	}
}

// writePump is the only writer on conn.
func writePump(conn *websocket.Conn, sub *metrics.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case snapshot, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Engine closed: tell the peer we are going away.
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				log.WithError(err).Debug("Websocket write failed")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
