package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWatch streams transcript messages over a websocket. The full
// backlog is sent on connect, then new messages as they land. The client
// never sends anything; the read loop exists only to notice disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	updates := s.transcript.Subscribe()

	var lastSeq int64
	if lastSeq, err = s.syncTranscript(ws, 0); err != nil {
		slog.Error("Failed initial transcript sync", "error", err)
		return
	}

	done := make(chan struct{})

	// Reader loop in the background: its only job is to detect the peer
	// going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-updates:
			if lastSeq, err = s.syncTranscript(ws, lastSeq); err != nil {
				slog.Error("Failed transcript sync", "error", err)
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// syncTranscript writes every message after seq and returns the new high
// water mark. Notifications are coalesced, so one signal may cover several
// messages.
func (s *Server) syncTranscript(ws *websocket.Conn, seq int64) (int64, error) {
	for _, msg := range s.transcript.Since(seq) {
		if err := ws.WriteJSON(msg); err != nil {
			return seq, err
		}
		seq = msg.Seq
	}
	return seq, nil
}
