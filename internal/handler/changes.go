package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pmallory/tripsync/internal/gateway"
)

const (
	// writeWait bounds how long a slow client can stall one frame.
	writeWait = 10 * time.Second

	// pongWait is how long the connection survives without a pong;
	// pings go out at a third of it.
	pongWait     = 60 * time.Second
	pingInterval = 20 * time.Second
)

// handleChanges handles GET /v1/changes: it upgrades to a websocket, reads
// the topic as the first frame, and streams matching change events until
// either side closes. One connection serves one topic.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.verifier != nil {
		if _, err := s.verifier.Verify(bearerToken(r)); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var topic gateway.Topic
	conn.SetReadDeadline(time.Now().Add(writeWait))
	if err := conn.ReadJSON(&topic); err != nil || topic.Table == "" {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected topic frame"),
			time.Now().Add(writeWait))
		return
	}

	sub, err := s.feed.Subscribe(r.Context(), topic)
	if err != nil {
		s.log.Error("changefeed subscribe failed", "topic", topic.Key(), "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	s.log.Debug("changefeed client connected", "topic", topic.Key(), "remote", r.RemoteAddr)

	// Reader goroutine: we expect no further frames, but reading is what
	// surfaces client disconnects and pongs.
	gone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				// Backing feed dropped; tell the client to resubscribe.
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// bearerToken extracts the credential from the Authorization header or,
// for browser websocket clients that cannot set headers, the access_token
// query parameter.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}
