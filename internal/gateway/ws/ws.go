// Package ws implements the changefeed contract over a websocket to
// gatewayd. Each subscription is one connection: the client dials, sends the
// topic as the first frame, then reads change events until the peer or the
// caller closes the stream. Reconnection policy belongs to the consumer,
// which already resubscribes with backoff when a channel closes.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pmallory/tripsync/internal/gateway"
)

// TokenSource supplies the bearer token sent on each dial. A nil source
// dials unauthenticated (dev mode).
type TokenSource func(ctx context.Context) (string, error)

// Client dials gatewayd's /v1/changes endpoint.
type Client struct {
	url    string
	token  TokenSource
	dialer *websocket.Dialer
	log    *slog.Logger
}

var _ gateway.Changefeed = (*Client)(nil)

// NewClient constructs a Client for the given websocket URL
// (ws://host/v1/changes).
func NewClient(url string, token TokenSource, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:    url,
		token:  token,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log,
	}
}

// Subscribe dials, announces the topic, and starts the read pump. The
// returned subscription's channel closes when the connection drops.
func (c *Client) Subscribe(ctx context.Context, topic gateway.Topic) (gateway.Subscription, error) {
	header := http.Header{}
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("ws.Client.Subscribe: token: %w", err)
		}
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws.Client.Subscribe: dial %s: status %d: %w", c.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("ws.Client.Subscribe: dial %s: %w", c.url, err)
	}

	if err := conn.WriteJSON(topic); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ws.Client.Subscribe: send topic: %w", err)
	}

	sub := &subscription{
		conn:   conn,
		events: make(chan gateway.ChangeEvent, 64),
		log:    c.log,
	}
	go sub.readLoop()
	return sub, nil
}

// subscription owns one websocket connection.
type subscription struct {
	conn   *websocket.Conn
	events chan gateway.ChangeEvent
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.events }

// Close shuts the connection down; the read pump then closes the events
// channel.
func (s *subscription) Close() error {
	s.mu.Lock()
	wasClosed := s.closed
	s.closed = true
	s.mu.Unlock()

	if wasClosed {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

// readLoop decodes event frames until the connection ends.
func (s *subscription) readLoop() {
	defer close(s.events)
	defer s.conn.Close()

	for {
		var ev gateway.ChangeEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("changefeed stream ended", "error", err)
			}
			return
		}
		if ev.Table == "" {
			s.log.Warn("changefeed dropping frame without table")
			continue
		}
		s.events <- ev
	}
}
