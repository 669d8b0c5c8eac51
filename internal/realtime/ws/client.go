// Package ws implements the realtime channel interface over a websocket
// connection to the relay server. Each channel owns one connection; there
// is no shared socket singleton.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"mindmatch/internal/realtime"
)

// Client dials channels against one relay base URL.
type Client struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewClient creates a client for a relay at baseURL, e.g. "ws://host:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dialer:  websocket.DefaultDialer,
	}
}

// Channel returns an unsubscribed channel for topic, keyed by key.
func (c *Client) Channel(topic, key string) realtime.Channel {
	return &channel{
		dialer: c.dialer,
		url: fmt.Sprintf("%s/realtime/%s?key=%s",
			c.baseURL, url.PathEscape(topic), url.QueryEscape(key)),
		onBroadcast: make(map[string][]realtime.BroadcastHandler),
	}
}

type channel struct {
	dialer *websocket.Dialer
	url    string

	mu          sync.Mutex
	conn        *websocket.Conn
	onBroadcast map[string][]realtime.BroadcastHandler
	onPresence  []realtime.PresenceHandler
	onStatus    realtime.StatusHandler
	state       realtime.PresenceState
	subscribed  bool
	closed      bool

	// writeMu serializes frame writes; gorilla allows only one writer.
	writeMu sync.Mutex
}

func (ch *channel) OnBroadcast(event string, fn realtime.BroadcastHandler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onBroadcast[event] = append(ch.onBroadcast[event], fn)
}

func (ch *channel) OnPresenceSync(fn realtime.PresenceHandler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onPresence = append(ch.onPresence, fn)
}

func (ch *channel) Subscribe(ctx context.Context, onStatus realtime.StatusHandler) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return realtime.ErrChannelClosed
	}
	if ch.subscribed {
		ch.mu.Unlock()
		return realtime.ErrAlreadyJoined
	}
	ch.mu.Unlock()

	conn, _, err := ch.dialer.DialContext(ctx, ch.url, nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		conn.Close()
		return realtime.ErrChannelClosed
	}
	ch.conn = conn
	ch.subscribed = true
	ch.onStatus = onStatus
	ch.mu.Unlock()

	go ch.readPump(conn)

	if onStatus != nil {
		onStatus(realtime.StatusSubscribed)
	}
	return nil
}

func (ch *channel) Track(ctx context.Context, record json.RawMessage) error {
	return ch.write(realtime.Frame{Type: realtime.FrameTrack, Payload: record})
}

func (ch *channel) Broadcast(ctx context.Context, event string, payload json.RawMessage) error {
	return ch.write(realtime.Frame{Type: realtime.FrameBroadcast, Event: event, Payload: payload})
}

func (ch *channel) PresenceState() realtime.PresenceState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	state := make(realtime.PresenceState, len(ch.state))
	copy(state, ch.state)
	return state
}

func (ch *channel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	ch.subscribed = false
	conn := ch.conn
	ch.conn = nil
	onStatus := ch.onStatus
	ch.mu.Unlock()

	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	if onStatus != nil {
		onStatus(realtime.StatusClosed)
	}
	return nil
}

func (ch *channel) write(frame realtime.Frame) error {
	ch.mu.Lock()
	conn := ch.conn
	subscribed := ch.subscribed
	closed := ch.closed
	ch.mu.Unlock()

	if closed {
		return realtime.ErrChannelClosed
	}
	if !subscribed || conn == nil {
		return realtime.ErrNotSubscribed
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

// readPump dispatches incoming frames until the connection drops. Handlers
// run on this goroutine, so delivery order matches wire order.
func (ch *channel) readPump(conn *websocket.Conn) {
	for {
		var frame realtime.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			ch.mu.Lock()
			closed := ch.closed
			onStatus := ch.onStatus
			ch.mu.Unlock()

			if !closed && onStatus != nil {
				onStatus(realtime.StatusError)
			}
			return
		}

		switch frame.Type {
		case realtime.FramePresence:
			ch.mu.Lock()
			ch.state = frame.State
			handlers := make([]realtime.PresenceHandler, len(ch.onPresence))
			copy(handlers, ch.onPresence)
			ch.mu.Unlock()

			for _, fn := range handlers {
				fn(frame.State)
			}

		case realtime.FrameBroadcast:
			ch.mu.Lock()
			handlers := make([]realtime.BroadcastHandler, len(ch.onBroadcast[frame.Event]))
			copy(handlers, ch.onBroadcast[frame.Event])
			ch.mu.Unlock()

			for _, fn := range handlers {
				fn(frame.Payload)
			}
		}
	}
}
