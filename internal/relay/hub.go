// Package relay implements the realtime backend the coordinators ride on:
// websocket topics with presence tracking and broadcast fan-out, plus a
// small REST surface for room discovery. The relay is deliberately dumb —
// it never interprets game payloads beyond noticing start/reset markers for
// the room directory.
package relay

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"mindmatch/internal/realtime"
)

// sendBuffer bounds each client's outbound queue. Clients that cannot keep
// up are dropped rather than blocking the hub.
const sendBuffer = 16

type client struct {
	conn *websocket.Conn
	send chan realtime.Frame

	key     string
	record  json.RawMessage
	tracked bool
}

type inbound struct {
	c *client
	f realtime.Frame
}

// hub fans presence and broadcast frames between the subscribers of one
// topic. A single run loop owns all membership changes; the mutex only
// guards the read-side snapshot used by the room directory.
type hub struct {
	topic string

	register   chan *client
	unregister chan *client
	frames     chan inbound
	done       chan struct{}
	onEmpty    func()

	mu      sync.RWMutex
	clients []*client // arrival order
	started bool
}

func newHub(topic string, onEmpty func()) *hub {
	return &hub{
		topic:      topic,
		register:   make(chan *client),
		unregister: make(chan *client),
		frames:     make(chan inbound),
		done:       make(chan struct{}),
		onEmpty:    onEmpty,
	}
}

// tryRegister hands a client to the run loop, failing if the hub already
// shut down. Callers retry against a fresh hub from the manager.
func (h *hub) tryRegister(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) run() {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients = append(h.clients, c)
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			removed, wasTracked := h.removeLocked(c)
			empty := len(h.clients) == 0
			h.mu.Unlock()

			if removed && wasTracked {
				h.fanPresence()
			}
			if empty {
				if h.onEmpty != nil {
					h.onEmpty()
				}
				return
			}

		case in := <-h.frames:
			switch in.f.Type {
			case realtime.FrameTrack:
				h.mu.Lock()
				in.c.record = in.f.Payload
				in.c.tracked = true
				h.mu.Unlock()

				h.fanPresence()

			case realtime.FrameBroadcast:
				// The directory needs to know whether a room's match is
				// underway; the start/reset markers pass through here
				// anyway, so note them without touching the payload.
				switch in.f.Event {
				case "start_game":
					h.mu.Lock()
					h.started = true
					h.mu.Unlock()
				case "reset_game":
					h.mu.Lock()
					h.started = false
					h.mu.Unlock()
				}

				h.fanBroadcast(in.c, in.f)
			}
		}
	}
}

// removeLocked drops a client from the roster. Callers hold h.mu.
func (h *hub) removeLocked(c *client) (removed, wasTracked bool) {
	for i, existing := range h.clients {
		if existing == c {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			close(c.send)
			return true, c.tracked
		}
	}
	return false, false
}

// presenceState builds the topic's presence table: tracked records grouped
// by key, ordered by client arrival.
func (h *hub) presenceState() realtime.PresenceState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	state := make(realtime.PresenceState, 0, len(h.clients))
	for _, c := range h.clients {
		if !c.tracked {
			continue
		}
		appended := false
		for i := range state {
			if state[i].Key == c.key {
				state[i].Records = append(state[i].Records, c.record)
				appended = true
				break
			}
		}
		if !appended {
			state = append(state, realtime.PresenceEntry{Key: c.key, Records: []json.RawMessage{c.record}})
		}
	}
	return state
}

// fanPresence delivers the current presence table to every subscriber,
// the tracking client included.
func (h *hub) fanPresence() {
	frame := realtime.Frame{Type: realtime.FramePresence, State: h.presenceState()}

	h.mu.Lock()
	defer h.mu.Unlock()
	dst := h.clients[:0]
	for _, c := range h.clients {
		select {
		case c.send <- frame:
			dst = append(dst, c)
		default:
			close(c.send)
			log.Printf("relay: dropped slow client %s on %s", c.key, h.topic)
		}
	}
	h.clients = dst
}

// fanBroadcast delivers a broadcast frame to every subscriber except the
// sender; the transport never echoes broadcasts back.
func (h *hub) fanBroadcast(sender *client, frame realtime.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dst := h.clients[:0]
	for _, c := range h.clients {
		if c == sender {
			dst = append(dst, c)
			continue
		}
		select {
		case c.send <- frame:
			dst = append(dst, c)
		default:
			close(c.send)
			log.Printf("relay: dropped slow client %s on %s", c.key, h.topic)
		}
	}
	h.clients = dst
}

// snapshot returns the directory view of the topic.
func (h *hub) snapshot() (state realtime.PresenceState, started bool) {
	state = h.presenceState()
	h.mu.RLock()
	started = h.started
	h.mu.RUnlock()
	return state, started
}

func (c *client) readPump(h *hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		var frame realtime.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case realtime.FrameTrack, realtime.FrameBroadcast:
			select {
			case h.frames <- inbound{c: c, f: frame}:
			case <-h.done:
				return
			}
		}
	}
}

func (c *client) writePump() {
	for frame := range c.send {
		if err := c.conn.WriteJSON(frame); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
