// Package realtime provides the pub/sub channel primitive the room
// coordinator rides on: per-topic presence tracking plus fire-and-forget
// broadcast messaging. Implementations include an in-process Broker and a
// websocket client backed by the relay server.
package realtime

import (
	"context"
	"encoding/json"
)

// Status reports the state of a channel subscription.
type Status string

const (
	StatusSubscribed Status = "SUBSCRIBED"
	StatusError      Status = "CHANNEL_ERROR"
	StatusClosed     Status = "CLOSED"
)

// PresenceEntry holds all records currently tracked under a single presence
// key. A key can carry more than one record when the same session tracks
// from multiple connections; consumers decide how to handle the extras.
type PresenceEntry struct {
	Key     string            `json:"key"`
	Records []json.RawMessage `json:"records"`
}

// PresenceState is the full presence table for a topic, ordered by arrival.
// Arrival order is part of the contract: room rosters and ranking tie-breaks
// depend on it.
type PresenceState []PresenceEntry

// Get returns the records tracked under key, if any.
func (s PresenceState) Get(key string) ([]json.RawMessage, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Records, true
		}
	}
	return nil, false
}

// Keys returns the presence keys in arrival order.
func (s PresenceState) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, e := range s {
		keys = append(keys, e.Key)
	}
	return keys
}

// BroadcastHandler receives the payload of a broadcast event.
type BroadcastHandler func(payload json.RawMessage)

// PresenceHandler receives the full presence table after every change.
type PresenceHandler func(state PresenceState)

// StatusHandler receives subscription status transitions.
type StatusHandler func(status Status)

// Channel is a single subscription to a topic. Handlers must be registered
// before Subscribe; delivery happens on the transport's own schedule, never
// on the caller's goroutine.
type Channel interface {
	// OnBroadcast registers a handler for a named broadcast event.
	OnBroadcast(event string, fn BroadcastHandler)
	// OnPresenceSync registers a handler invoked with the full presence
	// table whenever any tracked record changes, including joins and leaves.
	OnPresenceSync(fn PresenceHandler)
	// Subscribe opens the channel. The status handler fires at least once.
	Subscribe(ctx context.Context, onStatus StatusHandler) error
	// Track publishes (or replaces) this client's presence record.
	Track(ctx context.Context, record json.RawMessage) error
	// Broadcast sends a fire-and-forget event to all other subscribers.
	// The sender does not receive its own broadcasts back.
	Broadcast(ctx context.Context, event string, payload json.RawMessage) error
	// PresenceState returns the last observed presence table.
	PresenceState() PresenceState
	// Close unsubscribes. Peers notice on their next presence sync.
	Close() error
}

// Client hands out channels. Each channel is owned by exactly one consumer;
// there is no shared connection singleton.
type Client interface {
	// Channel creates an unsubscribed channel for topic, tracking presence
	// under the given key.
	Channel(topic, key string) Channel
}
