package realtime

import "encoding/json"

// FrameType discriminates websocket frames between relay and client.
type FrameType string

const (
	// FrameTrack publishes the sender's presence record (client -> relay).
	FrameTrack FrameType = "track"
	// FrameBroadcast carries a named event payload (both directions).
	FrameBroadcast FrameType = "broadcast"
	// FramePresence carries the full presence table (relay -> client).
	FramePresence FrameType = "presence"
)

// Frame is the wire envelope exchanged with the relay. Exactly one of
// Payload or State is populated depending on Type.
type Frame struct {
	Type    FrameType       `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	State   PresenceState   `json:"state,omitempty"`
}
