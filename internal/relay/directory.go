package relay

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrRoomNotFound = errors.New("room not found")

// roomTopicPrefix matches the topic namespace the coordinators use.
const roomTopicPrefix = "room:"

// Manager owns all live hubs, keyed by topic. Hubs are created on first
// subscribe and torn down when their last client leaves; the room directory
// is derived from whatever hubs are alive, there is no separate store.
type Manager struct {
	mu   sync.Mutex
	hubs map[string]*hub
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{hubs: make(map[string]*hub)}
}

// get returns the live hub for a topic, starting one if needed.
func (m *Manager) get(topic string) *hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.hubs[topic]; ok {
		return h
	}

	var h *hub
	h = newHub(topic, func() {
		m.mu.Lock()
		if m.hubs[topic] == h {
			delete(m.hubs, topic)
		}
		m.mu.Unlock()
	})
	m.hubs[topic] = h
	go h.run()
	return h
}

// RoomInfo is the directory's public view of one live room.
type RoomInfo struct {
	Code         string `json:"code"`
	GameType     string `json:"game_type"`
	PlayersCount int    `json:"players_count"`
	Started      bool   `json:"started"`
}

// presenceMeta is the slice of a player record the directory cares about.
type presenceMeta struct {
	IsHost   bool   `json:"is_host"`
	GameType string `json:"game_type"`
}

// Rooms lists joinable rooms: live room topics whose match has not started
// yet, ordered by code.
func (m *Manager) Rooms() []RoomInfo {
	m.mu.Lock()
	hubs := make([]*hub, 0, len(m.hubs))
	for topic, h := range m.hubs {
		if strings.HasPrefix(topic, roomTopicPrefix) {
			hubs = append(hubs, h)
		}
	}
	m.mu.Unlock()

	rooms := make([]RoomInfo, 0, len(hubs))
	for _, h := range hubs {
		info := roomInfo(h)
		if info.Started || info.PlayersCount == 0 {
			continue
		}
		rooms = append(rooms, info)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Code < rooms[j].Code })
	return rooms
}

// Room returns the directory entry for a single room code.
func (m *Manager) Room(code string) (RoomInfo, error) {
	m.mu.Lock()
	h, ok := m.hubs[roomTopicPrefix+code]
	m.mu.Unlock()
	if !ok {
		return RoomInfo{}, ErrRoomNotFound
	}
	return roomInfo(h), nil
}

// roomInfo derives the directory entry from a hub's presence table. The
// game type comes from the host's record, falling back to the first record
// when the host is mid-handoff.
func roomInfo(h *hub) RoomInfo {
	state, started := h.snapshot()

	info := RoomInfo{
		Code:         strings.TrimPrefix(h.topic, roomTopicPrefix),
		PlayersCount: len(state),
		Started:      started,
	}
	for _, entry := range state {
		if len(entry.Records) == 0 {
			continue
		}
		var meta presenceMeta
		if err := json.Unmarshal(entry.Records[0], &meta); err != nil {
			continue
		}
		if info.GameType == "" {
			info.GameType = meta.GameType
		}
		if meta.IsHost {
			info.GameType = meta.GameType
			break
		}
	}
	return info
}
