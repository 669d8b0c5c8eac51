package room

// Player is the presence record a client publishes for itself, and the unit
// of the locally mirrored roster. Each client owns only its own record; all
// other entries are a read-only mirror reconciled from presence syncs and
// broadcasts.
type Player struct {
	SessionID      string `json:"session_id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	IsHost         bool   `json:"is_host"`
	GameType       string `json:"game_type"`
	Completed      bool   `json:"completed"`
	CompletionTime *int64 `json:"completion_time"` // milliseconds, nil until completed
}

// Info is this client's local view of the room. It lives only in local
// memory; every client reconstructs its own copy from presence and
// broadcasts, and it is discarded on leave.
type Info struct {
	Code      string         `json:"code"`
	Host      string         `json:"host,omitempty"` // session id of the creator, empty for joiners
	GameType  string         `json:"game_type"`
	Players   []Player       `json:"players"` // ordered by arrival
	GameState map[string]any `json:"game_state"`
	Started   bool           `json:"started"`
}

func clonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	return out
}
