package room

// Local event names delivered to coordinator listeners.
const (
	EventRoomCreated        = "room_created"
	EventRoomJoined         = "room_joined"
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventGameStarted        = "game_started"
	EventScoreUpdated       = "score_updated"
	EventGameStateUpdated   = "game_state_updated"
	EventGameActionReceived = "game_action_received"
	EventPlayerCompleted    = "player_completed"
	EventGameFinished       = "game_finished"
	EventGameReset          = "game_reset"
	EventLeftRoom           = "left_room"
	EventError              = "error"
)

// Broadcast event names exchanged between peers over the channel.
const (
	bcastStartGame       = "start_game"
	bcastUpdateScore     = "update_score"
	bcastUpdateGameState = "update_game_state"
	bcastGameAction      = "game_action"
	bcastGameCompleted   = "game_completed"
	bcastResetGame       = "reset_game"
)

// RoomCreatedPayload accompanies room_created and room_joined.
type RoomCreatedPayload struct {
	RoomCode string `json:"room_code"`
	Player   Player `json:"player"`
	RoomData Info   `json:"room_data"`
}

// PlayerJoinedPayload accompanies player_joined; Player is the newly
// arrived record.
type PlayerJoinedPayload struct {
	Players []Player `json:"players"`
	Player  Player   `json:"player"`
}

// PlayerLeftPayload accompanies player_left.
type PlayerLeftPayload struct {
	Players []Player `json:"players"`
}

// StartSettings are optional host-chosen settings passed to StartGame and
// relayed opaquely to all peers.
type StartSettings struct {
	ScoreMode     string `json:"score_mode,omitempty"`
	MatchDuration int    `json:"match_duration,omitempty"` // seconds
}

// GameStartedPayload accompanies game_started and doubles as the start_game
// broadcast body, carrying the initiator's roster so late joiners without a
// synced mirror still see the lineup.
type GameStartedPayload struct {
	RoomCode      string   `json:"room_code"`
	GameType      string   `json:"game_type"`
	Players       []Player `json:"players"`
	ScoreMode     string   `json:"score_mode,omitempty"`
	MatchDuration int      `json:"match_duration,omitempty"`
}

// ScoreUpdatedPayload accompanies score_updated.
type ScoreUpdatedPayload struct {
	Players []Player `json:"players"`
}

// GameStateUpdatedPayload accompanies game_state_updated and is the
// update_game_state broadcast body.
type GameStateUpdatedPayload struct {
	GameState map[string]any `json:"game_state"`
}

// GameActionPayload accompanies game_action_received and is the game_action
// broadcast body.
type GameActionPayload struct {
	PlayerID   string         `json:"player_id"`
	ActionType string         `json:"action_type"`
	ActionData map[string]any `json:"action_data"`
}

// PlayerCompletedPayload accompanies player_completed.
type PlayerCompletedPayload struct {
	PlayerID       string   `json:"player_id"`
	FinalScore     int      `json:"final_score"`
	CompletionTime int64    `json:"completion_time"`
	AllCompleted   bool     `json:"all_completed"`
	Players        []Player `json:"players"`
}

// GameFinishedPayload accompanies game_finished once every known player has
// completed. Each client computes it redundantly from its own mirror.
type GameFinishedPayload struct {
	Winner        Player   `json:"winner"`
	FinalRankings []Player `json:"final_rankings"`
}

// GameResetPayload accompanies game_reset.
type GameResetPayload struct {
	Players []Player `json:"players"`
}

// LeftRoomPayload accompanies left_room.
type LeftRoomPayload struct {
	RoomCode string `json:"room_code"`
}

// ErrorPayload accompanies error events.
type ErrorPayload struct {
	Message string `json:"message"`
}

// scoreBroadcast is the update_score broadcast body.
type scoreBroadcast struct {
	SessionID string `json:"session_id"`
	Score     int    `json:"score"`
}

// completedBroadcast is the game_completed broadcast body.
type completedBroadcast struct {
	PlayerID       string `json:"player_id"`
	FinalScore     int    `json:"final_score"`
	CompletionTime int64  `json:"completion_time"`
}
