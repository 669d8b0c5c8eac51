// Package room implements the client-side room coordinator: presence-backed
// rosters, score synchronization, host hand-off, and completion rankings for
// multiplayer mini-game rooms.
//
// Every client owns an independent mirror of its room, reconciled only
// through presence syncs and broadcasts. There is no authoritative copy:
// rankings and completion are pure functions each replica computes over its
// own eventually-consistent mirror, which converges as long as all replicas
// observe the same presence table. Mirrors are best-effort snapshots, never
// ledgers.
package room

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"mindmatch/internal/games"
	"mindmatch/internal/realtime"
)

// topicPrefix namespaces room channels on the shared transport.
const topicPrefix = "room:"

// Coordinator drives one client's membership in at most one room. It owns
// its channel outright; connections are handed in via the realtime.Client,
// never shared through package state.
type Coordinator struct {
	client    realtime.Client
	sessionID string
	codeLen   int
	emitter   *emitter

	mu       sync.Mutex
	channel  realtime.Channel
	self     Player
	info     Info
	players  []Player        // mirror, ordered by arrival
	prevKeys map[string]bool // presence keys seen on the previous sync
	isHost   bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSessionID overrides the generated session identifier. Session IDs are
// opaque but must be unique per connection; tests use fixed IDs to pin down
// election order.
func WithSessionID(id string) Option {
	return func(c *Coordinator) { c.sessionID = id }
}

// WithCodeLength overrides the generated room code length.
func WithCodeLength(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.codeLen = n
		}
	}
}

// New creates a coordinator bound to the given transport client.
func New(client realtime.Client, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:    client,
		sessionID: uuid.NewString(),
		codeLen:   DefaultCodeLength,
		emitter:   newEmitter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns this client's opaque session identifier, which doubles
// as its presence key.
func (c *Coordinator) SessionID() string { return c.sessionID }

// On registers a listener for a named local event and returns its
// unsubscribe func.
func (c *Coordinator) On(event string, fn Listener) func() {
	return c.emitter.on(event, fn)
}

// Players returns the current roster mirror, ordered by arrival.
func (c *Coordinator) Players() []Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clonePlayers(c.players)
}

// Room returns this client's local view of the room.
func (c *Coordinator) Room() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := c.info
	info.Players = clonePlayers(c.players)
	return info
}

// IsHost reports whether this client currently holds the host flag.
func (c *Coordinator) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// InRoom reports whether a channel subscription is active.
func (c *Coordinator) InRoom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel != nil
}

// CreateRoom generates a room code, opens its channel, and tracks this
// client as host. The code is returned immediately; room_created fires once
// the subscription lands. Codes are not checked for collisions.
func (c *Coordinator) CreateRoom(ctx context.Context, playerName, gameType string) (string, error) {
	if gameType == "" {
		gameType = games.DefaultGameType
	}
	code := NewRoomCode(c.codeLen)
	if err := c.setupChannel(ctx, code, playerName, gameType, true); err != nil {
		return "", err
	}
	return code, nil
}

// JoinRoom attaches to an existing room's channel as a non-host. The code
// is normalized to uppercase, so joiners may type it in any case. Joiners
// do not know the room's game type up front; it is recovered from the
// host's presence record on the first sync.
func (c *Coordinator) JoinRoom(ctx context.Context, code, playerName string) error {
	code = NormalizeRoomCode(code)
	if code == "" {
		return ErrEmptyRoomCode
	}
	return c.setupChannel(ctx, code, playerName, games.DefaultGameType, false)
}

// LeaveRoom closes the channel and emits left_room. No explicit departure
// message is sent; peers notice on their next presence sync.
func (c *Coordinator) LeaveRoom(ctx context.Context, code string) error {
	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	c.players = nil
	c.prevKeys = nil
	c.info = Info{}
	c.isHost = false
	c.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	c.emitter.emit(EventLeftRoom, LeftRoomPayload{RoomCode: NormalizeRoomCode(code)})
	return nil
}

// StartGame broadcasts start_game with the current roster and also emits
// game_started locally, since the transport does not echo broadcasts back
// to the sender.
func (c *Coordinator) StartGame(ctx context.Context, code string, settings *StartSettings) error {
	c.mu.Lock()
	ch := c.channel
	if ch == nil {
		c.mu.Unlock()
		return ErrNotInRoom
	}
	gameType := c.info.GameType
	if gameType == "" {
		gameType = c.self.GameType
	}
	c.info.Started = true
	payload := GameStartedPayload{
		RoomCode: NormalizeRoomCode(code),
		GameType: gameType,
		Players:  clonePlayers(c.players),
	}
	if settings != nil {
		payload.ScoreMode = settings.ScoreMode
		payload.MatchDuration = settings.MatchDuration
	}
	c.mu.Unlock()

	c.emitter.emit(EventGameStarted, payload)
	return c.broadcast(ctx, ch, bcastStartGame, payload)
}

// UpdateScore applies the caller's score to the local mirror first, emits
// score_updated, then broadcasts so peers converge. The local write always
// wins immediately; cross-client ordering is whatever the transport
// delivers, which is acceptable because scores are informative only.
func (c *Coordinator) UpdateScore(ctx context.Context, code string, score int) error {
	c.mu.Lock()
	ch := c.channel
	if ch == nil {
		c.mu.Unlock()
		return ErrNotInRoom
	}
	c.self.Score = score
	for i := range c.players {
		if c.players[i].SessionID == c.sessionID {
			c.players[i].Score = score
		}
	}
	players := clonePlayers(c.players)
	c.mu.Unlock()

	c.emitter.emit(EventScoreUpdated, ScoreUpdatedPayload{Players: players})
	return c.broadcast(ctx, ch, bcastUpdateScore, scoreBroadcast{SessionID: c.sessionID, Score: score})
}

// UpdateGameState relays an opaque game state blob to peers. Nothing is
// stored locally; the mini-games own whatever shape this carries.
func (c *Coordinator) UpdateGameState(ctx context.Context, code string, gameState map[string]any) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return ErrNotInRoom
	}
	return c.broadcast(ctx, ch, bcastUpdateGameState, GameStateUpdatedPayload{GameState: gameState})
}

// SendGameAction relays an in-game action to peers, who receive it as
// game_action_received. Pure relay, no local state effect.
func (c *Coordinator) SendGameAction(ctx context.Context, code, actionType string, actionData map[string]any) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return ErrNotInRoom
	}
	return c.broadcast(ctx, ch, bcastGameAction, GameActionPayload{
		PlayerID:   c.sessionID,
		ActionType: actionType,
		ActionData: actionData,
	})
}

// CompleteGame marks this client finished with its final score, recomputes
// completion locally, and broadcasts game_completed so every peer runs the
// same completion and ranking logic over its own mirror.
func (c *Coordinator) CompleteGame(ctx context.Context, code string, finalScore int, completionTime int64) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return ErrNotInRoom
	}

	c.applyCompletion(c.sessionID, finalScore, completionTime)
	return c.broadcast(ctx, ch, bcastGameCompleted, completedBroadcast{
		PlayerID:       c.sessionID,
		FinalScore:     finalScore,
		CompletionTime: completionTime,
	})
}

// ResetGame clears score, completion flag, and completion time on every
// locally known player, emits game_reset, and broadcasts so peers reset
// their own mirrors the same way.
func (c *Coordinator) ResetGame(ctx context.Context, code string) error {
	c.mu.Lock()
	ch := c.channel
	if ch == nil {
		c.mu.Unlock()
		return ErrNotInRoom
	}
	players := c.resetLocked()
	c.mu.Unlock()

	c.emitter.emit(EventGameReset, GameResetPayload{Players: players})
	return c.broadcast(ctx, ch, bcastResetGame, struct{}{})
}

// setupChannel opens (or replaces) the channel for a room and wires all
// broadcast and presence handlers before subscribing.
func (c *Coordinator) setupChannel(ctx context.Context, code, playerName, gameType string, isHost bool) error {
	if playerName == "" {
		return ErrEmptyPlayerName
	}

	c.mu.Lock()
	old := c.channel
	me := Player{
		SessionID: c.sessionID,
		Name:      playerName,
		IsHost:    isHost,
		GameType:  gameType,
	}
	c.self = me
	c.isHost = isHost
	c.players = nil
	c.prevKeys = nil
	c.info = Info{}
	ch := c.client.Channel(topicPrefix+code, c.sessionID)
	c.channel = ch
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	ch.OnBroadcast(bcastStartGame, c.handleStartGame)
	ch.OnBroadcast(bcastUpdateScore, c.handleScoreBroadcast)
	ch.OnBroadcast(bcastUpdateGameState, c.handleGameStateBroadcast)
	ch.OnBroadcast(bcastGameAction, c.handleGameActionBroadcast)
	ch.OnBroadcast(bcastGameCompleted, c.handleCompletedBroadcast)
	ch.OnBroadcast(bcastResetGame, c.handleResetBroadcast)
	ch.OnPresenceSync(c.handlePresenceSync)

	err := ch.Subscribe(ctx, func(status realtime.Status) {
		switch status {
		case realtime.StatusSubscribed:
			c.onSubscribed(ch, code, me, isHost, gameType)
		case realtime.StatusError:
			c.emitError("channel subscription failed")
		}
	})
	if err != nil {
		c.mu.Lock()
		if c.channel == ch {
			c.channel = nil
		}
		c.mu.Unlock()
		c.emitError("could not subscribe to room " + code)
		return err
	}
	return nil
}

// onSubscribed tracks this client's presence record and announces the room
// to local listeners.
func (c *Coordinator) onSubscribed(ch realtime.Channel, code string, me Player, isHost bool, gameType string) {
	record, err := json.Marshal(me)
	if err == nil {
		err = ch.Track(context.Background(), record)
	}
	if err != nil {
		c.emitError("could not publish presence for room " + code)
		return
	}

	info := Info{
		Code:      code,
		GameType:  gameType,
		Players:   []Player{me},
		GameState: map[string]any{},
	}
	if isHost {
		info.Host = me.SessionID
	}

	c.mu.Lock()
	if c.info.GameType != "" {
		// A presence sync beat us here; keep the recovered game type.
		info.GameType = c.info.GameType
	}
	c.info = info
	c.mu.Unlock()

	payload := RoomCreatedPayload{RoomCode: code, Player: me, RoomData: info}
	if isHost {
		c.emitter.emit(EventRoomCreated, payload)
	} else {
		c.emitter.emit(EventRoomJoined, payload)
	}
}

// handlePresenceSync reconciles the mirror against the full presence table:
// flattens first-record-per-key, recovers the room's game type from the
// host record, runs host election if the host vanished, and emits diffed
// player_joined/player_left events.
func (c *Coordinator) handlePresenceSync(state realtime.PresenceState) {
	var (
		joins     []Player
		left      bool
		retrack   realtime.Channel
		retrackMe Player
	)

	c.mu.Lock()
	current := make([]Player, 0, len(state))
	keys := make([]string, 0, len(state))
	byKey := make(map[string]Player, len(state))
	for _, entry := range state {
		if len(entry.Records) == 0 {
			continue
		}
		// Only the first record per key is used; extra records from
		// duplicate tabs or reconnects are ignored, not merged.
		var p Player
		if err := json.Unmarshal(entry.Records[0], &p); err != nil {
			continue
		}
		current = append(current, p)
		keys = append(keys, entry.Key)
		byKey[entry.Key] = p
	}

	// Joiners do not know the original game type; recover it from the
	// host's record whenever the host is visible.
	for _, p := range current {
		if p.IsHost && p.GameType != "" {
			c.info.GameType = p.GameType
			break
		}
	}

	c.players = current

	// Leaderless host hand-off: if no surviving record carries the host
	// flag, the lowest presence key self-promotes and re-publishes its
	// record. Every replica computes the same winner from the same table.
	if len(current) > 0 && !anyHost(current) {
		if winner, ok := ElectHost(keys); ok && winner == c.sessionID {
			c.isHost = true
			c.self.IsHost = true
			retrack = c.channel
			retrackMe = c.self
		}
	}

	prev := c.prevKeys
	nextKeys := make(map[string]bool, len(keys))
	for _, k := range keys {
		nextKeys[k] = true
		if !prev[k] {
			joins = append(joins, byKey[k])
		}
	}
	for k := range prev {
		if !nextKeys[k] {
			left = true
		}
	}
	c.prevKeys = nextKeys
	players := clonePlayers(current)
	c.mu.Unlock()

	if retrack != nil {
		if record, err := json.Marshal(retrackMe); err == nil {
			retrack.Track(context.Background(), record)
		}
	}

	for _, j := range joins {
		c.emitter.emit(EventPlayerJoined, PlayerJoinedPayload{Players: players, Player: j})
	}
	if left {
		c.emitter.emit(EventPlayerLeft, PlayerLeftPayload{Players: players})
	}
}

func (c *Coordinator) handleStartGame(payload json.RawMessage) {
	var p GameStartedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	c.mu.Lock()
	c.info.Started = true
	if p.GameType != "" {
		c.info.GameType = p.GameType
	}
	c.mu.Unlock()

	c.emitter.emit(EventGameStarted, p)
}

func (c *Coordinator) handleScoreBroadcast(payload json.RawMessage) {
	var p scoreBroadcast
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	c.mu.Lock()
	for i := range c.players {
		if c.players[i].SessionID == p.SessionID {
			c.players[i].Score = p.Score
		}
	}
	players := clonePlayers(c.players)
	c.mu.Unlock()

	c.emitter.emit(EventScoreUpdated, ScoreUpdatedPayload{Players: players})
}

func (c *Coordinator) handleGameStateBroadcast(payload json.RawMessage) {
	var p GameStateUpdatedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.emitter.emit(EventGameStateUpdated, p)
}

func (c *Coordinator) handleGameActionBroadcast(payload json.RawMessage) {
	var p GameActionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.emitter.emit(EventGameActionReceived, p)
}

func (c *Coordinator) handleCompletedBroadcast(payload json.RawMessage) {
	var p completedBroadcast
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.applyCompletion(p.PlayerID, p.FinalScore, p.CompletionTime)
}

func (c *Coordinator) handleResetBroadcast(json.RawMessage) {
	c.mu.Lock()
	players := c.resetLocked()
	c.mu.Unlock()

	c.emitter.emit(EventGameReset, GameResetPayload{Players: players})
}

// applyCompletion marks one player finished in the mirror, then emits
// player_completed and, when the whole roster is done, game_finished with
// the ranking. Both the local CompleteGame path and the game_completed
// broadcast path funnel through here so every replica runs identical logic.
func (c *Coordinator) applyCompletion(playerID string, finalScore int, completionTime int64) {
	t := completionTime

	c.mu.Lock()
	for i := range c.players {
		if c.players[i].SessionID == playerID {
			c.players[i].Score = finalScore
			c.players[i].Completed = true
			c.players[i].CompletionTime = &t
		}
	}
	if playerID == c.sessionID {
		c.self.Score = finalScore
		c.self.Completed = true
		c.self.CompletionTime = &t
	}
	done := allCompleted(c.players)
	players := clonePlayers(c.players)
	c.mu.Unlock()

	c.emitter.emit(EventPlayerCompleted, PlayerCompletedPayload{
		PlayerID:       playerID,
		FinalScore:     finalScore,
		CompletionTime: completionTime,
		AllCompleted:   done,
		Players:        players,
	})

	if done {
		ranked := Rankings(players)
		c.emitter.emit(EventGameFinished, GameFinishedPayload{
			Winner:        ranked[0],
			FinalRankings: ranked,
		})
	}
}

// resetLocked zeroes score and completion state on the mirror. Callers hold
// c.mu and emit game_reset with the returned snapshot after unlocking.
func (c *Coordinator) resetLocked() []Player {
	for i := range c.players {
		c.players[i].Score = 0
		c.players[i].Completed = false
		c.players[i].CompletionTime = nil
	}
	c.self.Score = 0
	c.self.Completed = false
	c.self.CompletionTime = nil
	c.info.Started = false
	c.info.GameState = map[string]any{}
	return clonePlayers(c.players)
}

func (c *Coordinator) broadcast(ctx context.Context, ch realtime.Channel, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return ch.Broadcast(ctx, event, body)
}

func (c *Coordinator) emitError(message string) {
	c.emitter.emit(EventError, ErrorPayload{Message: message})
}
