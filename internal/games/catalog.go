// Package games is the catalog of cognitive mini-games the rooms play.
// Game logic itself runs entirely on the clients and is merely reported
// back; the server and coordinator only care about the game type identifier
// and its default settings.
package games

import "time"

// Info describes one mini-game type.
type Info struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	ScoreMode     string        `json:"score_mode"`
	MatchDuration time.Duration `json:"match_duration"`
}

// Score modes: how a game's reported score should be compared.
const (
	// ScoreModePoints ranks higher scores first.
	ScoreModePoints = "points"
	// ScoreModeTime ranks by completion time; games report an inverted
	// score so that the shared descending ranking still applies.
	ScoreModeTime = "time"
)

// DefaultGameType is used when a client creates or joins a room without
// naming a game.
const DefaultGameType = "memory"

var catalog = []Info{
	{ID: "memory", Title: "Memory Match", ScoreMode: ScoreModePoints, MatchDuration: 3 * time.Minute},
	{ID: "attention", Title: "Attention Grid", ScoreMode: ScoreModePoints, MatchDuration: 2 * time.Minute},
	{ID: "sequence", Title: "Sequence Recall", ScoreMode: ScoreModePoints, MatchDuration: 3 * time.Minute},
	{ID: "organization", Title: "Organization", ScoreMode: ScoreModePoints, MatchDuration: 4 * time.Minute},
	{ID: "focus", Title: "Focus Training", ScoreMode: ScoreModePoints, MatchDuration: 2 * time.Minute},
	{ID: "spot_difference", Title: "Spot the Difference", ScoreMode: ScoreModePoints, MatchDuration: 3 * time.Minute},
	{ID: "sustained_attention", Title: "Sustained Attention", ScoreMode: ScoreModePoints, MatchDuration: 5 * time.Minute},
	{ID: "reaction_time", Title: "Reaction Time", ScoreMode: ScoreModeTime, MatchDuration: 1 * time.Minute},
	{ID: "continuous_performance", Title: "Continuous Performance", ScoreMode: ScoreModePoints, MatchDuration: 5 * time.Minute},
	{ID: "iq_test", Title: "IQ Challenge", ScoreMode: ScoreModePoints, MatchDuration: 10 * time.Minute},
}

// All returns the full catalog in display order.
func All() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Get looks up a game by ID.
func Get(id string) (Info, bool) {
	for _, g := range catalog {
		if g.ID == id {
			return g, true
		}
	}
	return Info{}, false
}

// IsValid reports whether id names a known game.
func IsValid(id string) bool {
	_, ok := Get(id)
	return ok
}

// Default returns the fallback game used when none is specified.
func Default() Info {
	g, _ := Get(DefaultGameType)
	return g
}
