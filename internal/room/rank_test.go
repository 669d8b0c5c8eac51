package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankings(t *testing.T) {
	t.Run("sorts descending by score", func(t *testing.T) {
		players := []Player{
			{SessionID: "a", Score: 100},
			{SessionID: "b", Score: 250},
			{SessionID: "c", Score: 50},
		}

		ranked := Rankings(players)

		assert.Equal(t, "b", ranked[0].SessionID)
		assert.Equal(t, "a", ranked[1].SessionID)
		assert.Equal(t, "c", ranked[2].SessionID)
	})

	t.Run("equal scores keep arrival order", func(t *testing.T) {
		players := []Player{
			{SessionID: "first", Score: 100},
			{SessionID: "second", Score: 100},
			{SessionID: "third", Score: 100},
		}

		ranked := Rankings(players)

		assert.Equal(t, "first", ranked[0].SessionID)
		assert.Equal(t, "second", ranked[1].SessionID)
		assert.Equal(t, "third", ranked[2].SessionID)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		players := []Player{
			{SessionID: "a", Score: 1},
			{SessionID: "b", Score: 2},
		}

		Rankings(players)

		assert.Equal(t, "a", players[0].SessionID)
		assert.Equal(t, "b", players[1].SessionID)
	})
}

func TestAllCompleted(t *testing.T) {
	assert.False(t, allCompleted(nil), "empty roster is never complete")
	assert.False(t, allCompleted([]Player{{Completed: true}, {Completed: false}}))
	assert.True(t, allCompleted([]Player{{Completed: true}, {Completed: true}}))
}
