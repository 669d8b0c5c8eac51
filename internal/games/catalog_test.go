package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsWellFormed(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	seen := make(map[string]bool, len(all))
	for _, g := range all {
		assert.NotEmpty(t, g.ID)
		assert.NotEmpty(t, g.Title, g.ID)
		assert.Contains(t, []string{ScoreModePoints, ScoreModeTime}, g.ScoreMode, g.ID)
		assert.Positive(t, g.MatchDuration, g.ID)
		assert.False(t, seen[g.ID], "duplicate game id %q", g.ID)
		seen[g.ID] = true
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0].Title = "mutated"

	assert.NotEqual(t, "mutated", All()[0].Title)
}

func TestGet(t *testing.T) {
	g, ok := Get("reaction_time")
	require.True(t, ok)
	assert.Equal(t, "Reaction Time", g.Title)
	assert.Equal(t, ScoreModeTime, g.ScoreMode)

	_, ok = Get("chess")
	assert.False(t, ok)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("memory"))
	assert.True(t, IsValid("iq_test"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("MEMORY"))
}

func TestDefault(t *testing.T) {
	g := Default()
	assert.Equal(t, DefaultGameType, g.ID)
	assert.True(t, IsValid(DefaultGameType))
}
