package room

import "sort"

// Rankings orders players by descending score. The sort is stable, so equal
// scores keep their arrival order. The winner is Rankings(...)[0].
func Rankings(players []Player) []Player {
	ranked := clonePlayers(players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func allCompleted(players []Player) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.Completed {
			return false
		}
	}
	return true
}
