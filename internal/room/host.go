package room

// HostStrategyLowestKey names the leaderless host election rule: when the
// host disappears from the presence table, the surviving client with the
// lexicographically smallest presence key promotes itself. Every replica
// evaluates the same pure function over the same snapshot, so no
// coordination round is needed and at most one client wins per sync.
const HostStrategyLowestKey = "lowest-key-wins"

// ElectHost returns the winner of the lowest-key-wins election over the
// given presence keys. ok is false when there are no candidates.
func ElectHost(keys []string) (winner string, ok bool) {
	for _, k := range keys {
		if !ok || k < winner {
			winner = k
			ok = true
		}
	}
	return winner, ok
}

func anyHost(players []Player) bool {
	for _, p := range players {
		if p.IsHost {
			return true
		}
	}
	return false
}
