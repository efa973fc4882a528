// internal/match/lineup.go
package match

// EffectiveLineup resolves who is actually on court right now. The base
// rotation stays authoritative; the libero covers the position they most
// recently entered only while the team is receiving, and the rotation
// player reverts the moment the team serves. The swap is computed on every
// query and is never stored as a rotation of its own.
func EffectiveLineup(state State, roster []Player) map[int]int64 {
	effective := make(map[int]int64, len(state.Lineup))
	for pos, id := range state.Lineup {
		effective[pos] = id
	}

	if state.ServingSide == SideUs {
		return effective
	}
	if state.LiberoPosition == 0 {
		return effective
	}
	if state.LiberoID == 0 {
		return effective
	}
	// Never put a player we cannot resolve onto the court.
	if _, ok := FindPlayer(roster, state.LiberoID); !ok {
		return effective
	}
	if _, ok := effective[state.LiberoPosition]; !ok {
		return effective
	}

	effective[state.LiberoPosition] = state.LiberoID
	return effective
}

// OnCourt reports whether a player occupies any position in the lineup.
func OnCourt(lineup map[int]int64, playerID int64) bool {
	for _, id := range lineup {
		if id == playerID {
			return true
		}
	}
	return false
}

// Bench returns the roster players not currently in the base rotation. The
// libero is benched by definition: their court time is an overlay on the
// rotation, not a slot in it.
func Bench(state State, roster []Player) []Player {
	bench := make([]Player, 0, len(roster))
	for _, p := range roster {
		if OnCourt(state.Lineup, p.ID) {
			continue
		}
		bench = append(bench, p)
	}
	return bench
}
