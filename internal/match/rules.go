// internal/match/rules.go
package match

// Rules holds the scoring conventions for a match. The standard indoor game
// is five sets to 25 (15 in the decider), win by two, with two timeouts per
// side per set; beach or youth formats override these.
type Rules struct {
	PointCap       int
	DecidingSetCap int
	WinBy          int
	SetsToWin      int
	TimeoutsPerSet int
}

// DefaultRules returns the standard indoor convention.
func DefaultRules() Rules {
	return Rules{
		PointCap:       25,
		DecidingSetCap: 15,
		WinBy:          2,
		SetsToWin:      3,
		TimeoutsPerSet: 2,
	}
}

// DecidingSet returns the number of the final possible set.
func (r Rules) DecidingSet() int {
	return 2*r.SetsToWin - 1
}

// CapForSet returns the point cap in effect for the given set.
func (r Rules) CapForSet(setNumber int) int {
	if setNumber >= r.DecidingSet() {
		return r.DecidingSetCap
	}
	return r.PointCap
}

// SetWinner reports whether a set at the given score is over and, if so,
// who won it. A set ends when one side reaches the cap with the required
// margin; play continues past the cap until the margin is met.
func (r Rules) SetWinner(setNumber, us, opponent int) (Side, bool) {
	cap := r.CapForSet(setNumber)
	if us >= cap && us-opponent >= r.WinBy {
		return SideUs, true
	}
	if opponent >= cap && opponent-us >= r.WinBy {
		return SideOpponent, true
	}
	return "", false
}
