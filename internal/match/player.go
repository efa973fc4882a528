// internal/match/player.go
package match

// RoleLibero marks a defensive specialist on the roster.
const RoleLibero = "L"

// Player is a roster participant as the scoring core sees it. The roster is
// owned elsewhere; the core only reads it for display and eligibility.
type Player struct {
	ID        int64  `json:"id"`
	Number    int    `json:"number"`
	Name      string `json:"name"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// FindPlayer returns the roster entry with the given ID.
func FindPlayer(roster []Player, id int64) (Player, bool) {
	for _, p := range roster {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
