// internal/match/derive.go
package match

// SetScore is the running score of one set, from our perspective.
type SetScore struct {
	Us       int `json:"us"`
	Opponent int `json:"opponent"`
}

// State is the full projection of an event log. It is recomputed from
// scratch on every change and never patched in place; the log remains the
// only durable state.
type State struct {
	CurrentSet      int
	Scores          []SetScore // indexed by set number - 1
	SetsWonUs       int
	SetsWonOpponent int

	// ServingSide is empty until a lineup or service choice establishes it.
	ServingSide Side

	// Lineup is the base rotation, position (1-6) to player ID. Libero
	// occupancy is resolved on query, not stored here.
	Lineup         map[int]int64
	LiberoID       int64
	LiberoPosition int // position the libero most recently entered, 0 if off court

	TimeoutsUs       int
	TimeoutsOpponent int

	HasLineup       bool
	IsSetFinished   bool
	IsMatchFinished bool

	// RallyCount is the number of points played in the current set; the
	// flow layer uses it to detect a new rally.
	RallyCount int
	// ReceptionEvaluated is true once this rally's reception has been
	// graded; it resets on every point.
	ReceptionEvaluated bool
}

// Score returns the score of the current set.
func (s State) Score() SetScore {
	if s.CurrentSet < 1 || s.CurrentSet > len(s.Scores) {
		return SetScore{}
	}
	return s.Scores[s.CurrentSet-1]
}

// Timeouts returns the current set's timeout count for a side.
func (s State) Timeouts(side Side) int {
	if side == SideUs {
		return s.TimeoutsUs
	}
	return s.TimeoutsOpponent
}

// Derive folds an event log into the current match state. It is pure and
// total: unknown event types are skipped, an empty log yields the initial
// state, and no well-typed log makes it fail.
func Derive(events []Event, rules Rules) State {
	state := State{
		CurrentSet: 1,
		Scores:     []SetScore{{}},
	}

	for _, evt := range events {
		applyEvent(&state, evt, rules)
	}
	return state
}

func applyEvent(state *State, evt Event, rules Rules) {
	switch evt.Type {
	case EventSetStart:
		setNumber := state.CurrentSet + 1
		if p, ok := evt.Payload.(SetBoundaryPayload); ok && p.SetNumber > 0 {
			setNumber = p.SetNumber
		}
		state.CurrentSet = setNumber
		for len(state.Scores) < setNumber {
			state.Scores = append(state.Scores, SetScore{})
		}
		state.Lineup = nil
		state.LiberoID = 0
		state.LiberoPosition = 0
		state.HasLineup = false
		state.IsSetFinished = false
		state.ServingSide = ""
		state.TimeoutsUs = 0
		state.TimeoutsOpponent = 0
		state.RallyCount = 0
		state.ReceptionEvaluated = false

	case EventSetEnd:
		// Sets won are tallied when the closing point lands; the boundary
		// event only acknowledges the set for replay purposes.

	case EventSetLineup:
		p, ok := evt.Payload.(LineupPayload)
		if !ok {
			return
		}
		lineup := make(map[int]int64, len(p.Positions))
		for pos, id := range p.Positions {
			lineup[pos] = id
		}
		state.Lineup = lineup
		state.LiberoID = p.LiberoID
		state.LiberoPosition = 0
		state.HasLineup = true
		if p.InitialServer != "" {
			state.ServingSide = p.InitialServer
		}

	case EventSetServiceChoice:
		p, ok := evt.Payload.(ServiceChoicePayload)
		if !ok {
			return
		}
		if p.Serving {
			state.ServingSide = SideUs
		} else {
			state.ServingSide = SideOpponent
		}

	case EventPointUs:
		applyPoint(state, SideUs, rules)

	case EventPointOpponent:
		applyPoint(state, SideOpponent, rules)

	case EventSubstitution:
		p, ok := evt.Payload.(SubstitutionPayload)
		if !ok {
			return
		}
		if p.IsLiberoSwap {
			applyLiberoSwap(state, p)
			return
		}
		for pos, id := range state.Lineup {
			if id == p.PlayerOut {
				state.Lineup[pos] = p.PlayerIn
				break
			}
		}

	case EventTimeout:
		p, ok := evt.Payload.(TimeoutPayload)
		if !ok {
			return
		}
		// The cap is enforced before append; the projection only counts.
		if p.Side == SideUs {
			state.TimeoutsUs++
		} else {
			state.TimeoutsOpponent++
		}

	case EventReceptionEval:
		state.ReceptionEvaluated = true

	case EventFreeballSent, EventFreeballReceived:
		// Statistics only; no effect on the projection.
	}
}

func applyPoint(state *State, winner Side, rules Rules) {
	if state.IsSetFinished || state.IsMatchFinished {
		return
	}

	score := &state.Scores[state.CurrentSet-1]
	if winner == SideUs {
		score.Us++
	} else {
		score.Opponent++
	}
	state.RallyCount++
	state.ReceptionEvaluated = false

	// Rally point: the winner of the rally serves next. A side-out is just
	// the receiving side taking the serve.
	state.ServingSide = winner

	if side, done := rules.SetWinner(state.CurrentSet, score.Us, score.Opponent); done {
		state.IsSetFinished = true
		if side == SideUs {
			state.SetsWonUs++
		} else {
			state.SetsWonOpponent++
		}
		if state.SetsWonUs >= rules.SetsToWin || state.SetsWonOpponent >= rules.SetsToWin {
			state.IsMatchFinished = true
		}
	}
}

func applyLiberoSwap(state *State, p SubstitutionPayload) {
	// The base rotation never changes on a libero swap; only the position
	// the libero currently covers does.
	if state.LiberoID != 0 && p.PlayerOut == state.LiberoID {
		state.LiberoPosition = 0
		return
	}
	if state.LiberoID == 0 || p.PlayerIn != state.LiberoID {
		return
	}
	for pos, id := range state.Lineup {
		if id == p.PlayerOut {
			state.LiberoPosition = pos
			return
		}
	}
}
