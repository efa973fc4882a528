package match

import "testing"

func testRoster() []Player {
	return []Player{
		{ID: 1, Number: 1, Name: "Ada"},
		{ID: 2, Number: 2, Name: "Bea"},
		{ID: 3, Number: 3, Name: "Cleo"},
		{ID: 4, Number: 4, Name: "Dana"},
		{ID: 5, Number: 5, Name: "Elsa"},
		{ID: 6, Number: 6, Name: "Faye"},
		{ID: 7, Number: 12, Name: "Gia", Role: RoleLibero},
		{ID: 8, Number: 9, Name: "Hana"},
		{ID: 9, Number: 10, Name: "Iris"},
	}
}

func receivingState() State {
	return State{
		Lineup:         map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 6},
		LiberoID:       7,
		LiberoPosition: 5,
		ServingSide:    SideOpponent,
		HasLineup:      true,
	}
}

func TestEffectiveLineupLiberoWhileReceiving(t *testing.T) {
	got := EffectiveLineup(receivingState(), testRoster())
	if got[5] != 7 {
		t.Errorf("position 5 = %d, want libero 7 while receiving", got[5])
	}
	if got[1] != 1 || got[6] != 6 {
		t.Error("other positions must not change")
	}
}

func TestEffectiveLineupRevertsWhenServing(t *testing.T) {
	state := receivingState()
	state.ServingSide = SideUs

	got := EffectiveLineup(state, testRoster())
	if got[5] != 5 {
		t.Errorf("position 5 = %d, want rotation player 5 back while serving", got[5])
	}
}

func TestEffectiveLineupNeverMutatesBase(t *testing.T) {
	state := receivingState()
	EffectiveLineup(state, testRoster())
	if state.Lineup[5] != 5 {
		t.Errorf("base rotation mutated: Lineup[5] = %d", state.Lineup[5])
	}
}

func TestEffectiveLineupLiberoOffCourt(t *testing.T) {
	state := receivingState()
	state.LiberoPosition = 0

	got := EffectiveLineup(state, testRoster())
	if got[5] != 5 {
		t.Errorf("position 5 = %d, want 5 with libero off court", got[5])
	}
}

func TestEffectiveLineupLiberoMissingFromRoster(t *testing.T) {
	state := receivingState()
	roster := testRoster()[:6] // libero 7 absent

	got := EffectiveLineup(state, roster)
	if got[5] != 5 {
		t.Errorf("position 5 = %d, want base rotation when libero unresolvable", got[5])
	}
}

func TestBenchExcludesRotationIncludesLibero(t *testing.T) {
	state := receivingState()
	bench := Bench(state, testRoster())

	ids := make(map[int64]bool, len(bench))
	for _, p := range bench {
		ids[p.ID] = true
	}
	if !ids[7] {
		t.Error("libero should sit on the bench list")
	}
	if !ids[8] || !ids[9] {
		t.Error("unused roster players should be benched")
	}
	if ids[1] || ids[6] {
		t.Error("rotation players must not be benched")
	}
}

func TestOnCourt(t *testing.T) {
	lineup := map[int]int64{1: 1, 2: 2}
	if !OnCourt(lineup, 2) {
		t.Error("player 2 should be on court")
	}
	if OnCourt(lineup, 9) {
		t.Error("player 9 should not be on court")
	}
}
