package live

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/setpointhq/setpoint/internal/db"
	"github.com/setpointhq/setpoint/internal/match"
	"github.com/setpointhq/setpoint/internal/testutil"
)

// seedMatch creates a team with seven players, a match, its convocation and a
// staged first-set lineup, and returns the match ID.
func seedMatch(t *testing.T, store *db.Store) int64 {
	t.Helper()
	ctx := context.Background()

	team, err := store.CreateTeam(ctx, db.CreateTeamParams{Name: "U16 Falcons"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	var playerIDs []int64
	for i := 1; i <= 7; i++ {
		role := ""
		if i == 7 {
			role = match.RoleLibero
		}
		p, err := store.CreatePlayer(ctx, db.CreatePlayerParams{
			TeamID:       team.ID,
			FirstName:    fmt.Sprintf("Player%d", i),
			LastName:     "Test",
			JerseyNumber: i,
			Role:         role,
		})
		if err != nil {
			t.Fatalf("create player %d: %v", i, err)
		}
		playerIDs = append(playerIDs, p.ID)
	}

	m, err := store.CreateMatch(ctx, db.CreateMatchParams{TeamID: team.ID, Opponent: "Volley Roma"})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if err := store.SetConvocation(ctx, m.ID, playerIDs); err != nil {
		t.Fatalf("set convocation: %v", err)
	}
	err = store.UpsertLineup(ctx, db.UpsertLineupParams{
		MatchID:   m.ID,
		SetNumber: 1,
		Positions: map[int]int64{
			1: playerIDs[0], 2: playerIDs[1], 3: playerIDs[2],
			4: playerIDs[3], 5: playerIDs[4], 6: playerIDs[5],
		},
		LiberoID:      sql.NullInt64{Int64: playerIDs[6], Valid: true},
		InitialServer: string(match.SideUs),
	})
	if err != nil {
		t.Fatalf("upsert lineup: %v", err)
	}
	return m.ID
}

func setupLive(t *testing.T) (*db.Store, int64) {
	t.Helper()
	store := testutil.NewTestDB(t).Store
	InitHandlers(match.NewRegistry(store, match.DefaultRules()))
	return store, seedMatch(t, store)
}

func post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(http.MethodPost, path, reader)
	w := httptest.NewRecorder()
	HandleLive(w, r)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) StateView {
	t.Helper()
	var view StateView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode state view: %v (body %s)", err, w.Body)
	}
	return view
}

func TestLiveOpenAndScore(t *testing.T) {
	_, matchID := setupLive(t)
	base := fmt.Sprintf("/api/v1/live/%d", matchID)

	w := post(t, base+"/open", "")
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d, body %s", w.Code, w.Body)
	}
	view := decodeView(t, w)
	if !view.State.HasLineup {
		t.Fatal("staged lineup should be active after open")
	}

	w = post(t, base+"/point", `{"side":"us","reason":"attack"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("point status = %d, body %s", w.Code, w.Body)
	}
	view = decodeView(t, w)
	if view.State.Scores[0].Us != 1 {
		t.Errorf("score = %+v, want 1-0", view.State.Scores[0])
	}
	if view.Stats.Us.EarnedPoints != 1 {
		t.Errorf("EarnedPoints = %d, want 1", view.Stats.Us.EarnedPoints)
	}

	w = post(t, base+"/undo", "")
	if w.Code != http.StatusOK {
		t.Fatalf("undo status = %d", w.Code)
	}
	view = decodeView(t, w)
	if view.State.Scores[0].Us != 0 {
		t.Errorf("score after undo = %+v, want 0-0", view.State.Scores[0])
	}
}

func TestLiveStateRequiresOpenSession(t *testing.T) {
	_, matchID := setupLive(t)

	r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/live/%d/state", matchID), nil)
	w := httptest.NewRecorder()
	HandleLive(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before open", w.Code)
	}
}

func TestLiveOpenRefusesEmptyMatch(t *testing.T) {
	store, _ := setupLive(t)

	team, err := store.CreateTeam(context.Background(), db.CreateTeamParams{Name: "Empty"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	m, err := store.CreateMatch(context.Background(), db.CreateMatchParams{TeamID: team.ID, Opponent: "Nobody"})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}

	w := post(t, fmt.Sprintf("/api/v1/live/%d/open", m.ID), "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 for a match with no convocation", w.Code)
	}
}

func TestLiveTimeoutCapSurfacesConflict(t *testing.T) {
	_, matchID := setupLive(t)
	base := fmt.Sprintf("/api/v1/live/%d", matchID)
	if w := post(t, base+"/open", ""); w.Code != http.StatusOK {
		t.Fatalf("open status = %d", w.Code)
	}

	for i := 0; i < 2; i++ {
		if w := post(t, base+"/timeout", `{"side":"us"}`); w.Code != http.StatusOK {
			t.Fatalf("timeout %d status = %d", i+1, w.Code)
		}
	}
	w := post(t, base+"/timeout", `{"side":"us"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("third timeout status = %d, want 409", w.Code)
	}
}

func TestLiveInvalidSubstitutionUnprocessable(t *testing.T) {
	_, matchID := setupLive(t)
	base := fmt.Sprintf("/api/v1/live/%d", matchID)
	if w := post(t, base+"/open", ""); w.Code != http.StatusOK {
		t.Fatalf("open status = %d", w.Code)
	}

	// Neither player exists on court or bench.
	w := post(t, base+"/substitution", `{"playerOut":9999,"playerIn":8888}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body %s", w.Code, w.Body)
	}
}

func TestLiveCloseEndsSession(t *testing.T) {
	_, matchID := setupLive(t)
	base := fmt.Sprintf("/api/v1/live/%d", matchID)
	if w := post(t, base+"/open", ""); w.Code != http.StatusOK {
		t.Fatalf("open status = %d", w.Code)
	}

	if w := post(t, base+"/close", ""); w.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, base+"/state", nil)
	w := httptest.NewRecorder()
	HandleLive(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("state after close = %d, want 404", w.Code)
	}
}

func TestLiveUnknownAction(t *testing.T) {
	_, matchID := setupLive(t)
	base := fmt.Sprintf("/api/v1/live/%d", matchID)
	if w := post(t, base+"/open", ""); w.Code != http.StatusOK {
		t.Fatalf("open status = %d", w.Code)
	}

	if w := post(t, base+"/raindance", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
