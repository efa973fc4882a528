package match

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

type fakeSaver struct {
	updates   []Update
	snapshots [][]Event
	updateErr error
}

func (f *fakeSaver) UpdateMatch(ctx context.Context, matchID int64, update Update) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeSaver) SaveMatchActions(ctx context.Context, matchID int64, actions []Event) error {
	f.snapshots = append(f.snapshots, actions)
	return nil
}

func newTestSession(t *testing.T, saver *fakeSaver) *Session {
	t.Helper()
	seq := 0
	return NewSession(SessionConfig{
		MatchID: 42,
		OurSide: CourtHome,
		Rules:   DefaultRules(),
		Roster:  testRoster(),
		Saver:   saver,
		Now:     func() time.Time { return time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("evt-%d", seq)
		},
	})
}

func stageLineup(t *testing.T, s *Session) {
	t.Helper()
	positions := map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 6}
	if _, err := s.SetLineup(context.Background(), positions, 7, SideUs); err != nil {
		t.Fatalf("set lineup: %v", err)
	}
}

func scorePoints(t *testing.T, s *Session, winner Side, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		var err error
		if winner == SideUs {
			_, err = s.PointScored(ctx, ReasonAttack)
		} else {
			_, err = s.PointConceded(ctx, ReasonAttackError)
		}
		if err != nil {
			t.Fatalf("point %d for %s: %v", i+1, winner, err)
		}
	}
}

func winSet(t *testing.T, s *Session) {
	t.Helper()
	stageLineup(t, s)
	scorePoints(t, s, SideUs, 25)
}

func TestSessionPointRequiresLineup(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	if _, err := s.PointScored(context.Background(), ReasonAttack); !errors.Is(err, ErrNoLineup) {
		t.Errorf("err = %v, want ErrNoLineup", err)
	}
}

func TestSessionLineupValidation(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	ctx := context.Background()

	tests := []struct {
		name      string
		positions map[int]int64
		libero    int64
		want      error
	}{
		{"five positions", map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5}, 0, ErrInvalidLineup},
		{"duplicate player", map[int]int64{1: 1, 2: 1, 3: 3, 4: 4, 5: 5, 6: 6}, 0, ErrInvalidLineup},
		{"position out of range", map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 7: 6}, 0, ErrInvalidLineup},
		{"libero among starters", map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 7}, 7, ErrInvalidLineup},
		{"starter not in roster", map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 99}, 0, ErrPlayerNotInRoster},
		{"libero not in roster", map[int]int64{1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 6}, 99, ErrPlayerNotInRoster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.SetLineup(ctx, tt.positions, tt.libero, SideUs); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSessionSetLifecycle(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	ctx := context.Background()

	winSet(t, s)
	state := s.State()
	if !state.IsSetFinished {
		t.Fatal("set should be finished")
	}
	if got := s.Prompt(); got != PromptSetSummary {
		t.Fatalf("prompt = %q, want SET_SUMMARY", got)
	}
	if _, err := s.PointScored(ctx, ReasonAttack); !errors.Is(err, ErrSetFinished) {
		t.Errorf("point in finished set: err = %v, want ErrSetFinished", err)
	}

	state, err := s.AcknowledgeSetSummary(ctx)
	if err != nil {
		t.Fatalf("ack summary: %v", err)
	}
	if state.CurrentSet != 2 {
		t.Errorf("CurrentSet = %d, want 2", state.CurrentSet)
	}
	if state.HasLineup {
		t.Error("new set should need a fresh lineup")
	}
	if got := s.Prompt(); got != PromptStarters {
		t.Errorf("prompt = %q, want STARTERS for the new set", got)
	}
}

func TestSessionAckSummaryRequiresFinishedSet(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	stageLineup(t, s)
	if _, err := s.AcknowledgeSetSummary(context.Background()); !errors.Is(err, ErrSetNotFinished) {
		t.Errorf("err = %v, want ErrSetNotFinished", err)
	}
}

func TestSessionTimeoutCap(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	ctx := context.Background()
	stageLineup(t, s)

	for i := 0; i < 2; i++ {
		if _, err := s.Timeout(ctx, SideUs); err != nil {
			t.Fatalf("timeout %d: %v", i+1, err)
		}
	}
	if _, err := s.Timeout(ctx, SideUs); !errors.Is(err, ErrTimeoutLimit) {
		t.Fatalf("third timeout: err = %v, want ErrTimeoutLimit", err)
	}

	// The opponent's budget is independent.
	if _, err := s.Timeout(ctx, SideOpponent); err != nil {
		t.Errorf("opponent timeout: %v", err)
	}
}

func TestSessionSubstituteRules(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	ctx := context.Background()
	stageLineup(t, s)

	tests := []struct {
		name    string
		out, in int64
		want    error
	}{
		{"libero out through regular sub", 7, 8, ErrLiberoFieldSwap},
		{"libero in through regular sub", 5, 7, ErrLiberoFieldSwap},
		{"outgoing not on court", 8, 9, ErrPlayerNotOnCourt},
		{"incoming already on court", 5, 6, ErrPlayerOnCourt},
		{"incoming not in roster", 5, 99, ErrPlayerNotInRoster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Substitute(ctx, tt.out, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	state, err := s.Substitute(ctx, 5, 8)
	if err != nil {
		t.Fatalf("valid substitution: %v", err)
	}
	if state.Lineup[5] != 8 {
		t.Errorf("Lineup[5] = %d, want 8", state.Lineup[5])
	}
}

func TestSessionLiberoSwap(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	ctx := context.Background()
	stageLineup(t, s)

	if _, err := s.LiberoSwap(ctx, 5, 6); !errors.Is(err, ErrNotLiberoSwap) {
		t.Fatalf("swap without libero: err = %v, want ErrNotLiberoSwap", err)
	}

	state, err := s.LiberoSwap(ctx, 5, 7)
	if err != nil {
		t.Fatalf("libero in: %v", err)
	}
	if state.LiberoPosition != 5 {
		t.Errorf("LiberoPosition = %d, want 5", state.LiberoPosition)
	}
	if state.Lineup[5] != 5 {
		t.Errorf("base rotation changed: Lineup[5] = %d, want 5", state.Lineup[5])
	}

	// While receiving, position 5 reads as the libero; serving reverts it.
	if _, err := s.ChooseService(ctx, false); err != nil {
		t.Fatalf("service choice: %v", err)
	}
	if got := s.OnCourt(); got[5] != 7 {
		t.Errorf("OnCourt[5] = %d, want libero 7 while receiving", got[5])
	}
	if _, err := s.ChooseService(ctx, true); err != nil {
		t.Fatalf("service choice: %v", err)
	}
	if got := s.OnCourt(); got[5] != 5 {
		t.Errorf("OnCourt[5] = %d, want 5 while serving", got[5])
	}

	state, err = s.LiberoSwap(ctx, 7, 5)
	if err != nil {
		t.Fatalf("libero out: %v", err)
	}
	if state.LiberoPosition != 0 {
		t.Errorf("LiberoPosition = %d, want 0 after the libero leaves", state.LiberoPosition)
	}
}

func TestSessionUndoRestoresState(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	ctx := context.Background()
	stageLineup(t, s)
	scorePoints(t, s, SideUs, 3)

	before := s.State()
	scorePoints(t, s, SideOpponent, 1)

	after, err := s.Undo(ctx)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("undo did not restore state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSessionUndoEmptyLog(t *testing.T) {
	s := newTestSession(t, &fakeSaver{})
	if _, err := s.Undo(context.Background()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("err = %v, want ErrNothingToUndo", err)
	}
}

func TestSessionFinishSyncsExactlyOnce(t *testing.T) {
	saver := &fakeSaver{}
	s := newTestSession(t, saver)
	ctx := context.Background()

	for set := 1; set <= 2; set++ {
		winSet(t, s)
		if _, err := s.AcknowledgeSetSummary(ctx); err != nil {
			t.Fatalf("ack set %d: %v", set, err)
		}
	}
	winSet(t, s)

	state := s.State()
	if !state.IsMatchFinished {
		t.Fatal("match should be finished after three straight sets")
	}
	if len(saver.updates) != 1 {
		t.Fatalf("got %d finish writes, want exactly 1", len(saver.updates))
	}
	update := saver.updates[0]
	if update.Status != StatusFinished {
		t.Errorf("Status = %q, want finished", update.Status)
	}
	if update.Result != "3-0 (25-0, 25-0, 25-0)" {
		t.Errorf("Result = %q, want 3-0 (25-0, 25-0, 25-0)", update.Result)
	}

	// The acknowledgment appends a SET_END but the match stays finished, so
	// no further write happens.
	if _, err := s.AcknowledgeSetSummary(ctx); err != nil {
		t.Fatalf("ack final set: %v", err)
	}
	if len(saver.updates) != 1 {
		t.Errorf("got %d finish writes after final ack, want still 1", len(saver.updates))
	}
}

func TestSessionFinishSyncRearmsAfterUndo(t *testing.T) {
	saver := &fakeSaver{}
	s := newTestSession(t, saver)
	ctx := context.Background()

	for set := 1; set <= 2; set++ {
		winSet(t, s)
		if _, err := s.AcknowledgeSetSummary(ctx); err != nil {
			t.Fatalf("ack set %d: %v", set, err)
		}
	}
	winSet(t, s)
	if len(saver.updates) != 1 {
		t.Fatalf("got %d writes after first finish, want 1", len(saver.updates))
	}

	// Undoing the closing rally un-finishes the match; the scorer correcting
	// the last point produces a fresh finish transition that must be written,
	// or the store would keep the first transition's result forever.
	if _, err := s.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.State().IsMatchFinished {
		t.Fatal("match should be live again after undoing the closing rally")
	}
	scorePoints(t, s, SideUs, 1)

	if !s.State().IsMatchFinished {
		t.Fatal("match should be finished again")
	}
	if len(saver.updates) != 2 {
		t.Fatalf("got %d writes after second finish, want 2", len(saver.updates))
	}
	if got := saver.updates[1].Result; got != "3-0 (25-0, 25-0, 25-0)" {
		t.Errorf("second Result = %q, want 3-0 (25-0, 25-0, 25-0)", got)
	}
}

func TestSessionFinishSyncFailureTolerated(t *testing.T) {
	saver := &fakeSaver{updateErr: errors.New("disk full")}
	s := newTestSession(t, saver)
	ctx := context.Background()

	for set := 1; set <= 2; set++ {
		winSet(t, s)
		if _, err := s.AcknowledgeSetSummary(ctx); err != nil {
			t.Fatalf("ack set %d: %v", set, err)
		}
	}
	winSet(t, s)

	if !s.State().IsMatchFinished {
		t.Fatal("a failed write must not roll back the in-memory state")
	}
	if len(saver.updates) != 0 {
		t.Fatalf("got %d writes despite failure", len(saver.updates))
	}

	// Manual save is the retry path.
	saver.updateErr = nil
	if err := s.Save(ctx); err != nil {
		t.Fatalf("retry save: %v", err)
	}
	if len(saver.updates) != 1 {
		t.Fatalf("got %d writes after retry, want 1", len(saver.updates))
	}
	if saver.updates[0].Status != StatusFinished {
		t.Errorf("retry Status = %q, want finished", saver.updates[0].Status)
	}
}

func TestSessionResultAwayOrientation(t *testing.T) {
	saver := &fakeSaver{}
	seq := 0
	s := NewSession(SessionConfig{
		MatchID: 7,
		OurSide: CourtAway,
		Rules:   DefaultRules(),
		Roster:  testRoster(),
		Saver:   saver,
		NewID: func() string {
			seq++
			return fmt.Sprintf("evt-%d", seq)
		},
	})
	ctx := context.Background()

	for set := 1; set <= 2; set++ {
		winSet(t, s)
		if _, err := s.AcknowledgeSetSummary(ctx); err != nil {
			t.Fatalf("ack set %d: %v", set, err)
		}
	}
	winSet(t, s)

	if len(saver.updates) != 1 {
		t.Fatalf("got %d writes, want 1", len(saver.updates))
	}
	if got := saver.updates[0].Result; got != "0-3 (0-25, 0-25, 0-25)" {
		t.Errorf("Result = %q, want 0-3 (0-25, 0-25, 0-25)", got)
	}
}

func TestSessionReloadResumesFlow(t *testing.T) {
	saver := &fakeSaver{}
	s := newTestSession(t, saver)
	ctx := context.Background()

	winSet(t, s)
	if _, err := s.AcknowledgeSetSummary(ctx); err != nil {
		t.Fatalf("ack summary: %v", err)
	}

	restored := NewSession(SessionConfig{
		MatchID: 42,
		OurSide: CourtHome,
		Rules:   DefaultRules(),
		Roster:  testRoster(),
		Events:  s.Events(),
		Saver:   saver,
	})

	if !reflect.DeepEqual(restored.State(), s.State()) {
		t.Error("restored projection differs from the live one")
	}
	if got := restored.Prompt(); got != PromptStarters {
		t.Errorf("restored prompt = %q, want STARTERS for the unstaffed set 2", got)
	}
}

func TestSessionSnapshotOnlyWhenDirty(t *testing.T) {
	saver := &fakeSaver{}
	s := newTestSession(t, saver)
	ctx := context.Background()

	if err := s.Snapshot(ctx); err != nil {
		t.Fatalf("clean snapshot: %v", err)
	}
	if len(saver.snapshots) != 0 {
		t.Fatal("clean session should not write a snapshot")
	}

	stageLineup(t, s)
	if err := s.Snapshot(ctx); err != nil {
		t.Fatalf("dirty snapshot: %v", err)
	}
	if len(saver.snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(saver.snapshots))
	}

	// Nothing changed since; the next sweep skips this session.
	if err := s.Snapshot(ctx); err != nil {
		t.Fatalf("repeat snapshot: %v", err)
	}
	if len(saver.snapshots) != 1 {
		t.Errorf("got %d snapshots after no-op sweep, want still 1", len(saver.snapshots))
	}
}
