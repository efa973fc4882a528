// internal/match/session.go
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Court sides for the stored match record. Events are always relative to our
// team; the court side only orients the persisted result summary.
const (
	CourtHome = "home"
	CourtAway = "away"
)

// Match status values written back to the store.
const (
	StatusLive     = "live"
	StatusFinished = "finished"
)

var (
	ErrMatchFinished     = errors.New("match is finished")
	ErrSetFinished       = errors.New("set is finished")
	ErrNoLineup          = errors.New("no lineup recorded for the current set")
	ErrTimeoutLimit      = errors.New("timeout limit reached for this set")
	ErrNothingToUndo     = errors.New("event log is empty")
	ErrInvalidLineup     = errors.New("lineup must fill positions 1 through 6 with distinct players")
	ErrPlayerNotOnCourt  = errors.New("outgoing player is not on court")
	ErrPlayerOnCourt     = errors.New("incoming player is already on court")
	ErrPlayerNotInRoster = errors.New("player is not in the match convocation")
	ErrLiberoFieldSwap   = errors.New("libero cannot be exchanged through a regular substitution")
	ErrNotLiberoSwap     = errors.New("neither player is the designated libero")
	ErrSetNotFinished    = errors.New("set is not finished")
)

// Saver is the downstream persistence collaborator. Failures are reported
// and tolerated; the in-memory log stays authoritative either way.
type Saver interface {
	UpdateMatch(ctx context.Context, matchID int64, update Update) error
	SaveMatchActions(ctx context.Context, matchID int64, actions []Event) error
}

// Update is the payload handed to the store when a match finishes or is
// explicitly saved.
type Update struct {
	Actions []Event
	Status  string
	Result  string
}

// SessionConfig carries everything needed to open a scoring session.
type SessionConfig struct {
	MatchID int64
	OurSide string // CourtHome or CourtAway
	Rules   Rules
	Roster  []Player
	Events  []Event // restored log for re-entry, nil for a fresh match
	Saver   Saver

	// Now and NewID are injectable for tests; nil uses the real clock and
	// random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// Session owns the live scoring state of one match: the event log, its
// projection and the prompt flow. One instance exists per active match and
// is discarded when the match view closes; nothing here is process-global.
type Session struct {
	mu      sync.Mutex
	matchID int64
	ourSide string
	rules   Rules
	roster  []Player
	saver   Saver

	events []Event
	state  State
	flow   *Flow

	now   func() time.Time
	newID func() string

	finishSynced bool
	dirty        bool
	lastActivity time.Time
}

// NewSession builds a session and replays any restored log.
func NewSession(cfg SessionConfig) *Session {
	rules := cfg.Rules
	if rules.PointCap == 0 {
		rules = DefaultRules()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	ourSide := cfg.OurSide
	if ourSide != CourtAway {
		ourSide = CourtHome
	}

	s := &Session{
		matchID:      cfg.MatchID,
		ourSide:      ourSide,
		rules:        rules,
		roster:       cfg.Roster,
		saver:        cfg.Saver,
		events:       append([]Event(nil), cfg.Events...),
		flow:         NewFlow(),
		now:          now,
		newID:        newID,
		lastActivity: now(),
	}
	s.state = Derive(s.events, s.rules)
	// A restored log replays straight into the flow so a reload lands on
	// the same prompt the user left.
	if s.state.IsMatchFinished {
		s.finishSynced = true
	}
	s.replayFlow()
	return s
}

func (s *Session) replayFlow() {
	s.flow = NewFlow()
	// A set boundary in the log means its summary was acknowledged before.
	for _, evt := range s.events {
		if evt.Type != EventSetEnd {
			continue
		}
		if p, ok := evt.Payload.(SetBoundaryPayload); ok && p.SetNumber > 0 {
			s.flow.AckSummary(p.SetNumber)
		}
	}
	s.flow.Evaluate(Derive(nil, s.rules), s.state)
}

// MatchID returns the match this session scores.
func (s *Session) MatchID() int64 { return s.matchID }

// State returns the current projection.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Prompt returns the prompt currently owed to the user.
func (s *Session) Prompt() Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Active()
}

// Events returns a copy of the log.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Roster returns the convocation this session was opened with.
func (s *Session) Roster() []Player {
	return s.roster
}

// OnCourt resolves the effective lineup for display and validation.
func (s *Session) OnCourt() map[int]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EffectiveLineup(s.state, s.roster)
}

// BenchPlayers returns roster players outside the base rotation.
func (s *Session) BenchPlayers() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Bench(s.state, s.roster)
}

// Stats derives the match statistics from the current log.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.events)
}

// SetFlows derives the per-set differential series from the current log.
func (s *Session) SetFlows() []SetFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeSetFlows(s.events)
}

// IdleSince returns the time of the last command.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// PointScored records a rally won by our side.
func (s *Session) PointScored(ctx context.Context, reason Reason) (State, error) {
	return s.point(ctx, EventPointUs, reason)
}

// PointConceded records a rally won by the opponent.
func (s *Session) PointConceded(ctx context.Context, reason Reason) (State, error) {
	return s.point(ctx, EventPointOpponent, reason)
}

func (s *Session) point(ctx context.Context, t EventType, reason Reason) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	if s.state.IsSetFinished {
		return s.state, ErrSetFinished
	}
	if !s.state.HasLineup {
		return s.state, ErrNoLineup
	}
	s.append(ctx, t, PointPayload{Reason: reason})
	return s.state, nil
}

// SetLineup records the starting rotation for the current set.
func (s *Session) SetLineup(ctx context.Context, positions map[int]int64, liberoID int64, initialServer Side) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	if err := s.validateLineup(positions, liberoID); err != nil {
		return s.state, err
	}
	s.append(ctx, EventSetLineup, LineupPayload{
		Positions:     positions,
		LiberoID:      liberoID,
		InitialServer: initialServer,
	})
	return s.state, nil
}

func (s *Session) validateLineup(positions map[int]int64, liberoID int64) error {
	if len(positions) != 6 {
		return ErrInvalidLineup
	}
	seen := make(map[int64]struct{}, 6)
	for pos, id := range positions {
		if pos < 1 || pos > 6 || id == 0 {
			return ErrInvalidLineup
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidLineup
		}
		seen[id] = struct{}{}
		if len(s.roster) > 0 {
			if _, ok := FindPlayer(s.roster, id); !ok {
				return ErrPlayerNotInRoster
			}
		}
	}
	if liberoID != 0 {
		if _, starter := seen[liberoID]; starter {
			return ErrInvalidLineup
		}
		if len(s.roster) > 0 {
			if _, ok := FindPlayer(s.roster, liberoID); !ok {
				return ErrPlayerNotInRoster
			}
		}
	}
	return nil
}

// Substitute exchanges a field player on court for a bench player.
func (s *Session) Substitute(ctx context.Context, playerOut, playerIn int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	if s.state.IsSetFinished {
		return s.state, ErrSetFinished
	}
	if !s.state.HasLineup {
		return s.state, ErrNoLineup
	}
	if s.state.LiberoID != 0 && (playerOut == s.state.LiberoID || playerIn == s.state.LiberoID) {
		return s.state, ErrLiberoFieldSwap
	}
	if !OnCourt(s.state.Lineup, playerOut) {
		return s.state, ErrPlayerNotOnCourt
	}
	if OnCourt(s.state.Lineup, playerIn) {
		return s.state, ErrPlayerOnCourt
	}
	if len(s.roster) > 0 {
		if _, ok := FindPlayer(s.roster, playerIn); !ok {
			return s.state, ErrPlayerNotInRoster
		}
	}
	s.append(ctx, EventSubstitution, SubstitutionPayload{
		PlayerIn:  playerIn,
		PlayerOut: playerOut,
	})
	s.flow.DismissSubstitution()
	return s.state, nil
}

// LiberoSwap moves the libero onto or off the court. Unlike a regular
// substitution it never touches the base rotation.
func (s *Session) LiberoSwap(ctx context.Context, playerOut, playerIn int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	if !s.state.HasLineup {
		return s.state, ErrNoLineup
	}
	libero := s.state.LiberoID
	if libero == 0 || (playerIn != libero && playerOut != libero) {
		return s.state, ErrNotLiberoSwap
	}
	if playerIn == libero && !OnCourt(s.state.Lineup, playerOut) {
		return s.state, ErrPlayerNotOnCourt
	}
	if playerOut == libero && s.state.LiberoPosition == 0 {
		return s.state, ErrPlayerNotOnCourt
	}
	s.append(ctx, EventSubstitution, SubstitutionPayload{
		PlayerIn:     playerIn,
		PlayerOut:    playerOut,
		IsLiberoSwap: true,
	})
	return s.state, nil
}

// Timeout records a timeout for a side, enforcing the per-set cap before
// the event is appended.
func (s *Session) Timeout(ctx context.Context, side Side) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	if s.state.IsSetFinished {
		return s.state, ErrSetFinished
	}
	if s.state.Timeouts(side) >= s.rules.TimeoutsPerSet {
		return s.state, ErrTimeoutLimit
	}
	s.append(ctx, EventTimeout, TimeoutPayload{Side: side})
	return s.state, nil
}

// EvaluateReception grades the reception of the current rally, satisfying
// the reception prompt.
func (s *Session) EvaluateReception(ctx context.Context, grade string, playerID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	s.append(ctx, EventReceptionEval, ReceptionPayload{Grade: grade, PlayerID: playerID})
	return s.state, nil
}

// ChooseService records whether our side serves first in the current set.
func (s *Session) ChooseService(ctx context.Context, serving bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	s.append(ctx, EventSetServiceChoice, ServiceChoicePayload{Serving: serving})
	return s.state, nil
}

// FreeballSent records a free ball played over to the opponent.
func (s *Session) FreeballSent(ctx context.Context) (State, error) {
	return s.freeball(ctx, EventFreeballSent)
}

// FreeballReceived records a free ball received from the opponent.
func (s *Session) FreeballReceived(ctx context.Context) (State, error) {
	return s.freeball(ctx, EventFreeballReceived)
}

func (s *Session) freeball(ctx context.Context, t EventType) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsMatchFinished {
		return s.state, ErrMatchFinished
	}
	if s.state.IsSetFinished {
		return s.state, ErrSetFinished
	}
	s.append(ctx, t, FreeballPayload{})
	return s.state, nil
}

// RequestSubstitution opens the substitution prompt on user request.
func (s *Session) RequestSubstitution() (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flow.RequestSubstitution(); err != nil {
		return s.flow.Active(), err
	}
	return s.flow.Active(), nil
}

// DismissSubstitution closes a user-opened substitution prompt.
func (s *Session) DismissSubstitution() Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.DismissSubstitution()
	return s.flow.Active()
}

// AcknowledgeSetSummary closes the summary for the finished set. For a
// non-final set this also advances the log past the boundary so the next
// set can be staffed and scored.
func (s *Session) AcknowledgeSetSummary(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsSetFinished {
		return s.state, ErrSetNotFinished
	}
	finished := s.state.CurrentSet
	s.flow.AckSummary(finished)
	s.append(ctx, EventSetEnd, SetBoundaryPayload{SetNumber: finished})
	if !s.state.IsMatchFinished {
		s.append(ctx, EventSetStart, SetBoundaryPayload{SetNumber: finished + 1})
	}
	return s.state, nil
}

// AcknowledgeMatchFinished dismisses the final prompt.
func (s *Session) AcknowledgeMatchFinished() Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.AckMatchFinished()
	return s.flow.Active()
}

// Undo removes the last event and recomputes, restoring exactly the state
// that existed before it was appended.
func (s *Session) Undo(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return s.state, ErrNothingToUndo
	}
	s.events = s.events[:len(s.events)-1]
	prev := s.state
	s.state = Derive(s.events, s.rules)
	// Undoing the closing rally re-arms the finish sync: the next finish is a
	// new transition and gets its own write.
	if prev.IsMatchFinished && !s.state.IsMatchFinished {
		s.finishSynced = false
	}
	s.flow.Evaluate(prev, s.state)
	s.dirty = true
	s.lastActivity = s.now()
	return s.state, nil
}

// Save writes the current log to the store without finishing the match. It
// also serves as the manual retry after a failed finish sync.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	events := append([]Event(nil), s.events...)
	status := StatusLive
	result := ""
	if s.state.IsMatchFinished {
		status = StatusFinished
		result = s.result()
	}
	s.mu.Unlock()

	if s.saver == nil {
		return nil
	}
	if err := s.saver.UpdateMatch(ctx, s.matchID, Update{Actions: events, Status: status, Result: result}); err != nil {
		return fmt.Errorf("save match %d: %w", s.matchID, err)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Snapshot persists the log if anything changed since the last write. Used
// by the autosave job so a crashed browser or server never loses a live
// match.
func (s *Session) Snapshot(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty || s.saver == nil {
		s.mu.Unlock()
		return nil
	}
	events := append([]Event(nil), s.events...)
	s.mu.Unlock()

	if err := s.saver.SaveMatchActions(ctx, s.matchID, events); err != nil {
		return fmt.Errorf("snapshot match %d: %w", s.matchID, err)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// append records one event and recomputes the projection and prompt flow.
// Callers hold the mutex.
func (s *Session) append(ctx context.Context, t EventType, payload Payload) {
	evt := Event{
		ID:        s.newID(),
		Type:      t,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	s.events = append(s.events, evt)

	prev := s.state
	s.state = Derive(s.events, s.rules)
	s.flow.Evaluate(prev, s.state)
	s.dirty = true
	s.lastActivity = s.now()

	if !prev.IsMatchFinished && s.state.IsMatchFinished && !s.finishSynced {
		s.finishSynced = true
		s.syncFinish(ctx)
	}
}

// syncFinish hands the finished match to the store, once per finish
// transition. A failed write is reported but never rolls back the in-memory
// state; the user can retry with Save.
func (s *Session) syncFinish(ctx context.Context) {
	if s.saver == nil {
		return
	}
	update := Update{
		Actions: append([]Event(nil), s.events...),
		Status:  StatusFinished,
		Result:  s.result(),
	}
	if err := s.saver.UpdateMatch(ctx, s.matchID, update); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Int64("match_id", s.matchID).
			Msg("Failed to persist finished match")
		return
	}
	s.dirty = false
	log.Ctx(ctx).Info().
		Int64("match_id", s.matchID).
		Str("result", update.Result).
		Msg("Persisted finished match")
}

// result renders the human-readable summary, oriented home-away.
func (s *Session) result() string {
	homeSets, awaySets := s.state.SetsWonUs, s.state.SetsWonOpponent
	if s.ourSide == CourtAway {
		homeSets, awaySets = awaySets, homeSets
	}

	parts := make([]string, 0, len(s.state.Scores))
	for _, score := range s.state.Scores {
		if score.Us == 0 && score.Opponent == 0 {
			continue
		}
		home, away := score.Us, score.Opponent
		if s.ourSide == CourtAway {
			home, away = away, home
		}
		parts = append(parts, fmt.Sprintf("%d-%d", home, away))
	}

	summary := fmt.Sprintf("%d-%d", homeSets, awaySets)
	if len(parts) > 0 {
		summary = fmt.Sprintf("%s (%s)", summary, strings.Join(parts, ", "))
	}
	return summary
}
