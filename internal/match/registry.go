// internal/match/registry.go
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned when no session is open for a match.
var ErrSessionNotFound = errors.New("no live session for match")

// ScoutingMatch is the slice of a match record the registry needs to open a
// session.
type ScoutingMatch struct {
	ID      int64
	OurSide string
	Status  string
	Actions []Event
}

// Store is the upstream collaborator the registry loads from. The db
// package implements it.
type Store interface {
	Saver
	GetMatchForScouting(ctx context.Context, matchID int64) (ScoutingMatch, error)
	GetAvailablePlayers(ctx context.Context, matchID int64) ([]Player, error)
	GetLineupForSet(ctx context.Context, matchID int64, setNumber int) (*LineupPayload, error)
}

// Registry holds the open scoring sessions, one per match. Sessions are
// created on demand, snapshotted periodically and evicted when idle.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	store    Store
	rules    Rules
}

func NewRegistry(store Store, rules Rules) *Registry {
	if rules.PointCap == 0 {
		rules = DefaultRules()
	}
	return &Registry{
		sessions: make(map[int64]*Session),
		store:    store,
		rules:    rules,
	}
}

// Open returns the session for a match, loading roster, lineup and any
// previously saved log from the store on first open. Entry is refused for a
// match with no convocation, no lineup and an empty log; a non-empty log
// always admits re-entry even when the roster has not loaded.
func (r *Registry) Open(ctx context.Context, matchID int64) (*Session, error) {
	r.mu.Lock()
	if sess, ok := r.sessions[matchID]; ok {
		r.mu.Unlock()
		return sess, nil
	}
	r.mu.Unlock()

	record, err := r.store.GetMatchForScouting(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match %d: %w", matchID, err)
	}

	roster, err := r.store.GetAvailablePlayers(ctx, matchID)
	if err != nil {
		// An in-progress match must never be blocked by a roster load race.
		if len(record.Actions) == 0 {
			return nil, fmt.Errorf("load convocation for match %d: %w", matchID, err)
		}
		log.Ctx(ctx).Warn().
			Err(err).
			Int64("match_id", matchID).
			Msg("Opening live session without roster")
		roster = nil
	}

	events := record.Actions
	var storedLineup map[int]int64
	if lineup, err := r.store.GetLineupForSet(ctx, matchID, 1); err == nil && lineup != nil {
		storedLineup = lineup.Positions
		if len(events) == 0 {
			// A lineup staged before the first rally seeds the log.
			seed := Event{
				ID:        uuid.NewString(),
				Type:      EventSetLineup,
				Timestamp: time.Now().UTC(),
				Payload:   *lineup,
			}
			events = append(events, seed)
		}
	}

	if !CanEnterScoring(roster, storedLineup, events) {
		return nil, ErrNoConvocation
	}

	sess := NewSession(SessionConfig{
		MatchID: matchID,
		OurSide: record.OurSide,
		Rules:   r.rules,
		Roster:  roster,
		Events:  events,
		Saver:   r.store,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[matchID]; ok {
		return existing, nil
	}
	r.sessions[matchID] = sess
	log.Ctx(ctx).Info().
		Int64("match_id", matchID).
		Int("restored_events", len(events)).
		Msg("Opened live scoring session")
	return sess, nil
}

// Get returns an already-open session.
func (r *Registry) Get(matchID int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[matchID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close saves and removes a session. Closing an unknown match is a no-op.
func (r *Registry) Close(ctx context.Context, matchID int64) error {
	r.mu.Lock()
	sess, ok := r.sessions[matchID]
	if ok {
		delete(r.sessions, matchID)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := sess.Save(ctx); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Int64("match_id", matchID).Msg("Closed live scoring session")
	return nil
}

// SnapshotAll persists every dirty session. Failures are logged per session
// and do not stop the sweep.
func (r *Registry) SnapshotAll(ctx context.Context) {
	for _, sess := range r.snapshotList() {
		if err := sess.Snapshot(ctx); err != nil {
			log.Ctx(ctx).Error().
				Err(err).
				Int64("match_id", sess.MatchID()).
				Msg("Failed to autosave live session")
		}
	}
}

// EvictIdle saves and removes sessions with no activity since the cutoff.
func (r *Registry) EvictIdle(ctx context.Context, idleFor time.Duration) {
	cutoff := time.Now().Add(-idleFor)
	for _, sess := range r.snapshotList() {
		if sess.IdleSince().After(cutoff) {
			continue
		}
		if err := r.Close(ctx, sess.MatchID()); err != nil {
			log.Ctx(ctx).Error().
				Err(err).
				Int64("match_id", sess.MatchID()).
				Msg("Failed to evict idle live session")
		}
	}
}

func (r *Registry) snapshotList() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		list = append(list, sess)
	}
	return list
}
