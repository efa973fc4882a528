// internal/db/store_matches.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/setpointhq/setpoint/internal/match"
)

type CreateMatchParams struct {
	TeamID      int64
	Opponent    string
	Location    string
	ScheduledAt sql.NullTime
	OurSide     string
}

func (s *Store) CreateMatch(ctx context.Context, params CreateMatchParams) (Match, error) {
	side := params.OurSide
	if side != match.CourtAway {
		side = match.CourtHome
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO matches (team_id, opponent, location, scheduled_at, our_side)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, team_id, opponent, location, scheduled_at, our_side, status, result, actions, created_at, updated_at`,
		params.TeamID, params.Opponent, params.Location, params.ScheduledAt, side,
	)
	return scanMatch(row)
}

func (s *Store) GetMatch(ctx context.Context, id int64) (Match, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, team_id, opponent, location, scheduled_at, our_side, status, result, actions, created_at, updated_at
		 FROM matches WHERE id = ?`, id)
	return scanMatch(row)
}

func (s *Store) ListMatchesByTeam(ctx context.Context, teamID int64) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, opponent, location, scheduled_at, our_side, status, result, actions, created_at, updated_at
		 FROM matches WHERE team_id = ? ORDER BY scheduled_at DESC, id DESC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list matches for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) DeleteMatch(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete match %d: %w", id, err)
	}
	return nil
}

// SetConvocation replaces the called-up player list for a match. The delete
// and re-insert run in one transaction so a bad player ID leaves the previous
// convocation untouched.
func (s *Store) SetConvocation(ctx context.Context, matchID int64, playerIDs []int64) error {
	return s.RunInTx(ctx, func(tx *Store) error {
		if _, err := tx.db.ExecContext(ctx,
			`DELETE FROM match_players WHERE match_id = ?`, matchID); err != nil {
			return fmt.Errorf("clear convocation for match %d: %w", matchID, err)
		}
		for _, playerID := range playerIDs {
			if _, err := tx.db.ExecContext(ctx,
				`INSERT INTO match_players (match_id, player_id) VALUES (?, ?)`,
				matchID, playerID); err != nil {
				return fmt.Errorf("add player %d to match %d convocation: %w", playerID, matchID, err)
			}
		}
		return nil
	})
}

// GetAvailablePlayers returns the convocation for a match as roster players
// for the scoring core.
func (s *Store) GetAvailablePlayers(ctx context.Context, matchID int64) ([]match.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.team_id, p.first_name, p.last_name, p.nickname, p.jersey_number, p.role, p.phone, p.created_at
		 FROM match_players mp
		 JOIN players p ON p.id = mp.player_id
		 WHERE mp.match_id = ?
		 ORDER BY p.jersey_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list convocation for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var roster []match.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		roster = append(roster, player.AsRosterPlayer())
	}
	return roster, rows.Err()
}

type UpsertLineupParams struct {
	MatchID       int64
	SetNumber     int
	Positions     map[int]int64
	LiberoID      sql.NullInt64
	InitialServer string
}

// UpsertLineup stores the staged starting rotation for a set.
func (s *Store) UpsertLineup(ctx context.Context, params UpsertLineupParams) error {
	positions, err := json.Marshal(params.Positions)
	if err != nil {
		return fmt.Errorf("marshal lineup positions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO match_lineups (match_id, set_number, positions, libero_id, initial_server)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (match_id, set_number) DO UPDATE
		 SET positions = excluded.positions,
		     libero_id = excluded.libero_id,
		     initial_server = excluded.initial_server`,
		params.MatchID, params.SetNumber, string(positions), params.LiberoID, params.InitialServer,
	)
	if err != nil {
		return fmt.Errorf("upsert lineup for match %d set %d: %w", params.MatchID, params.SetNumber, err)
	}
	return nil
}

// GetLineupForSet returns the staged rotation for a set, or nil when none
// was recorded.
func (s *Store) GetLineupForSet(ctx context.Context, matchID int64, setNumber int) (*match.LineupPayload, error) {
	var lineup MatchLineup
	err := s.db.QueryRowContext(ctx,
		`SELECT match_id, set_number, positions, libero_id, initial_server
		 FROM match_lineups WHERE match_id = ? AND set_number = ?`,
		matchID, setNumber,
	).Scan(&lineup.MatchID, &lineup.SetNumber, &lineup.Positions, &lineup.LiberoID, &lineup.InitialServer)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get lineup for match %d set %d: %w", matchID, setNumber, err)
	}

	var positions map[int]int64
	if err := json.Unmarshal(lineup.Positions, &positions); err != nil {
		return nil, fmt.Errorf("unmarshal lineup positions: %w", err)
	}
	payload := &match.LineupPayload{
		Positions:     positions,
		InitialServer: match.Side(lineup.InitialServer),
	}
	if lineup.LiberoID.Valid {
		payload.LiberoID = lineup.LiberoID.Int64
	}
	return payload, nil
}

// GetMatchForScouting loads the slice of a match the live session registry
// needs, including the persisted event log.
func (s *Store) GetMatchForScouting(ctx context.Context, matchID int64) (match.ScoutingMatch, error) {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return match.ScoutingMatch{}, err
	}
	actions, err := match.DecodeEvents(m.Actions)
	if err != nil {
		return match.ScoutingMatch{}, err
	}
	return match.ScoutingMatch{
		ID:      m.ID,
		OurSide: m.OurSide,
		Status:  m.Status,
		Actions: actions,
	}, nil
}

// UpdateMatch writes the event log, status and result summary back in one
// call when a match finishes or is explicitly saved.
func (s *Store) UpdateMatch(ctx context.Context, matchID int64, update match.Update) error {
	actions, err := match.EncodeEvents(update.Actions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE matches
		 SET actions = ?, status = ?, result = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		string(actions), update.Status, update.Result, matchID,
	)
	if err != nil {
		return fmt.Errorf("update match %d: %w", matchID, err)
	}
	return nil
}

// SaveMatchActions writes only the event log, used by the autosave sweep.
func (s *Store) SaveMatchActions(ctx context.Context, matchID int64, actions []match.Event) error {
	data, err := match.EncodeEvents(actions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE matches SET actions = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(data), matchID,
	)
	if err != nil {
		return fmt.Errorf("save actions for match %d: %w", matchID, err)
	}
	return nil
}

func scanMatch(row scanner) (Match, error) {
	var m Match
	if err := row.Scan(
		&m.ID, &m.TeamID, &m.Opponent, &m.Location, &m.ScheduledAt,
		&m.OurSide, &m.Status, &m.Result, &m.Actions, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return Match{}, fmt.Errorf("scan match: %w", err)
	}
	return m, nil
}
