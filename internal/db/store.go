// internal/db/store.go
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so store methods run inside
// or outside a transaction unchanged.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store holds the hand-written queries for the club schema.
type Store struct {
	db DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// RunInTx runs fn against a store bound to a single transaction, committing
// on success and rolling back on error or panic. A store that is already
// transaction-scoped runs fn directly, joining the ambient transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(*Store) error) error {
	sqlDB, ok := s.db.(*sql.DB)
	if !ok {
		return fn(s)
	}
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(NewStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}

type CreateTeamParams struct {
	Name     string
	Category string
	Season   string
}

func (s *Store) CreateTeam(ctx context.Context, params CreateTeamParams) (Team, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO teams (name, category, season) VALUES (?, ?, ?)
		 RETURNING id, name, category, season, created_at`,
		params.Name, params.Category, params.Season,
	)
	return scanTeam(row)
}

func (s *Store) GetTeam(ctx context.Context, id int64) (Team, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, season, created_at FROM teams WHERE id = ?`, id)
	return scanTeam(row)
}

func (s *Store) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, season, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

type UpdateTeamParams struct {
	ID       int64
	Name     string
	Category string
	Season   string
}

func (s *Store) UpdateTeam(ctx context.Context, params UpdateTeamParams) (Team, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE teams SET name = ?, category = ?, season = ? WHERE id = ?
		 RETURNING id, name, category, season, created_at`,
		params.Name, params.Category, params.Season, params.ID,
	)
	return scanTeam(row)
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team %d: %w", id, err)
	}
	return nil
}

type CreatePlayerParams struct {
	TeamID       int64
	FirstName    string
	LastName     string
	Nickname     string
	JerseyNumber int
	Role         string
	Phone        sql.NullString
}

func (s *Store) CreatePlayer(ctx context.Context, params CreatePlayerParams) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO players (team_id, first_name, last_name, nickname, jersey_number, role, phone)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id, team_id, first_name, last_name, nickname, jersey_number, role, phone, created_at`,
		params.TeamID, params.FirstName, params.LastName, params.Nickname,
		params.JerseyNumber, params.Role, params.Phone,
	)
	return scanPlayer(row)
}

func (s *Store) GetPlayer(ctx context.Context, id int64) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, team_id, first_name, last_name, nickname, jersey_number, role, phone, created_at
		 FROM players WHERE id = ?`, id)
	return scanPlayer(row)
}

func (s *Store) ListPlayersByTeam(ctx context.Context, teamID int64) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, first_name, last_name, nickname, jersey_number, role, phone, created_at
		 FROM players WHERE team_id = ? ORDER BY jersey_number, last_name`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list players for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

type UpdatePlayerParams struct {
	ID           int64
	FirstName    string
	LastName     string
	Nickname     string
	JerseyNumber int
	Role         string
	Phone        sql.NullString
}

func (s *Store) UpdatePlayer(ctx context.Context, params UpdatePlayerParams) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE players SET first_name = ?, last_name = ?, nickname = ?, jersey_number = ?, role = ?, phone = ?
		 WHERE id = ?
		 RETURNING id, team_id, first_name, last_name, nickname, jersey_number, role, phone, created_at`,
		params.FirstName, params.LastName, params.Nickname, params.JerseyNumber,
		params.Role, params.Phone, params.ID,
	)
	return scanPlayer(row)
}

func (s *Store) DeletePlayer(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete player %d: %w", id, err)
	}
	return nil
}

type CreateCoachParams struct {
	FirstName string
	LastName  string
	Email     string
}

func (s *Store) CreateCoach(ctx context.Context, params CreateCoachParams) (Coach, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO coaches (first_name, last_name, email) VALUES (?, ?, ?)
		 RETURNING id, first_name, last_name, email, created_at`,
		params.FirstName, params.LastName, params.Email,
	)
	return scanCoach(row)
}

func (s *Store) GetCoach(ctx context.Context, id int64) (Coach, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, created_at FROM coaches WHERE id = ?`, id)
	return scanCoach(row)
}

func (s *Store) ListCoaches(ctx context.Context) ([]Coach, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, created_at FROM coaches ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list coaches: %w", err)
	}
	defer rows.Close()

	var coaches []Coach
	for rows.Next() {
		coach, err := scanCoach(rows)
		if err != nil {
			return nil, err
		}
		coaches = append(coaches, coach)
	}
	return coaches, rows.Err()
}

func (s *Store) DeleteCoach(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM coaches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete coach %d: %w", id, err)
	}
	return nil
}

type AssignCoachParams struct {
	TeamID  int64
	CoachID int64
	Role    string
}

func (s *Store) AssignCoach(ctx context.Context, params AssignCoachParams) error {
	role := params.Role
	if role == "" {
		role = "head"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_coaches (team_id, coach_id, role) VALUES (?, ?, ?)
		 ON CONFLICT (team_id, coach_id) DO UPDATE SET role = excluded.role`,
		params.TeamID, params.CoachID, role,
	)
	if err != nil {
		return fmt.Errorf("assign coach %d to team %d: %w", params.CoachID, params.TeamID, err)
	}
	return nil
}

func (s *Store) UnassignCoach(ctx context.Context, teamID, coachID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM team_coaches WHERE team_id = ? AND coach_id = ?`, teamID, coachID)
	if err != nil {
		return fmt.Errorf("unassign coach %d from team %d: %w", coachID, teamID, err)
	}
	return nil
}

type TeamCoachRow struct {
	Coach Coach
	Role  string
}

func (s *Store) ListTeamCoaches(ctx context.Context, teamID int64) ([]TeamCoachRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.first_name, c.last_name, c.email, c.created_at, tc.role
		 FROM team_coaches tc
		 JOIN coaches c ON c.id = tc.coach_id
		 WHERE tc.team_id = ?
		 ORDER BY c.last_name, c.first_name`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list coaches for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var assignments []TeamCoachRow
	for rows.Next() {
		var row TeamCoachRow
		if err := rows.Scan(
			&row.Coach.ID, &row.Coach.FirstName, &row.Coach.LastName,
			&row.Coach.Email, &row.Coach.CreatedAt, &row.Role,
		); err != nil {
			return nil, fmt.Errorf("scan team coach: %w", err)
		}
		assignments = append(assignments, row)
	}
	return assignments, rows.Err()
}

type CreateEvaluationParams struct {
	PlayerID int64
	CoachID  sql.NullInt64
	Skill    string
	Score    int
	Notes    string
}

func (s *Store) CreateEvaluation(ctx context.Context, params CreateEvaluationParams) (Evaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO evaluations (player_id, coach_id, skill, score, notes) VALUES (?, ?, ?, ?, ?)
		 RETURNING id, player_id, coach_id, skill, score, notes, created_at`,
		params.PlayerID, params.CoachID, params.Skill, params.Score, params.Notes,
	)
	return scanEvaluation(row)
}

func (s *Store) ListEvaluationsByPlayer(ctx context.Context, playerID int64) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_id, coach_id, skill, score, notes, created_at
		 FROM evaluations WHERE player_id = ? ORDER BY created_at DESC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations for player %d: %w", playerID, err)
	}
	defer rows.Close()

	var evaluations []Evaluation
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, evaluation)
	}
	return evaluations, rows.Err()
}

func (s *Store) DeleteEvaluation(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete evaluation %d: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(row scanner) (Team, error) {
	var team Team
	if err := row.Scan(&team.ID, &team.Name, &team.Category, &team.Season, &team.CreatedAt); err != nil {
		return Team{}, fmt.Errorf("scan team: %w", err)
	}
	return team, nil
}

func scanPlayer(row scanner) (Player, error) {
	var player Player
	if err := row.Scan(
		&player.ID, &player.TeamID, &player.FirstName, &player.LastName,
		&player.Nickname, &player.JerseyNumber, &player.Role, &player.Phone,
		&player.CreatedAt,
	); err != nil {
		return Player{}, fmt.Errorf("scan player: %w", err)
	}
	return player, nil
}

func scanCoach(row scanner) (Coach, error) {
	var coach Coach
	if err := row.Scan(&coach.ID, &coach.FirstName, &coach.LastName, &coach.Email, &coach.CreatedAt); err != nil {
		return Coach{}, fmt.Errorf("scan coach: %w", err)
	}
	return coach, nil
}

func scanEvaluation(row scanner) (Evaluation, error) {
	var evaluation Evaluation
	if err := row.Scan(
		&evaluation.ID, &evaluation.PlayerID, &evaluation.CoachID,
		&evaluation.Skill, &evaluation.Score, &evaluation.Notes, &evaluation.CreatedAt,
	); err != nil {
		return Evaluation{}, fmt.Errorf("scan evaluation: %w", err)
	}
	return evaluation, nil
}
