package db_test

import (
	"context"
	"testing"

	"github.com/setpointhq/setpoint/internal/testutil"
)

func TestMigrationsCreateSchema(t *testing.T) {
	database := testutil.NewTestDB(t)

	tables := []string{
		"teams", "players", "coaches", "team_coaches",
		"evaluations", "matches", "match_players", "match_lineups",
	}
	for _, table := range tables {
		var name string
		err := database.QueryRowContext(context.Background(),
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	database := testutil.NewTestDB(t)

	_, err := database.ExecContext(context.Background(),
		`INSERT INTO players (team_id, first_name, last_name, jersey_number) VALUES (99999, 'A', 'B', 1)`)
	if err == nil {
		t.Error("insert with dangling team_id should violate a foreign key")
	}
}
