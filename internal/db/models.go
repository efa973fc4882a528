// internal/db/models.go
package db

import (
	"database/sql"
	"time"

	"github.com/setpointhq/setpoint/internal/match"
)

type Team struct {
	ID        int64
	Name      string
	Category  string
	Season    string
	CreatedAt time.Time
}

type Player struct {
	ID           int64
	TeamID       int64
	FirstName    string
	LastName     string
	Nickname     string
	JerseyNumber int
	Role         string
	Phone        sql.NullString
	CreatedAt    time.Time
}

// DisplayName prefers the nickname the scouting panel shows.
func (p Player) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.FirstName + " " + p.LastName
}

// AsRosterPlayer converts a stored player into the scoring core's view.
func (p Player) AsRosterPlayer() match.Player {
	return match.Player{
		ID:        p.ID,
		Number:    p.JerseyNumber,
		Name:      p.DisplayName(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
	}
}

type Coach struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

type Evaluation struct {
	ID        int64
	PlayerID  int64
	CoachID   sql.NullInt64
	Skill     string
	Score     int
	Notes     string
	CreatedAt time.Time
}

type Match struct {
	ID          int64
	TeamID      int64
	Opponent    string
	Location    string
	ScheduledAt sql.NullTime
	OurSide     string
	Status      string
	Result      string
	Actions     []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MatchLineup struct {
	MatchID       int64
	SetNumber     int
	Positions     []byte
	LiberoID      sql.NullInt64
	InitialServer string
}
