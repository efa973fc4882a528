// internal/api/matches/handlers.go
package matches

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
	"github.com/setpointhq/setpoint/internal/db"
	"github.com/setpointhq/setpoint/internal/match"
)

type MatchView struct {
	ID          int64      `json:"id"`
	TeamID      int64      `json:"teamId"`
	Opponent    string     `json:"opponent"`
	Location    string     `json:"location,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	OurSide     string     `json:"ourSide"`
	Status      string     `json:"status"`
	Result      string     `json:"result,omitempty"`
}

var store *db.Store

func InitHandlers(s *db.Store) {
	store = s
}

func HandleMatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		handleList(w, r)
	case http.MethodPost:
		handleCreate(w, r)
	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func handleList(w http.ResponseWriter, r *http.Request) {
	teamID, err := apiutil.TeamIDFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	matches, err := store.ListMatchesByTeam(r.Context(), teamID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("team_id", teamID).Msg("Failed to list matches")
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	views := make([]MatchView, len(matches))
	for i, m := range matches {
		views[i] = viewOf(m)
	}
	apiutil.WriteJSON(w, http.StatusOK, views)
}

func handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID      int64  `json:"teamId"`
		Opponent    string `json:"opponent"`
		Location    string `json:"location"`
		ScheduledAt string `json:"scheduledAt"`
		OurSide     string `json:"ourSide"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TeamID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "teamId is required")
		return
	}
	if req.Opponent == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "opponent is required")
		return
	}

	var scheduledAt sql.NullTime
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "scheduledAt must be RFC 3339")
			return
		}
		scheduledAt = sql.NullTime{Time: t, Valid: true}
	}

	m, err := store.CreateMatch(r.Context(), db.CreateMatchParams{
		TeamID:      req.TeamID,
		Opponent:    req.Opponent,
		Location:    req.Location,
		ScheduledAt: scheduledAt,
		OurSide:     req.OurSide,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create match")
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to create match")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, viewOf(m))
}

// HandleMatchSubtree routes /api/v1/matches/{id} and its convocation and
// lineup subresources.
func HandleMatchSubtree(w http.ResponseWriter, r *http.Request) {
	matchID, err := apiutil.PathID(r, 4, "match id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	if len(parts) == 5 {
		handleDetail(w, r, matchID)
		return
	}
	if len(parts) == 6 {
		switch parts[5] {
		case "convocation":
			handleConvocation(w, r, matchID)
			return
		case "lineup":
			handleLineup(w, r, matchID)
			return
		}
	}
	apiutil.WriteError(w, http.StatusNotFound, "not found")
}

func handleDetail(w http.ResponseWriter, r *http.Request, matchID int64) {
	switch r.Method {
	case http.MethodGet:
		m, err := store.GetMatch(r.Context(), matchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, http.StatusNotFound, "match not found")
				return
			}
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to load match")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, viewOf(m))

	case http.MethodDelete:
		if err := store.DeleteMatch(r.Context(), matchID); err != nil {
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to delete match")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func handleConvocation(w http.ResponseWriter, r *http.Request, matchID int64) {
	switch r.Method {
	case http.MethodGet:
		roster, err := store.GetAvailablePlayers(r.Context(), matchID)
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Int64("match_id", matchID).Msg("Failed to load convocation")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to load convocation")
			return
		}
		if roster == nil {
			roster = []match.Player{}
		}
		apiutil.WriteJSON(w, http.StatusOK, roster)

	case http.MethodPut:
		var req struct {
			PlayerIDs []int64 `json:"playerIds"`
		}
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.SetConvocation(r.Context(), matchID, req.PlayerIDs); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Int64("match_id", matchID).Msg("Failed to set convocation")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to set convocation")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func handleLineup(w http.ResponseWriter, r *http.Request, matchID int64) {
	setNumber := 1
	if raw := r.URL.Query().Get("set"); raw != "" {
		n, err := apiutil.ParsePositiveInt64Field(raw, "set")
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		setNumber = int(n)
	}

	switch r.Method {
	case http.MethodGet:
		lineup, err := store.GetLineupForSet(r.Context(), matchID, setNumber)
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Int64("match_id", matchID).Msg("Failed to load lineup")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to load lineup")
			return
		}
		if lineup == nil {
			apiutil.WriteError(w, http.StatusNotFound, "no lineup recorded for this set")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, lineup)

	case http.MethodPut:
		var req struct {
			Positions     map[int]int64 `json:"positions"`
			LiberoID      int64         `json:"liberoId"`
			InitialServer string        `json:"initialServer"`
		}
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Positions) != 6 {
			apiutil.WriteError(w, http.StatusBadRequest, "positions must fill slots 1 through 6")
			return
		}
		var liberoID sql.NullInt64
		if req.LiberoID > 0 {
			liberoID = sql.NullInt64{Int64: req.LiberoID, Valid: true}
		}
		if err := store.UpsertLineup(r.Context(), db.UpsertLineupParams{
			MatchID:       matchID,
			SetNumber:     setNumber,
			Positions:     req.Positions,
			LiberoID:      liberoID,
			InitialServer: req.InitialServer,
		}); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Int64("match_id", matchID).Msg("Failed to store lineup")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to store lineup")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func viewOf(m db.Match) MatchView {
	view := MatchView{
		ID:       m.ID,
		TeamID:   m.TeamID,
		Opponent: m.Opponent,
		Location: m.Location,
		OurSide:  m.OurSide,
		Status:   m.Status,
		Result:   m.Result,
	}
	if m.ScheduledAt.Valid {
		t := m.ScheduledAt.Time
		view.ScheduledAt = &t
	}
	return view
}
