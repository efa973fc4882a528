// internal/api/teams/handlers.go
package teams

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
	"github.com/setpointhq/setpoint/internal/db"
)

// TeamView represents a team for API responses
type TeamView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Season   string `json:"season"`
}

var store *db.Store

func InitHandlers(s *db.Store) {
	store = s
}

func HandleTeams(w http.ResponseWriter, r *http.Request) {
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
	teams, err := store.ListTeams(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list teams")
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}

	views := make([]TeamView, len(teams))
	for i, team := range teams {
		views[i] = viewOf(team)
	}
	apiutil.WriteJSON(w, http.StatusOK, views)
}

type teamRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Season   string `json:"season"`
}

func handleCreate(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	team, err := store.CreateTeam(r.Context(), db.CreateTeamParams{
		Name:     req.Name,
		Category: req.Category,
		Season:   req.Season,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create team")
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to create team")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, viewOf(team))
}

func HandleTeamDetail(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, 4, "team id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		team, err := store.GetTeam(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, http.StatusNotFound, "team not found")
				return
			}
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to load team")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, viewOf(team))

	case http.MethodPut:
		var req teamRequest
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		team, err := store.UpdateTeam(r.Context(), db.UpdateTeamParams{
			ID:       id,
			Name:     req.Name,
			Category: req.Category,
			Season:   req.Season,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, http.StatusNotFound, "team not found")
				return
			}
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to update team")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, viewOf(team))

	case http.MethodDelete:
		if err := store.DeleteTeam(r.Context(), id); err != nil {
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to delete team")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func viewOf(team db.Team) TeamView {
	return TeamView{
		ID:       team.ID,
		Name:     team.Name,
		Category: team.Category,
		Season:   team.Season,
	}
}
