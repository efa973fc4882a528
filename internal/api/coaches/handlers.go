// internal/api/coaches/handlers.go
package coaches

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
	"github.com/setpointhq/setpoint/internal/db"
)

type CoachView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type AssignmentView struct {
	Coach CoachView `json:"coach"`
	Role  string    `json:"role"`
}

var store *db.Store

func InitHandlers(s *db.Store) {
	store = s
}

func HandleCoaches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		coaches, err := store.ListCoaches(r.Context())
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list coaches")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to list coaches")
			return
		}
		views := make([]CoachView, len(coaches))
		for i, coach := range coaches {
			views[i] = viewOf(coach)
		}
		apiutil.WriteJSON(w, http.StatusOK, views)

	case http.MethodPost:
		var req struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Email     string `json:"email"`
		}
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.FirstName == "" && req.LastName == "" {
			apiutil.WriteError(w, http.StatusBadRequest, "a name is required")
			return
		}
		coach, err := store.CreateCoach(r.Context(), db.CreateCoachParams{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		})
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create coach")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to create coach")
			return
		}
		apiutil.WriteJSON(w, http.StatusCreated, viewOf(coach))

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func HandleCoachDetail(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, 4, "coach id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		coach, err := store.GetCoach(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, http.StatusNotFound, "coach not found")
				return
			}
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to load coach")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, viewOf(coach))

	case http.MethodDelete:
		if err := store.DeleteCoach(r.Context(), id); err != nil {
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to delete coach")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleAssignments manages which coaches staff which team.
// GET ?team_id= lists them, POST assigns (upserting the role), DELETE removes.
func HandleAssignments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		teamID, err := apiutil.TeamIDFromQuery(r)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		assignments, err := store.ListTeamCoaches(r.Context(), teamID)
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Int64("team_id", teamID).Msg("Failed to list team coaches")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to list team coaches")
			return
		}
		views := make([]AssignmentView, len(assignments))
		for i, a := range assignments {
			views[i] = AssignmentView{Coach: viewOf(a.Coach), Role: a.Role}
		}
		apiutil.WriteJSON(w, http.StatusOK, views)

	case http.MethodPost:
		var req struct {
			TeamID  int64  `json:"teamId"`
			CoachID int64  `json:"coachId"`
			Role    string `json:"role"`
		}
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.TeamID <= 0 || req.CoachID <= 0 {
			apiutil.WriteError(w, http.StatusBadRequest, "teamId and coachId are required")
			return
		}
		if err := store.AssignCoach(r.Context(), db.AssignCoachParams{
			TeamID:  req.TeamID,
			CoachID: req.CoachID,
			Role:    req.Role,
		}); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to assign coach")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to assign coach")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		teamID, err := apiutil.TeamIDFromQuery(r)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		coachID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("coach_id"), "coach_id")
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.UnassignCoach(r.Context(), teamID, coachID); err != nil {
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to unassign coach")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func viewOf(coach db.Coach) CoachView {
	return CoachView{
		ID:        coach.ID,
		FirstName: coach.FirstName,
		LastName:  coach.LastName,
		Email:     coach.Email,
	}
}
