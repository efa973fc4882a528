// internal/api/evaluations/handlers.go
package evaluations

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
	"github.com/setpointhq/setpoint/internal/db"
)

type EvaluationView struct {
	ID        int64     `json:"id"`
	PlayerID  int64     `json:"playerId"`
	CoachID   *int64    `json:"coachId,omitempty"`
	Skill     string    `json:"skill"`
	Score     int       `json:"score"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

var store *db.Store

func InitHandlers(s *db.Store) {
	store = s
}

func HandleEvaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playerID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("player_id"), "player_id")
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		evaluations, err := store.ListEvaluationsByPlayer(r.Context(), playerID)
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Int64("player_id", playerID).Msg("Failed to list evaluations")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to list evaluations")
			return
		}
		views := make([]EvaluationView, len(evaluations))
		for i, evaluation := range evaluations {
			views[i] = viewOf(evaluation)
		}
		apiutil.WriteJSON(w, http.StatusOK, views)

	case http.MethodPost:
		var req struct {
			PlayerID int64  `json:"playerId"`
			CoachID  *int64 `json:"coachId"`
			Skill    string `json:"skill"`
			Score    int    `json:"score"`
			Notes    string `json:"notes"`
		}
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.PlayerID <= 0 {
			apiutil.WriteError(w, http.StatusBadRequest, "playerId is required")
			return
		}
		if req.Skill == "" {
			apiutil.WriteError(w, http.StatusBadRequest, "skill is required")
			return
		}
		if req.Score < 1 || req.Score > 10 {
			apiutil.WriteError(w, http.StatusBadRequest, "score must be between 1 and 10")
			return
		}

		var coachID sql.NullInt64
		if req.CoachID != nil {
			coachID = sql.NullInt64{Int64: *req.CoachID, Valid: true}
		}
		evaluation, err := store.CreateEvaluation(r.Context(), db.CreateEvaluationParams{
			PlayerID: req.PlayerID,
			CoachID:  coachID,
			Skill:    req.Skill,
			Score:    req.Score,
			Notes:    req.Notes,
		})
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create evaluation")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to create evaluation")
			return
		}
		apiutil.WriteJSON(w, http.StatusCreated, viewOf(evaluation))

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func HandleEvaluationDetail(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, 4, "evaluation id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.Method != http.MethodDelete {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := store.DeleteEvaluation(r.Context(), id); err != nil {
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to delete evaluation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func viewOf(evaluation db.Evaluation) EvaluationView {
	view := EvaluationView{
		ID:        evaluation.ID,
		PlayerID:  evaluation.PlayerID,
		Skill:     evaluation.Skill,
		Score:     evaluation.Score,
		Notes:     evaluation.Notes,
		CreatedAt: evaluation.CreatedAt,
	}
	if evaluation.CoachID.Valid {
		id := evaluation.CoachID.Int64
		view.CoachID = &id
	}
	return view
}
