// internal/api/live/handlers.go
package live

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
	"github.com/setpointhq/setpoint/internal/match"
)

var registry *match.Registry

func InitHandlers(r *match.Registry) {
	registry = r
}

// StateView is the full snapshot the scouting panel renders after every
// command.
type StateView struct {
	State   match.State     `json:"state"`
	Prompt  match.Prompt    `json:"prompt"`
	OnCourt map[int]int64   `json:"onCourt"`
	Bench   []match.Player  `json:"bench"`
	Stats   match.Stats     `json:"stats"`
	Flows   []match.SetFlow `json:"setFlows"`
}

// HandleLive routes /api/v1/live/{matchID}/{action}.
func HandleLive(w http.ResponseWriter, r *http.Request) {
	matchID, err := apiutil.PathID(r, 4, "match id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	if len(parts) != 6 {
		apiutil.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	action := parts[5]

	if action == "open" {
		handleOpen(w, r, matchID)
		return
	}

	sess, err := registry.Get(matchID)
	if err != nil {
		apiutil.WriteError(w, http.StatusNotFound, "no live session for match")
		return
	}

	if action == "state" {
		if r.Method != http.MethodGet {
			apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, snapshotOf(sess))
		return
	}

	if r.Method != http.MethodPost {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	handleCommand(w, r, sess, matchID, action)
}

func handleOpen(w http.ResponseWriter, r *http.Request, matchID int64) {
	if r.Method != http.MethodPost {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess, err := registry.Open(r.Context(), matchID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			apiutil.WriteError(w, http.StatusNotFound, "match not found")
		case errors.Is(err, match.ErrNoConvocation):
			apiutil.WriteError(w, http.StatusConflict, err.Error())
		default:
			log.Ctx(r.Context()).Error().Err(err).Int64("match_id", matchID).Msg("Failed to open live session")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to open live session")
		}
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, snapshotOf(sess))
}

func handleCommand(w http.ResponseWriter, r *http.Request, sess *match.Session, matchID int64, action string) {
	ctx := r.Context()
	var err error

	switch action {
	case "point":
		var req struct {
			Side   string       `json:"side"`
			Reason match.Reason `json:"reason"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		switch match.Side(req.Side) {
		case match.SideUs:
			_, err = sess.PointScored(ctx, req.Reason)
		case match.SideOpponent:
			_, err = sess.PointConceded(ctx, req.Reason)
		default:
			apiutil.WriteError(w, http.StatusBadRequest, "side must be us or opponent")
			return
		}

	case "lineup":
		var req struct {
			Positions     map[int]int64 `json:"positions"`
			LiberoID      int64         `json:"liberoId"`
			InitialServer string        `json:"initialServer"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = sess.SetLineup(ctx, req.Positions, req.LiberoID, match.Side(req.InitialServer))

	case "substitution":
		var req struct {
			PlayerOut int64 `json:"playerOut"`
			PlayerIn  int64 `json:"playerIn"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = sess.Substitute(ctx, req.PlayerOut, req.PlayerIn)

	case "libero-swap":
		var req struct {
			PlayerOut int64 `json:"playerOut"`
			PlayerIn  int64 `json:"playerIn"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = sess.LiberoSwap(ctx, req.PlayerOut, req.PlayerIn)

	case "timeout":
		var req struct {
			Side string `json:"side"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		side := match.Side(req.Side)
		if side != match.SideUs && side != match.SideOpponent {
			apiutil.WriteError(w, http.StatusBadRequest, "side must be us or opponent")
			return
		}
		_, err = sess.Timeout(ctx, side)

	case "reception":
		var req struct {
			Grade    string `json:"grade"`
			PlayerID int64  `json:"playerId"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = sess.EvaluateReception(ctx, req.Grade, req.PlayerID)

	case "service-choice":
		var req struct {
			Serving bool `json:"serving"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = sess.ChooseService(ctx, req.Serving)

	case "freeball":
		var req struct {
			Direction string `json:"direction"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		switch req.Direction {
		case "sent":
			_, err = sess.FreeballSent(ctx)
		case "received":
			_, err = sess.FreeballReceived(ctx)
		default:
			apiutil.WriteError(w, http.StatusBadRequest, "direction must be sent or received")
			return
		}

	case "request-substitution":
		_, err = sess.RequestSubstitution()

	case "dismiss-substitution":
		sess.DismissSubstitution()

	case "ack":
		var req struct {
			Prompt match.Prompt `json:"prompt"`
		}
		if err = apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		switch req.Prompt {
		case match.PromptSetSummary:
			_, err = sess.AcknowledgeSetSummary(ctx)
		case match.PromptMatchFinished:
			sess.AcknowledgeMatchFinished()
		default:
			apiutil.WriteError(w, http.StatusBadRequest, "prompt must be SET_SUMMARY or MATCH_FINISHED")
			return
		}

	case "undo":
		_, err = sess.Undo(ctx)

	case "save":
		if err = sess.Save(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Int64("match_id", matchID).Msg("Failed to save live session")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to save match")
			return
		}

	case "close":
		if err = registry.Close(ctx, matchID); err != nil {
			log.Ctx(ctx).Error().Err(err).Int64("match_id", matchID).Msg("Failed to close live session")
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to close live session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return

	default:
		apiutil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	if err != nil {
		apiutil.WriteError(w, commandStatus(err), err.Error())
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, snapshotOf(sess))
}

// commandStatus distinguishes rule violations, which the client can surface
// as-is, from unexpected failures.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, match.ErrMatchFinished),
		errors.Is(err, match.ErrSetFinished),
		errors.Is(err, match.ErrSetNotFinished),
		errors.Is(err, match.ErrNoLineup),
		errors.Is(err, match.ErrTimeoutLimit),
		errors.Is(err, match.ErrNothingToUndo),
		errors.Is(err, match.ErrPromptSuppressed):
		return http.StatusConflict
	case errors.Is(err, match.ErrInvalidLineup),
		errors.Is(err, match.ErrPlayerNotOnCourt),
		errors.Is(err, match.ErrPlayerOnCourt),
		errors.Is(err, match.ErrPlayerNotInRoster),
		errors.Is(err, match.ErrLiberoFieldSwap),
		errors.Is(err, match.ErrNotLiberoSwap):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func snapshotOf(sess *match.Session) StateView {
	return StateView{
		State:   sess.State(),
		Prompt:  sess.Prompt(),
		OnCourt: sess.OnCourt(),
		Bench:   sess.BenchPlayers(),
		Stats:   sess.Stats(),
		Flows:   sess.SetFlows(),
	}
}
