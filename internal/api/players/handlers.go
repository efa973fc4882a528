// internal/api/players/handlers.go
package players

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
	"github.com/setpointhq/setpoint/internal/db"
)

// defaultPhoneRegion is assumed when a phone number lacks a country prefix.
const defaultPhoneRegion = "US"

// PlayerView represents a player for API responses
type PlayerView struct {
	ID           int64  `json:"id"`
	TeamID       int64  `json:"teamId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Nickname     string `json:"nickname"`
	DisplayName  string `json:"displayName"`
	JerseyNumber int    `json:"jerseyNumber"`
	Role         string `json:"role"`
	Phone        string `json:"phone,omitempty"`
}

var store *db.Store

func InitHandlers(s *db.Store) {
	store = s
}

func HandlePlayers(w http.ResponseWriter, r *http.Request) {
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

	players, err := store.ListPlayersByTeam(r.Context(), teamID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("team_id", teamID).Msg("Failed to list players")
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to list players")
		return
	}

	views := make([]PlayerView, len(players))
	for i, player := range players {
		views[i] = viewOf(player)
	}
	apiutil.WriteJSON(w, http.StatusOK, views)
}

type playerRequest struct {
	TeamID       int64  `json:"teamId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Nickname     string `json:"nickname"`
	JerseyNumber int    `json:"jerseyNumber"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
}

func (req *playerRequest) validate() error {
	if req.FirstName == "" && req.LastName == "" && req.Nickname == "" {
		return apiutil.FieldError{Field: "name", Reason: "is required"}
	}
	if req.JerseyNumber < 0 || req.JerseyNumber > 99 {
		return apiutil.FieldError{Field: "jerseyNumber", Reason: "must be between 0 and 99"}
	}
	return nil
}

func handleCreate(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TeamID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "teamId is required")
		return
	}
	if err := req.validate(); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	player, err := store.CreatePlayer(r.Context(), db.CreatePlayerParams{
		TeamID:       req.TeamID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Nickname:     req.Nickname,
		JerseyNumber: req.JerseyNumber,
		Role:         req.Role,
		Phone:        phone,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create player")
		apiutil.WriteError(w, http.StatusInternalServerError, "failed to create player")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, viewOf(player))
}

func HandlePlayerDetail(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, 4, "player id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		player, err := store.GetPlayer(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, http.StatusNotFound, "player not found")
				return
			}
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to load player")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, viewOf(player))

	case http.MethodPut:
		var req playerRequest
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := req.validate(); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		phone, err := normalizePhone(req.Phone)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		player, err := store.UpdatePlayer(r.Context(), db.UpdatePlayerParams{
			ID:           id,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Nickname:     req.Nickname,
			JerseyNumber: req.JerseyNumber,
			Role:         req.Role,
			Phone:        phone,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apiutil.WriteError(w, http.StatusNotFound, "player not found")
				return
			}
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to update player")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, viewOf(player))

	case http.MethodDelete:
		if err := store.DeletePlayer(r.Context(), id); err != nil {
			apiutil.WriteError(w, http.StatusInternalServerError, "failed to delete player")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// normalizePhone stores phone numbers in E.164 so the same contact never
// appears under two spellings. Empty input maps to NULL.
func normalizePhone(raw string) (sql.NullString, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullString{}, nil
	}
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("invalid phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return sql.NullString{}, errors.New("invalid phone number")
	}
	return sql.NullString{
		String: phonenumbers.Format(parsed, phonenumbers.E164),
		Valid:  true,
	}, nil
}

func viewOf(player db.Player) PlayerView {
	return PlayerView{
		ID:           player.ID,
		TeamID:       player.TeamID,
		FirstName:    player.FirstName,
		LastName:     player.LastName,
		Nickname:     player.Nickname,
		DisplayName:  player.DisplayName(),
		JerseyNumber: player.JerseyNumber,
		Role:         player.Role,
		Phone:        player.Phone.String,
	}
}
