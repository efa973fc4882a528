// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/setpointhq/setpoint/internal/api"
	"github.com/setpointhq/setpoint/internal/api/coaches"
	"github.com/setpointhq/setpoint/internal/api/evaluations"
	"github.com/setpointhq/setpoint/internal/api/live"
	"github.com/setpointhq/setpoint/internal/api/matches"
	"github.com/setpointhq/setpoint/internal/api/players"
	"github.com/setpointhq/setpoint/internal/api/teams"
	"github.com/setpointhq/setpoint/internal/config"
	"github.com/setpointhq/setpoint/internal/db"
	"github.com/setpointhq/setpoint/internal/match"
	"github.com/setpointhq/setpoint/internal/ratelimit"
)

func newServer(cfg *config.Config, database *db.DB, registry *match.Registry) *http.Server {
	router := http.NewServeMux()

	middleware := []api.Middleware{
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	}
	if cfg.Features.EnableRateLimit {
		limiter := ratelimit.New(ratelimit.DefaultConfig())
		middleware = append([]api.Middleware{api.WithWriteRateLimit(limiter)}, middleware...)
	}
	handler := api.ChainMiddleware(router, middleware...)

	registerRoutes(router, database, registry)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, database *db.DB, registry *match.Registry) {
	store := db.NewStore(database.DB)
	teams.InitHandlers(store)
	players.InitHandlers(store)
	coaches.InitHandlers(store)
	evaluations.InitHandlers(store)
	matches.InitHandlers(store)
	live.InitHandlers(registry)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Team routes
	mux.HandleFunc("/api/v1/teams", teams.HandleTeams)
	mux.HandleFunc("/api/v1/teams/", teams.HandleTeamDetail)

	// Player routes
	mux.HandleFunc("/api/v1/players", players.HandlePlayers)
	mux.HandleFunc("/api/v1/players/", players.HandlePlayerDetail)

	// Coach routes
	mux.HandleFunc("/api/v1/coaches", coaches.HandleCoaches)
	mux.HandleFunc("/api/v1/coaches/assignments", coaches.HandleAssignments)
	mux.HandleFunc("/api/v1/coaches/", coaches.HandleCoachDetail)

	// Evaluation routes
	mux.HandleFunc("/api/v1/evaluations", evaluations.HandleEvaluations)
	mux.HandleFunc("/api/v1/evaluations/", evaluations.HandleEvaluationDetail)

	// Match routes, including convocation and lineup subresources
	mux.HandleFunc("/api/v1/matches", matches.HandleMatches)
	mux.HandleFunc("/api/v1/matches/", matches.HandleMatchSubtree)

	// Live scouting routes
	mux.HandleFunc("/api/v1/live/", live.HandleLive)
}
