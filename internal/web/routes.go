package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// CORS allows the static front end to call the API from another origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Router wires every HTTP and WebSocket route. A non-empty staticDir is
// served at the root.
func (s *Service) Router(staticDir string) *mux.Router {
	router := mux.NewRouter()
	router.Use(CORS)

	router.HandleFunc("/ws", s.WebSocketHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stats", s.StatsHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/games", s.GetActiveGamesHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/games/{id}", s.GetSpectatorGameHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/past-games", s.PastGamesHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/past-games/{id}", s.PastGameHandler).Methods(http.MethodGet, http.MethodOptions)

	if staticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
	return router
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// StatsHandler reports live counts plus the number of archived games.
func (s *Service) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.stats()
	resp := map[string]interface{}{
		"games":                stats.Games,
		"players":              stats.Players,
		"webSocketConnections": stats.WebSocketConnections,
		"waiting":              s.lobby.Waiting(),
	}

	if a := s.registry.Archive(); a != nil {
		ctx, cancel := s.archiveContext()
		defer cancel()
		n, err := a.Count(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to count past games")
		} else {
			resp["pastGames"] = n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
