package web

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/justinabrahms/clockchess/internal/match"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetActiveGamesHandler lists the live games available for spectating,
// oldest first.
func (s *Service) GetActiveGamesHandler(w http.ResponseWriter, r *http.Request) {
	live := s.registry.List()
	games := make([]match.Summary, 0, len(live))
	for _, m := range live {
		games = append(games, m.Summary())
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].StartedAt.Equal(games[j].StartedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].StartedAt.Before(games[j].StartedAt)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"total": len(games),
	})
}

// GetSpectatorGameHandler returns the current snapshot of a live game.
func (s *Service) GetSpectatorGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	m, ok := s.registry.Get(gameID)
	if !ok {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game":    m.State(),
		"summary": m.Summary(),
	})
}
