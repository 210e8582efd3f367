package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/justinabrahms/clockchess/internal/archive"
	"github.com/justinabrahms/clockchess/internal/chess"
)

const (
	defaultPastGames = 50
	maxPastGames     = 500
)

// PastGame is an archived game as listed over HTTP.
type PastGame struct {
	archive.Record
	WinnerUsername string `json:"winnerUsername,omitempty"`
}

func pastGame(rec archive.Record) PastGame {
	g := PastGame{Record: rec}
	if rec.Winner != nil {
		g.WinnerUsername = rec.WhiteUsername
		if *rec.Winner == chess.Black {
			g.WinnerUsername = rec.BlackUsername
		}
	}
	return g
}

// PastGamesHandler lists finished games, newest first. The optional limit
// query parameter caps the result.
func (s *Service) PastGamesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultPastGames
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxPastGames)
	}

	a := s.registry.Archive()
	if a == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": []PastGame{}, "total": 0})
		return
	}

	ctx, cancel := s.archiveContext()
	defer cancel()
	recs, err := archive.Recent(ctx, a, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list past games")
		http.Error(w, "Failed to list past games", http.StatusInternalServerError)
		return
	}
	total, err := a.Count(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count past games")
		http.Error(w, "Failed to list past games", http.StatusInternalServerError)
		return
	}

	games := make([]PastGame, 0, len(recs))
	for _, rec := range recs {
		games = append(games, pastGame(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"total": total,
	})
}

// PastGameHandler returns one archived game with its SAN and PGN.
func (s *Service) PastGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	a := s.registry.Archive()
	if a == nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	ctx, cancel := s.archiveContext()
	defer cancel()
	rec, err := archive.Find(ctx, a, gameID)
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("gameID", gameID).Msg("Failed to read archive")
		http.Error(w, "Failed to read game", http.StatusInternalServerError)
		return
	}

	san, err := chess.SAN(rec.Moves)
	if err != nil {
		s.logger.Error().Err(err).Str("gameID", gameID).Msg("Archived game does not replay")
		http.Error(w, "Failed to read game", http.StatusInternalServerError)
		return
	}
	pgn, err := rec.PGN()
	if err != nil {
		s.logger.Error().Err(err).Str("gameID", gameID).Msg("Failed to render PGN")
		http.Error(w, "Failed to read game", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GameMessage{Type: TypeGame, Game: rec, SAN: san, PGN: pgn})
}
