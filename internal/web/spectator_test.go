package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinabrahms/clockchess/internal/match"
)

func TestGetActiveGamesHandler(t *testing.T) {
	e := newTestEnv(t)
	_, _, gameID := e.pair(t)

	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(e.service.GetActiveGamesHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Games []match.Summary `json:"games"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Games, 1)
	assert.Equal(t, gameID, resp.Games[0].ID)
	assert.Equal(t, "alice", resp.Games[0].Usernames.White)
	assert.Equal(t, "10:00", resp.Games[0].ClockText.Black)
	assert.Equal(t, 2, resp.Games[0].Subscribers)
}

func TestGetSpectatorGameHandler(t *testing.T) {
	e := newTestEnv(t)
	white, _, gameID := e.pair(t)
	e.move(white, gameID, "white-token", "d2", "d4")

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"live game", gameID, http.StatusOK},
		{"unknown game", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/games/"+tt.id, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()
			http.HandlerFunc(e.service.GetSpectatorGameHandler).ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status != http.StatusOK {
				return
			}
			var resp struct {
				Game match.GameState `json:"game"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, gameID, resp.Game.GameID)
			assert.Len(t, resp.Game.Moves, 1)
			assert.Nil(t, resp.Game.Player)
		})
	}
}

// finishGame plays a short game to resignation so it lands in the archive.
func finishGame(t *testing.T, e *testEnv, white, black string) string {
	t.Helper()
	m, err := e.registry.Create(match.Entrant{Token: white + "-token", Username: white}, match.Entrant{Token: black + "-token", Username: black})
	require.NoError(t, err)
	conn := &fakeConn{}
	e.move(conn, m.ID, white+"-token", "e2", "e4")
	require.Empty(t, messagesOf[ErrorMessage](conn))
	require.NoError(t, m.Resign(white+"-token"))
	return m.ID
}

func TestPastGamesHandler(t *testing.T) {
	e := newTestEnv(t)
	first := finishGame(t, e, "alice", "bob")
	second := finishGame(t, e, "carol", "dave")

	tests := []struct {
		name    string
		query   string
		status  int
		wantIDs []string
	}{
		{"newest first", "", http.StatusOK, []string{second, first}},
		{"limited", "?limit=1", http.StatusOK, []string{second}},
		{"bad limit", "?limit=zero", http.StatusBadRequest, nil},
		{"negative limit", "?limit=-4", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/past-games"+tt.query, nil)
			rr := httptest.NewRecorder()
			http.HandlerFunc(e.service.PastGamesHandler).ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)
			if tt.status != http.StatusOK {
				return
			}
			var resp struct {
				Games []PastGame `json:"games"`
				Total int        `json:"total"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, 2, resp.Total)
			var ids []string
			for _, g := range resp.Games {
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, "dave", resp.Games[0].WinnerUsername)
		})
	}
}

func TestPastGameHandler(t *testing.T) {
	e := newTestEnv(t)
	id := finishGame(t, e, "alice", "bob")

	req := httptest.NewRequest(http.MethodGet, "/api/past-games/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	rr := httptest.NewRecorder()
	http.HandlerFunc(e.service.PastGameHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp GameMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"e4"}, resp.SAN)
	assert.Contains(t, resp.PGN, `[Termination "White resigned."]`)
	assert.Contains(t, resp.PGN, "0-1")

	req = httptest.NewRequest(http.MethodGet, "/api/past-games/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rr = httptest.NewRecorder()
	http.HandlerFunc(e.service.PastGameHandler).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
