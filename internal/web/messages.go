package web

import (
	"github.com/justinabrahms/clockchess/internal/archive"
	"github.com/justinabrahms/clockchess/internal/chess"
)

// Inbound message types.
const (
	TypeGetUserToken   = "get-user-token"
	TypeJoinGame       = "join-game"
	TypePlayGame       = "play-game"
	TypeSpectateGame   = "spectate-game"
	TypeMove           = "move"
	TypePromote        = "promote"
	TypeResign         = "resign"
	TypeOfferDraw      = "offer-draw"
	TypeAnalyseGame    = "analyse-game"
	TypeGetServerStats = "get-server-stats"
)

// Outbound message types not owned by a match.
const (
	TypeError       = "error"
	TypeUserToken   = "user-token"
	TypeGame        = "game"
	TypeServerStats = "server-stats"
)

// Error texts sent back to clients.
const (
	errInvalidJSON        = "Invalid JSON input."
	errMissingType        = `Missing "type" field.`
	errInvalidGameID      = "Invalid game ID."
	errInvalidToken       = "Invalid token."
	errNotYourTurn        = "Not your turn."
	errIllegalMove        = "Illegal move."
	errGameOver           = "The game is over."
	errAlreadyWaiting     = "You are already waiting for a game."
	errSamePlayer         = "You cannot play against yourself."
	errNoPromotion        = "No promotion is pending."
	errInvalidPromotion   = "Invalid promotion piece."
	errInternal           = "Internal server error."
	errArchiveUnavailable = "Past games are unavailable right now."
)

func missingField(name string) string {
	return `Missing "` + name + `" field.`
}

// request is the union of every inbound message. Fields a type does not use
// are ignored.
type request struct {
	Type      string        `json:"type"`
	GameID    string        `json:"gameID"`
	Token     string        `json:"token"`
	Username  string        `json:"username"`
	From      *chess.Square `json:"from"`
	To        *chess.Square `json:"to"`
	Promotion string        `json:"promotion"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type UserTokenMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// GameMessage carries an archived game for replay.
type GameMessage struct {
	Type string         `json:"type"`
	Game archive.Record `json:"game"`
	SAN  []string       `json:"san"`
	PGN  string         `json:"pgn"`
}

type ServerStatsMessage struct {
	Type                 string `json:"type"`
	Games                int    `json:"games"`
	Players              int    `json:"players"`
	WebSocketConnections int    `json:"webSocketConnections"`
}
