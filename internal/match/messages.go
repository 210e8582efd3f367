package match

import (
	"github.com/justinabrahms/clockchess/internal/chess"
)

// Outbound message types.
const (
	TypeGameState         = "game-state"
	TypeMove              = "move"
	TypeEnd               = "end"
	TypeDrawOffer         = "draw-offer"
	TypeGameReady         = "game-ready"
	TypePromotionRequired = "promotion-required"
)

// Conn is a subscriber's outbound channel. Send must not block; an error
// means the subscriber is gone.
type Conn interface {
	Send(v any) error
	Close() error
}

// Clocks holds remaining time in milliseconds.
type Clocks struct {
	White int64 `json:"white"`
	Black int64 `json:"black"`
}

type Usernames struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// CapturedPieces is what each side has lost so far.
type CapturedPieces struct {
	White chess.Captured `json:"white"`
	Black chess.Captured `json:"black"`
}

// GameState is the full snapshot sent when a connection subscribes.
type GameState struct {
	Type      string              `json:"type"`
	GameID    string              `json:"gameID"`
	Board     chess.BoardState    `json:"board"`
	Moves     []chess.Move        `json:"moves"`
	Turn      chess.Colour        `json:"turn"`
	Player    *chess.Colour       `json:"player"` // nil for spectators
	Usernames Usernames           `json:"usernames"`
	Clocks    Clocks              `json:"clocks"`
	DrawOffer *chess.Colour       `json:"drawOffer"`
	Material  chess.MaterialCount `json:"material"`
	Captured  CapturedPieces      `json:"captured"`
	InCheck   bool                `json:"inCheck"`
}

// MoveMessage is the delta broadcast after every accepted move.
type MoveMessage struct {
	Type       string          `json:"type"`
	GameID     string          `json:"gameID"`
	From       chess.Square    `json:"from"`
	To         chess.Square    `json:"to"`
	Promotion  chess.PieceType `json:"promotion,omitempty"`
	Changed    []chess.Square  `json:"changed"`
	TurnNumber int             `json:"turnNumber"`
	Clocks     Clocks          `json:"clocks"`
}

type EndMessage struct {
	Type   string        `json:"type"`
	GameID string        `json:"gameID"`
	Winner *chess.Colour `json:"winner"`
	Reason string        `json:"reason"`
}

type DrawOfferMessage struct {
	Type   string       `json:"type"`
	GameID string       `json:"gameID"`
	Player chess.Colour `json:"player"`
}

type GameReadyMessage struct {
	Type   string `json:"type"`
	GameID string `json:"gameID"`
}

// PromotionRequiredMessage asks the mover to pick a piece for a pawn that
// reached the last rank.
type PromotionRequiredMessage struct {
	Type   string       `json:"type"`
	GameID string       `json:"gameID"`
	From   chess.Square `json:"from"`
	To     chess.Square `json:"to"`
}
