package chess

import (
	"fmt"
	"strings"
)

type Colour int8

const (
	White Colour = iota
	Black
)

// Other returns the opposing colour.
func (c Colour) Other() Colour {
	return 1 - c
}

func (c Colour) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Title is the capitalised colour name used in result messages.
func (c Colour) Title() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

func (c Colour) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Colour) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "white":
		*c = White
	case "black":
		*c = Black
	default:
		return fmt.Errorf("unknown colour %q", text)
	}
	return nil
}

type PieceType int8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var pieceTypeNames = [...]string{"", "king", "queen", "rook", "bishop", "knight", "pawn"}

func (t PieceType) String() string {
	if t < 0 || int(t) >= len(pieceTypeNames) {
		return ""
	}
	return pieceTypeNames[t]
}

func (t PieceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PieceType) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range pieceTypeNames {
		if name == s {
			*t = PieceType(i)
			return nil
		}
	}
	if p := ParsePromotion(s); p != NoPieceType {
		*t = p
		return nil
	}
	return fmt.Errorf("unknown piece type %q", text)
}

// StandardPieceValues maps piece types to their standard values
var StandardPieceValues = map[PieceType]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   0, // King has no material value
}

func (t PieceType) Value() int {
	return StandardPieceValues[t]
}

// CanPromoteTo reports whether a pawn may become this piece type.
func (t PieceType) CanPromoteTo() bool {
	return t == Queen || t == Rook || t == Bishop || t == Knight
}

// Piece is a typed, coloured chessman. The zero value is an empty square.
type Piece struct {
	Type   PieceType `json:"type"`
	Colour Colour    `json:"colour"`
}

func (p Piece) Empty() bool {
	return p.Type == NoPieceType
}

func (p Piece) Is(c Colour, t PieceType) bool {
	return p.Type == t && p.Colour == c
}

const pieceLetters = " kqrbnp"

// Letter returns the single-byte code used in board snapshots: uppercase for
// white, lowercase for black, a space for an empty square.
func (p Piece) Letter() byte {
	l := pieceLetters[p.Type]
	if p.Colour == White && l != ' ' {
		l -= 'a' - 'A'
	}
	return l
}

func pieceFromLetter(l byte) (Piece, bool) {
	colour := Black
	if l >= 'A' && l <= 'Z' {
		colour = White
		l += 'a' - 'A'
	}
	i := strings.IndexByte(pieceLetters, l)
	if i <= 0 {
		return Piece{}, false
	}
	return Piece{Type: PieceType(i), Colour: colour}, true
}

// ParsePromotion reads a promotion choice, either a single letter or a full
// piece name. Unknown input yields NoPieceType.
func ParsePromotion(p string) PieceType {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "q", "queen":
		return Queen
	case "r", "rook":
		return Rook
	case "b", "bishop":
		return Bishop
	case "n", "knight":
		return Knight
	default:
		return NoPieceType
	}
}

// MaterialCount represents the material count for both sides
type MaterialCount struct {
	White int `json:"white"`
	Black int `json:"black"`
}
