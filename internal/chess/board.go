package chess

import (
	"crypto/sha256"
	"encoding/hex"
)

// Castling sides.
const (
	Kingside  = 0
	Queenside = 1
)

// Board is a complete chess position. It is a plain value: assigning a Board
// copies it, which is how move simulation works.
type Board struct {
	squares   [8][8]Piece // [y][x]
	castling  [2][2]bool  // [colour][side]
	enPassant [2][8]bool  // [colour][file], set when that colour just double-pushed
	turn      Colour
	ply       int
}

// EmptyBoard returns a board with no pieces, no castling rights and white to move.
func EmptyBoard() Board {
	return Board{}
}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	b := EmptyBoard()
	back := [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for x := 0; x < 8; x++ {
		b.squares[0][x] = Piece{Type: back[x], Colour: White}
		b.squares[1][x] = Piece{Type: Pawn, Colour: White}
		b.squares[6][x] = Piece{Type: Pawn, Colour: Black}
		b.squares[7][x] = Piece{Type: back[x], Colour: Black}
	}
	b.castling = [2][2]bool{{true, true}, {true, true}}
	return b
}

func (b *Board) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b.squares[sq.Y][sq.X]
}

func (b *Board) Set(sq Square, p Piece) {
	b.squares[sq.Y][sq.X] = p
}

func (b *Board) Clear(sq Square) {
	b.squares[sq.Y][sq.X] = Piece{}
}

func (b *Board) Turn() Colour { return b.turn }

func (b *Board) SetTurn(c Colour) { b.turn = c }

// Ply is the number of half-moves played so far.
func (b *Board) Ply() int { return b.ply }

func (b *Board) SetPly(n int) { b.ply = n }

func (b *Board) CanCastle(c Colour, side int) bool {
	return b.castling[c][side]
}

// EnPassant reports whether colour c's pawn on the given file has just
// advanced two squares and may be captured en passant.
func (b *Board) EnPassant(c Colour, file int) bool {
	return b.enPassant[c][file]
}

func (b *Board) kingSquare(c Colour) (Square, bool) {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if b.squares[y][x].Is(c, King) {
				return Sq(x, y), true
			}
		}
	}
	return Square{}, false
}

// BoardState is the wire snapshot of a position.
type BoardState struct {
	Board            string  `json:"board"`
	WhiteCastleShort bool    `json:"whiteCastleShort"`
	WhiteCastleLong  bool    `json:"whiteCastleLong"`
	BlackCastleShort bool    `json:"blackCastleShort"`
	BlackCastleLong  bool    `json:"blackCastleLong"`
	WhiteEnPassant   [8]bool `json:"whiteEnPassant"`
	BlackEnPassant   [8]bool `json:"blackEnPassant"`
	Turn             Colour  `json:"turn"`
	TurnNumber       int     `json:"turnNumber"`
}

// Serialise produces the snapshot sent to clients. The board string holds
// 64 piece letters, rank 1 first, file a first within each rank.
func (b *Board) Serialise() BoardState {
	cells := make([]byte, 0, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			cells = append(cells, b.squares[y][x].Letter())
		}
	}
	return BoardState{
		Board:            string(cells),
		WhiteCastleShort: b.castling[White][Kingside],
		WhiteCastleLong:  b.castling[White][Queenside],
		BlackCastleShort: b.castling[Black][Kingside],
		BlackCastleLong:  b.castling[Black][Queenside],
		WhiteEnPassant:   b.enPassant[White],
		BlackEnPassant:   b.enPassant[Black],
		Turn:             b.turn,
		TurnNumber:       b.ply,
	}
}

// Deserialise rebuilds a board from a snapshot.
func Deserialise(s BoardState) (Board, error) {
	b := EmptyBoard()
	if len(s.Board) != 64 {
		return b, errBadSnapshot
	}
	for i := 0; i < 64; i++ {
		if s.Board[i] == ' ' {
			continue
		}
		p, ok := pieceFromLetter(s.Board[i])
		if !ok {
			return b, errBadSnapshot
		}
		b.squares[i/8][i%8] = p
	}
	b.castling[White] = [2]bool{s.WhiteCastleShort, s.WhiteCastleLong}
	b.castling[Black] = [2]bool{s.BlackCastleShort, s.BlackCastleLong}
	b.enPassant[White] = s.WhiteEnPassant
	b.enPassant[Black] = s.BlackEnPassant
	b.turn = s.Turn
	b.ply = s.TurnNumber
	return b, nil
}

// Fingerprint hashes everything that makes two positions the same for
// repetition purposes: placement, castling rights, en passant flags and the
// side to move. The ply counter is excluded.
func (b *Board) Fingerprint() string {
	raw := make([]byte, 0, 64+4+16+1)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			raw = append(raw, b.squares[y][x].Letter())
		}
	}
	for c := range b.castling {
		for _, ok := range b.castling[c] {
			raw = append(raw, flagByte(ok))
		}
	}
	for c := range b.enPassant {
		for _, ok := range b.enPassant[c] {
			raw = append(raw, flagByte(ok))
		}
	}
	raw = append(raw, byte(b.turn))
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func flagByte(ok bool) byte {
	if ok {
		return '1'
	}
	return '0'
}
