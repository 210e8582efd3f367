package chess

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrPromotionRequired = errors.New("promotion piece required")
	ErrInvalidPromotion  = errors.New("invalid promotion piece")

	errBadSnapshot = errors.New("malformed board snapshot")
)

// Move is one half-move as recorded in a game's history.
type Move struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Promotion PieceType `json:"promotion,omitempty"`
	Piece     Piece     `json:"piece"`
}

// UCI renders the move in long algebraic form, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += string(pieceLetters[m.Promotion])
	}
	return s
}

func (m Move) String() string {
	return m.UCI()
}

// NeedsPromotion reports whether from→to moves a pawn onto its last rank.
func (b *Board) NeedsPromotion(from, to Square) bool {
	p := b.PieceAt(from)
	return p.Type == Pawn && to.Y == homeRank(p.Colour.Other())
}

// IsCapture reports whether from→to takes a piece, en passant included.
func (b *Board) IsCapture(from, to Square) bool {
	if !b.PieceAt(to).Empty() {
		return true
	}
	return b.PieceAt(from).Type == Pawn && from.X != to.X
}

// Move plays from→to for the side to move and returns the squares whose
// contents changed. A rejected move leaves the board untouched.
func (b *Board) Move(from, to Square, promotion PieceType) ([]Square, error) {
	if !b.IsLegal(from, to) {
		return nil, fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	if b.NeedsPromotion(from, to) {
		if promotion == NoPieceType {
			return nil, ErrPromotionRequired
		}
		if !promotion.CanPromoteTo() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPromotion, promotion)
		}
	} else {
		promotion = NoPieceType
	}
	return b.apply(from, to, promotion), nil
}

// apply performs the move without any legality checks.
func (b *Board) apply(from, to Square, promotion PieceType) []Square {
	p := b.PieceAt(from)
	captured := b.PieceAt(to)
	changed := []Square{from, to}

	b.Clear(from)
	b.Set(to, p)

	if p.Type == King {
		rank := homeRank(p.Colour)
		if from == Sq(4, rank) && to.Y == rank {
			switch to.X {
			case 6:
				changed = append(changed, b.relocate(Sq(7, rank), Sq(5, rank))...)
			case 2:
				changed = append(changed, b.relocate(Sq(0, rank), Sq(3, rank))...)
			}
		}
		b.castling[p.Colour] = [2]bool{}
	}
	b.revokeCorner(from)
	b.revokeCorner(to)

	if p.Type == Pawn && from.X != to.X && captured.Empty() {
		victim := Sq(to.X, from.Y)
		b.Clear(victim)
		changed = append(changed, victim)
	}

	b.enPassant = [2][8]bool{}
	if p.Type == Pawn && (to.Y-from.Y == 2 || from.Y-to.Y == 2) {
		b.enPassant[p.Colour][from.X] = true
	}

	if promotion != NoPieceType {
		b.Set(to, Piece{Type: promotion, Colour: p.Colour})
	}

	b.turn = b.turn.Other()
	b.ply++
	return changed
}

func (b *Board) relocate(from, to Square) []Square {
	b.Set(to, b.PieceAt(from))
	b.Clear(from)
	return []Square{from, to}
}

// revokeCorner clears the castling right tied to a rook's home corner once
// anything moves from or onto it.
func (b *Board) revokeCorner(sq Square) {
	switch sq {
	case Sq(0, 0):
		b.castling[White][Queenside] = false
	case Sq(7, 0):
		b.castling[White][Kingside] = false
	case Sq(0, 7):
		b.castling[Black][Queenside] = false
	case Sq(7, 7):
		b.castling[Black][Kingside] = false
	}
}
