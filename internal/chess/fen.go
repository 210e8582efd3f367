package chess

import (
	"fmt"
	"strconv"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN builds a board from Forsyth-Edwards Notation. The halfmove clock
// is not part of Board and is ignored.
func ParseFEN(fen string) (Board, error) {
	b := EmptyBoard()
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return b, fmt.Errorf("invalid FEN %q: expected at least 4 fields", fen)
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("invalid FEN %q: expected 8 ranks", fen)
	}
	for i, rank := range ranks {
		y := 7 - i
		x := 0
		for j := 0; j < len(rank); j++ {
			c := rank[j]
			if c >= '1' && c <= '8' {
				x += int(c - '0')
				continue
			}
			p, ok := pieceFromLetter(c)
			if !ok || x > 7 {
				return b, fmt.Errorf("invalid FEN %q: bad rank %q", fen, rank)
			}
			b.squares[y][x] = p
			x++
		}
		if x != 8 {
			return b, fmt.Errorf("invalid FEN %q: rank %q does not cover 8 files", fen, rank)
		}
	}

	switch fields[1] {
	case "w":
		b.turn = White
	case "b":
		b.turn = Black
	default:
		return b, fmt.Errorf("invalid FEN %q: bad side to move", fen)
	}

	if fields[2] != "-" {
		for _, c := range fields[2] {
			switch c {
			case 'K':
				b.castling[White][Kingside] = true
			case 'Q':
				b.castling[White][Queenside] = true
			case 'k':
				b.castling[Black][Kingside] = true
			case 'q':
				b.castling[Black][Queenside] = true
			default:
				return b, fmt.Errorf("invalid FEN %q: bad castling field", fen)
			}
		}
	}

	if fields[3] != "-" {
		target, err := ParseSquare(fields[3])
		if err != nil {
			return b, fmt.Errorf("invalid FEN %q: %w", fen, err)
		}
		// The target square sits behind the pawn that just advanced.
		switch target.Y {
		case 2:
			b.enPassant[White][target.X] = true
		case 5:
			b.enPassant[Black][target.X] = true
		default:
			return b, fmt.Errorf("invalid FEN %q: bad en passant square", fen)
		}
	}

	if len(fields) >= 6 {
		full, err := strconv.Atoi(fields[5])
		if err != nil || full < 1 {
			return b, fmt.Errorf("invalid FEN %q: bad fullmove number", fen)
		}
		b.ply = (full - 1) * 2
		if b.turn == Black {
			b.ply++
		}
	}

	return b, nil
}

// FEN renders the board. The halfmove clock is always written as 0.
func (b *Board) FEN() string {
	var sb strings.Builder
	for y := 7; y >= 0; y-- {
		empty := 0
		for x := 0; x < 8; x++ {
			p := b.squares[y][x]
			if p.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Letter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if y > 0 {
			sb.WriteByte('/')
		}
	}

	if b.turn == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	rights := ""
	if b.castling[White][Kingside] {
		rights += "K"
	}
	if b.castling[White][Queenside] {
		rights += "Q"
	}
	if b.castling[Black][Kingside] {
		rights += "k"
	}
	if b.castling[Black][Queenside] {
		rights += "q"
	}
	if rights == "" {
		rights = "-"
	}
	sb.WriteString(rights)

	ep := "-"
	for x := 0; x < 8; x++ {
		if b.enPassant[White][x] {
			ep = Sq(x, 2).String()
		}
		if b.enPassant[Black][x] {
			ep = Sq(x, 5).String()
		}
	}
	sb.WriteString(" " + ep)

	fmt.Fprintf(&sb, " 0 %d", b.ply/2+1)
	return sb.String()
}
