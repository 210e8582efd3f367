package chess

type offset struct{ dx, dy int }

var (
	knightOffsets = []offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = []offset{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightRays  = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalRays  = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	queenRays     = append(append([]offset{}, straightRays...), diagonalRays...)
)

func homeRank(c Colour) int {
	if c == Black {
		return 7
	}
	return 0
}

func pawnDirection(c Colour) int {
	if c == Black {
		return -1
	}
	return 1
}

// PossibleMoves lists destination squares for the piece on from. With
// checkCheck false the list is pseudo-legal: it ignores king safety and
// castling. With checkCheck true castling is included and every destination
// that would leave the mover's king attacked is removed.
func (b *Board) PossibleMoves(from Square, checkCheck bool) []Square {
	p := b.PieceAt(from)
	if p.Empty() {
		return nil
	}

	var moves []Square
	switch p.Type {
	case Pawn:
		moves = b.pawnMoves(from, p.Colour)
	case Knight:
		moves = b.stepMoves(from, p.Colour, knightOffsets)
	case King:
		moves = b.stepMoves(from, p.Colour, kingOffsets)
		if checkCheck {
			moves = append(moves, b.castlingMoves(from, p.Colour)...)
		}
	case Bishop:
		moves = b.rayMoves(from, p.Colour, diagonalRays)
	case Rook:
		moves = b.rayMoves(from, p.Colour, straightRays)
	case Queen:
		moves = b.rayMoves(from, p.Colour, queenRays)
	}

	if !checkCheck {
		return moves
	}

	legal := moves[:0]
	for _, to := range moves {
		if !b.exposesKing(from, to) {
			legal = append(legal, to)
		}
	}
	return legal
}

func (b *Board) stepMoves(from Square, c Colour, offsets []offset) []Square {
	var moves []Square
	for _, o := range offsets {
		to := from.offset(o.dx, o.dy)
		if !to.Valid() {
			continue
		}
		if target := b.PieceAt(to); target.Empty() || target.Colour != c {
			moves = append(moves, to)
		}
	}
	return moves
}

func (b *Board) rayMoves(from Square, c Colour, rays []offset) []Square {
	var moves []Square
	for _, o := range rays {
		for to := from.offset(o.dx, o.dy); to.Valid(); to = to.offset(o.dx, o.dy) {
			target := b.PieceAt(to)
			if target.Empty() {
				moves = append(moves, to)
				continue
			}
			if target.Colour != c {
				moves = append(moves, to)
			}
			break
		}
	}
	return moves
}

func (b *Board) pawnMoves(from Square, c Colour) []Square {
	var moves []Square
	dir := pawnDirection(c)

	one := from.offset(0, dir)
	if one.Valid() && b.PieceAt(one).Empty() {
		moves = append(moves, one)
		two := from.offset(0, 2*dir)
		if from.Y == homeRank(c)+dir && b.PieceAt(two).Empty() {
			moves = append(moves, two)
		}
	}

	for _, dx := range []int{-1, 1} {
		to := from.offset(dx, dir)
		if !to.Valid() {
			continue
		}
		if target := b.PieceAt(to); !target.Empty() && target.Colour != c {
			moves = append(moves, to)
		}
	}

	// En passant: the capturing pawn stands on its fifth rank next to an enemy
	// pawn that advanced two squares on the previous half-move.
	if from.Y == homeRank(c.Other())-3*dir {
		for _, dx := range []int{-1, 1} {
			beside := from.offset(dx, 0)
			if !beside.Valid() || !b.enPassant[c.Other()][beside.X] {
				continue
			}
			if !b.PieceAt(beside).Is(c.Other(), Pawn) {
				continue
			}
			if to := beside.offset(0, dir); b.PieceAt(to).Empty() {
				moves = append(moves, to)
			}
		}
	}

	return moves
}

func (b *Board) castlingMoves(from Square, c Colour) []Square {
	rank := homeRank(c)
	if from != Sq(4, rank) || b.InCheck(c) {
		return nil
	}

	var moves []Square
	if b.castling[c][Kingside] &&
		b.PieceAt(Sq(7, rank)).Is(c, Rook) &&
		b.PieceAt(Sq(5, rank)).Empty() &&
		b.PieceAt(Sq(6, rank)).Empty() &&
		!b.exposesKing(from, Sq(5, rank)) &&
		!b.exposesKing(from, Sq(6, rank)) {
		moves = append(moves, Sq(6, rank))
	}
	if b.castling[c][Queenside] &&
		b.PieceAt(Sq(0, rank)).Is(c, Rook) &&
		b.PieceAt(Sq(1, rank)).Empty() &&
		b.PieceAt(Sq(2, rank)).Empty() &&
		b.PieceAt(Sq(3, rank)).Empty() &&
		!b.exposesKing(from, Sq(3, rank)) &&
		!b.exposesKing(from, Sq(2, rank)) {
		moves = append(moves, Sq(2, rank))
	}
	return moves
}

// exposesKing plays from→to on a copy and reports whether the mover's king is
// then attacked.
func (b *Board) exposesKing(from, to Square) bool {
	c := b.PieceAt(from).Colour
	sim := *b
	sim.apply(from, to, NoPieceType)
	return sim.InCheck(c)
}

// InCheck reports whether any enemy piece attacks colour c's king.
func (b *Board) InCheck(c Colour) bool {
	king, ok := b.kingSquare(c)
	if !ok {
		return false
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := b.squares[y][x]
			if p.Empty() || p.Colour == c {
				continue
			}
			for _, to := range b.PossibleMoves(Sq(x, y), false) {
				if to == king {
					return true
				}
			}
		}
	}
	return false
}

func (b *Board) WhiteInCheck() bool { return b.InCheck(White) }

func (b *Board) BlackInCheck() bool { return b.InCheck(Black) }

// IsLegal reports whether the side to move may play from→to.
func (b *Board) IsLegal(from, to Square) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	p := b.PieceAt(from)
	if p.Empty() || p.Colour != b.turn {
		return false
	}
	for _, sq := range b.PossibleMoves(from, true) {
		if sq == to {
			return true
		}
	}
	return false
}

// LegalMoves lists every legal move for the side to move. Promotions appear
// once, without a chosen piece.
func (b *Board) LegalMoves() []Move {
	var moves []Move
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := b.squares[y][x]
			if p.Empty() || p.Colour != b.turn {
				continue
			}
			from := Sq(x, y)
			for _, to := range b.PossibleMoves(from, true) {
				moves = append(moves, Move{From: from, To: to, Piece: p})
			}
		}
	}
	return moves
}

func (b *Board) hasLegalMove() bool {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := b.squares[y][x]
			if p.Empty() || p.Colour != b.turn {
				continue
			}
			if len(b.PossibleMoves(Sq(x, y), true)) > 0 {
				return true
			}
		}
	}
	return false
}

// Ended reports whether the side to move has no legal move.
func (b *Board) Ended() bool {
	return !b.hasLegalMove()
}

func (b *Board) Checkmate() bool {
	return b.InCheck(b.turn) && b.Ended()
}

func (b *Board) Stalemate() bool {
	return !b.InCheck(b.turn) && b.Ended()
}
