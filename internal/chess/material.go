package chess

// startingCounts is how many of each piece type a side begins with.
var startingCounts = map[PieceType]int{
	Pawn:   8,
	Knight: 2,
	Bishop: 2,
	Rook:   2,
	Queen:  1,
}

// Material returns the total material value on the board for both sides
func (b *Board) Material() MaterialCount {
	var mc MaterialCount
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := b.squares[y][x]
			if p.Empty() {
				continue
			}
			if p.Colour == White {
				mc.White += p.Type.Value()
			} else {
				mc.Black += p.Type.Value()
			}
		}
	}
	return mc
}

// MaterialBalance returns white's material minus black's
func (b *Board) MaterialBalance() int {
	mc := b.Material()
	return mc.White - mc.Black
}

// Captured is the material a side has lost, by piece type.
type Captured struct {
	Score  int               `json:"score"`
	Pieces map[PieceType]int `json:"pieces"`
}

// Captured counts how many pieces of each type colour c has lost relative to
// the starting set. A promotion can leave a side with more of a type than it
// started with; that never counts as a negative loss.
func (b *Board) Captured(c Colour) Captured {
	have := make(map[PieceType]int)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if p := b.squares[y][x]; !p.Empty() && p.Colour == c {
				have[p.Type]++
			}
		}
	}
	out := Captured{Pieces: make(map[PieceType]int)}
	for t, start := range startingCounts {
		lost := start - have[t]
		if lost <= 0 {
			continue
		}
		out.Pieces[t] = lost
		out.Score += lost * t.Value()
	}
	return out
}
