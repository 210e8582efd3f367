package chess

import (
	"errors"
	"sort"
	"testing"
)

func mustFEN(t *testing.T, fen string) Board {
	t.Helper()
	b, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return b
}

func play(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, m := range moves {
		promo := NoPieceType
		if len(m) == 5 {
			promo = ParsePromotion(m[4:])
		}
		if _, err := b.Move(MustSquare(m[:2]), MustSquare(m[2:4]), promo); err != nil {
			t.Fatalf("move %s: %v", m, err)
		}
	}
}

func squareNames(sqs []Square) []string {
	out := make([]string, len(sqs))
	for i, sq := range sqs {
		out[i] = sq.String()
	}
	sort.Strings(out)
	return out
}

func TestKnightStartingMoves(t *testing.T) {
	b := NewBoard()
	got := squareNames(b.PossibleMoves(MustSquare("b1"), true))
	if len(got) != 2 || got[0] != "a3" || got[1] != "c3" {
		t.Errorf("knight on b1 moves = %v, want [a3 c3]", got)
	}
}

func TestStartingPositionHasTwentyMoves(t *testing.T) {
	b := NewBoard()
	if n := len(b.LegalMoves()); n != 20 {
		t.Errorf("legal moves from start = %d, want 20", n)
	}
}

func TestMoveOnCopyLeavesOriginal(t *testing.T) {
	original := NewBoard()
	copied := original
	play(t, &copied, "e2e4")

	if original != NewBoard() {
		t.Error("moving on a copy changed the original board")
	}
	if copied.PieceAt(MustSquare("e4")).Type != Pawn {
		t.Error("copy did not receive the move")
	}
}

func TestKingSafety(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		from  string
		to    string
		legal bool
	}{
		{"bishop pinned on file", "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1", "e2", "d3", false},
		{"knight pinned on diagonal", "4k3/8/8/8/7b/8/5N2/4K3 w - - 0 1", "f2", "d3", false},
		{"pinned rook slides along pin", "4k3/4r3/8/8/8/8/4R3/4K3 w - - 0 1", "e2", "e5", true},
		{"king steps into rook line", "4k3/8/8/8/8/8/3r4/4K3 w - - 0 1", "e1", "e2", false},
		{"king captures undefended rook", "4k3/8/8/8/8/8/3r4/4K3 w - - 0 1", "e1", "d2", true},
		{"king steps away", "4k3/8/8/8/8/8/3r4/4K3 w - - 0 1", "e1", "f1", true},
		{"en passant exposes king on rank", "8/8/8/KPp4r/8/8/8/4k3 w - c6 0 1", "b5", "c6", false},
		{"must answer check", "4k3/8/8/8/8/8/4r3/R3K3 w - - 0 1", "a1", "a2", false},
		{"block check", "4k3/8/8/8/4r3/8/8/R2QK3 w - - 0 1", "d1", "e2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustFEN(t, tt.fen)
			if got := b.IsLegal(MustSquare(tt.from), MustSquare(tt.to)); got != tt.legal {
				t.Errorf("IsLegal(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.legal)
			}
		})
	}
}

func TestWrongSideCannotMove(t *testing.T) {
	b := NewBoard()
	before := b
	_, err := b.Move(MustSquare("e7"), MustSquare("e5"), NoPieceType)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if b != before {
		t.Error("rejected move mutated the board")
	}
}

func TestEnPassantFlagLastsOneHalfMove(t *testing.T) {
	b := NewBoard()
	play(t, &b, "e2e4")

	for c := White; c <= Black; c++ {
		for x := 0; x < 8; x++ {
			want := c == White && x == 4
			if got := b.EnPassant(c, x); got != want {
				t.Errorf("after e4: EnPassant(%s, %d) = %v, want %v", c, x, got, want)
			}
		}
	}

	play(t, &b, "a7a6")
	for c := White; c <= Black; c++ {
		for x := 0; x < 8; x++ {
			if b.EnPassant(c, x) {
				t.Errorf("after reply: EnPassant(%s, %d) still set", c, x)
			}
		}
	}
}

func TestEnPassantCapture(t *testing.T) {
	b := NewBoard()
	play(t, &b, "e2e4", "a7a6", "e4e5", "d7d5")

	if !b.IsLegal(MustSquare("e5"), MustSquare("d6")) {
		t.Fatal("expected e5xd6 en passant to be legal")
	}
	changed, err := b.Move(MustSquare("e5"), MustSquare("d6"), NoPieceType)
	if err != nil {
		t.Fatalf("en passant: %v", err)
	}
	if !b.PieceAt(MustSquare("d5")).Empty() {
		t.Error("captured pawn still on d5")
	}
	if got := squareNames(changed); len(got) != 3 || got[0] != "d5" || got[1] != "d6" || got[2] != "e5" {
		t.Errorf("changed squares = %v, want [d5 d6 e5]", got)
	}
}

func TestEnPassantExpires(t *testing.T) {
	b := NewBoard()
	play(t, &b, "e2e4", "a7a6", "e4e5", "d7d5", "h2h3", "a6a5")

	if b.IsLegal(MustSquare("e5"), MustSquare("d6")) {
		t.Error("en passant still legal one move late")
	}
}

func TestCastling(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		from  string
		to    string
		legal bool
	}{
		{"white kingside", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1", "g1", true},
		{"white queenside", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1", "c1", true},
		{"black kingside", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8", "g8", true},
		{"black queenside", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8", "c8", true},
		{"no rights", "r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1", "e1", "g1", false},
		{"path blocked", "r3k2r/8/8/8/8/8/8/R3KB1R w KQkq - 0 1", "e1", "g1", false},
		{"queenside knight blocks", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", "e1", "c1", false},
		{"in check", "4k3/8/8/8/8/8/4r3/R3K2R w KQ - 0 1", "e1", "g1", false},
		{"through check", "4k3/8/8/8/8/8/5r2/R3K2R w KQ - 0 1", "e1", "g1", false},
		{"other side unaffected", "4k3/8/8/8/8/8/5r2/R3K2R w KQ - 0 1", "e1", "c1", true},
		{"into check", "4k3/8/8/8/8/8/6r1/R3K2R w KQ - 0 1", "e1", "g1", false},
		{"rook square attack irrelevant", "4k3/8/8/8/8/8/1r6/R3K2R w KQ - 0 1", "e1", "c1", true},
		{"black through check", "r3k2r/8/8/8/8/8/3R4/4K3 b kq - 0 1", "e8", "c8", false},
		{"rook missing", "4k3/8/8/8/8/8/8/4K2R w KQ - 0 1", "e1", "c1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustFEN(t, tt.fen)
			if got := b.IsLegal(MustSquare(tt.from), MustSquare(tt.to)); got != tt.legal {
				t.Errorf("IsLegal(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.legal)
			}
		})
	}
}

func TestCastlingMovesRook(t *testing.T) {
	b := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	changed, err := b.Move(MustSquare("e1"), MustSquare("g1"), NoPieceType)
	if err != nil {
		t.Fatalf("castle: %v", err)
	}
	if !b.PieceAt(MustSquare("f1")).Is(White, Rook) || !b.PieceAt(MustSquare("h1")).Empty() {
		t.Error("rook not relocated to f1")
	}
	if len(changed) != 4 {
		t.Errorf("changed squares = %v, want 4 entries", squareNames(changed))
	}
	if b.CanCastle(White, Kingside) || b.CanCastle(White, Queenside) {
		t.Error("white rights survived castling")
	}
	if !b.CanCastle(Black, Kingside) || !b.CanCastle(Black, Queenside) {
		t.Error("black rights lost")
	}

	play(t, &b, "e8c8")
	if !b.PieceAt(MustSquare("d8")).Is(Black, Rook) || !b.PieceAt(MustSquare("a8")).Empty() {
		t.Error("black rook not relocated to d8")
	}
}

func TestCastlingRightsRevoked(t *testing.T) {
	b := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	play(t, &b, "h1h2")
	if b.CanCastle(White, Kingside) {
		t.Error("kingside right survived rook move")
	}
	if !b.CanCastle(White, Queenside) {
		t.Error("queenside right lost after kingside rook move")
	}

	play(t, &b, "e8f8", "a1a8")
	if b.CanCastle(Black, Queenside) || b.CanCastle(Black, Kingside) {
		t.Error("black rights survived king move")
	}
	if b.CanCastle(White, Queenside) {
		t.Error("queenside right survived rook leaving a1")
	}
}

func TestCapturingRookRevokesRight(t *testing.T) {
	b := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	play(t, &b, "a1a8")
	if b.CanCastle(Black, Queenside) {
		t.Error("black queenside right survived capture on a8")
	}
	if !b.CanCastle(Black, Kingside) {
		t.Error("black kingside right lost")
	}
}

func TestPromotion(t *testing.T) {
	fen := "8/P7/8/8/8/8/8/k3K3 w - - 0 1"
	from, to := MustSquare("a7"), MustSquare("a8")

	b := mustFEN(t, fen)
	before := b
	if !b.NeedsPromotion(from, to) {
		t.Fatal("NeedsPromotion = false for a7a8")
	}
	if _, err := b.Move(from, to, NoPieceType); !errors.Is(err, ErrPromotionRequired) {
		t.Fatalf("expected ErrPromotionRequired, got %v", err)
	}
	if b != before {
		t.Fatal("board changed while waiting for a promotion piece")
	}
	if _, err := b.Move(from, to, King); !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}

	for _, pt := range []PieceType{Queen, Rook, Bishop, Knight} {
		b := mustFEN(t, fen)
		if _, err := b.Move(from, to, pt); err != nil {
			t.Fatalf("promote to %s: %v", pt, err)
		}
		if got := b.PieceAt(to); !got.Is(White, pt) {
			t.Errorf("a8 holds %+v, want white %s", got, pt)
		}
	}
}

func TestPromotionIgnoredForOrdinaryMove(t *testing.T) {
	b := NewBoard()
	if _, err := b.Move(MustSquare("e2"), MustSquare("e4"), Queen); err != nil {
		t.Fatalf("move: %v", err)
	}
	if !b.PieceAt(MustSquare("e4")).Is(White, Pawn) {
		t.Error("ordinary pawn move was promoted")
	}
}

func TestTerminalPositions(t *testing.T) {
	t.Run("fool's mate", func(t *testing.T) {
		b := NewBoard()
		play(t, &b, "f2f3", "e7e5", "g2g4", "d8h4")
		if !b.WhiteInCheck() {
			t.Error("white should be in check")
		}
		if !b.Ended() || !b.Checkmate() {
			t.Error("expected checkmate")
		}
		if b.Stalemate() {
			t.Error("checkmate reported as stalemate")
		}
	})

	t.Run("stalemate", func(t *testing.T) {
		b := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
		if !b.Ended() || !b.Stalemate() {
			t.Error("expected stalemate")
		}
		if b.BlackInCheck() {
			t.Error("stalemated king reported in check")
		}
	})

	t.Run("check but escapable", func(t *testing.T) {
		b := mustFEN(t, "4k3/8/8/8/8/8/8/4K2r w - - 0 1")
		if !b.WhiteInCheck() {
			t.Error("white should be in check")
		}
		if b.Ended() {
			t.Error("king has escape squares")
		}
	})
}

func TestFingerprintIgnoresPly(t *testing.T) {
	b := NewBoard()
	start := b.Fingerprint()
	play(t, &b, "g1f3", "b8c6", "f3g1", "c6b8")
	if b.Fingerprint() != start {
		t.Error("knight shuffle should return to the starting fingerprint")
	}

	play(t, &b, "e2e4")
	if b.Fingerprint() == start {
		t.Error("different positions share a fingerprint")
	}
}

func TestFingerprintIncludesEnPassant(t *testing.T) {
	a := mustFEN(t, "4k3/8/8/8/4P3/8/8/4K3 b - e3 0 1")
	b := mustFEN(t, "4k3/8/8/8/4P3/8/8/4K3 b - - 0 1")
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("en passant flag not part of fingerprint")
	}
}

func TestFingerprintDistinguishesRightsAndTurn(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"castling rights", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "r3k2r/8/8/8/8/8/8/R3K2R w Kkq - 0 1"},
		{"side to move", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", "4k3/8/8/8/8/8/8/4K3 b - - 0 1"},
		{"placement", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", "4k3/8/8/8/8/8/8/3K4 w - - 0 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustFEN(t, tt.a)
			b := mustFEN(t, tt.b)
			if a.Fingerprint() == b.Fingerprint() {
				t.Errorf("%q and %q share a fingerprint", tt.a, tt.b)
			}
			if len(a.Fingerprint()) != 64 {
				t.Errorf("fingerprint length = %d, want 64", len(a.Fingerprint()))
			}
		})
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"8/8/8/8/8/8/8/k3K3 b - - 0 40",
	}
	for _, fen := range fens {
		b := mustFEN(t, fen)
		if got := b.FEN(); got != fen {
			t.Errorf("FEN round trip: got %q, want %q", got, fen)
		}
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1",
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); err == nil {
			t.Errorf("ParseFEN(%q) succeeded, want error", fen)
		}
	}
}

func TestSerialise(t *testing.T) {
	b := NewBoard()
	state := b.Serialise()
	if state.Board[:8] != "RNBQKBNR" || state.Board[8:16] != "PPPPPPPP" || state.Board[56:] != "rnbqkbnr" {
		t.Errorf("unexpected board string %q", state.Board)
	}
	if !state.WhiteCastleShort || !state.BlackCastleLong || state.Turn != White || state.TurnNumber != 0 {
		t.Errorf("unexpected flags %+v", state)
	}

	play(t, &b, "d2d4")
	back, err := Deserialise(b.Serialise())
	if err != nil {
		t.Fatalf("Deserialise: %v", err)
	}
	if back != b {
		t.Error("Deserialise(Serialise()) differs from the original")
	}
}
