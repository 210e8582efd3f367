package chess

import (
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	nchess "github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movesFrom(t *testing.T, uci ...string) []Move {
	t.Helper()
	b := NewBoard()
	out := make([]Move, 0, len(uci))
	for _, u := range uci {
		m := Move{From: MustSquare(u[:2]), To: MustSquare(u[2:4])}
		if len(u) == 5 {
			m.Promotion = ParsePromotion(u[4:])
		}
		m.Piece = b.PieceAt(m.From)
		_, err := b.Move(m.From, m.To, m.Promotion)
		require.NoError(t, err, "move %s", u)
		out = append(out, m)
	}
	return out
}

func TestSAN(t *testing.T) {
	moves := movesFrom(t, "e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "g8f6", "e1g1")
	san, err := SAN(moves)
	require.NoError(t, err)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "Nf6", "O-O"}, san)
}

func TestSANCheckmate(t *testing.T) {
	san, err := SAN(movesFrom(t, "f2f3", "e7e5", "g2g4", "d8h4"))
	require.NoError(t, err)
	assert.Equal(t, "Qh4#", san[3])
}

func TestSANRejectsImpossibleMove(t *testing.T) {
	_, err := SAN([]Move{{From: MustSquare("e2"), To: MustSquare("e5")}})
	assert.Error(t, err)
}

func TestPGN(t *testing.T) {
	white := White
	pgn, err := PGN(PGNHeader{
		Event:       "Casual game",
		Date:        time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		White:       "alice",
		Black:       `bob "the rook"`,
		Result:      ResultToken(&white),
		Termination: "Black resigned.",
	}, movesFrom(t, "e2e4", "e7e5", "g1f3"))
	require.NoError(t, err)

	assert.Contains(t, pgn, "[Date \"2024.03.09\"]\n")
	assert.Contains(t, pgn, "[Black \"bob 'the rook'\"]\n")
	assert.Contains(t, pgn, "[Result \"1-0\"]\n")
	assert.True(t, strings.HasSuffix(pgn, "\n1. e4 e5 2. Nf3 1-0"), pgn)
}

func TestResultToken(t *testing.T) {
	black := Black
	assert.Equal(t, "0-1", ResultToken(&black))
	assert.Equal(t, "1/2-1/2", ResultToken(nil))
}

// TestLegalMovesMatchReference plays seeded random games and compares the
// legal move set at every position against github.com/notnil/chess.
func TestLegalMovesMatchReference(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping random game comparison in short mode")
	}
	rng := rand.New(rand.NewSource(20240309))
	for i := 0; i < 25; i++ {
		compareRandomGame(t, rng, 200)
	}
}

func compareRandomGame(t *testing.T, rng *rand.Rand, maxPlies int) {
	t.Helper()
	b := NewBoard()
	game := nchess.NewGame()
	var played []string

	for ply := 0; ply < maxPlies; ply++ {
		if game.Outcome() != nchess.NoOutcome {
			switch game.Method() {
			case nchess.Checkmate:
				assert.True(t, b.Checkmate(), "reference checkmate not detected after %v", played)
			case nchess.Stalemate:
				assert.True(t, b.Stalemate(), "reference stalemate not detected after %v", played)
			}
			return
		}

		ours := b.LegalMoves()
		got := make([]string, 0, len(ours))
		for _, m := range ours {
			got = append(got, m.From.String()+m.To.String())
		}
		sort.Strings(got)

		seen := make(map[string]bool)
		var want []string
		for _, m := range game.ValidMoves() {
			key := m.S1().String() + m.S2().String()
			if !seen[key] {
				seen[key] = true
				want = append(want, key)
			}
		}
		sort.Strings(want)

		if !assert.Equal(t, want, got, "legal moves differ after %v (%s)", played, b.FEN()) {
			return
		}
		if len(ours) == 0 {
			return
		}

		m := ours[rng.Intn(len(ours))]
		if b.NeedsPromotion(m.From, m.To) {
			m.Promotion = []PieceType{Queen, Rook, Bishop, Knight}[rng.Intn(4)]
		}
		_, err := b.Move(m.From, m.To, m.Promotion)
		require.NoError(t, err)

		ref, err := nchess.UCINotation{}.Decode(game.Position(), m.UCI())
		require.NoError(t, err)
		require.NoError(t, game.Move(ref))
		played = append(played, m.UCI())
	}
}
