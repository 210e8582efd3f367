package chess

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/notnil/chess"
)

// SAN replays moves from the starting position and returns each one in
// standard algebraic notation.
func SAN(moves []Move) ([]string, error) {
	game := nchess.NewGame()
	out := make([]string, 0, len(moves))
	for i, m := range moves {
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, m.UCI())
		if err != nil {
			return out, fmt.Errorf("move %d (%s): %w", i+1, m.UCI(), err)
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv); err != nil {
			return out, fmt.Errorf("move %d (%s): %w", i+1, m.UCI(), err)
		}
		out = append(out, san)
	}
	return out, nil
}

// PGNHeader carries the tag pairs written ahead of the movetext.
type PGNHeader struct {
	Event       string
	Site        string
	Date        time.Time
	White       string
	Black       string
	Result      string // "1-0", "0-1", "1/2-1/2" or "*"
	Termination string
}

// ResultToken maps a winning colour, or nil for a draw, to a PGN result.
func ResultToken(winner *Colour) string {
	if winner == nil {
		return "1/2-1/2"
	}
	if *winner == White {
		return "1-0"
	}
	return "0-1"
}

// PGN renders a finished game.
func PGN(h PGNHeader, moves []Move) (string, error) {
	san, err := SAN(moves)
	if err != nil {
		return "", err
	}
	if h.Result == "" {
		h.Result = "*"
	}
	if h.Date.IsZero() {
		h.Date = time.Now()
	}

	var b strings.Builder
	tag := func(k, v string) {
		if strings.TrimSpace(v) == "" {
			return
		}
		fmt.Fprintf(&b, "[%s \"%s\"]\n", k, sanitizePGN(v))
	}
	tag("Event", h.Event)
	tag("Site", h.Site)
	tag("Date", h.Date.Format("2006.01.02"))
	tag("White", h.White)
	tag("Black", h.Black)
	tag("Result", h.Result)
	tag("Termination", h.Termination)
	b.WriteString("\n")

	for i := 0; i < len(san); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", i/2+1, san[i])
		if i+1 < len(san) {
			b.WriteString(san[i+1] + " ")
		}
	}
	b.WriteString(h.Result)
	return b.String(), nil
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
