package chess

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Square is a board coordinate. X is the file (0 = a), Y the rank (0 = 1).
type Square struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func Sq(x, y int) Square {
	return Square{X: x, Y: y}
}

func (s Square) Valid() bool {
	return s.X >= 0 && s.X < 8 && s.Y >= 0 && s.Y < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.X, s.Y)
	}
	return string([]byte{byte('a' + s.X), byte('1' + s.Y)})
}

func (s Square) offset(dx, dy int) Square {
	return Square{X: s.X + dx, Y: s.Y + dy}
}

// ParseSquare reads algebraic notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	sq := Square{X: int(s[0]) - 'a', Y: int(s[1]) - '1'}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	return sq, nil
}

// MustSquare is ParseSquare for literals known to be valid.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// UnmarshalJSON accepts either {"x":4,"y":1} or "e2".
func (s *Square) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var alg string
		if err := json.Unmarshal(data, &alg); err != nil {
			return err
		}
		sq, err := ParseSquare(alg)
		if err != nil {
			return err
		}
		*s = sq
		return nil
	}
	type plain Square
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Square(p)
	return nil
}
