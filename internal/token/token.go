// Package token issues the random strings used as player bearer tokens and
// match identifiers.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	UserLength  = 64
	MatchLength = 8
)

// New returns n characters drawn uniformly from [0-9a-z].
func New(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// User returns a fresh player token.
func User() (string, error) {
	return New(UserLength)
}

// Match returns a fresh match id.
func Match() (string, error) {
	return New(MatchLength)
}

// Valid reports whether s has length n and only uses the token alphabet.
func Valid(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
