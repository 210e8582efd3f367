package match

import (
	"errors"
	"sync"
)

var ErrAlreadyWaiting = errors.New("already waiting for a game")

type waiter struct {
	conn    Conn
	entrant Entrant
}

// Lobby pairs participants in arrival order. At most one waits at a time.
type Lobby struct {
	mu       sync.Mutex
	waiting  *waiter
	registry *Registry
}

func NewLobby(r *Registry) *Lobby {
	return &Lobby{registry: r}
}

// Join either parks the entrant or pairs it with the one already waiting.
// When a match is created both connections receive a game-ready message and
// the match is returned; otherwise the match is nil.
func (l *Lobby) Join(conn Conn, e Entrant) (*Match, error) {
	l.mu.Lock()
	if l.waiting == nil {
		l.waiting = &waiter{conn: conn, entrant: e}
		l.mu.Unlock()
		return nil, nil
	}
	if l.waiting.conn == conn || l.waiting.entrant.Token == e.Token {
		l.mu.Unlock()
		return nil, ErrAlreadyWaiting
	}
	w := l.waiting
	l.waiting = nil
	l.mu.Unlock()

	m, err := l.registry.Create(w.entrant, e)
	if err != nil {
		return nil, err
	}
	ready := GameReadyMessage{Type: TypeGameReady, GameID: m.ID}
	for _, c := range []Conn{w.conn, conn} {
		if err := c.Send(ready); err != nil {
			m.logger.Debug().Err(err).Msg("Failed to notify player of new match")
		}
	}
	return m, nil
}

// Leave drops conn from the lobby if it is waiting.
func (l *Lobby) Leave(conn Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiting != nil && l.waiting.conn == conn {
		l.waiting = nil
	}
}

// Waiting is the number of participants waiting for an opponent.
func (l *Lobby) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiting == nil {
		return 0
	}
	return 1
}
