package web

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/justinabrahms/clockchess/internal/archive"
	"github.com/justinabrahms/clockchess/internal/match"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   []any
	closed bool
}

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func messagesOf[T any](c *fakeConn) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, m := range c.msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func lastError(t *testing.T, c *fakeConn) string {
	t.Helper()
	errs := messagesOf[ErrorMessage](c)
	require.NotEmpty(t, errs, "expected an error reply")
	return errs[len(errs)-1].Error
}

type testEnv struct {
	service  *Service
	registry *match.Registry
	lobby    *match.Lobby
	hub      *Hub
	archive  archive.Archive
}

// newTestEnv builds a service whose first lobby entrant always plays white.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	a, err := archive.NewFile(filepath.Join(t.TempDir(), "db.jsonl"))
	require.NoError(t, err)

	logger := zerolog.Nop()
	reg := match.NewRegistry(a,
		match.WithColourPicker(func() (bool, error) { return true, nil }),
		match.WithLogger(logger),
	)
	t.Cleanup(reg.Close)
	lobby := match.NewLobby(reg)

	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &testEnv{
		service:  NewService(reg, lobby, hub, WithLogger(logger)),
		registry: reg,
		lobby:    lobby,
		hub:      hub,
		archive:  a,
	}
}

// pair runs two clients through the lobby and subscribes both as players.
func (e *testEnv) pair(t *testing.T) (white, black *fakeConn, gameID string) {
	t.Helper()
	white, black = &fakeConn{}, &fakeConn{}
	e.send(white, `{"type":"join-game","token":"white-token","username":"alice"}`)
	e.send(black, `{"type":"join-game","token":"black-token","username":"bob"}`)

	ready := messagesOf[match.GameReadyMessage](white)
	require.Len(t, ready, 1)
	gameID = ready[0].GameID

	e.send(white, `{"type":"play-game","gameID":"`+gameID+`","token":"white-token"}`)
	e.send(black, `{"type":"play-game","gameID":"`+gameID+`","token":"black-token"}`)
	require.Len(t, messagesOf[match.GameState](white), 1)
	require.Len(t, messagesOf[match.GameState](black), 1)
	return white, black, gameID
}

func (e *testEnv) send(conn *fakeConn, msg string) {
	e.service.HandleMessage(conn, []byte(msg))
}

func (e *testEnv) move(conn *fakeConn, gameID, token, from, to string) {
	e.send(conn, `{"type":"move","gameID":"`+gameID+`","token":"`+token+`","from":"`+from+`","to":"`+to+`"}`)
}
