package feed

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/justinabrahms/clockchess/internal/chess"
	"github.com/justinabrahms/clockchess/internal/match"
)

var ErrOutOfSync = errors.New("feed: local board out of sync with server")

// Tracker mirrors a followed game locally by replaying its events.
type Tracker struct {
	gameID string
	logger zerolog.Logger

	mu        sync.Mutex
	synced    bool
	board     chess.Board
	moves     []chess.Move
	san       []string
	clocks    match.Clocks
	usernames match.Usernames
	result    *match.EndMessage
}

func NewTracker(gameID string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		gameID: gameID,
		logger: logger,
		board:  chess.NewBoard(),
	}
}

// ProcessEvent applies one event. Events for other games are ignored. A move
// that cannot be replayed returns ErrOutOfSync; the next game-state message
// resynchronises the tracker.
func (t *Tracker) ProcessEvent(event Event) error {
	if event.GameID != "" && event.GameID != t.gameID {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Type {
	case EventState:
		return t.syncLocked(event.State)
	case EventMove:
		return t.moveLocked(event.Move)
	case EventDrawOffer:
		t.logger.Info().Str("player", event.DrawOffer.Player.String()).Msg("Draw offered")
	case EventEnd:
		t.result = event.End
		ev := t.logger.Info().Str("reason", event.End.Reason)
		if event.End.Winner != nil {
			ev = ev.Str("winner", event.End.Winner.String())
		}
		ev.Msg("Game over")
	case EventError:
		t.logger.Warn().Str("error", event.Error).Msg("Server rejected request")
	default:
		t.logger.Debug().Str("type", string(event.Type)).Msg("Ignoring unknown event type")
	}
	return nil
}

func (t *Tracker) syncLocked(state *match.GameState) error {
	board, err := chess.Deserialise(state.Board)
	if err != nil {
		return fmt.Errorf("load game state: %w", err)
	}
	san, err := chess.SAN(state.Moves)
	if err != nil {
		return fmt.Errorf("replay game state: %w", err)
	}

	t.board = board
	t.moves = append([]chess.Move(nil), state.Moves...)
	t.san = san
	t.clocks = state.Clocks
	t.usernames = state.Usernames
	t.synced = true

	t.logger.Info().
		Str("white", state.Usernames.White).
		Str("black", state.Usernames.Black).
		Int("plies", len(state.Moves)).
		Msg("Synced game")
	return nil
}

func (t *Tracker) moveLocked(msg *match.MoveMessage) error {
	if !t.synced {
		return fmt.Errorf("%w: move before game state", ErrOutOfSync)
	}

	next := t.board
	piece := next.PieceAt(msg.From)
	if _, err := next.Move(msg.From, msg.To, msg.Promotion); err != nil {
		t.synced = false
		return fmt.Errorf("%w: %v", ErrOutOfSync, err)
	}
	if next.Ply() != msg.TurnNumber {
		t.synced = false
		return fmt.Errorf("%w: ply %d, server says %d", ErrOutOfSync, next.Ply(), msg.TurnNumber)
	}

	mv := chess.Move{From: msg.From, To: msg.To, Promotion: msg.Promotion, Piece: piece}
	san, err := chess.SAN(append(t.moves, mv))
	if err != nil {
		t.synced = false
		return fmt.Errorf("%w: %v", ErrOutOfSync, err)
	}

	t.board = next
	t.moves = append(t.moves, mv)
	t.san = san
	t.clocks = msg.Clocks

	t.logger.Info().
		Int("ply", msg.TurnNumber).
		Str("san", san[len(san)-1]).
		Str("white", match.FormatClock(millisDuration(msg.Clocks.White))).
		Str("black", match.FormatClock(millisDuration(msg.Clocks.Black))).
		Msg("Move")
	return nil
}

func millisDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Board returns a copy of the mirrored position.
func (t *Tracker) Board() chess.Board {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.board
}

// SAN returns the moves so far in standard algebraic notation.
func (t *Tracker) SAN() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.san...)
}

func (t *Tracker) Clocks() match.Clocks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clocks
}

// Result is nil until the game has ended.
func (t *Tracker) Result() *match.EndMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Tracker) Synced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.synced
}
