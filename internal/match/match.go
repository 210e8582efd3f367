package match

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/justinabrahms/clockchess/internal/archive"
	"github.com/justinabrahms/clockchess/internal/chess"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrMatchOver          = errors.New("match is over")
	ErrNoPendingPromotion = errors.New("no promotion pending")
)

// Result reasons.
const (
	ReasonFiftyMove  = "Draw by 50 move rule."
	ReasonRepetition = "Draw by threefold repetition."
	ReasonStalemate  = "Draw by stalemate."
	ReasonAgreement  = "Draw by agreement."
)

func reasonTimeout(loser chess.Colour) string {
	return loser.Title() + " ran out of time."
}

func reasonCheckmate(loser chess.Colour) string {
	return fmt.Sprintf("%s is checkmated. %s wins.", loser.Title(), loser.Other().Title())
}

func reasonResigned(loser chess.Colour) string {
	return loser.Title() + " resigned."
}

// Entrant is a participant before colours are assigned.
type Entrant struct {
	Token    string
	Username string
}

// Player is one side of a match.
type Player struct {
	Token    string
	Username string
	Clock    time.Duration

	conn Conn
}

// Result is how a match ended. Winner is nil for a draw.
type Result struct {
	Winner *chess.Colour `json:"winner"`
	Reason string        `json:"reason"`
}

type pendingPromotion struct {
	from, to chess.Square
}

// Match is one game between two players. All methods are safe for
// concurrent use; each match serialises its own operations, including its
// clock timer.
type Match struct {
	ID string

	mu          sync.Mutex
	players     [2]*Player
	board       chess.Board
	moves       []chess.Move
	repetitions map[string]int
	fiftyMove   int
	drawOffers  [2]bool
	pending     [2]*pendingPromotion
	startedAt   time.Time
	lastMoveAt  time.Time
	subscribers map[Conn]struct{}
	timer       *time.Timer
	ended       bool
	reported    bool
	result      Result

	now    func() time.Time
	onEnd  func(*Match, archive.Record)
	logger zerolog.Logger
}

func newMatch(id string, white, black Entrant, clock time.Duration, now func() time.Time, logger zerolog.Logger) *Match {
	m := &Match{
		ID: id,
		players: [2]*Player{
			{Token: white.Token, Username: white.Username, Clock: clock},
			{Token: black.Token, Username: black.Username, Clock: clock},
		},
		board:       chess.NewBoard(),
		repetitions: make(map[string]int),
		subscribers: make(map[Conn]struct{}),
		now:         now,
		logger:      logger.With().Str("gameID", id).Logger(),
	}
	m.startedAt = now()
	m.repetitions[m.board.Fingerprint()] = 1
	return m
}

// do runs fn under the match lock and, if fn ended the match, reports the
// result once the lock is released.
func (m *Match) do(fn func() error) error {
	m.mu.Lock()
	err := fn()
	var rec archive.Record
	report := m.ended && !m.reported
	if report {
		m.reported = true
		rec = m.recordLocked()
	}
	onEnd := m.onEnd
	m.mu.Unlock()

	if report && onEnd != nil {
		onEnd(m, rec)
	}
	return err
}

func (m *Match) colourOf(token string) (chess.Colour, bool) {
	if token == "" {
		return chess.White, false
	}
	for c, p := range m.players {
		if p.Token == token {
			return chess.Colour(c), true
		}
	}
	return chess.White, false
}

// ColourOf returns the colour a token plays.
func (m *Match) ColourOf(token string) (chess.Colour, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.colourOf(token)
}

// clocksLocked returns both remaining clocks at now. The side to move is
// charged for the time since the last move once two plies have been played.
func (m *Match) clocksLocked(now time.Time) [2]time.Duration {
	c := [2]time.Duration{m.players[chess.White].Clock, m.players[chess.Black].Clock}
	if m.board.Ply() >= 2 && !m.ended {
		c[m.board.Turn()] -= now.Sub(m.lastMoveAt)
	}
	return c
}

func (m *Match) wireClocks(now time.Time) Clocks {
	c := m.clocksLocked(now)
	return Clocks{White: millis(c[chess.White]), Black: millis(c[chess.Black])}
}

// Clocks returns the remaining time of both players in milliseconds.
func (m *Match) Clocks() Clocks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wireClocks(m.now())
}

func (m *Match) scheduleLocked() {
	if m.ended || m.board.Ply() < 2 {
		return
	}
	c := m.clocksLocked(m.now())
	wait := nextDeadline(c[chess.White], c[chess.Black])
	if m.timer == nil {
		m.timer = time.AfterFunc(wait, m.checkClocks)
		return
	}
	m.timer.Reset(wait)
}

func (m *Match) checkClocks() {
	_ = m.do(func() error {
		if m.ended {
			return nil
		}
		if !m.flagFallLocked() {
			m.scheduleLocked()
		}
		return nil
	})
}

// flagFallLocked ends the match if either clock has run out.
func (m *Match) flagFallLocked() bool {
	c := m.clocksLocked(m.now())
	for colour, remaining := range c {
		if remaining < 0 {
			loser := chess.Colour(colour)
			winner := loser.Other()
			m.endLocked(&winner, reasonTimeout(loser))
			return true
		}
	}
	return false
}

func (m *Match) actorLocked(token string) (chess.Colour, error) {
	if m.ended {
		return chess.White, ErrMatchOver
	}
	colour, ok := m.colourOf(token)
	if !ok {
		return chess.White, ErrInvalidToken
	}
	return colour, nil
}

// Move plays from→to for the player holding token. If the move promotes a
// pawn and promotion is NoPieceType, nothing changes, the move is held as
// pending and chess.ErrPromotionRequired is returned; CompletePromotion
// finishes it.
func (m *Match) Move(token string, from, to chess.Square, promotion chess.PieceType) error {
	return m.do(func() error {
		colour, err := m.actorLocked(token)
		if err != nil {
			return err
		}
		if colour != m.board.Turn() {
			return ErrNotYourTurn
		}
		m.pending[colour] = nil
		if m.flagFallLocked() {
			return ErrMatchOver
		}
		if !m.board.IsLegal(from, to) {
			return chess.ErrIllegalMove
		}
		if m.board.NeedsPromotion(from, to) && promotion == chess.NoPieceType {
			m.pending[colour] = &pendingPromotion{from: from, to: to}
			return chess.ErrPromotionRequired
		}
		return m.applyLocked(colour, from, to, promotion)
	})
}

// CompletePromotion finishes a move held back by Move for want of a
// promotion piece.
func (m *Match) CompletePromotion(token string, promotion chess.PieceType) error {
	return m.do(func() error {
		colour, err := m.actorLocked(token)
		if err != nil {
			return err
		}
		p := m.pending[colour]
		if p == nil || colour != m.board.Turn() {
			return ErrNoPendingPromotion
		}
		if !promotion.CanPromoteTo() {
			return chess.ErrInvalidPromotion
		}
		m.pending[colour] = nil
		if m.flagFallLocked() {
			return ErrMatchOver
		}
		return m.applyLocked(colour, p.from, p.to, promotion)
	})
}

// PendingPromotion reports the move a player still has to pick a piece for.
func (m *Match) PendingPromotion(token string) (from, to chess.Square, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	colour, found := m.colourOf(token)
	if !found || m.pending[colour] == nil {
		return chess.Square{}, chess.Square{}, false
	}
	return m.pending[colour].from, m.pending[colour].to, true
}

func (m *Match) applyLocked(colour chess.Colour, from, to chess.Square, promotion chess.PieceType) error {
	now := m.now()
	piece := m.board.PieceAt(from)
	resets := piece.Type == chess.Pawn || m.board.IsCapture(from, to)
	if !m.board.NeedsPromotion(from, to) {
		promotion = chess.NoPieceType
	}
	plyBefore := m.board.Ply()

	changed, err := m.board.Move(from, to, promotion)
	if err != nil {
		return err
	}

	m.drawOffers = [2]bool{}
	if resets {
		m.fiftyMove = 0
	} else {
		m.fiftyMove++
	}
	if plyBefore >= 2 {
		m.players[colour].Clock -= now.Sub(m.lastMoveAt)
	}
	m.lastMoveAt = now

	m.moves = append(m.moves, chess.Move{From: from, To: to, Promotion: promotion, Piece: piece})
	m.broadcastLocked(MoveMessage{
		Type:       TypeMove,
		GameID:     m.ID,
		From:       from,
		To:         to,
		Promotion:  promotion,
		Changed:    changed,
		TurnNumber: m.board.Ply(),
		Clocks:     m.wireClocks(now),
	})

	fp := m.board.Fingerprint()
	m.repetitions[fp]++

	switch {
	case m.fiftyMove >= 100:
		m.endLocked(nil, ReasonFiftyMove)
	case m.repetitions[fp] >= 3:
		m.endLocked(nil, ReasonRepetition)
	case m.board.Ended():
		if m.board.InCheck(m.board.Turn()) {
			m.endLocked(&colour, reasonCheckmate(colour.Other()))
		} else {
			m.endLocked(nil, ReasonStalemate)
		}
	default:
		m.scheduleLocked()
	}
	return nil
}

// OfferDraw raises the player's draw offer. If the opponent's offer is
// already up the match ends drawn; otherwise the offer is broadcast.
func (m *Match) OfferDraw(token string) error {
	return m.do(func() error {
		colour, err := m.actorLocked(token)
		if err != nil {
			return err
		}
		m.pending[colour] = nil
		m.drawOffers[colour] = true
		if m.drawOffers[colour.Other()] {
			m.endLocked(nil, ReasonAgreement)
			return nil
		}
		m.broadcastLocked(DrawOfferMessage{Type: TypeDrawOffer, GameID: m.ID, Player: colour})
		return nil
	})
}

// Resign ends the match in the opponent's favour.
func (m *Match) Resign(token string) error {
	return m.do(func() error {
		colour, err := m.actorLocked(token)
		if err != nil {
			return err
		}
		winner := colour.Other()
		m.endLocked(&winner, reasonResigned(colour))
		return nil
	})
}

func (m *Match) endLocked(winner *chess.Colour, reason string) {
	if m.ended {
		return
	}
	// Freeze the clock of the side to move before marking the end.
	now := m.now()
	if m.board.Ply() >= 2 {
		m.players[m.board.Turn()].Clock -= now.Sub(m.lastMoveAt)
		m.lastMoveAt = now
	}
	m.ended = true
	m.result = Result{Winner: winner, Reason: reason}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.broadcastLocked(EndMessage{Type: TypeEnd, GameID: m.ID, Winner: winner, Reason: reason})

	ev := m.logger.Info().Str("reason", reason).Int("plies", m.board.Ply())
	if winner != nil {
		ev = ev.Str("winner", winner.String())
	}
	ev.Msg("Match ended")
}

// Stop ends the timer without producing a result. Used on shutdown.
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
}

// Ended reports whether the match is over and, if so, how it ended.
func (m *Match) Ended() (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.ended
}

func (m *Match) recordLocked() archive.Record {
	moves := make([]chess.Move, len(m.moves))
	copy(moves, m.moves)
	return archive.Record{
		ID:            m.ID,
		WhiteUsername: m.players[chess.White].Username,
		BlackUsername: m.players[chess.Black].Username,
		Moves:         moves,
		DateTime:      m.startedAt.UnixMilli(),
		Winner:        m.result.Winner,
		Reason:        m.result.Reason,
	}
}

func (m *Match) stateLocked(player *chess.Colour) GameState {
	moves := make([]chess.Move, len(m.moves))
	copy(moves, m.moves)
	var offer *chess.Colour
	for c, up := range m.drawOffers {
		if up {
			colour := chess.Colour(c)
			offer = &colour
		}
	}
	return GameState{
		Type:   TypeGameState,
		GameID: m.ID,
		Board:  m.board.Serialise(),
		Moves:  moves,
		Turn:   m.board.Turn(),
		Player: player,
		Usernames: Usernames{
			White: m.players[chess.White].Username,
			Black: m.players[chess.Black].Username,
		},
		Clocks:    m.wireClocks(m.now()),
		DrawOffer: offer,
		Material:  m.board.Material(),
		Captured:  m.capturedLocked(),
		InCheck:   m.board.InCheck(m.board.Turn()),
	}
}

func (m *Match) capturedLocked() CapturedPieces {
	return CapturedPieces{
		White: m.board.Captured(chess.White),
		Black: m.board.Captured(chess.Black),
	}
}

// State returns the snapshot as a spectator sees it.
func (m *Match) State() GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(nil)
}

// Board returns a copy of the current position.
func (m *Match) Board() chess.Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.board
}

func (m *Match) broadcastLocked(msg any) {
	for conn := range m.subscribers {
		if err := conn.Send(msg); err != nil {
			m.logger.Debug().Err(err).Msg("Dropping subscriber after failed send")
			m.dropLocked(conn)
		}
	}
}

func (m *Match) dropLocked(conn Conn) {
	delete(m.subscribers, conn)
	for _, p := range m.players {
		if p.conn == conn {
			p.conn = nil
		}
	}
}

// Join subscribes conn as the player holding token. A previous connection
// for the same player is closed and replaced.
func (m *Match) Join(conn Conn, token string) (chess.Colour, error) {
	var (
		colour   chess.Colour
		replaced Conn
	)
	err := m.do(func() error {
		var err error
		colour, err = m.actorLocked(token)
		if err != nil {
			return err
		}
		p := m.players[colour]
		if p.conn != nil && p.conn != conn {
			replaced = p.conn
			m.dropLocked(replaced)
		}
		p.conn = conn
		m.subscribers[conn] = struct{}{}
		if err := conn.Send(m.stateLocked(&colour)); err != nil {
			m.dropLocked(conn)
		}
		return nil
	})
	// Closing can block on a control frame write, so it happens unlocked.
	if replaced != nil {
		if err := replaced.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("Closing replaced connection")
		}
	}
	return colour, err
}

// Spectate subscribes conn as an observer.
func (m *Match) Spectate(conn Conn) error {
	return m.do(func() error {
		if m.ended {
			return ErrMatchOver
		}
		m.subscribers[conn] = struct{}{}
		if err := conn.Send(m.stateLocked(nil)); err != nil {
			m.dropLocked(conn)
		}
		return nil
	})
}

// Leave unsubscribes conn. The match carries on without it.
func (m *Match) Leave(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(conn)
}

// ClockText holds both clocks formatted for display.
type ClockText struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// Summary is a lightweight public view of a live match.
type Summary struct {
	ID          string              `json:"id"`
	Usernames   Usernames           `json:"usernames"`
	Turn        chess.Colour        `json:"turn"`
	TurnNumber  int                 `json:"turnNumber"`
	Clocks      Clocks              `json:"clocks"`
	ClockText   ClockText           `json:"clockText"`
	Subscribers int                 `json:"subscribers"`
	Material    chess.MaterialCount `json:"material"`
	Captured    CapturedPieces      `json:"captured"`
	StartedAt   time.Time           `json:"startedAt"`
}

func (m *Match) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.clocksLocked(m.now())
	return Summary{
		ID: m.ID,
		Usernames: Usernames{
			White: m.players[chess.White].Username,
			Black: m.players[chess.Black].Username,
		},
		Turn:       m.board.Turn(),
		TurnNumber: m.board.Ply(),
		Clocks:     Clocks{White: millis(c[chess.White]), Black: millis(c[chess.Black])},
		ClockText: ClockText{
			White: FormatClock(c[chess.White]),
			Black: FormatClock(c[chess.Black]),
		},
		Subscribers: len(m.subscribers),
		Material:    m.board.Material(),
		Captured:    m.capturedLocked(),
		StartedAt:   m.startedAt,
	}
}
