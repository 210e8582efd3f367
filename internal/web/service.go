package web

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/clockchess/internal/archive"
	"github.com/justinabrahms/clockchess/internal/chess"
	"github.com/justinabrahms/clockchess/internal/match"
	"github.com/justinabrahms/clockchess/internal/token"
)

// Service answers WebSocket messages and HTTP requests on behalf of the
// registry and lobby.
type Service struct {
	registry *match.Registry
	lobby    *match.Lobby
	hub      *Hub

	startedAt      time.Time
	archiveTimeout time.Duration
	logger         zerolog.Logger
}

type Option func(*Service)

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithArchiveTimeout bounds every archive read made on behalf of a client.
func WithArchiveTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.archiveTimeout = d
	}
}

func NewService(registry *match.Registry, lobby *match.Lobby, hub *Hub, opts ...Option) *Service {
	s := &Service{
		registry:       registry,
		lobby:          lobby,
		hub:            hub,
		startedAt:      time.Now(),
		archiveTimeout: 10 * time.Second,
		logger:         log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) archiveContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.archiveTimeout)
}

func reply(conn match.Conn, v any) {
	// A failed send means the connection is going away; its read pump
	// cleans up.
	_ = conn.Send(v)
}

func replyError(conn match.Conn, text string) {
	reply(conn, ErrorMessage{Type: TypeError, Error: text})
}

// errorText maps a rejection from the match layer to the text shown to the
// client.
func errorText(err error) string {
	switch {
	case errors.Is(err, match.ErrInvalidToken):
		return errInvalidToken
	case errors.Is(err, match.ErrNotYourTurn):
		return errNotYourTurn
	case errors.Is(err, match.ErrMatchOver):
		return errGameOver
	case errors.Is(err, match.ErrNoPendingPromotion):
		return errNoPromotion
	case errors.Is(err, match.ErrAlreadyWaiting):
		return errAlreadyWaiting
	case errors.Is(err, match.ErrSamePlayer):
		return errSamePlayer
	case errors.Is(err, chess.ErrIllegalMove):
		return errIllegalMove
	case errors.Is(err, chess.ErrInvalidPromotion):
		return errInvalidPromotion
	default:
		return errInternal
	}
}

// HandleMessage decodes one inbound message and dispatches it by type.
// Every rejection is answered with an error message; none changes state.
func (s *Service) HandleMessage(conn match.Conn, raw []byte) {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		replyError(conn, errInvalidJSON)
		return
	}

	switch req.Type {
	case "":
		replyError(conn, errMissingType)
	case "ping":
		reply(conn, map[string]string{"type": "pong"})
	case TypeGetUserToken:
		s.getUserToken(conn)
	case TypeJoinGame:
		s.joinGame(conn, req)
	case TypePlayGame:
		s.playGame(conn, req)
	case TypeSpectateGame:
		s.spectateGame(conn, req)
	case TypeMove:
		s.move(conn, req)
	case TypePromote:
		s.promote(conn, req)
	case TypeResign:
		s.resign(conn, req)
	case TypeOfferDraw:
		s.offerDraw(conn, req)
	case TypeAnalyseGame:
		s.analyseGame(conn, req)
	case TypeGetServerStats:
		reply(conn, s.stats())
	default:
		replyError(conn, `Unknown message type "`+req.Type+`".`)
	}
}

// disconnect forgets conn everywhere it may still be referenced.
func (s *Service) disconnect(conn match.Conn) {
	s.lobby.Leave(conn)
	s.registry.Leave(conn)
}

func (s *Service) getUserToken(conn match.Conn) {
	tok, err := token.User()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate user token")
		replyError(conn, errInternal)
		return
	}
	reply(conn, UserTokenMessage{Type: TypeUserToken, Token: tok})
}

func (s *Service) joinGame(conn match.Conn, req request) {
	if req.Token == "" {
		replyError(conn, missingField("token"))
		return
	}
	if req.Username == "" {
		replyError(conn, missingField("username"))
		return
	}
	if _, err := s.lobby.Join(conn, match.Entrant{Token: req.Token, Username: req.Username}); err != nil {
		if errorText(err) == errInternal {
			s.logger.Error().Err(err).Msg("Failed to create match")
		}
		replyError(conn, errorText(err))
	}
}

// liveMatch checks the fields every in-game message shares and resolves the
// match. It answers the client itself when it returns false.
func (s *Service) liveMatch(conn match.Conn, req request, needToken bool) (*match.Match, bool) {
	if req.GameID == "" {
		replyError(conn, missingField("gameID"))
		return nil, false
	}
	if needToken && req.Token == "" {
		replyError(conn, missingField("token"))
		return nil, false
	}
	m, ok := s.registry.Get(req.GameID)
	if !ok {
		replyError(conn, errInvalidGameID)
		return nil, false
	}
	return m, true
}

func (s *Service) playGame(conn match.Conn, req request) {
	m, ok := s.liveMatch(conn, req, true)
	if !ok {
		return
	}
	if _, err := m.Join(conn, req.Token); err != nil {
		replyError(conn, errorText(err))
	}
}

func (s *Service) spectateGame(conn match.Conn, req request) {
	m, ok := s.liveMatch(conn, req, false)
	if !ok {
		return
	}
	if err := m.Spectate(conn); err != nil {
		replyError(conn, errorText(err))
	}
}

func (s *Service) move(conn match.Conn, req request) {
	m, ok := s.liveMatch(conn, req, true)
	if !ok {
		return
	}
	if req.From == nil {
		replyError(conn, missingField("from"))
		return
	}
	if req.To == nil {
		replyError(conn, missingField("to"))
		return
	}
	promotion := chess.NoPieceType
	if req.Promotion != "" {
		if err := promotion.UnmarshalText([]byte(req.Promotion)); err != nil {
			replyError(conn, errInvalidPromotion)
			return
		}
	}

	err := m.Move(req.Token, *req.From, *req.To, promotion)
	switch {
	case err == nil:
	case errors.Is(err, chess.ErrPromotionRequired):
		reply(conn, match.PromotionRequiredMessage{
			Type:   match.TypePromotionRequired,
			GameID: m.ID,
			From:   *req.From,
			To:     *req.To,
		})
	default:
		replyError(conn, errorText(err))
	}
}

func (s *Service) promote(conn match.Conn, req request) {
	m, ok := s.liveMatch(conn, req, true)
	if !ok {
		return
	}
	if req.Promotion == "" {
		replyError(conn, missingField("promotion"))
		return
	}
	var promotion chess.PieceType
	if err := promotion.UnmarshalText([]byte(req.Promotion)); err != nil {
		replyError(conn, errInvalidPromotion)
		return
	}
	if err := m.CompletePromotion(req.Token, promotion); err != nil {
		replyError(conn, errorText(err))
	}
}

func (s *Service) resign(conn match.Conn, req request) {
	m, ok := s.liveMatch(conn, req, true)
	if !ok {
		return
	}
	if err := m.Resign(req.Token); err != nil {
		replyError(conn, errorText(err))
	}
}

func (s *Service) offerDraw(conn match.Conn, req request) {
	m, ok := s.liveMatch(conn, req, true)
	if !ok {
		return
	}
	if err := m.OfferDraw(req.Token); err != nil {
		replyError(conn, errorText(err))
	}
}

func (s *Service) analyseGame(conn match.Conn, req request) {
	if req.GameID == "" {
		replyError(conn, missingField("gameID"))
		return
	}
	a := s.registry.Archive()
	if a == nil {
		replyError(conn, errArchiveUnavailable)
		return
	}

	ctx, cancel := s.archiveContext()
	defer cancel()
	rec, err := archive.Find(ctx, a, req.GameID)
	if errors.Is(err, archive.ErrNotFound) {
		replyError(conn, errInvalidGameID)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("gameID", req.GameID).Msg("Failed to read archive")
		replyError(conn, errArchiveUnavailable)
		return
	}

	san, err := chess.SAN(rec.Moves)
	if err != nil {
		s.logger.Error().Err(err).Str("gameID", rec.ID).Msg("Archived game does not replay")
		replyError(conn, errInternal)
		return
	}
	pgn, err := rec.PGN()
	if err != nil {
		s.logger.Error().Err(err).Str("gameID", rec.ID).Msg("Failed to render PGN")
		replyError(conn, errInternal)
		return
	}
	reply(conn, GameMessage{Type: TypeGame, Game: rec, SAN: san, PGN: pgn})
}

func (s *Service) stats() ServerStatsMessage {
	games := s.registry.Len()
	return ServerStatsMessage{
		Type:                 TypeServerStats,
		Games:                games,
		Players:              games * 2,
		WebSocketConnections: s.hub.Len(),
	}
}
