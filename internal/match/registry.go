package match

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/clockchess/internal/archive"
	"github.com/justinabrahms/clockchess/internal/token"
)

const DefaultClock = 10 * time.Minute

var ErrSamePlayer = errors.New("a player cannot play themselves")

// Registry owns every live match by id. Finished matches are appended to the
// archive and then removed, whether or not the append succeeded.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*Match

	archive        archive.Archive
	clock          time.Duration
	now            func() time.Time
	pickWhite      func() (bool, error)
	archiveTimeout time.Duration
	logger         zerolog.Logger
}

type Option func(*Registry)

// WithClock sets each player's starting time.
func WithClock(d time.Duration) Option {
	return func(r *Registry) {
		r.clock = d
	}
}

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithColourPicker replaces the coin flip that decides whether the first
// entrant plays white.
func WithColourPicker(pick func() (bool, error)) Option {
	return func(r *Registry) {
		r.pickWhite = pick
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(a archive.Archive, opts ...Option) *Registry {
	r := &Registry{
		matches:        make(map[string]*Match),
		archive:        a,
		clock:          DefaultClock,
		now:            time.Now,
		pickWhite:      coinFlip,
		archiveTimeout: 10 * time.Second,
		logger:         log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func coinFlip() (bool, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return false, err
	}
	return n.Int64() == 0, nil
}

// Create starts a match between two entrants with colours chosen at random.
func (r *Registry) Create(a, b Entrant) (*Match, error) {
	if a.Token == b.Token {
		return nil, ErrSamePlayer
	}
	firstIsWhite, err := r.pickWhite()
	if err != nil {
		return nil, fmt.Errorf("pick colours: %w", err)
	}
	white, black := a, b
	if !firstIsWhite {
		white, black = b, a
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		id, err = token.Match()
		if err != nil {
			return nil, fmt.Errorf("generate match id: %w", err)
		}
		if _, taken := r.matches[id]; !taken {
			break
		}
	}

	m := newMatch(id, white, black, r.clock, r.now, r.logger)
	m.onEnd = r.finish
	r.matches[id] = m

	r.logger.Info().
		Str("gameID", id).
		Str("white", white.Username).
		Str("black", black.Username).
		Msg("Match created")
	return m, nil
}

func (r *Registry) Get(id string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	return m, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, id)
}

// Len is the number of live matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// List returns the live matches in no particular order.
func (r *Registry) List() []*Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out
}

// Leave unsubscribes conn from every live match.
func (r *Registry) Leave(conn Conn) {
	for _, m := range r.List() {
		m.Leave(conn)
	}
}

func (r *Registry) Archive() archive.Archive {
	return r.archive
}

func (r *Registry) finish(m *Match, rec archive.Record) {
	defer r.Remove(m.ID)
	if r.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.archiveTimeout)
	defer cancel()
	if err := r.archive.Append(ctx, rec); err != nil {
		r.logger.Error().Err(err).Str("gameID", m.ID).Msg("Failed to archive match")
		return
	}
	r.logger.Debug().Str("gameID", m.ID).Msg("Match archived")
}

// Close stops every clock timer. Live matches are abandoned, not archived.
func (r *Registry) Close() {
	for _, m := range r.List() {
		m.Stop()
	}
}
