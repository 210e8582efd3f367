// Package archive stores finished games so they can be listed and replayed.
package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/justinabrahms/clockchess/internal/chess"
	"github.com/justinabrahms/clockchess/internal/config"
)

var ErrNotFound = errors.New("game not found")

// Record is one finished game.
type Record struct {
	ID            string        `json:"id"`
	WhiteUsername string        `json:"whiteUsername"`
	BlackUsername string        `json:"blackUsername"`
	Moves         []chess.Move  `json:"moves"`
	DateTime      int64         `json:"dateTime"` // milliseconds since the Unix epoch
	Winner        *chess.Colour `json:"winner"`
	Reason        string        `json:"reason"`
}

func (r Record) PlayedAt() time.Time {
	return time.UnixMilli(r.DateTime)
}

// PGN renders the record with standard tag pairs.
func (r Record) PGN() (string, error) {
	return chess.PGN(chess.PGNHeader{
		Event:       "Casual game",
		Site:        "clockchess",
		Date:        r.PlayedAt().UTC(),
		White:       r.WhiteUsername,
		Black:       r.BlackUsername,
		Result:      chess.ResultToken(r.Winner),
		Termination: r.Reason,
	}, r.Moves)
}

// Archive is an append-only store of finished games.
type Archive interface {
	Append(ctx context.Context, rec Record) error
	// Query returns every record accepted by match, oldest first. A nil
	// match accepts everything.
	Query(ctx context.Context, match func(Record) bool) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// getter is implemented by backends that can look a record up by id
// without scanning.
type getter interface {
	Get(ctx context.Context, id string) (Record, error)
}

// Find returns the record with the given id.
func Find(ctx context.Context, a Archive, id string) (Record, error) {
	if g, ok := a.(getter); ok {
		return g.Get(ctx, id)
	}
	recs, err := a.Query(ctx, func(r Record) bool { return r.ID == id })
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

// Recent returns up to limit records, newest first. A limit of zero or less
// returns everything.
func Recent(ctx context.Context, a Archive, limit int) ([]Record, error) {
	recs, err := a.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	// Backends return append order, so reversing first keeps later appends
	// ahead on equal timestamps.
	slices.Reverse(recs)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].DateTime > recs[j].DateTime })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Open connects the backend named in cfg.
func Open(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFile(cfg.File.Path)
	case "redis":
		return NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Key)
	case "postgres":
		return NewPostgres(ctx, cfg.Postgres.URL)
	case "s3":
		return NewS3(ctx, cfg.S3.Bucket, cfg.S3.Prefix)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

func accept(match func(Record) bool, r Record) bool {
	return match == nil || match(r)
}
