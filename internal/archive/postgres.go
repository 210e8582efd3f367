package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/clockchess/internal/chess"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS chess_games (
	id             TEXT PRIMARY KEY,
	white_username TEXT NOT NULL,
	black_username TEXT NOT NULL,
	moves          JSONB NOT NULL,
	winner         TEXT,
	reason         TEXT NOT NULL,
	pgn            TEXT NOT NULL,
	played_at      TIMESTAMPTZ NOT NULL
)`

const postgresColumns = `id, white_username, black_username, moves, winner, reason, played_at`

// Postgres stores records in the chess_games table, alongside a PGN
// rendering for use outside this server.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("archive.postgres.url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chess_games: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (a *Postgres) Append(ctx context.Context, rec Record) error {
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return fmt.Errorf("encode moves for %s: %w", rec.ID, err)
	}
	pgn, err := rec.PGN()
	if err != nil {
		log.Warn().Err(err).Str("gameID", rec.ID).Msg("Failed to render PGN for archive")
	}
	var winner sql.NullString
	if rec.Winner != nil {
		winner = sql.NullString{String: rec.Winner.String(), Valid: true}
	}

	_, err = a.db.ExecContext(ctx, `INSERT INTO chess_games (
		id, white_username, black_username, moves, winner, reason, pgn, played_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.WhiteUsername, rec.BlackUsername, string(moves),
		winner, rec.Reason, pgn, rec.PlayedAt().UTC(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec      Record
		moves    []byte
		winner   sql.NullString
		playedAt time.Time
	)
	if err := row.Scan(&rec.ID, &rec.WhiteUsername, &rec.BlackUsername, &moves, &winner, &rec.Reason, &playedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(moves, &rec.Moves); err != nil {
		return Record{}, fmt.Errorf("decode moves for %s: %w", rec.ID, err)
	}
	if winner.Valid {
		var c chess.Colour
		if err := c.UnmarshalText([]byte(winner.String)); err != nil {
			return Record{}, err
		}
		rec.Winner = &c
	}
	rec.DateTime = playedAt.UnixMilli()
	return rec, nil
}

func (a *Postgres) Get(ctx context.Context, id string) (Record, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+postgresColumns+` FROM chess_games WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (a *Postgres) Query(ctx context.Context, match func(Record) bool) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+postgresColumns+` FROM chess_games ORDER BY played_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if accept(match, rec) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func (a *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chess_games`).Scan(&n)
	return n, err
}

func (a *Postgres) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
