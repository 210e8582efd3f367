package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis appends records to a list and indexes them by id in a hash.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis connects to url and verifies the server answers.
func NewRedis(ctx context.Context, url, key string) (*Redis, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("archive.redis.url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(rdb, key), nil
}

func NewRedisFromClient(rdb *redis.Client, key string) *Redis {
	if key == "" {
		key = "clockchess:games"
	}
	return &Redis{rdb: rdb, key: key}
}

func (a *Redis) keyIndex() string { return a.key + ":index" }

func (a *Redis) Append(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, a.key, raw)
		pipe.HSet(ctx, a.keyIndex(), rec.ID, raw)
		return nil
	})
	return err
}

func (a *Redis) Get(ctx context.Context, id string) (Record, error) {
	raw, err := a.rdb.HGet(ctx, a.keyIndex(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

func (a *Redis) Query(ctx context.Context, match func(Record) bool) ([]Record, error) {
	items, err := a.rdb.LRange(ctx, a.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var out []Record
	for i, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", a.key, i, err)
		}
		if accept(match, rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (a *Redis) Count(ctx context.Context) (int, error) {
	n, err := a.rdb.LLen(ctx, a.key).Result()
	return int(n), err
}

func (a *Redis) Close() error {
	if a == nil || a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}
