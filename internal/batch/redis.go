package batch

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix prefixes the hash key of every run.
const DefaultRedisPrefix = "scribe:batch:"

// defaultRedisTTL keeps finished runs visible to dashboards for a day.
const defaultRedisTTL = 24 * time.Hour

// RedisBoard mirrors board rows into a Redis hash keyed by run, one field per
// file holding the JSON-encoded [Status].
type RedisBoard struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisBoard connects to addr and verifies the connection.
func NewRedisBoard(ctx context.Context, addr string, runID uuid.UUID) (*RedisBoard, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("batch: redis ping %s: %w", addr, err)
	}
	return NewRedisBoardFromClient(client, DefaultRedisPrefix, runID), nil
}

// NewRedisBoardFromClient wraps an existing client. The board owns client
// from then on.
func NewRedisBoardFromClient(client *redis.Client, prefix string, runID uuid.UUID) *RedisBoard {
	return &RedisBoard{
		client: client,
		key:    prefix + runID.String(),
		ttl:    defaultRedisTTL,
	}
}

// Key is the Redis hash holding the run.
func (r *RedisBoard) Key() string { return r.key }

// Publish stores s and refreshes the key's expiry.
func (r *RedisBoard) Publish(ctx context.Context, s Status) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("batch: encode status: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, s.File, data)
		pipe.Expire(ctx, r.key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch: redis HSET %s: %w", r.key, err)
	}
	return nil
}

// Load reads every row of the run back, sorted by file.
func (r *RedisBoard) Load(ctx context.Context) ([]Status, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("batch: redis HGETALL %s: %w", r.key, err)
	}
	out := make([]Status, 0, len(fields))
	for file, raw := range fields {
		var s Status
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("batch: decode status of %q: %w", file, err)
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Status) int { return cmp.Compare(a.File, b.File) })
	return out, nil
}

// Close releases the connection.
func (r *RedisBoard) Close() error {
	return r.client.Close()
}
