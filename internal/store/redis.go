package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "webhook_logs"

// RedisStore keeps the log as a Redis list, oldest entry at the head.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedis(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisFromClient(client, key), nil
}

// NewRedisFromClient wraps an existing client. An empty key selects
// DefaultRedisKey.
func NewRedisFromClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Append(ctx context.Context, entry domain.LogEntry) error {
	data, err := encodeCompact(entry)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("pushing to %s: %w", s.key, err)
	}
	return nil
}

// Recent reads the length and the last n items in one pipeline.
func (s *RedisStore) Recent(ctx context.Context, n int) (int, []domain.LogEntry, error) {
	start := int64(-n)
	if n <= 0 {
		start = 0
	}

	pipe := s.client.Pipeline()
	lenCmd := pipe.LLen(ctx, s.key)
	rangeCmd := pipe.LRange(ctx, s.key, start, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, nil, &LogStoreError{Op: "read", Src: "redis:" + s.key, Err: err}
	}

	total := int(lenCmd.Val())
	if total == 0 {
		return 0, nil, ErrNoLogs
	}

	items := rangeCmd.Val()
	entries := make([]domain.LogEntry, 0, len(items))
	for i, item := range items {
		var e domain.LogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return 0, nil, &LogStoreError{
				Op:  "parse",
				Src: "redis:" + s.key,
				Err: fmt.Errorf("item %d: %w", total-len(items)+i, err),
			}
		}
		entries = append(entries, e)
	}
	return total, entries, nil
}
