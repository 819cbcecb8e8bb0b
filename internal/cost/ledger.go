package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/workflow-generator/internal/types"
)

// DefaultLedgerKey is the sorted set holding recorded attempts.
const DefaultLedgerKey = "workflowgen:spend"

// RedisLedger stores attempts in a Redis sorted set scored by time, so
// several server instances share one spend window.
type RedisLedger struct {
	client *redis.Client
	key    string
	window time.Duration
}

// NewRedisLedger parses a redis:// URL and returns a ledger.
func NewRedisLedger(redisURL string, window time.Duration) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisLedgerFromClient(redis.NewClient(opts), window), nil
}

// NewRedisLedgerFromClient wraps an existing client.
func NewRedisLedgerFromClient(client *redis.Client, window time.Duration) *RedisLedger {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RedisLedger{client: client, key: DefaultLedgerKey, window: window}
}

// Ping checks connectivity.
func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Append adds an attempt and trims entries older than the window.
func (l *RedisLedger) Append(ctx context.Context, attempt types.GenerationAttempt) error {
	member, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}
	cutoff := attempt.At.Add(-l.window).UnixMilli()

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, l.key, redis.Z{Score: float64(attempt.At.UnixMilli()), Member: string(member)})
	pipe.ZRemRangeByScore(ctx, l.key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

// Load returns attempts recorded after since, oldest first.
func (l *RedisLedger) Load(ctx context.Context, since time.Time) ([]types.GenerationAttempt, error) {
	members, err := l.client.ZRangeByScore(ctx, l.key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	attempts := make([]types.GenerationAttempt, 0, len(members))
	for _, m := range members {
		var a types.GenerationAttempt
		if err := json.Unmarshal([]byte(m), &a); err != nil {
			continue
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// Close closes the underlying client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
