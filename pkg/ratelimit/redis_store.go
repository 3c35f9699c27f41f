package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a redis sorted set per key, scored by the
// event timestamp in nanoseconds. The set is how multiple worker processes
// share one frequency window per user without racing each other.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces all keys written by the store.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a redis-backed sliding window store.
func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrStoreRequired
	}
	s := &RedisStore{
		client: client,
		prefix: "ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func cutoffScore(window time.Duration) string {
	return strconv.FormatInt(time.Now().Add(-window).UnixNano(), 10)
}

func (s *RedisStore) Record(ctx context.Context, key string, ts time.Time, window time.Duration) error {
	k := s.key(key)
	score := float64(ts.UnixNano())
	// Member carries a random suffix so concurrent events landing on the
	// same nanosecond do not collapse into one set entry.
	member := fmt.Sprintf("%d-%s", ts.UnixNano(), uuid.NewString())

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: score, Member: member})
	pipe.ZRemRangeByScore(ctx, k, "-inf", "("+cutoffScore(window))
	pipe.PExpire(ctx, k, window)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int64, error) {
	return s.client.ZCount(ctx, s.key(key), cutoffScore(window), "+inf").Result()
}

func (s *RedisStore) Oldest(ctx context.Context, key string, window time.Duration) (time.Time, bool, error) {
	entries, err := s.client.ZRangeByScoreWithScores(ctx, s.key(key), &redis.ZRangeBy{
		Min:   cutoffScore(window),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, err
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(0, int64(entries[0].Score)), true, nil
}

// reserveScript trims expired members, then adds the new one only when the
// window is still under the limit. Running as a script makes the
// check-and-record atomic across worker processes.
var reserveScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[2]) then
	return {0, count}
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count + 1}
`)

func (s *RedisStore) Reserve(ctx context.Context, key string, ts time.Time, window time.Duration, limit int) (bool, int64, error) {
	member := fmt.Sprintf("%d-%s", ts.UnixNano(), uuid.NewString())

	raw, err := reserveScript.Run(ctx, s.client, []string{s.key(key)},
		strconv.FormatInt(ts.Add(-window).UnixNano(), 10),
		limit,
		ts.UnixNano(),
		member,
		window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, err
	}
	if len(raw) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected reserve reply %v", raw)
	}

	allowed, _ := raw[0].(int64)
	count, _ := raw[1].(int64)
	return allowed == 1, count, nil
}

func (s *RedisStore) Release(ctx context.Context, key string, window time.Duration) error {
	// The newest member holds the highest score.
	return s.client.ZRemRangeByRank(ctx, s.key(key), -1, -1).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
