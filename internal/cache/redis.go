package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix = "authz:"
	redisGenKey = redisPrefix + "gen"
)

// Redis shares decisions across replicas. Keys are namespaced by a
// generation counter; invalidation increments it and lets old keys expire.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Generation(ctx context.Context) (uint64, error) {
	gen, err := r.client.Get(ctx, redisGenKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("authz cache generation: %w", err)
	}
	return gen, nil
}

func (r *Redis) key(gen uint64, key string) string {
	return fmt.Sprintf("%s%d:%s", redisPrefix, gen, key)
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	gen, err := r.Generation(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	raw, err := r.client.Get(ctx, r.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("authz cache get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("authz cache decode: %w", err)
	}
	return e, true, nil
}

// Set writes under the caller's generation; a stale generation lands in a
// namespace Get no longer reads and simply expires.
func (r *Redis) Set(ctx context.Context, key string, gen uint64, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(gen, key), raw, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, redisGenKey).Err()
}
