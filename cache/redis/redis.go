// Package redis backs the selection cache with a Redis server, for
// deployments that already run one instead of Valkey.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mzalendo/lingopref/cache"
)

// Options configures the Redis connection. URI is a redis:// connection
// string; MaxAge bounds entries stored without an explicit TTL.
type Options struct {
	URI    string
	MaxAge time.Duration
}

// Cache implements cache.RawCache over a go-redis client.
type Cache struct {
	client *redis.Client
	maxAge time.Duration
}

const connectionTimeout = 5 * time.Second

// New connects to the Redis instance named by the options and verifies the
// connection with a ping.
func New(opts Options) (cache.RawCache, error) {
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}

	redisOpts, err := redis.ParseURL(opts.URI)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, pingErr
	}

	return &Cache{
		client: client,
		maxAge: opts.MaxAge,
	}, nil
}

func (rc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set stores the value. Entries without a TTL expire after the configured
// max age so abandoned sessions do not accumulate.
func (rc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.maxAge
	}
	return rc.client.Set(ctx, key, value, ttl).Err()
}

func (rc *Cache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

func (rc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rc *Cache) Flush(ctx context.Context) error {
	return rc.client.FlushDB(ctx).Err()
}

func (rc *Cache) Close() error {
	return rc.client.Close()
}
