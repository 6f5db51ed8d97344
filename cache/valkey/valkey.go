package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/mzalendo/lingopref/cache"
)

// Options contains configuration for the Valkey cache.
type Options struct {
	URI    string
	MaxAge time.Duration
}

// Cache is a Valkey-backed cache implementation using the official Valkey client.
type Cache struct {
	client valkey.Client
	maxAge time.Duration
}

const connectionTimeout = 5 * time.Second

// New creates a new Valkey cache.
func New(opts Options) (cache.RawCache, error) {
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}

	valkeyOpts, err := valkey.ParseURL(opts.URI)
	if err != nil {
		return nil, err
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, err
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Do(ctx, client.B().Ping().Build()).Error(); pingErr != nil {
		client.Close()
		return nil, pingErr
	}

	return &Cache{
		client: client,
		maxAge: opts.MaxAge,
	}, nil
}

// Get retrieves an item from the cache.
func (vc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := vc.client.B().Get().Key(key).Build()
	resp := vc.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	val, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}

	return val, true, nil
}

// Set sets an item in the cache with the specified TTL.
func (vc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = vc.maxAge
	}

	// Valkey Ex() expects seconds, not a duration
	seconds := int64(ttl.Seconds())
	if seconds == 0 {
		seconds = 1 // Minimum 1 second for sub-second durations
	}

	cmd := vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	return vc.client.Do(ctx, cmd).Error()
}

// Delete removes an item from the cache.
func (vc *Cache) Delete(ctx context.Context, key string) error {
	cmd := vc.client.B().Del().Key(key).Build()
	return vc.client.Do(ctx, cmd).Error()
}

// Exists checks if a key exists in the cache.
func (vc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	cmd := vc.client.B().Exists().Key(key).Build()
	count, err := vc.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Flush clears all items from the cache.
func (vc *Cache) Flush(ctx context.Context) error {
	cmd := vc.client.B().Flushdb().Build()
	return vc.client.Do(ctx, cmd).Error()
}

// Close releases the underlying client.
func (vc *Cache) Close() error {
	vc.client.Close()
	return nil
}
