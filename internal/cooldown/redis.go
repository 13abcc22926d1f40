package cooldown

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akavalov/fairwatch/internal/domain"
)

// RedisOptions holds connection parameters for the Redis-backed tracker.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// RedisTracker keeps cooldown windows as TTL keys in Redis, so windows
// survive restarts and are shared when several instances watch the same
// venues.
//
// Key schema:
//
//	cooldown:{venue}:{instrument} - "1" with the venue's window as TTL
type RedisTracker struct {
	rdb      *redis.Client
	windows  map[string]time.Duration
	fallback time.Duration
}

// NewRedisTracker dials Redis, pings it to verify connectivity, and returns
// the tracker. windows maps a venue name to its cooldown duration; venues
// not listed use fallback.
func NewRedisTracker(ctx context.Context, opts RedisOptions, windows map[string]time.Duration, fallback time.Duration) (*RedisTracker, error) {
	rOpts := &redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   opts.PoolSize,
		MaxRetries: opts.MaxRetries,
	}
	if opts.TLSEnabled {
		rOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(rOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cooldown: redis ping: %w", err)
	}

	if fallback <= 0 {
		fallback = 2 * time.Minute
	}
	return &RedisTracker{rdb: rdb, windows: windows, fallback: fallback}, nil
}

func (t *RedisTracker) key(key domain.AlertKey) string {
	return "cooldown:" + key.String()
}

// Window returns the cooldown duration for venue.
func (t *RedisTracker) Window(venue string) time.Duration {
	if d, ok := t.windows[venue]; ok && d > 0 {
		return d
	}
	return t.fallback
}

// Mark implements Tracker.
func (t *RedisTracker) Mark(ctx context.Context, key domain.AlertKey) error {
	if err := t.rdb.Set(ctx, t.key(key), "1", t.Window(key.Venue)).Err(); err != nil {
		return fmt.Errorf("cooldown: mark %s: %w", key, err)
	}
	return nil
}

// IsActive implements Tracker.
func (t *RedisTracker) IsActive(ctx context.Context, key domain.AlertKey) (bool, error) {
	n, err := t.rdb.Exists(ctx, t.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown: check %s: %w", key, err)
	}
	return n > 0, nil
}

// Release implements Tracker.
func (t *RedisTracker) Release(ctx context.Context, key domain.AlertKey) error {
	if err := t.rdb.Del(ctx, t.key(key)).Err(); err != nil {
		return fmt.Errorf("cooldown: release %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (t *RedisTracker) Close() error {
	return t.rdb.Close()
}
