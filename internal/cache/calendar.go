// Package cache keeps rendered per-room availability calendars in Redis so
// calendar reads do not rebuild the index from Postgres on every request.
// Entries are short-lived and invalidated per room when a booking or
// cancellation commits; the cache is a read accelerator, never an input to
// conflict decisions.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type CalendarCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

func New(cfg Config) (*CalendarCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CalendarCache{client: client, keyPrefix: cfg.KeyPrefix, ttl: ttl}, nil
}

func (c *CalendarCache) Close() error {
	return c.client.Close()
}

func (c *CalendarCache) key(roomID, fromDay string, days int) string {
	return fmt.Sprintf("%scal:%s:%s:%d", c.keyPrefix, roomID, fromDay, days)
}

func (c *CalendarCache) roomPattern(roomID string) string {
	return fmt.Sprintf("%scal:%s:*", c.keyPrefix, roomID)
}

// Get returns the cached calendar payload for the room and window, with a
// hit flag. Cache errors degrade to a miss so Redis outages never break
// calendar reads.
func (c *CalendarCache) Get(ctx context.Context, roomID, fromDay string, days int) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(roomID, fromDay, days)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *CalendarCache) Set(ctx context.Context, roomID, fromDay string, days int, payload []byte) error {
	return c.client.Set(ctx, c.key(roomID, fromDay, days), payload, c.ttl).Err()
}

// InvalidateRoom drops every cached window for the room. Called after a
// booking or cancellation commits so the next calendar read sees the change.
func (c *CalendarCache) InvalidateRoom(ctx context.Context, roomID string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.roomPattern(roomID), 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func ReadyCheck(c *CalendarCache) func(context.Context) error {
	return func(ctx context.Context) error {
		if c == nil {
			return errors.New("cache not configured")
		}
		return c.client.Ping(ctx).Err()
	}
}
