package ratestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares the table between processes. A key is written with SET NX and
// a TTL equal to the window, so Redis itself arbitrates concurrent writers and
// expires old entries.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL and checks the connection.
func DialRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) Allow(ctx context.Context, key string, now time.Time, window time.Duration) (Decision, error) {
	k := r.prefix + key
	ok, err := r.client.SetNX(ctx, k, now.Unix(), window).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis setnx %s: %w", k, err)
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, k)
		pttl = p.PTTL(ctx, k)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		// Expired between the two round trips.
		return r.Allow(ctx, key, now, window)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("redis get %s: %w", k, err)
	}

	last, err := strconv.ParseInt(get.Val(), 10, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("redis value for %s: %w", k, err)
	}
	d := decide(last, true, now, window)
	if ttl := pttl.Val(); ttl > 0 {
		d.RetryAfter = ttl
	}
	// The key outlived its window (e.g. clock skew between writers): the
	// caller is not limited, overwrite it.
	if d.Allowed {
		if err := r.client.Set(ctx, k, now.Unix(), window).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis set %s: %w", k, err)
		}
		d.RetryAfter = 0
	}
	return d, nil
}

// Prune is a no-op, keys expire on their own.
func (r *Redis) Prune(context.Context, time.Time) (int, error) { return 0, nil }

func (r *Redis) Close() error { return r.client.Close() }
