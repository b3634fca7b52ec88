package kv

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by [Redis].
const DefaultRedisPrefix = "gosession:"

// Redis is a [Store] backed by a go-redis client. Keys never expire; the
// session package removes them explicitly on logout.
type Redis struct {
	client redis.UniversalClient
	prefix string
	owns   bool
	closed atomic.Bool
}

// RedisOption configures a [Redis] store.
type RedisOption func(*Redis)

// WithRedisPrefix overrides [DefaultRedisPrefix].
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithOwnedClient makes Close also close the underlying client.
func WithOwnedClient() RedisOption {
	return func(r *Redis) {
		r.owns = true
	}
}

// NewRedis wraps client. The client is shared by default and left open on
// Close.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get reads one key.
//
//	Performance: 1 Redis GET.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if r.closed.Load() {
		return "", false, ErrStoreClosed
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return v, true, nil
}

// Set writes one key without expiry.
//
//	Performance: 1 Redis SET.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Remove deletes one key.
//
//	Performance: 1 Redis DEL.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Prefix returns the key namespace.
func (r *Redis) Prefix() string {
	return r.prefix
}

func (r *Redis) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if r.owns {
		return r.client.Close()
	}
	return nil
}
