package overlay

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each collection in one hash (field = record id).
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore parses a redis:// URL and pings the server.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, prefix), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "medibook"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(collection string) string {
	return r.prefix + ":" + collection
}

func (r *RedisStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	raw, err := r.client.HGet(ctx, r.key(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget %s/%s: %w", collection, id, err)
	}
	return raw, nil
}

func (r *RedisStore) Put(ctx context.Context, collection, id string, data []byte) error {
	if err := r.client.HSet(ctx, r.key(collection), id, data).Err(); err != nil {
		return fmt.Errorf("redis hset %s/%s: %w", collection, id, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, collection, id string) error {
	n, err := r.client.HDel(ctx, r.key(collection), id).Result()
	if err != nil {
		return fmt.Errorf("redis hdel %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, collection string) ([][]byte, error) {
	all, err := r.client.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", collection, err)
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, []byte(all[id]))
	}
	return out, nil
}

// Ping is used by the readiness endpoint.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
