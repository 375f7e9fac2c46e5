package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisKV implements KeyValue backed by Redis, for workflows whose static
// storage must outlive the process or be shared across runs.
type RedisKV struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisKV.
type RedisOption func(*RedisKV)

// WithTTL sets the expiration for stored values. Zero means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisKV) { s.ttl = ttl }
}

// WithPrefix sets the key prefix. Default "loom:kv:".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisKV) { s.prefix = prefix }
}

// NewRedisKV creates a Redis-backed store connecting to address.
func NewRedisKV(address, password string, db int, opts ...RedisOption) *RedisKV {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisKVFromClient(client, opts...)
}

// NewRedisKVFromClient creates a Redis-backed store from an existing client.
func NewRedisKVFromClient(client *backend.Client, opts ...RedisOption) *RedisKV {
	s := &RedisKV{
		client: client,
		prefix: "loom:kv:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisKV) key(k string) string {
	return s.prefix + k
}

func (s *RedisKV) indexKey() string {
	return s.prefix + "index"
}

// Put implements KeyValue.
func (s *RedisKV) Put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write to redis: %w", err)
	}
	return nil
}

// Get implements KeyValue.
func (s *RedisKV) Get(ctx context.Context, key string) (any, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("read from redis: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(val), &value); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return value, nil
}

// Delete implements KeyValue.
func (s *RedisKV) Delete(ctx context.Context, key string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(key))
	pipe.SRem(ctx, s.indexKey(), key)

	_, err := pipe.Exec(ctx)
	return err
}

// Keys implements KeyValue. Redis expires values on its own schedule, so
// each index member is checked against its value and pruned on a miss.
func (s *RedisKV) Keys(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	keys := make([]string, 0, len(members))
	for _, key := range members {
		n, err := s.client.Exists(ctx, s.key(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("check key %q: %w", key, err)
		}
		if n == 0 {
			s.client.SRem(ctx, s.indexKey(), key)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements KeyValue.
func (s *RedisKV) Close() error {
	return s.client.Close()
}
