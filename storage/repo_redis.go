package storage

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the go-redis client the repo needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisRepo stores each session key as a plain Redis string under prefix.
type RedisRepo struct {
	client RedisClient
	prefix string
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client RedisClient, prefix string) *RedisRepo {
	return &RedisRepo{client: client, prefix: prefix}
}

// DialRedis connects to addr and checks the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[DialRedis] ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisRepo) key(k string) string {
	return r.prefix + k
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if apperrors.Is(err, redis.Nil) {
		return "", apperrors.Wrapf(apperrors.ErrNotFound, "[RedisRepo Get] key %q", key)
	}
	if err != nil {
		return "", fmt.Errorf("[RedisRepo Get] key %q: %w", key, err)
	}
	return v, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Set] key %q: %w", key, err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Delete] key %q: %w", key, err)
	}
	return nil
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}
