package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/julianstephens/daychain/internal/constants"
)

type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedis connects to addr and pings it before returning.
func NewRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(rdb, ttl), nil
}

// NewRedisWithClient wraps an existing client without pinging it.
func NewRedisWithClient(rdb *goredis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) key(k Key) string {
	return constants.AppName + ":cache:" + k.String()
}

func (r *Redis) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key Key, value []byte) error {
	return r.rdb.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key Key) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
