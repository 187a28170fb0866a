// Package cache provides the explicit lookup cache the plan engine injects into its
// sources. Entries are keyed by (user, date, query) and expire after a fixed TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/daychain/internal/config"
	"github.com/julianstephens/daychain/internal/logger"
)

// Key identifies one cached lookup.
type Key struct {
	UserID string
	Date   string
	Query  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.UserID, k.Date, k.Query)
}

// Cache stores raw values. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, Key) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, Key, []byte) error         { return nil }
func (Nop) Delete(context.Context, Key) error              { return nil }

// GetOrLoad returns the cached value for key or calls load and caches its result. Cache
// failures are logged and never fail the lookup.
func GetOrLoad[T any](ctx context.Context, c Cache, key Key, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache read failed", "key", key.String(), "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			logger.Debug("Cache hit", "key", key.String())
			return v, nil
		}
		logger.Warn("Discarding undecodable cache entry", "key", key.String())
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Cache encode failed", "key", key.String(), "error", err)
		return v, nil
	}
	if err := c.Set(ctx, key, data); err != nil {
		logger.Warn("Cache write failed", "key", key.String(), "error", err)
	}
	return v, nil
}

// Open builds the backend named by cfg.
func Open(ctx context.Context, cfg config.Cache) (Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return Nop{}, nil
	case config.CacheRedis:
		r, err := NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.CacheMemory, "":
		return NewMemory(cfg.Size, cfg.TTL), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
