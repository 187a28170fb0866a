// Package config loads the engine, cache and server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/daychain/internal/constants"
)

type Engine struct {
	DefaultTravelMin int `yaml:"default_travel_min"`
	DefaultTaskMin   int `yaml:"default_task_min"`
}

type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
	CacheNone   CacheBackend = "none"
)

type Cache struct {
	Backend   CacheBackend  `yaml:"backend"`
	TTL       time.Duration `yaml:"ttl"`
	Size      int           `yaml:"size"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
}

type Server struct {
	Addr string `yaml:"addr"`
	// RateLimit is requests per second across all clients; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// Log controls the rotating log file. Level is overridden by --debug.
type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Engine Engine `yaml:"engine"`
	Cache  Cache  `yaml:"cache"`
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
}

func Default() Config {
	return Config{
		Engine: Engine{
			DefaultTravelMin: constants.DefaultTravelMin,
			DefaultTaskMin:   constants.DefaultTaskMin,
		},
		Cache: Cache{
			Backend: CacheMemory,
			TTL:     5 * time.Minute,
			Size:    256,
		},
		Server: Server{
			Addr:      "127.0.0.1:8080",
			RateLimit: 20,
			Burst:     40,
		},
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Engine.DefaultTravelMin < 0 {
		return fmt.Errorf("engine.default_travel_min must not be negative")
	}
	if c.Engine.DefaultTaskMin <= 0 {
		return fmt.Errorf("engine.default_task_min must be positive")
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server rate limit and burst must not be negative")
	}
	switch c.Log.Format {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

// Save writes cfg as YAML, creating or truncating path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
