package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := `
engine:
  default_travel_min: 35
cache:
  backend: redis
  ttl: 90s
  redis_addr: localhost:6379
server:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.DefaultTravelMin != 35 {
		t.Errorf("travel = %d", cfg.Engine.DefaultTravelMin)
	}
	if cfg.Engine.DefaultTaskMin != Default().Engine.DefaultTaskMin {
		t.Errorf("unset field lost its default: %d", cfg.Engine.DefaultTaskMin)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.TTL != 90*time.Second {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.Burst != Default().Server.Burst {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative travel", func(c *Config) { c.Engine.DefaultTravelMin = -1 }, "default_travel_min"},
		{"zero task", func(c *Config) { c.Engine.DefaultTaskMin = 0 }, "default_task_min"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheRedis }, "redis_addr"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache backend"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "ttl"},
		{"zero ttl without cache", func(c *Config) { c.Cache.Backend = CacheNone; c.Cache.TTL = 0 }, ""},
		{"negative burst", func(c *Config) { c.Server.Burst = -1 }, "burst"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"negative log size", func(c *Config) { c.Log.MaxSizeMB = -1 }, "rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	cfg := Default()
	cfg.Cache.Backend = CacheNone
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	_ = os.WriteFile(path, []byte("engine: [unclosed"), 0600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
