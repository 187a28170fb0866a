package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/daychain/internal/config"
)

func TestKeyString(t *testing.T) {
	k := Key{UserID: "u1", Date: "2026-03-02", Query: "commitments"}
	if got := k.String(); got != "u1:2026-03-02:commitments" {
		t.Errorf("String() = %q", got)
	}
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, 50*time.Millisecond)
	k := Key{UserID: "u1", Date: "d", Query: "q"}

	if err := c.Set(ctx, k, []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := c.Get(ctx, k)
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	time.Sleep(120 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, k); ok {
		t.Error("entry should have expired")
	}
}

func TestMemoryDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)
	k := Key{Query: "q"}

	buf := []byte("abc")
	_ = c.Set(ctx, k, buf)
	buf[0] = 'z'
	v, _, _ := c.Get(ctx, k)
	if string(v) != "abc" {
		t.Errorf("stored value changed to %q", v)
	}

	_ = c.Delete(ctx, k)
	if c.Len() != 0 {
		t.Errorf("Len after delete = %d", c.Len())
	}
}

func TestMemoryEvictsLeastRecent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)
	a, b, d := Key{Query: "a"}, Key{Query: "b"}, Key{Query: "d"}

	_ = c.Set(ctx, a, []byte("1"))
	_ = c.Set(ctx, b, []byte("2"))
	_, _, _ = c.Get(ctx, a)
	_ = c.Set(ctx, d, []byte("3"))

	if _, ok, _ := c.Get(ctx, b); ok {
		t.Error("b should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, a); !ok {
		t.Error("a should still be cached")
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, Key) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingCache) Set(context.Context, Key, []byte) error { return errors.New("down") }
func (failingCache) Delete(context.Context, Key) error      { return errors.New("down") }

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	k := Key{UserID: "u1", Date: "d", Query: "tasks"}

	t.Run("loads once", func(t *testing.T) {
		c := NewMemory(10, time.Minute)
		calls := 0
		load := func(context.Context) ([]string, error) {
			calls++
			return []string{"a", "b"}, nil
		}
		for range 3 {
			v, err := GetOrLoad(ctx, c, k, load)
			if err != nil || len(v) != 2 {
				t.Fatalf("GetOrLoad = %v, %v", v, err)
			}
		}
		if calls != 1 {
			t.Errorf("loader called %d times, want 1", calls)
		}
	})

	t.Run("cache failure falls back to loader", func(t *testing.T) {
		v, err := GetOrLoad(ctx, failingCache{}, k, func(context.Context) (int, error) { return 7, nil })
		if err != nil || v != 7 {
			t.Errorf("GetOrLoad = %d, %v", v, err)
		}
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		c := NewMemory(10, time.Minute)
		boom := errors.New("boom")
		if _, err := GetOrLoad(ctx, c, k, func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if c.Len() != 0 {
			t.Error("failed load was cached")
		}
	})

	t.Run("nil cache", func(t *testing.T) {
		v, err := GetOrLoad(ctx, nil, k, func(context.Context) (string, error) { return "x", nil })
		if err != nil || v != "x" {
			t.Errorf("GetOrLoad = %q, %v", v, err)
		}
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, config.Cache{Backend: config.CacheNone})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(Nop); !ok {
		t.Errorf("none backend = %T", c)
	}

	c, err = Open(ctx, config.Cache{Backend: config.CacheMemory, Size: 4, TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*Memory); !ok {
		t.Errorf("memory backend = %T", c)
	}

	if _, err := Open(ctx, config.Cache{Backend: "bogus"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(ctx, config.Cache{Backend: config.CacheRedis}); err == nil {
		t.Error("expected error for redis without an address")
	}
}
