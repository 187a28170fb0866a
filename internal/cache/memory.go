package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is an in-process LRU with a fixed TTL.
type Memory struct {
	lru *expirable.LRU[Key, []byte]
}

// NewMemory returns a cache holding at most size entries for ttl each. A size of zero
// means unbounded.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[Key, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	m.lru.Add(key, slices.Clone(value))
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
