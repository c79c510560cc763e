package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultMemoryBytes bounds a Memory cache built with NewMemory(0).
const DefaultMemoryBytes = 64 << 20

// Memory is a process local Cache. It backs tests and single instance setups without redis.
// It holds at most maxBytes of values; the least valuable entries are evicted first
// and expired entries are swept in the background.
type Memory struct {
	c *ristretto.Cache[string, []byte]
}

// NewMemory returns a Memory bounded to maxBytes, or DefaultMemoryBytes when maxBytes <= 0.
func NewMemory(maxBytes int64) (*Memory, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMemoryBytes
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// about ten counters per expected entry, entries being at least ~1KB of json
		NumCounters:        max(maxBytes/100, 1000),
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &Memory{c: c}, nil
}

var _ Cache = &Memory{}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key. A ttl <= 0 never expires. Values larger than the
// cache bound are silently not stored.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	v := append([]byte(nil), value...)
	m.c.SetWithTTL(key, v, int64(len(v)), ttl)
	// Make the write visible to the next Get.
	m.c.Wait()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Del(k)
	}
	return nil
}

// Close stops the background goroutines of the cache.
func (m *Memory) Close() {
	m.c.Close()
}
