// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cache holds serialized response payloads for the read
// endpoints. Target listings re-read per-target metadata and snapshot
// lookups hit the store; both are cached as raw bytes under short TTLs.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/buildcfg/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultCleanupInterval is how often the in-memory backend sweeps
// expired entries.
const DefaultCleanupInterval = time.Minute

// Cache stores serialized payloads with per-entry TTLs.
type Cache interface {
	// Get returns the payload for key, or false when absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a payload under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes key.
	Delete(ctx context.Context, key string)
	// Clear removes every entry this cache owns.
	Clear(ctx context.Context)
	// Stats reports counters for health and debug output.
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
	Entries   int
}

// New builds the backend named by the configuration.
func New(backend, redisAddr string, logger zerolog.Logger) (Cache, error) {
	switch backend {
	case "", "memory":
		return NewMemory(DefaultCleanupInterval), nil
	case "redis":
		return NewRedis(RedisConfig{Addr: redisAddr}, logger)
	case "noop":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates an in-process cache. A background pass removes
// expired entries every cleanupInterval; zero disables the sweep.
func NewMemory(cleanupInterval time.Duration) *Memory {
	c := &Memory{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		c.misses.Add(1)
		metrics.RecordCacheOp("memory", "get", "miss")
		return nil, false
	}
	c.hits.Add(1)
	metrics.RecordCacheOp("memory", "get", "hit")
	return e.value, true
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	// Entries are handed back by reference on Get, so the stored copy
	// must not alias the caller's buffer.
	buf := make([]byte, len(value))
	copy(buf, value)

	c.mu.Lock()
	c.entries[key] = entry{value: buf, expires: time.Now().Add(ttl)}
	c.mu.Unlock()

	c.sets.Add(1)
	metrics.RecordCacheOp("memory", "set", "ok")
}

func (c *Memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Memory) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *Memory) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}

// Close ends the background sweep.
func (c *Memory) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *Memory) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory) deleteExpired() int {
	now := time.Now()

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
	}
	return removed
}

type noopCache struct{}

// NewNoop returns a cache that never stores anything.
func NewNoop() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noopCache) Set(context.Context, string, []byte, time.Duration) {}
func (noopCache) Delete(context.Context, string)                     {}
func (noopCache) Clear(context.Context)                              {}
func (noopCache) Stats() Stats                                       { return Stats{} }
