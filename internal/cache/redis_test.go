// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupMiniRedis starts an in-process redis and a cache bound to it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, &Redis{client: client, prefix: DefaultKeyPrefix, logger: zerolog.Nop()}
}

func TestRedisSetGet(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "snapshot:latest", []byte(`{"id":"abc"}`), 5*time.Minute)

	val, found := c.Get(ctx, "snapshot:latest")
	if !found {
		t.Fatal("expected value to be found")
	}
	if string(val) != `{"id":"abc"}` {
		t.Errorf("unexpected payload %q", val)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Sets != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRedisKeysCarryPrefix(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)

	if !mr.Exists("buildcfg:k") {
		t.Error("expected key to be stored under the buildcfg prefix")
	}
}

func TestRedisMiss(t *testing.T) {
	_, c := setupMiniRedis(t)

	_, found := c.Get(context.Background(), "absent")
	if found {
		t.Fatal("expected miss")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("expected one miss, got %+v", c.Stats())
	}
}

func TestRedisExpiry(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "shortlived", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, found := c.Get(ctx, "shortlived"); found {
		t.Fatal("expected entry to expire")
	}
}

func TestRedisDelete(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")

	if _, found := c.Get(ctx, "k"); found {
		t.Fatal("expected key to be deleted")
	}
}

func TestRedisClearKeepsForeignKeys(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	if err := mr.Set("othertenant:k", "v"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}
	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Clear(ctx)

	if got := c.Stats().Entries; got != 0 {
		t.Errorf("expected no buildcfg entries after clear, got %d", got)
	}
	if !mr.Exists("othertenant:k") {
		t.Error("clear must not touch keys outside the buildcfg prefix")
	}
}

func TestRedisStatsCountsPrefixedEntries(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	if err := mr.Set("othertenant:k", "v"); err != nil {
		t.Fatalf("seed foreign key: %v", err)
	}
	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	if got := c.Stats().Entries; got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}
}

func TestRedisHealthCheck(t *testing.T) {
	mr, c := setupMiniRedis(t)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("healthcheck against running redis: %v", err)
	}

	mr.Close()
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected healthcheck to fail after shutdown")
	}
}

func TestNewRedisConnects(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	c, err := NewRedis(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, found := c.Get(ctx, "k"); !found {
		t.Fatal("expected round trip through real constructor")
	}
}
