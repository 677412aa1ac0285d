// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/ManuGH/buildcfg/internal/store"
	"github.com/ManuGH/buildcfg/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(id string, createdAt time.Time) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ID:                id,
		CreatedAt:         createdAt,
		Tool:              "test",
		TargetEnvironment: target.EnvSimulator,
		TargetCPU:         target.CPUX64,
	}
}

func TestStoreBackends(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) store.Store
	}{
		{
			name: "memory",
			open: func(t *testing.T) store.Store {
				return store.NewMemoryStore(0)
			},
		},
		{
			name: "badger",
			open: func(t *testing.T) store.Store {
				s, err := store.OpenBadgerStore(t.TempDir(), 0)
				require.NoError(t, err)
				return s
			},
		},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			s := backend.open(t)
			defer func() {
				require.NoError(t, s.Close())
			}()

			base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			first := testSnapshot("snap-1", base)
			second := testSnapshot("snap-2", base.Add(time.Minute))

			// Empty store
			got, err := s.Latest(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			got, err = s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, got)

			// Put + Get round trip
			require.NoError(t, s.Put(ctx, first))
			got, err = s.Get(ctx, "snap-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, first.ID, got.ID)
			assert.Equal(t, target.EnvSimulator, got.TargetEnvironment)

			// Latest follows the most recent Put
			require.NoError(t, s.Put(ctx, second))
			got, err = s.Latest(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "snap-2", got.ID)

			// List newest first
			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "snap-2", list[0].ID)
			assert.Equal(t, "snap-1", list[1].ID)

			// Delete
			require.NoError(t, s.Delete(ctx, "snap-1"))
			got, err = s.Get(ctx, "snap-1")
			require.NoError(t, err)
			assert.Nil(t, got)

			// Deleting an absent ID is not an error
			require.NoError(t, s.Delete(ctx, "never-existed"))
		})
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(10 * time.Millisecond)

	require.NoError(t, s.Put(ctx, testSnapshot("ephemeral", time.Now().UTC())))
	time.Sleep(30 * time.Millisecond)

	got, err := s.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.Nil(t, got, "expired snapshot must not be returned")

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestBadgerLatestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.OpenBadgerStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, testSnapshot("persisted", time.Now().UTC())))
	require.NoError(t, s.Close())

	reopened, err := store.OpenBadgerStore(dir, 0)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	got, err := reopened.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.ID)
}

func TestOpenFactory(t *testing.T) {
	s, err := store.Open("memory", "", 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open("", "", 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open("badger", t.TempDir(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = store.Open("bolt", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}
