// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/buildcfg/internal/snapshot"
)

// MemoryStore is an in-memory Store intended for tests and local iteration.
// Not durable; not suitable for production.
type MemoryStore struct {
	mu sync.RWMutex

	snaps  map[string]memoryEntry
	latest string
	ttl    time.Duration
}

type memoryEntry struct {
	snap *snapshot.Snapshot
	exp  time.Time
}

// NewMemoryStore creates an empty in-memory store. A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		snaps: make(map[string]memoryEntry),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Put(ctx context.Context, snap *snapshot.Snapshot) error {
	var exp time.Time
	if m.ttl > 0 {
		exp = time.Now().Add(m.ttl)
	}
	m.mu.Lock()
	m.snaps[snap.ID] = memoryEntry{snap: snap, exp: exp}
	m.latest = snap.ID
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.snaps[id]
	if !ok {
		return nil, nil
	}
	if !entry.exp.IsZero() && now.After(entry.exp) {
		delete(m.snaps, id)
		return nil, nil
	}
	return entry.snap, nil
}

func (m *MemoryStore) Latest(ctx context.Context) (*snapshot.Snapshot, error) {
	m.mu.RLock()
	latest := m.latest
	m.mu.RUnlock()

	if latest != "" {
		if snap, err := m.Get(ctx, latest); err != nil || snap != nil {
			return snap, err
		}
	}

	// Latest expired; fall back to the newest live entry.
	list, err := m.List(ctx)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*snapshot.Snapshot, error) {
	now := time.Now()
	m.mu.Lock()
	list := make([]*snapshot.Snapshot, 0, len(m.snaps))
	for id, entry := range m.snaps {
		if !entry.exp.IsZero() && now.After(entry.exp) {
			delete(m.snaps, id)
			continue
		}
		list = append(list, entry.snap)
	}
	m.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.snaps, id)
	if m.latest == id {
		m.latest = ""
	}
	m.mu.Unlock()
	return nil
}

// Ensure interface compliance at compile time.
var _ Store = (*MemoryStore)(nil)
