// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists evaluation snapshots. Backends share one contract:
// lookups for absent snapshots return (nil, nil), not an error.
package store

import (
	"context"

	"github.com/ManuGH/buildcfg/internal/snapshot"
)

// Store is the snapshot persistence contract.
type Store interface {
	// Put stores a snapshot and marks it as the latest.
	Put(ctx context.Context, snap *snapshot.Snapshot) error

	// Get returns the snapshot with the given ID, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*snapshot.Snapshot, error)

	// Latest returns the most recent snapshot, or (nil, nil) when empty.
	Latest(ctx context.Context) (*snapshot.Snapshot, error)

	// List returns all live snapshots, newest first.
	List(ctx context.Context) ([]*snapshot.Snapshot, error)

	// Delete removes a snapshot. Deleting an absent ID is not an error.
	Delete(ctx context.Context, id string) error

	Close() error
}
