// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/ManuGH/buildcfg/internal/snapshot"
	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps snapshots in an embedded Badger database:
// - snapshots: key = "snap:<id>" (JSON) with TTL
// - latest pointer: key = "latest" (value = snapshot ID) with the same TTL
//
// Expired snapshots vanish with their TTL; a dangling latest pointer falls
// back to a prefix scan.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

var (
	snapPrefix = []byte("snap:")
	latestKey  = []byte("latest")
)

// OpenBadgerStore opens (or creates) the database at path. A zero ttl keeps
// snapshots forever.
func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Put(ctx context.Context, snap *snapshot.Snapshot) error {
	key := append(append([]byte{}, snapPrefix...), snap.ID...)
	buf, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, buf)
		pointer := badger.NewEntry(latestKey, []byte(snap.ID))
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
			pointer = pointer.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		return txn.SetEntry(pointer)
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	key := append(append([]byte{}, snapPrefix...), id...)
	var out snapshot.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil // Not found, no error
		}
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) Latest(ctx context.Context) (*snapshot.Snapshot, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	switch {
	case err == badger.ErrKeyNotFound:
		return s.scanLatest(ctx)
	case err != nil:
		return nil, err
	}

	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		// Pointer outlived the snapshot entry.
		return s.scanLatest(ctx)
	}
	return snap, nil
}

func (s *BadgerStore) scanLatest(ctx context.Context) (*snapshot.Snapshot, error) {
	list, err := s.List(ctx)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (s *BadgerStore) List(ctx context.Context) ([]*snapshot.Snapshot, error) {
	var list []*snapshot.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(snapPrefix); it.ValidForPrefix(snapPrefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			item := it.Item()
			var rec snapshot.Snapshot
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			list = append(list, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	key := append(append([]byte{}, snapPrefix...), id...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Ensure interface compliance at compile time.
var _ Store = (*BadgerStore)(nil)
