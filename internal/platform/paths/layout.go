// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout holds the canonical locations inside the data directory.
type Layout struct {
	DataDir   string
	StoreDir  string
	HistoryDB string

	// Created lists the directories EnsureLayout had to create, for
	// startup reporting.
	Created []string
}

// EnsureLayout establishes the data directory skeleton and returns the
// canonical locations. Empty storePath and historyPath select the defaults
// under dataDir. Existing directories are validated, not replaced.
func EnsureLayout(dataDir, storePath, historyPath string) (Layout, error) {
	if dataDir == "" {
		return Layout{}, fmt.Errorf("data directory is empty")
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve data directory: %w", err)
	}

	layout := Layout{
		DataDir:   abs,
		StoreDir:  storePath,
		HistoryDB: historyPath,
	}
	if layout.StoreDir == "" {
		layout.StoreDir = filepath.Join(abs, "store")
	}
	if layout.HistoryDB == "" {
		layout.HistoryDB = filepath.Join(abs, "history.db")
	}

	for _, dir := range []string{abs, layout.StoreDir, filepath.Dir(layout.HistoryDB)} {
		created, err := ensureDir(dir)
		if err != nil {
			return Layout{}, err
		}
		if created {
			layout.Created = append(layout.Created, dir)
		}
	}

	return layout, nil
}

func ensureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, fmt.Errorf("not a directory: %s", dir)
		}
		return false, nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("stat directory %s: %w", dir, err)
	}
}
