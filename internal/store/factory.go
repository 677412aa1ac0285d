// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"fmt"
	"time"
)

// Open creates a Store based on the backend configuration.
func Open(backend, path string, ttl time.Duration) (Store, error) {
	switch backend {
	case "memory", "":
		return NewMemoryStore(ttl), nil
	case "badger":
		return OpenBadgerStore(path, ttl)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
