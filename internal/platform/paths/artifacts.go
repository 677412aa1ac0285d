// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package paths resolves the file locations buildcfg works with: the data
// directory layout and the artifact files served to clients.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ManuGH/buildcfg/internal/platform/fs"
)

var allowedArtifactExt = map[string]struct{}{
	".json": {},
}

// ValidateArtifactPath validates a client-supplied artifact name and returns a
// safe absolute path under dataDir. It rejects absolute paths, traversal
// attempts, symlink escapes, hidden segments, and non-JSON extensions.
func ValidateArtifactPath(dataDir, userValue string) (string, error) {
	dataDir = strings.TrimSpace(dataDir)
	if dataDir == "" {
		return "", fmt.Errorf("data directory is empty")
	}

	raw := strings.TrimSpace(userValue)
	if raw == "" {
		return "", fmt.Errorf("artifact path is empty")
	}

	clean := filepath.Clean(raw)
	if clean == "." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("artifact path is empty")
	}
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("artifact path must be relative: %s", userValue)
	}

	ext := strings.ToLower(filepath.Ext(clean))
	if _, ok := allowedArtifactExt[ext]; !ok {
		return "", fmt.Errorf("artifact path must end with .json: %s", userValue)
	}

	for _, seg := range strings.Split(clean, string(filepath.Separator)) {
		if seg == ".." {
			continue // ConfineRelPath reports traversal with a better message
		}
		if strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("artifact path contains hidden segment: %s", userValue)
		}
	}

	path, err := fs.ConfineRelPath(dataDir, clean)
	if err != nil {
		return "", fmt.Errorf("artifact path rejected: %w", err)
	}

	return path, nil
}
