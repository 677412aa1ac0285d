package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/buildcfg/internal/platform/fs"
)

// ResolveDataFilePath resolves a relative path inside the given data directory
// while protecting against path traversal and symlink escapes. If allowMissing
// is true, the file does not need to exist, but its parent directory must be
// safe.
func ResolveDataFilePath(dataDir, relPath string, allowMissing bool) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("data file path must be relative: %s", relPath)
	}

	resolved, err := fs.ConfineRelPath(dataDir, clean)
	if err != nil {
		return "", fmt.Errorf("data file path rejected: %w", err)
	}

	info, statErr := os.Stat(resolved)
	switch {
	case statErr == nil:
		if info.IsDir() {
			return "", fmt.Errorf("data file path points to directory: %s", relPath)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if !allowMissing {
			return "", fmt.Errorf("data file not found: %s", relPath)
		}
	default:
		return "", fmt.Errorf("stat data file: %w", statErr)
	}

	return resolved, nil
}
