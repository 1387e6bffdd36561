//go:build !windows

// Package fsutil provides small filesystem helpers shared by the CLI and
// storage layers.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// AtomicWriteFile writes data to a file atomically.
// On Unix systems, this uses renameio for atomic writes.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, perm)
}
