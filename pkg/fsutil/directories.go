// Package fsutil provides small filesystem helpers shared by the output and
// config packages.
package fsutil

import (
	"os"
	"path/filepath"
)

// EnsureDir creates path and any missing parents with DirModeDefault.
// It succeeds if path already exists as a directory.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of filePath.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}
