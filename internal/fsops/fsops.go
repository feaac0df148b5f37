// Package fsops holds small filesystem checks shared by the commands.
package fsops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNotDir is returned when a path expected to be a directory is something else
var ErrNotDir = errors.New("not a directory")

const writeMarker = ".gnushark-write-test"

// EnsureDir ensures a directory exists with the given permissions
func EnsureDir(fs afero.Fs, path string, perm os.FileMode) error {
	if err := fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("ensure directory %s: %w", path, err)
	}
	return nil
}

// CheckWritable creates and removes a marker file inside dir
func CheckWritable(fs afero.Fs, dir string) error {
	marker := filepath.Join(dir, writeMarker)
	if err := afero.WriteFile(fs, marker, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("path not writable: %w", err)
	}
	_ = fs.Remove(marker)
	return nil
}

// UsableDir creates dir when missing and checks that it is a writable directory
func UsableDir(fs afero.Fs, dir string) error {
	info, err := fs.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return EnsureDir(fs, dir, 0o755)
	case err != nil:
		return fmt.Errorf("stat %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%s: %w", dir, ErrNotDir)
	}
	return CheckWritable(fs, dir)
}

// IsDir checks if a path is a directory
func IsDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
