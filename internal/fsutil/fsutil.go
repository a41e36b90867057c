// Package fsutil provides the filesystem primitives the sandbox bring-up
// protocol leans on: idempotent directory/file creation, recursive removal,
// and the non-fatal stat checks used to decide how a mountpoint should be
// shaped before it's bound over.
package fsutil

import (
	"errors"
	"os"
	"syscall"

	"github.com/havenrun/sandboxkit/internal/logger"
)

// Touch creates an empty, read-only file at path if nothing exists there
// yet. It's used ahead of a bind-mount whose source is not a directory, so
// the mountpoint's inode type matches. EISDIR is swallowed so the helper
// is safe to call on a path that already exists as a directory.
func Touch(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o444)
	if err != nil {
		if errors.Is(err, syscall.EISDIR) {
			return nil
		}
		return err
	}
	return f.Close()
}

// MkPath creates dir and any missing ancestors with mode 0777, tolerating
// a dir that already exists (os.MkdirAll already does both — this wraps it
// only to give the package a single, consistently-named entry point that
// mirrors the rest of fsutil's naming).
func MkPath(dir string) error {
	return os.MkdirAll(dir, 0o777)
}

// RmRF recursively removes path, tolerating individual failures by
// continuing rather than aborting the whole removal — mirrors the
// original sandbox's rmrf, which logs and moves on rather than treating a single
// stubborn file as fatal to tearing down a sandbox's ephemeral state.
func RmRF(path string) {
	if err := os.RemoveAll(path); err != nil {
		logger.Warn("remove failed", "path", path, "err", err)
	}
}

// IsDir reports whether path is a directory, treating a missing or
// not-a-directory path as simply false rather than an error — callers
// use this to decide mountpoint shape, and a nonexistent source is a
// deferred failure (the subsequent mount call), not this function's job.
func IsDir(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		info, err = os.Stat(path)
		if err != nil {
			return false
		}
	}
	return info.IsDir()
}

// IsLink reports whether path is a symlink, false on any stat error.
func IsLink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}
