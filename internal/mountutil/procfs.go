package mountutil

import (
	"fmt"
	"path/filepath"

	mobymount "github.com/moby/sys/mount"
	"golang.org/x/sys/unix"

	"github.com/havenrun/sandboxkit/internal/logger"
)

// MountProcfs mounts a fresh procfs at <rootDir>/proc and chowns it to
// uid/gid so it doesn't look owned by "nobody" inside the sandbox. A
// chown failure is logged and tolerated: sometimes the caller doesn't own
// whatever was already sitting at that path, and that shouldn't be fatal.
func MountProcfs(rootDir string, uid, gid int) error {
	path := filepath.Join(rootDir, "proc")
	if err := mobymount.Mount("proc", path, "proc", ""); err != nil {
		return fmt.Errorf("mount procfs at %s: %w", path, err)
	}
	if err := unix.Chown(path, uid, gid); err != nil {
		logger.Warn("chown procfs failed", "path", path, "err", err)
	}
	return nil
}
