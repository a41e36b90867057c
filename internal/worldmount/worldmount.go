// Package worldmount implements the mount-the-world sequence that turns a
// bare rootfs directory into a fully furnished container filesystem: a
// self-overlay for write isolation, every user-requested mount in
// declaration order, procfs, and /dev.
package worldmount

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/havenrun/sandboxkit/internal/fsutil"
	"github.com/havenrun/sandboxkit/internal/mountspec"
	"github.com/havenrun/sandboxkit/internal/mountutil"
)

// fallbackPersistDir is used when the caller didn't supply --persist: every
// Linux system is assumed to have /bin, and mounting tmpfs there gives the
// overlay work directories somewhere to live that vanishes the moment the
// mount namespace is torn down.
const fallbackPersistDir = "/bin"

// MountTheWorld furnishes rootDir per root_dir's mount-the-world sequence:
// an ephemeral or persistent overlay workspace, a self-overlay over
// rootDir for write isolation, every mount in mounts in order (with a
// nested overlay for Kind Overlayed entries), procfs, and /dev. userxattr
// requests the overlay "userxattr" mount option, but is forced off when
// falling back to a tmpfs workspace — userxattr only matters for a
// persistent overlay surviving a remount.
func MountTheWorld(rootDir string, mounts []mountspec.MountSpec, uid, gid int, persistDir, tmpfsSize string, userxattr bool) error {
	persist := persistDir
	if persist == "" {
		persist = fallbackPersistDir
		userxattr = false
		if err := unix.Mount("tmpfs", persist, "tmpfs", 0, "size="+tmpfsSize); err != nil {
			return fmt.Errorf("mount tmpfs workspace at %s: %w", persist, err)
		}
	}

	// Mount the rootfs over itself first: every other mountpoint this
	// function creates must be created inside a writable layer, since
	// rootDir itself may be a read-only image.
	if !mountutil.MountOverlay(rootDir, rootDir, "rootfs", persist, userxattr) {
		return fmt.Errorf("mount self-overlay of rootfs at %s failed", rootDir)
	}
	if err := unix.Chown(rootDir, uid, gid); err != nil {
		return fmt.Errorf("chown rootfs %s: %w", rootDir, err)
	}

	for _, m := range mounts {
		inside := mountspec.StrippedMountPoint(m.MountPoint)
		path := filepath.Join(rootDir, inside)

		readOnly := m.Kind == mountspec.ReadOnly || m.Kind == mountspec.Overlayed
		if err := mountutil.BindMount(m.OutsidePath, path, readOnly); err != nil {
			return fmt.Errorf("mount %s -> %s: %w", m.OutsidePath, path, err)
		}

		if m.Kind != mountspec.Overlayed {
			continue
		}
		name := fsutil.HashedBasename(m.MountPoint)
		if !mountutil.MountOverlay(path, path, name, persist, userxattr) {
			return fmt.Errorf("mount overlay for %s failed", m.MountPoint)
		}
		if err := unix.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("chown overlay %s: %w", path, err)
		}
	}

	if err := mountutil.MountProcfs(rootDir, uid, gid); err != nil {
		return err
	}
	if err := mountutil.MountDev(rootDir); err != nil {
		return err
	}
	return nil
}
