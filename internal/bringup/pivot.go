package bringup

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// enterRoot makes rootDir the process's new root filesystem, preferring
// pivot_root over chroot because chroot interacts badly with a later
// clone() inside the new root — a nested sandbox invocation gets EPERM.
// pivot_root can fail when rootDir's filesystem isn't itself a mount
// point distinct from its parent (for example, when already running
// inside another sandbox that only bind-mounted rootDir in); chroot is
// the fallback for that case, at the cost of disabling further nested
// sandboxing.
func enterRoot(rootDir string) (pivoted bool, err error) {
	if rootDir == "" {
		rootDir = "/"
	}

	if err := os.Chdir(rootDir); err != nil {
		return false, fmt.Errorf("chdir %s: %w", rootDir, err)
	}

	if err := unix.PivotRoot(".", "."); err == nil {
		if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
			return false, fmt.Errorf("detach old root: %w", err)
		}
		if err := os.Chdir("/"); err != nil {
			return false, fmt.Errorf("chdir / after pivot_root: %w", err)
		}
		return true, nil
	}

	if err := unix.Chroot(rootDir); err != nil {
		return false, fmt.Errorf("chroot %s: %w", rootDir, err)
	}
	return false, nil
}
