// Package mountutil wraps the raw mount(2) sequences the sandbox needs:
// bind mounts with locked-flag-preserving read-only remounts, overlayfs,
// procfs, and the /dev furniture a container needs to look like a real
// machine. It uses moby/sys/mount for straightforward mount calls and
// moby/sys/mountinfo to discover the locked flags a read-only remount must
// not drop, falling back to golang.org/x/sys/unix only for the bind+remount
// pair itself, which neither moby package sequences for us.
package mountutil

import (
	"fmt"
	"os"
	"path/filepath"

	mobymount "github.com/moby/sys/mount"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"

	"github.com/havenrun/sandboxkit/internal/fsutil"
	"github.com/havenrun/sandboxkit/internal/logger"
)

// lockedFlagsByName maps the locked mount options the kernel refuses to
// clear on a bare MS_REMOUNT to the flag a caller must re-assert. Order
// doesn't matter; these all OR together.
var lockedFlagsByName = map[string]uintptr{
	"nodev":      unix.MS_NODEV,
	"nosuid":     unix.MS_NOSUID,
	"noexec":     unix.MS_NOEXEC,
	"noatime":    unix.MS_NOATIME,
	"nodiratime": unix.MS_NODIRATIME,
	"relatime":   unix.MS_RELATIME,
}

// lockedFlagsFor finds the mountinfo entry covering resolvedSrc's device
// and returns the locked flags a read-only remount of that device must
// re-assert to avoid the kernel's "can't drop locked flags" rejection.
func lockedFlagsFor(resolvedSrc string) (uintptr, error) {
	var st unix.Stat_t
	if err := unix.Stat(resolvedSrc, &st); err != nil {
		return 0, fmt.Errorf("stat %s: %w", resolvedSrc, err)
	}
	major, minor := unix.Major(st.Dev), unix.Minor(st.Dev)

	entries, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		return !(uint32(info.Major) == major && uint32(info.Minor) == minor), false
	})
	if err != nil {
		return 0, fmt.Errorf("read mountinfo: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("no mount found covering device %d:%d for %s", major, minor, resolvedSrc)
	}

	var flags uintptr
	for _, opt := range splitOpts(entries[0].Options) {
		if f, ok := lockedFlagsByName[opt]; ok {
			flags |= f
		}
	}
	for _, opt := range splitOpts(entries[0].VFSOptions) {
		if f, ok := lockedFlagsByName[opt]; ok {
			flags |= f
		}
	}
	return flags, nil
}

func splitOpts(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// BindMount bind-mounts src over dest, optionally remounting it read-only
// afterward. A symlinked src is resolved first so the bind mount targets
// the real filesystem, not the link. If src is a directory, dest is
// created as one; otherwise dest is touched as a plain file — this mirrors
// what a caller asks for even when src doesn't exist yet, in which case
// the mount call itself reports the failure.
func BindMount(src, dest string, readOnly bool) error {
	resolved := src
	if fsutil.IsLink(src) {
		if r, err := filepath.EvalSymlinks(src); err == nil {
			resolved = r
		} else {
			logger.Warn("cannot resolve bind source symlink, using it unresolved", "src", src, "err", err)
		}
	}

	if fsutil.IsDir(resolved) {
		if err := fsutil.MkPath(dest); err != nil {
			return fmt.Errorf("mkpath %s: %w", dest, err)
		}
	} else {
		if err := fsutil.Touch(dest); err != nil {
			return fmt.Errorf("touch %s: %w", dest, err)
		}
	}

	// Workspaces passed via --mount can legitimately contain sub-mounts
	// (e.g. a runshell() working directory), so bind recursively.
	if err := mobymount.Mount(resolved, dest, "", "bind,rec"); err != nil {
		return fmt.Errorf("bind mount %s -> %s: %w", resolved, dest, err)
	}

	if !readOnly {
		return nil
	}

	// A read-only bind requires a second MS_REMOUNT pass, and the kernel
	// refuses to let that pass clear locked flags like nodev/noexec, so
	// they must be rediscovered and re-asserted rather than dropped.
	locked, err := lockedFlagsFor(resolved)
	if err != nil {
		return fmt.Errorf("discover locked flags for %s: %w", resolved, err)
	}
	if err := unix.Mount(resolved, dest, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY|locked, ""); err != nil {
		return fmt.Errorf("ro remount %s -> %s: %w", resolved, dest, err)
	}
	return nil
}

// BindHostNode bind-mounts a host device node or directory (e.g.
// /dev/null, /sys) into root_dir at the same path, provided it exists on
// the host. Missing nodes are silently skipped: not every host has every
// device, and the sandbox should still run without them.
func BindHostNode(rootDir, name string, readOnly bool) error {
	if _, err := os.Lstat(name); err != nil {
		return nil
	}
	return BindMount(name, filepath.Join(rootDir, name), readOnly)
}
