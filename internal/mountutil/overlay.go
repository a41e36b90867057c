package mountutil

import (
	"fmt"

	mobymount "github.com/moby/sys/mount"

	"github.com/havenrun/sandboxkit/internal/fsutil"
)

// OverlayLocation is where an overlay's upper and work directories live,
// rooted under a shared persist/tmpfs directory and named after the
// overlay so multiple overlays can share one persist dir without
// colliding.
type OverlayLocation struct {
	Upper string
	Work  string
}

// NewOverlayLocation derives the upper/work paths for an overlay named
// name anchored at workDir, matching the original's
// "<work_dir>/upper/<name>" and "<work_dir>/work/<name>" layout.
func NewOverlayLocation(workDir, name string) OverlayLocation {
	return OverlayLocation{
		Upper: workDir + "/upper/" + name,
		Work:  workDir + "/work/" + name,
	}
}

// MountOverlay layers a writable overlay over src, exposed at dest, with
// modifications stored under workDir/{upper,work}/name. The common case of
// src == dest "shadows" the original location: changes are visible while
// the overlay exists but never touch src itself, which is how the rootfs
// and any read-only shard gets a writable veneer.
//
// Unlike every other mount helper in this package, a failed overlay mount
// is not fatal to the caller: the probe binary needs to distinguish
// "overlayfs unsupported on this kernel/filesystem" from a genuinely
// broken invocation, so MountOverlay reports success as a bool instead of
// an error.
func MountOverlay(src, dest, name, workDir string, userxattr bool) bool {
	if src == "" {
		src = "/"
	}
	if dest == "" {
		dest = "/"
	}

	loc := NewOverlayLocation(workDir, name)
	if err := fsutil.MkPath(loc.Upper); err != nil {
		return false
	}
	if err := fsutil.MkPath(loc.Work); err != nil {
		return false
	}

	opts := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", src, loc.Upper, loc.Work)
	if userxattr {
		opts += ",userxattr"
	}

	if err := mobymount.Mount("overlay", dest, "overlay", opts); err != nil {
		return false
	}
	return true
}
