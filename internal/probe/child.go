package probe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"

	"github.com/havenrun/sandboxkit/internal/fsutil"
	"github.com/havenrun/sandboxkit/internal/logger"
	"github.com/havenrun/sandboxkit/internal/mountutil"
)

const childName = "sandboxkit-probe-child"

func init() {
	reexec.Register(childName, childMain)
}

// childMain runs inside the cloned namespaces. It mounts an overlay over
// rootfsDir rooted at <parentDir>/.probe, exercises the redirect_dir
// rename path apt and friends depend on, tears the whole thing back
// down, and exits 0 on success or 1 on any failure — mirroring the
// original's TRUEFALSE_EXITCODE convention exactly, since the caller
// only cares about this process's exit status.
func childMain() {
	cfg, err := unmarshalConfigEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Verbose, ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	releasePipe := os.NewFile(uintptr(releaseFD), "release")
	readyPipe := os.NewFile(uintptr(readyFD), "ready")

	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 1, 0, 0, 0); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := writeReadyByte(readyPipe); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := readReadyByte(releasePipe); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	releasePipe.Close()
	readyPipe.Close()

	os.Exit(boolExitCode(runProbe(cfg)))
}

func boolExitCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func runProbe(cfg *Config) bool {
	if !fsutil.IsDir(cfg.ParentDir) {
		fmt.Fprintf(os.Stderr, "---> parent directory does not exist (%s)\n", cfg.ParentDir)
		return false
	}

	probeDir := filepath.Join(cfg.ParentDir, ".probe")
	defer fsutil.RmRF(probeDir)

	if cfg.Tmpfs {
		if err := fsutil.MkPath(probeDir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		if err := unix.Mount("tmpfs", probeDir, "tmpfs", 0, "size=1M"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		defer unix.Unmount(probeDir, 0)
	}

	if !mountutil.MountOverlay(cfg.RootfsDir, cfg.RootfsDir, "probe", probeDir, cfg.UserXattr) {
		return false
	}
	defer unix.Unmount(cfg.RootfsDir, 0)

	return exerciseRename(cfg.RootfsDir)
}

// exerciseRename is the actual redirect_dir regression check: create a
// directory on the overlay's lower layer path and rename it elsewhere
// within the same overlay. A kernel/overlayfs combination that mishandles
// this with the requested mount options returns EXDEV or worse here,
// which is exactly the failure mode this probe exists to catch ahead of
// time rather than mid-apt-install.
func exerciseRename(rootfsDir string) bool {
	src := filepath.Join(rootfsDir, "src")
	dst := filepath.Join(rootfsDir, "dst")
	if err := fsutil.MkPath(src); err != nil {
		return false
	}
	if err := os.Rename(src, dst); err != nil {
		fmt.Fprintf(os.Stderr, "----> rename(%q, %q) failed: %v\n", src, dst, err)
		return false
	}
	return true
}
