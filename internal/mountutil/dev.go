package mountutil

import (
	"fmt"
	"path/filepath"

	mobymount "github.com/moby/sys/mount"

	"github.com/havenrun/sandboxkit/internal/fsutil"
)

// devNodes are the host device nodes bind-mounted into a sandbox that
// isn't running as its own init — a plain unprivileged container doesn't
// need a full devtmpfs, just the handful of nodes most programs expect to
// exist. Any node missing on the host is silently skipped by BindHostNode.
var devNodes = []string{
	"/dev/null",
	"/dev/tty",
	"/dev/zero",
	"/dev/random",
	"/dev/urandom",
	"/dev/shm",
}

// MountDev populates <rootDir>/dev with the device nodes a sandboxed
// process expects: the common nodes bind-mounted read-write, /sys
// bind-mounted read-only, and a private devpts instance with its ptmx
// bind-mounted to <rootDir>/dev/ptmx so terminal allocation works without
// handing the sandbox access to the host's pty namespace.
func MountDev(rootDir string) error {
	for _, node := range devNodes {
		if err := BindHostNode(rootDir, node, false); err != nil {
			return fmt.Errorf("bind host node %s: %w", node, err)
		}
	}
	if err := BindHostNode(rootDir, "/sys", true); err != nil {
		return fmt.Errorf("bind host node /sys: %w", err)
	}

	ptsDir := filepath.Join(rootDir, "dev", "pts")
	if err := fsutil.MkPath(ptsDir); err != nil {
		return fmt.Errorf("mkpath %s: %w", ptsDir, err)
	}
	if err := mobymount.Mount("devpts", ptsDir, "devpts", "ptmxmode=0666"); err != nil {
		return fmt.Errorf("mount devpts at %s: %w", ptsDir, err)
	}

	ptmxSrc := filepath.Join(ptsDir, "ptmx")
	ptmxDst := filepath.Join(rootDir, "dev", "ptmx")
	if err := BindMount(ptmxSrc, ptmxDst, false); err != nil {
		return fmt.Errorf("bind mount ptmx: %w", err)
	}
	return nil
}
