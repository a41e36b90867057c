package bringup

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"

	"github.com/havenrun/sandboxkit/internal/fsutil"
	"github.com/havenrun/sandboxkit/internal/logger"
	"github.com/havenrun/sandboxkit/internal/mountspec"
	"github.com/havenrun/sandboxkit/internal/mountutil"
	"github.com/havenrun/sandboxkit/internal/signalbridge"
	"github.com/havenrun/sandboxkit/internal/worldmount"
)

// containerInitName is the reexec entry point registered below. The
// supervisor launches it via reexec.Command, which re-executes this same
// binary with argv[0] set to this name so Init() routes straight into
// containerInitMain without ever going through cobra.
const containerInitName = "sandboxkit-container-init"

func init() {
	reexec.Register(containerInitName, containerInitMain)
}

// containerInitMain runs inside the freshly cloned PID/mount/user/UTS
// namespaces, as PID 1 of its own PID namespace. It completes the
// namespace rendezvous with the supervisor, furnishes the container
// filesystem, then forks and execs the target command, reaping orphans
// and forwarding signals to it until it exits.
func containerInitMain() {
	cfg, err := unmarshalConfigEnv()
	if err != nil {
		abort(err)
	}
	if err := logger.Init(cfg.Verbose, ""); err != nil {
		abort(err)
	}

	releasePipe := os.NewFile(uintptr(releaseFD), "release")
	readyPipe := os.NewFile(uintptr(readyFD), "ready")

	// The kernel may have cleared our dumpability on the privilege
	// change that comes with entering a new user namespace. An
	// undumpable process's /proc entries are owned by root, which would
	// stop the supervisor — running as an ordinary user outside — from
	// writing our uid_map/gid_map. Reassert it.
	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 1, 0, 0, 0); err != nil {
		abort(fmt.Errorf("prctl PR_SET_DUMPABLE: %w", err))
	}

	if err := writeReadyByte(readyPipe); err != nil {
		abort(fmt.Errorf("signal ready: %w", err))
	}
	if err := readReadyByte(releasePipe); err != nil {
		abort(fmt.Errorf("wait for release: %w", err))
	}
	releasePipe.Close()

	if cfg.Mode == mountspec.Privileged {
		if err := unix.Setuid(cfg.DstUID); err != nil {
			abort(fmt.Errorf("setuid: %w", err))
		}
		if err := unix.Setgid(cfg.DstGID); err != nil {
			abort(fmt.Errorf("setgid: %w", err))
		}
		// The supervisor mounted procfs before cloning, but that
		// instance belongs to the old PID namespace; stack a fresh
		// one so /proc reflects this namespace's own pid tree.
		if err := mountutil.MountProcfs(cfg.Rootfs, cfg.DstUID, cfg.DstGID); err != nil {
			abort(err)
		}
	} else {
		if err := worldmount.MountTheWorld(cfg.Rootfs, cfg.Mounts, cfg.DstUID, cfg.DstGID, cfg.Persist, cfg.TmpfsSize, cfg.UserXattr); err != nil {
			abort(err)
		}
	}

	if cfg.Hostname != "" {
		if err := unix.Sethostname([]byte(cfg.Hostname)); err != nil {
			abort(fmt.Errorf("sethostname: %w", err))
		}
	}

	logger.Debug("entering rootfs", "rootfs", cfg.Rootfs)
	pivoted, err := enterRoot(cfg.Rootfs)
	if err != nil {
		abort(err)
	}
	logger.Debug("entered rootfs", "pivoted", pivoted)

	if cfg.Cwd != "" {
		if err := fsutil.MkPath(cfg.Cwd); err != nil {
			abort(fmt.Errorf("mkpath cwd %s: %w", cfg.Cwd, err))
		}
		if err := os.Chdir(cfg.Cwd); err != nil {
			abort(fmt.Errorf("chdir %s: %w", cfg.Cwd, err))
		}
	}

	argv := os.Args[1:]
	if len(argv) == 0 {
		abort(fmt.Errorf("no target command given to container-init"))
	}

	code, runErr := runAndReap(argv)
	if runErr != nil {
		logger.Error("target run failed", "err", runErr)
	}
	if err := writeExitCode(readyPipe, code); err != nil {
		abort(fmt.Errorf("write exit code: %w", err))
	}
}

// runAndReap execs argv as a child of this process (which is PID 1 of its
// own PID namespace), forwards signals to it, reaps any orphans adopted
// along the way, and returns the 4-byte encoded disposition to tunnel
// back to the supervisor once the target itself exits.
func runAndReap(argv []string) (uint32, error) {
	target := exec.Command(argv[0], argv[1:]...)
	target.Stdin = os.Stdin
	target.Stdout = os.Stdout
	target.Stderr = os.Stderr

	logger.Debug("starting target", "argv", argv)
	if err := target.Start(); err != nil {
		// execve() failing inside the forked child is exactly what the
		// original reports as a plain exit code 1; Start() failing
		// here means there never was a child to wait on, so go
		// straight to that same disposition.
		logger.Error("failed to start target", "err", err)
		return 1, nil
	}

	bridge := signalbridge.New(logger.Debug)
	bridge.SetTarget(target.Process.Pid)
	bridge.Install()
	defer bridge.Stop()

	return reapUntil(target.Process.Pid)
}
