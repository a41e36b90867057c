// Package bringup implements the two halves of the container bring-up
// protocol: Supervisor, which runs entirely outside any new namespace and
// owns the clone and the user-namespace id-map rendezvous, and
// container-init (see containerinit.go), which runs inside the cloned
// namespaces as PID 1 and owns mounting the world and running the target
// command.
package bringup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/havenrun/sandboxkit/internal/logger"
	"github.com/havenrun/sandboxkit/internal/mountspec"
	"github.com/havenrun/sandboxkit/internal/signalbridge"
	"github.com/havenrun/sandboxkit/internal/userns"
	"github.com/havenrun/sandboxkit/internal/worldmount"
)

// cloneFlags requests a new PID, mount, user, and UTS namespace for
// container-init in one clone, the same set the original requests via a
// raw clone(2) call.
const cloneFlags = unix.CLONE_NEWPID | unix.CLONE_NEWNS | unix.CLONE_NEWUSER | unix.CLONE_NEWUTS

// Supervisor runs the bring-up protocol from outside every namespace it
// creates.
type Supervisor struct {
	Config *mountspec.Config
}

// Run launches container-init, completes the namespace rendezvous,
// forwards signals to it for the duration, and returns the exit code the
// caller's process should itself exit with.
func (s *Supervisor) Run(targetArgv []string) (int, error) {
	runID := uuid.NewString()
	log := logger.Log.With("run_id", runID)

	if sz, err := humanize.ParseBytes(s.Config.TmpfsSize); err != nil {
		log.Warn("tmpfs-size is not a recognizable size string, passing to the kernel as-is", "tmpfs_size", s.Config.TmpfsSize, "err", err)
	} else {
		log.Debug("tmpfs workspace size", "bytes", sz)
	}

	pgrp, _ := unix.Getpgid(0)

	if s.Config.Mode == mountspec.Privileged {
		if err := s.mountWorldPrivileged(log); err != nil {
			return 1, err
		}
	}

	releasePipe, err := newPipePair()
	if err != nil {
		return 1, fmt.Errorf("create release pipe: %w", err)
	}
	readyPipe, err := newPipePair()
	if err != nil {
		return 1, fmt.Errorf("create ready pipe: %w", err)
	}

	envLine, err := marshalConfigEnv(s.Config)
	if err != nil {
		return 1, err
	}

	cmd := reexec.Command(append([]string{containerInitName}, targetArgv...)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = append(os.Environ(), envLine)
	cmd.ExtraFiles = []*os.File{releasePipe.r, readyPipe.w}
	cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: cloneFlags}

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start container-init: %w", err)
	}
	releasePipe.r.Close()
	readyPipe.w.Close()

	bridge := signalbridge.New(log.Debug)
	bridge.SetTarget(cmd.Process.Pid)
	bridge.Install()
	defer bridge.Stop()

	if err := readReadyByte(readyPipe.r); err != nil {
		return 1, fmt.Errorf("wait for container-init ready: %w", err)
	}
	log.Debug("container-init ready", "pid", cmd.Process.Pid)

	if err := userns.Configure(cmd.Process.Pid, s.Config.SrcUID, s.Config.SrcGID, s.Config.DstUID, s.Config.DstGID); err != nil {
		return 1, fmt.Errorf("configure user namespace: %w", err)
	}
	log.Debug("mapped uid/gid within container namespace",
		"src_uid", s.Config.SrcUID, "src_gid", s.Config.SrcGID,
		"dst_uid", s.Config.DstUID, "dst_gid", s.Config.DstGID)

	if err := writeReadyByte(releasePipe.w); err != nil {
		return 1, fmt.Errorf("release container-init: %w", err)
	}

	waitErr := cmd.Wait()
	restoreForeground(pgrp)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return 1, fmt.Errorf("wait for container-init: %w", waitErr)
		}
		log.Debug("container-init exited uncleanly", "err", waitErr)
		return 1, nil
	}

	code, err := readExitCode(readyPipe.r)
	if err != nil {
		return 1, fmt.Errorf("read target exit code: %w", err)
	}

	if code >= 256 {
		sig := syscall.Signal(code - 256)
		log.Debug("target died by signal, re-raising on self", "signal", sig)
		signal.Reset(sig)
		_ = syscall.Kill(os.Getpid(), sig)
		return 128 + int(sig), nil
	}

	log.Debug("target exited", "code", code)
	return int(code), nil
}

// mountWorldPrivileged implements privileged-mode bring-up: the
// supervisor itself unshares a private mount namespace and mounts the
// world before ever cloning, because some kernels refuse overlayfs inside
// a user namespace. This must run on a single OS thread for the whole
// call, and that thread must never be handed back to the runtime's
// pool afterward — it now carries a private mount namespace that no
// unrelated goroutine should inherit — so Run never unlocks it.
func (s *Supervisor) mountWorldPrivileged(log *slog.Logger) error {
	runtime.LockOSThread()

	if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
		return fmt.Errorf("unshare mount namespace: %w", err)
	}
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("mark / private: %w", err)
	}

	log.Debug("mounting world in privileged mode before clone")
	return worldmount.MountTheWorld(s.Config.Rootfs, s.Config.Mounts, s.Config.SrcUID, s.Config.SrcGID, s.Config.Persist, s.Config.TmpfsSize, s.Config.UserXattr)
}

// restoreForeground hands the controlling terminal back to pgrp, matching
// the original's tcsetpgrp() call after the child exits. Skipped entirely
// when stdin isn't a terminal, since there's no foreground process group
// to restore.
func restoreForeground(pgrp int) {
	if !term.IsTerminal(0) {
		return
	}
	signal.Ignore(syscall.SIGTTOU)
	_ = unix.IoctlSetPointerInt(0, unix.TIOCSPGRP, pgrp)
}
