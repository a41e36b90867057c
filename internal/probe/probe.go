package probe

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"

	"github.com/havenrun/sandboxkit/internal/signalbridge"
	"github.com/havenrun/sandboxkit/internal/userns"
)

const cloneFlags = unix.CLONE_NEWPID | unix.CLONE_NEWNS | unix.CLONE_NEWUSER | unix.CLONE_NEWUTS

// Run clones the probe child into fresh namespaces, completes the
// user-namespace rendezvous, and reports whether the child's overlay
// probe succeeded. srcUID/srcGID are the outside identity to map from;
// inside its own namespace the child runs as cfg.DstUID/cfg.DstGID (the
// probe's --uid/--gid flags, 0 by default).
func Run(cfg *Config, srcUID, srcGID int) (bool, error) {
	releasePipe, err := newPipePair()
	if err != nil {
		return false, fmt.Errorf("create release pipe: %w", err)
	}
	readyPipe, err := newPipePair()
	if err != nil {
		return false, fmt.Errorf("create ready pipe: %w", err)
	}

	envLine, err := marshalConfigEnv(cfg)
	if err != nil {
		return false, err
	}

	cmd := reexec.Command(childName)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = append(os.Environ(), envLine)
	cmd.ExtraFiles = []*os.File{releasePipe.r, readyPipe.w}
	cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: cloneFlags}

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start probe child: %w", err)
	}
	releasePipe.r.Close()
	readyPipe.w.Close()

	bridge := signalbridge.New(nil)
	bridge.SetTarget(cmd.Process.Pid)
	bridge.Install()
	defer bridge.Stop()

	if err := readReadyByte(readyPipe.r); err != nil {
		return false, fmt.Errorf("wait for probe child ready: %w", err)
	}

	if err := userns.Configure(cmd.Process.Pid, srcUID, srcGID, cfg.DstUID, cfg.DstGID); err != nil {
		return false, fmt.Errorf("configure user namespace: %w", err)
	}

	if err := writeReadyByte(releasePipe.w); err != nil {
		return false, fmt.Errorf("release probe child: %w", err)
	}

	err = cmd.Wait()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("wait for probe child: %w", err)
}
