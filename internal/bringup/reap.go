package bringup

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/havenrun/sandboxkit/internal/logger"
)

// reapUntil is container-init's main loop, once the target command is
// running: wait for SIGCHLD, drain every exited child with a
// non-blocking waitpid, and return the target's own disposition once it,
// specifically, is the one that exited. Every other reaped pid is an
// orphan adopted because this process is PID 1 of its namespace, and is
// simply discarded, matching init(8) semantics.
func reapUntil(targetPID int) (uint32, error) {
	sigchld := make(chan os.Signal, 1)
	signal.Notify(sigchld, syscall.SIGCHLD)
	defer signal.Stop(sigchld)

	for range sigchld {
		for {
			var ws syscall.WaitStatus
			pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
			if err != nil || pid <= 0 {
				break
			}
			if pid != targetPID {
				continue
			}

			switch {
			case ws.Signaled():
				logger.Debug("target terminated by signal", "signal", ws.Signal())
				code, err := encodeExitCode(false, 0, true, int(ws.Signal()))
				return code, err
			case ws.Exited():
				logger.Debug("target exited", "code", ws.ExitStatus())
				code, err := encodeExitCode(true, ws.ExitStatus(), false, 0)
				return code, err
			}
		}
	}
	return 0, nil
}
