// Package signalbridge forwards a fixed set of signals from the current
// process to a single target process, whose pid can change over the
// bridge's lifetime. Two independent bridges exist in a running sandbox:
// one in the supervisor (outside every namespace) forwarding to the
// container-init it cloned, and one in container-init forwarding to the
// target command it forked — chaining a signal from outside all the way
// to the sandboxed program.
package signalbridge

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	mobysignal "github.com/moby/sys/signal"
)

// Forwarded is the fixed set of signals passed through to the target
// process. This list is deliberately small: it covers interactive control
// (INT, TERM) and the two conditions a supervised process most needs to
// know about (HUP, PIPE) plus the two user-defined signals many programs
// repurpose for their own IPC. SIGSTOP is listed too, but it cannot be
// caught, so it is never actually relayed.
var Forwarded = []os.Signal{
	syscall.SIGHUP,
	syscall.SIGPIPE,
	syscall.SIGSTOP,
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
}

// Bridge relays Forwarded signals received by this process to whatever
// pid SetTarget last recorded. The target is an atomic so Install's
// signal-handling goroutine never races with a later SetTarget call made
// from the main goroutine once the real target process exists.
type Bridge struct {
	target atomic.Int32
	logf   func(msg string, args ...any)
	ch     chan os.Signal
}

// New creates a Bridge. logf, if non-nil, is called once per forwarded
// signal with a message and slog-style key/value pairs naming the signal
// by its canonical signal name and the pid it is sent to.
func New(logf func(msg string, args ...any)) *Bridge {
	return &Bridge{logf: logf}
}

// SetTarget updates the pid signals are forwarded to. Passing 0 suspends
// forwarding: a received signal is dropped rather than sent to pid 0.
func (b *Bridge) SetTarget(pid int) {
	b.target.Store(int32(pid))
}

// Install starts relaying Forwarded signals in the background. It must be
// called only once per Bridge.
func (b *Bridge) Install() {
	b.ch = make(chan os.Signal, len(Forwarded))
	signal.Notify(b.ch, Forwarded...)
	go b.run()
}

// Stop releases the underlying signal subscription.
func (b *Bridge) Stop() {
	signal.Stop(b.ch)
}

func (b *Bridge) run() {
	for sig := range b.ch {
		pid := int(b.target.Load())
		if pid == 0 {
			continue
		}
		if b.logf != nil {
			b.logf("forwarding signal", "signal", signalName(sig), "pid", pid)
		}
		_ = syscall.Kill(pid, sig.(syscall.Signal))
	}
}

func signalName(sig os.Signal) string {
	for name, s := range mobysignal.SignalMap {
		if syscall.Signal(s) == sig {
			return fmt.Sprintf("SIG%s", name)
		}
	}
	return sig.String()
}
