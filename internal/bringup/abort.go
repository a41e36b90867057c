package bringup

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"syscall"
)

// abort reports a fatal condition the way the original sandbox's check()
// macro does — file, line, and the underlying errno-equivalent — and
// terminates immediately. Go's error returns make most of check()'s call
// sites unnecessary; this remains only for the handful of places inside
// container-init where there genuinely is no one left to return an error
// to, because the only listener is a pipe that's about to be closed by a
// namespace teardown.
func abort(err error) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		fmt.Fprintf(os.Stderr, "%s:%d, ABORTED (%d: %v)!\n", file, line, int(errno), err)
	} else {
		fmt.Fprintf(os.Stderr, "%s:%d, ABORTED (%v)!\n", file, line, err)
	}
	os.Stdout.Sync()
	os.Stderr.Sync()
	os.Exit(1)
}
