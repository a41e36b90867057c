package bringup

import (
	"encoding/binary"
	"fmt"
	"os"
)

// The rendezvous between the supervisor and container-init can't use
// SIGSTOP the way a regular job-control parent/child pair would: a
// process that's PID 1 of its own PID namespace doesn't receive STOP or
// KILL signals sent from outside that namespace. Two pipes stand in for
// it instead.
const (
	// releaseFD is where container-init waits for the one-byte signal
	// that its uid_map/gid_map have been written and it may proceed.
	releaseFD = 3
	// readyFD is where container-init announces it's ready to be
	// configured, and later tunnels back the sandboxed program's
	// 4-byte encoded exit status.
	readyFD = 4
)

// pipePair holds both ends of a handoff pipe. The supervisor keeps its own
// end open past Start() so it can still use it after exec has duplicated
// the other end into the child's fd table.
type pipePair struct {
	r, w *os.File
}

func newPipePair() (pipePair, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return pipePair{}, err
	}
	return pipePair{r: r, w: w}, nil
}

// writeReadyByte signals readiness across fd, matching the single-byte
// "X" handshake the original protocol uses on both ends.
func writeReadyByte(f *os.File) error {
	n, err := f.Write([]byte{'X'})
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("short write of ready byte: wrote %d bytes", n)
	}
	return nil
}

func readReadyByte(f *os.File) error {
	buf := make([]byte, 1)
	n, err := f.Read(buf)
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("short read of ready byte: read %d bytes", n)
	}
	return nil
}

// encodeExitCode packs a waited-on child's disposition into the 4-byte
// value tunneled back over the ready pipe: a normal exit reports its
// status directly, a signal death reports 256+signal so the receiving
// end can tell the two apart unambiguously.
func encodeExitCode(exited bool, exitCode int, signaled bool, signal int) (uint32, error) {
	switch {
	case signaled:
		return uint32(256 + signal), nil
	case exited:
		return uint32(exitCode), nil
	default:
		return 0, fmt.Errorf("child neither exited nor was signaled")
	}
}

func writeExitCode(f *os.File, code uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], code)
	n, err := f.Write(buf[:])
	if err != nil {
		return err
	}
	if n != 4 {
		return fmt.Errorf("short write of exit code: wrote %d bytes", n)
	}
	return nil
}

func readExitCode(f *os.File) (uint32, error) {
	var buf [4]byte
	n, err := f.Read(buf[:])
	if err != nil {
		return 0, err
	}
	if n != 4 {
		return 0, fmt.Errorf("short read of exit code: read %d bytes", n)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
