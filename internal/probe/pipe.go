package probe

import (
	"fmt"
	"os"
)

// Same fixed fd numbers as the main sandbox's rendezvous: container-init
// style protocols in this codebase always hand the release pipe's read
// end in at fd 3 and the ready pipe's write end in at fd 4.
const (
	releaseFD = 3
	readyFD   = 4
)

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
