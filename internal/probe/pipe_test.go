package probe

import (
	"os"
	"testing"
)

func TestReadyByteRoundTrip(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	if err := writeReadyByte(w); err != nil {
		t.Fatalf("writeReadyByte: %v", err)
	}
	if err := readReadyByte(r); err != nil {
		t.Fatalf("readReadyByte: %v", err)
	}
}

func TestReadReadyByteOnClosedPipeErrors(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	defer r.Close()

	if err := readReadyByte(r); err == nil {
		t.Error("expected error reading from a pipe with no writer left")
	}
}
