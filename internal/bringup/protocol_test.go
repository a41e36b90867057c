package bringup

import (
	"os"
	"testing"
)

func TestEncodeExitCode(t *testing.T) {
	cases := []struct {
		name     string
		exited   bool
		exitCode int
		signaled bool
		signal   int
		want     uint32
		wantErr  bool
	}{
		{name: "normal exit zero", exited: true, exitCode: 0, want: 0},
		{name: "normal exit nonzero", exited: true, exitCode: 7, want: 7},
		{name: "killed by sigkill", signaled: true, signal: 9, want: 256 + 9},
		{name: "killed by sigterm", signaled: true, signal: 15, want: 256 + 15},
		{name: "neither exited nor signaled", wantErr: true},
	}
	for _, c := range cases {
		got, err := encodeExitCode(c.exited, c.exitCode, c.signaled, c.signal)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %d", c.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: encodeExitCode = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestEncodeExitCodePrefersSignaled(t *testing.T) {
	// A disposition reporting both should never happen in practice, but
	// the switch order matters: signaled is checked first.
	got, err := encodeExitCode(true, 0, true, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := uint32(256 + 11); got != want {
		t.Errorf("encodeExitCode = %d, want %d", got, want)
	}
}

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

func TestExitCodeRoundTrip(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	const want uint32 = 256 + 9
	if err := writeExitCode(w, want); err != nil {
		t.Fatalf("writeExitCode: %v", err)
	}
	got, err := readExitCode(r)
	if err != nil {
		t.Fatalf("readExitCode: %v", err)
	}
	if got != want {
		t.Errorf("readExitCode = %d, want %d", got, want)
	}
}
