package userns

import "testing"

func TestFormatIDMap(t *testing.T) {
	cases := []struct {
		inside, outside int
		want            string
	}{
		{0, 1000, "0\t1000\t1\n"},
		{1000, 0, "1000\t0\t1\n"},
	}
	for _, c := range cases {
		got := formatIDMap(c.inside, c.outside)
		if got != c.want {
			t.Errorf("formatIDMap(%d, %d) = %q, want %q", c.inside, c.outside, got, c.want)
		}
	}
}

func TestWriteProcFileMissingPid(t *testing.T) {
	// pid 0 never has a /proc entry of its own; this exercises the open
	// failure path without requiring any namespace privilege.
	if err := writeProcFile(0, "uid_map", []byte("0\t0\t1\n")); err == nil {
		t.Error("expected an error writing to a nonexistent proc file")
	}
}
