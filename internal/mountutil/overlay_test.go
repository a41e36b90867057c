package mountutil

import "testing"

func TestNewOverlayLocation(t *testing.T) {
	loc := NewOverlayLocation("/work", "rootfs")
	if loc.Upper != "/work/upper/rootfs" {
		t.Errorf("Upper = %q, want %q", loc.Upper, "/work/upper/rootfs")
	}
	if loc.Work != "/work/work/rootfs" {
		t.Errorf("Work = %q, want %q", loc.Work, "/work/work/rootfs")
	}
}

