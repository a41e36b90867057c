package mountutil

import (
	"reflect"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSplitOpts(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"rw", []string{"rw"}},
		{"rw,nosuid,nodev", []string{"rw", "nosuid", "nodev"}},
		{"relatime,", []string{"relatime"}},
	}
	for _, c := range cases {
		got := splitOpts(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitOpts(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLockedFlagsByNameCoversKnownOptions(t *testing.T) {
	want := map[string]uintptr{
		"nodev":      unix.MS_NODEV,
		"nosuid":     unix.MS_NOSUID,
		"noexec":     unix.MS_NOEXEC,
		"noatime":    unix.MS_NOATIME,
		"nodiratime": unix.MS_NODIRATIME,
		"relatime":   unix.MS_RELATIME,
	}
	for name, flag := range want {
		if lockedFlagsByName[name] != flag {
			t.Errorf("lockedFlagsByName[%q] = %v, want %v", name, lockedFlagsByName[name], flag)
		}
	}
}
