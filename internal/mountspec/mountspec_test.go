package mountspec

import "testing"

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", ReadWrite, false},
		{"rw", ReadWrite, false},
		{"ro", ReadOnly, false},
		{"ov", Overlayed, false},
		{"bogus", 0, true},
	}
	for _, c := range cases {
		got, err := ParseKind(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseKind(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestKindString(t *testing.T) {
	cases := []struct {
		in   Kind
		want string
	}{
		{ReadWrite, "rw"},
		{ReadOnly, "ro"},
		{Overlayed, "ov"},
		{Kind(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseMountFlag(t *testing.T) {
	cases := []struct {
		raw     string
		want    MountSpec
		wantErr bool
	}{
		{
			raw:  "/home/user/workspace:/workspace",
			want: MountSpec{OutsidePath: "/home/user/workspace", MountPoint: "/workspace", Kind: ReadWrite},
		},
		{
			raw:  "/etc/resolv.conf:/etc/resolv.conf:ro",
			want: MountSpec{OutsidePath: "/etc/resolv.conf", MountPoint: "/etc/resolv.conf", Kind: ReadOnly},
		},
		{
			raw:  "/data:/data:ov",
			want: MountSpec{OutsidePath: "/data", MountPoint: "/data", Kind: Overlayed},
		},
		{
			raw:     "relative/path:/workspace",
			wantErr: true,
		},
		{
			raw:     "noColonAtAll",
			wantErr: true,
		},
		{
			raw:     "/home/user:/workspace:bogus",
			wantErr: true,
		},
	}
	for _, c := range cases {
		got, err := ParseMountFlag(c.raw)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseMountFlag(%q): expected error, got %+v", c.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMountFlag(%q): unexpected error: %v", c.raw, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseMountFlag(%q) = %+v, want %+v", c.raw, got, c.want)
		}
	}
}

func TestStrippedMountPoint(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/workspace", "workspace"},
		{"//workspace", "workspace"},
		{"workspace", "workspace"},
		{"/", ""},
	}
	for _, c := range cases {
		if got := StrippedMountPoint(c.in); got != c.want {
			t.Errorf("StrippedMountPoint(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
