package mountspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileDefaults is the shape of an optional --config YAML file: a reusable
// sandbox profile a caller can check in instead of repeating a long
// --mount list on every invocation. Every field is a pointer or a nil-able
// slice so ApplyDefaults can tell "not set in the file" apart from "set to
// the zero value" and leave explicit flags in charge.
type FileDefaults struct {
	Rootfs    *string     `yaml:"rootfs"`
	Cwd       *string     `yaml:"cd"`
	Persist   *string     `yaml:"persist"`
	TmpfsSize *string     `yaml:"tmpfs_size"`
	UID       *int        `yaml:"uid"`
	GID       *int        `yaml:"gid"`
	Hostname  *string     `yaml:"hostname"`
	UserXattr *bool       `yaml:"userxattr"`
	Mounts    []FileMount `yaml:"mounts"`
}

// FileMount mirrors MountSpec in a YAML-friendly shape.
type FileMount struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Kind string `yaml:"kind"`
}

// LoadFile reads and parses a --config YAML file.
func LoadFile(path string) (*FileDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fd FileDefaults
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fd, nil
}

// ApplyDefaults fills any zero-valued field of c from fd, without
// overriding a value the caller already set via flags. Mounts declared in
// the file are used only when c has no mounts yet (no usable --mount flag
// was given); any --mount flag replaces the file's whole mount list.
func (fd *FileDefaults) ApplyDefaults(c *Config) error {
	if fd == nil {
		return nil
	}
	if c.Rootfs == "" && fd.Rootfs != nil {
		c.Rootfs = NormalizeRootfs(*fd.Rootfs)
	}
	if c.Cwd == "" && fd.Cwd != nil {
		c.Cwd = *fd.Cwd
	}
	if c.Persist == "" && fd.Persist != nil {
		c.Persist = *fd.Persist
	}
	if c.TmpfsSize == "" && fd.TmpfsSize != nil {
		c.TmpfsSize = *fd.TmpfsSize
	}
	if c.DstUID == 0 && fd.UID != nil {
		c.DstUID = *fd.UID
	}
	if c.DstGID == 0 && fd.GID != nil {
		c.DstGID = *fd.GID
	}
	if c.Hostname == "" && fd.Hostname != nil {
		c.Hostname = *fd.Hostname
	}
	if !c.UserXattr && fd.UserXattr != nil {
		c.UserXattr = *fd.UserXattr
	}
	if len(c.Mounts) == 0 && len(fd.Mounts) > 0 {
		mounts := make([]MountSpec, 0, len(fd.Mounts))
		for _, m := range fd.Mounts {
			kind, err := ParseKind(m.Kind)
			if err != nil {
				return fmt.Errorf("config mount %s:%s: %w", m.From, m.To, err)
			}
			if m.From == "" || m.From[0] != '/' {
				return fmt.Errorf("config mount %q: outside path must be absolute", m.From)
			}
			mounts = append(mounts, MountSpec{OutsidePath: m.From, MountPoint: m.To, Kind: kind})
		}
		c.Mounts = mounts
	}
	return nil
}
