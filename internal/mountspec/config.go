package mountspec

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mode selects where the mount-the-world sequence runs relative to the
// clone that creates the container's namespaces.
type Mode int

const (
	// Unprivileged mounts inside the new user namespace, after release.
	// This is the normal path: no special privilege is ever held outside
	// the namespace.
	Unprivileged Mode = iota
	// Privileged mounts outside the new user namespace before cloning, in
	// a private mount namespace the supervisor unshares for itself, for
	// kernels that refuse overlayfs-in-userns (e.g. some Arch Linux
	// configurations). Requires effective UID 0.
	Privileged
)

func (m Mode) String() string {
	if m == Privileged {
		return "privileged"
	}
	return "unprivileged"
}

// MarshalJSON renders a Mode by name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON parses a Mode by name.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "privileged":
		*m = Privileged
	case "unprivileged":
		*m = Unprivileged
	default:
		return fmt.Errorf("unknown mode %q", s)
	}
	return nil
}

// DetectMode chooses Privileged when running as root, Unprivileged
// otherwise, unless FORCE_SANDBOX_MODE overrides the decision. An
// unrecognized FORCE_SANDBOX_MODE value is a configuration error, matching
// the original's fatal exit on an unknown value.
func DetectMode(euid int) (Mode, error) {
	switch forced := os.Getenv("FORCE_SANDBOX_MODE"); forced {
	case "privileged":
		return Privileged, nil
	case "unprivileged":
		return Unprivileged, nil
	case "":
		if euid == 0 {
			return Privileged, nil
		}
		return Unprivileged, nil
	default:
		return 0, fmt.Errorf("unknown FORCE_SANDBOX_MODE %q (want privileged or unprivileged)", forced)
	}
}

// Config is the fully-parsed, immutable-after-construction sandbox
// configuration. Every field has already been validated by the time a
// Config exists.
type Config struct {
	Rootfs     string      `json:"rootfs"`
	Cwd        string      `json:"cwd,omitempty"`
	Entrypoint string      `json:"entrypoint,omitempty"`
	Persist    string      `json:"persist,omitempty"`
	TmpfsSize  string      `json:"tmpfs_size"`
	DstUID     int         `json:"dst_uid"`
	DstGID     int         `json:"dst_gid"`
	SrcUID     int         `json:"src_uid"`
	SrcGID     int         `json:"src_gid"`
	Hostname   string      `json:"hostname,omitempty"`
	UserXattr  bool        `json:"userxattr"`
	Verbose    bool        `json:"verbose"`
	Mode       Mode        `json:"mode"`
	Mounts     []MountSpec `json:"mounts,omitempty"`
}

// ResolveOutsideIdentity returns the outside uid/gid a sandbox should map
// from: SUDO_UID/SUDO_GID when set and non-empty (running under sudo means
// getuid()/getgid() would report 0, the wrong identity to map), otherwise
// the real uid/gid. It also unsets SUDO_UID/SUDO_GID from the current
// process's environment so a nested sandbox invocation doesn't inherit a
// stale outside identity that refers to nothing inside its own container.
func ResolveOutsideIdentity(getuid, getgid func() int) (uid, gid int) {
	uid, gid = getuid(), getgid()
	if v := os.Getenv("SUDO_UID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			uid = n
		}
	}
	if v := os.Getenv("SUDO_GID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			gid = n
		}
	}
	os.Unsetenv("SUDO_UID")
	os.Unsetenv("SUDO_GID")
	return uid, gid
}

// NormalizeRootfs strips a single trailing slash, matching the original
// parser's treatment of --rootfs.
func NormalizeRootfs(path string) string {
	return strings.TrimSuffix(path, "/")
}

// Validate checks the invariants that must hold before World-mounter can
// run: rootfs given, uid/gid ranges sane (this implementation only ever
// maps a single id, so there's nothing to range-check beyond non-negative).
func (c *Config) Validate() error {
	if c.Rootfs == "" {
		return fmt.Errorf("--rootfs is required")
	}
	if c.DstUID < 0 || c.DstGID < 0 {
		return fmt.Errorf("--uid/--gid must not be negative")
	}
	for _, m := range c.Mounts {
		if !strings.HasPrefix(m.OutsidePath, "/") {
			return fmt.Errorf("mount %q: outside path must be absolute", m.OutsidePath)
		}
	}
	return nil
}
